package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"termeval/internal/model"
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	payload TEXT NOT NULL
)`

// ErrNoSnapshot is returned by Load when the database holds no snapshots.
var ErrNoSnapshot = errors.New("no model snapshot in database")

// Store appends every snapshot to a SQLite database file. Load returns the
// most recent one, so the file doubles as a history of saved models.
type Store struct{}

func NewStore() *Store { return &Store{} }

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

func (s *Store) Save(path string, snap *model.Serialized) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec("INSERT INTO snapshots (created_at, payload) VALUES (?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano), string(payload))
	return err
}

func (s *Store) Load(path string) (*model.Serialized, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var payload string
	err = db.QueryRow("SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	var snap model.Serialized
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
