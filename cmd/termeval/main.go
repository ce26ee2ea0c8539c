package main

import (
	"flag"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"

	"termeval/internal/config"
	"termeval/internal/repl"
	"termeval/internal/session"
	"termeval/internal/tui"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(0)
	log.SetPrefix("termeval: ")

	var cfgPath, contextPath string
	var plain bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/termeval/config.yaml if not provided)")
	flag.StringVar(&contextPath, "context", "", "Serialized context to load at startup (optional)")
	flag.BoolVar(&plain, "plain", false, "Use the line REPL instead of the full-screen TUI")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sess, err := session.FromConfig(cfg, log.New(os.Stderr, "termeval: ", 0))
	if err != nil {
		log.Fatalf("failed to assemble session: %v", err)
	}
	if contextPath != "" {
		if _, err := sess.Run(session.Command{Kind: session.LoadContext, Arg: contextPath}); err != nil {
			log.Fatalf("failed to load context: %v", err)
		}
	}

	if plain || cfg.REPL.Mode == "line" {
		history, err := homedir.Expand(cfg.REPL.HistoryFile)
		if err != nil {
			log.Fatalf("history file: %v", err)
		}
		if err := repl.Start(sess, cfg.REPL.Prompt, history); err != nil {
			log.Fatal(err)
		}
		return
	}

	m := tui.New(sess, cfg.REPL.Prompt)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
