package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"termeval/internal/config"
	"termeval/internal/session"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(0)
	log.SetPrefix("termeval-mcp: ")
	log.SetOutput(os.Stderr)

	var cfgPath, contextPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.StringVar(&contextPath, "context", "", "Serialized context to load at startup (optional)")
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

	sess, err := session.FromConfig(cfg, log.Default())
	if err != nil {
		log.Fatalf("failed to assemble session: %v", err)
	}
	if contextPath != "" {
		out, err := sess.Run(session.Command{Kind: session.LoadContext, Arg: contextPath})
		if err != nil {
			log.Fatalf("failed to load context: %v", err)
		}
		log.Print(out)
	}

	s := server.NewMCPServer(
		"termeval",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	t := &tools{svc: sess}
	t.register(s)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
