package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/orms-project/orms/internal/ai"
	"github.com/orms-project/orms/internal/backend"
	"github.com/orms-project/orms/internal/config"
	"github.com/orms-project/orms/internal/respond"
	"github.com/orms-project/orms/internal/server"
	"github.com/orms-project/orms/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "orms.yaml"
	}
	cfgm, err := config.NewManager(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfgm.Watch(ctx); err != nil {
		log.Printf("config: file watching disabled: %v", err)
	}
	cfg := cfgm.Current()

	db, err := sql.Open("sqlite", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	store, err := session.NewSQLiteStore(ctx, db)
	if err != nil {
		log.Fatalf("preparing session store: %v", err)
	}
	sessions, err := session.NewManager(ctx, store, cfg.Sessions.MaxAge, cfg.Sessions.IdleTimeout)
	if err != nil {
		log.Fatalf("restoring sessions: %v", err)
	}

	captchas := respond.NewCaptchaStore(cfg.Captcha.TTL)
	backendClient := backend.New(cfgm.BackendURL(), cfg.Backend.Timeout)
	aiClient := ai.New(cfgm.AIURL(), cfg.AI.Timeout)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sessions.Cleanup(ctx)
				captchas.Cleanup()
			}
		}
	}()

	if err := server.Run(ctx, server.Config{
		Port:     cfg.Port,
		Sessions: sessions,
		Backend:  backendClient,
		AI:       aiClient,
		Captchas: captchas,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
