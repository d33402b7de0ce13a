package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ldi/zenflow/internal/assistant"
	"github.com/ldi/zenflow/internal/config"
	"github.com/ldi/zenflow/internal/db"
	"github.com/ldi/zenflow/internal/gateway"
	"github.com/ldi/zenflow/internal/store"
	"github.com/rs/zerolog/log"
)

// session bundles the state one command works on.
type session struct {
	store    *store.Store
	gateway  *gateway.Gateway
	chat     *assistant.Conversation
	database *db.DB
}

// openSession restores the last archived session, or seeds a fresh one, and
// wires persistence for every later mutation. The sqlite archive wins over
// the JSONL snapshot when both are configured.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	initial := store.Seed(time.Now())
	sess := &session{chat: assistant.NewConversation()}

	switch {
	case cfg.Storage.DBPath != "":
		database, err := db.Open(cfg.Storage.DBPath)
		if err != nil {
			return nil, err
		}
		if err := database.Init(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		snap, ok, err := database.LoadSnapshot(ctx)
		if err != nil {
			database.Close()
			return nil, err
		}
		if ok {
			initial = snap
			log.Debug().Str("path", cfg.Storage.DBPath).Msg("restored session from database")
		}
		sess.database = database

	case cfg.Storage.SnapshotPath != "":
		if _, err := os.Stat(cfg.Storage.SnapshotPath); err == nil {
			snap, err := db.ImportSnapshot(cfg.Storage.SnapshotPath)
			if err != nil {
				return nil, fmt.Errorf("failed to import snapshot: %w", err)
			}
			initial = snap
			log.Debug().Str("path", cfg.Storage.SnapshotPath).Msg("restored session from snapshot")
		}
	}

	sess.store = store.New(initial, store.WithNotificationLimit(cfg.Store.MaxNotifications))

	if sess.database != nil {
		sess.database.EnableAutoSave(sess.store, cfg.Storage.SnapshotPath)
	} else if cfg.Storage.SnapshotPath != "" {
		db.EnableAutoSnapshot(sess.store, cfg.Storage.SnapshotPath)
	}

	if cfg.AI.APIKey == "" {
		log.Warn().Msg("no Gemini API key configured; assistant requests will fail")
	}
	sess.gateway = gateway.New(gateway.NewGeminiClient(cfg.AI.APIKey,
		gateway.WithModel(cfg.AI.Model),
		gateway.WithBaseURL(cfg.AI.BaseURL),
	))
	return sess, nil
}

func (s *session) Close() {
	if s.database != nil {
		s.database.Close()
	}
}
