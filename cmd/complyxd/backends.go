package main

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/audit"
	"github.com/complyx/complyx/internal/config"
	"github.com/complyx/complyx/internal/engine"
	"github.com/complyx/complyx/internal/metrics"
	"github.com/complyx/complyx/internal/suggest"
	"github.com/complyx/complyx/internal/vault"
)

// openKV opens the key/value engine named by driver.
func openKV(driver string, cfg config.StorageConfig, logger *zap.Logger) (engine.KV, error) {
	if driver == "memory" {
		return engine.NewMemStore(nil, nil, logger), nil
	}

	var key []byte
	if cfg.EncryptionKey != "" {
		salt, err := vault.LoadOrCreateSalt(filepath.Join(cfg.DataDir, "key.salt"))
		if err != nil {
			return nil, err
		}
		key = vault.DeriveKey(cfg.EncryptionKey, salt)
	}

	switch driver {
	case "file":
		p, err := engine.NewPersistence(filepath.Join(cfg.DataDir, "buckets"), key, logger)
		if err != nil {
			return nil, fmt.Errorf("init persistence: %w", err)
		}
		data, err := p.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load buckets: %w", err)
		}
		logger.Info("file storage loaded", zap.String("dir", p.DataDir), zap.Int("buckets", len(data)))
		return engine.NewMemStore(data, p, logger), nil
	case "badger":
		bc := engine.DefaultBadgerConfig(filepath.Join(cfg.DataDir, "badger"))
		bc.EncryptionKey = key
		return engine.OpenBadger(bc, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func openAudit(ctx context.Context, cfg config.AuditConfig) (audit.Log, error) {
	if cfg.Driver == "memory" {
		return audit.NewMemoryLog(), nil
	}
	return audit.OpenSQL(ctx, audit.Dialect(cfg.Driver), cfg.DSN)
}

// newSuggester returns the heuristic provider, fronted by OpenAI when configured.
func newSuggester(cfg config.AIConfig, m *metrics.Metrics, logger *zap.Logger) (suggest.SuggestionProvider, error) {
	heuristic := suggest.NewHeuristicProvider()
	if cfg.Provider != "openai" {
		return heuristic, nil
	}
	primary, err := suggest.NewOpenAIProvider(suggest.OpenAIConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &suggest.FallbackProvider{
		Primary:    primary,
		Secondary:  heuristic,
		Logger:     logger,
		OnFallback: func(k suggest.Kind) { m.ObserveFallback(string(k)) },
	}, nil
}
