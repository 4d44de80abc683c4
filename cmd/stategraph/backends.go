package main

import (
	"fmt"
	"os"

	"github.com/dshills/stategraph/graph/model"
	anthropicmodel "github.com/dshills/stategraph/graph/model/anthropic"
	googlemodel "github.com/dshills/stategraph/graph/model/google"
	openaimodel "github.com/dshills/stategraph/graph/model/openai"
	"github.com/dshills/stategraph/internal/config"
	"github.com/dshills/stategraph/memory"
	"github.com/dshills/stategraph/search"
	"github.com/dshills/stategraph/workflow"
)

// newChatModel builds the configured provider's chat model.
func newChatModel(cfg *config.Config) (model.ChatModel, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("no API key for provider %s", cfg.Provider)
	}
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropicmodel.NewChatModel(key, cfg.Model), nil
	case config.ProviderGoogle:
		return googlemodel.NewChatModel(key, cfg.Model), nil
	default:
		return openaimodel.NewChatModel(key, cfg.Model), nil
	}
}

// openMemory opens the configured HITL memory backend.
func openMemory(cfg config.Memory) (memory.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := memory.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMySQL:
		s, err := memory.NewMySQLStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		var opts []memory.RedisOption
		if cfg.Prefix != "" {
			opts = append(opts, memory.WithPrefix(cfg.Prefix))
		}
		return memory.NewRedisStore(cfg.Addr, cfg.Password, cfg.DB, opts...), nil
	default:
		return memory.NewMemStore(), nil
	}
}

// loadCatalog reads path as a product catalog, or the bundled sample
// catalog when path is empty.
func loadCatalog(path string) (*search.Index, error) {
	if path == "" {
		return workflow.SampleProducts()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return search.LoadIndex(f)
}
