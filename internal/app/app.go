// Package app wires the configured store, executor, auth client and bank
// service together for the command entrypoints.
package app

import (
	"fmt"

	"github.com/dvcrn/bank-api-client/internal/auth"
	"github.com/dvcrn/bank-api-client/internal/bank"
	"github.com/dvcrn/bank-api-client/internal/config"
	"github.com/dvcrn/bank-api-client/internal/credentials"
	"github.com/dvcrn/bank-api-client/internal/executor"
	serverhttp "github.com/dvcrn/bank-api-client/internal/http"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

// App holds the long-lived client components.
type App struct {
	Config *config.Config
	Store  credentials.Store
	Auth   *auth.Client
	Bank   *bank.Service
}

// New opens the credential store selected by cfg and builds the client stack
// on top of it.
func New(cfg *config.Config) (*App, error) {
	store, err := credentials.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	return NewWithStore(cfg, store), nil
}

// NewWithStore builds the client stack over an already opened store.
func NewWithStore(cfg *config.Config, store credentials.Store) *App {
	exec := executor.New(serverhttp.NewHTTPClient(cfg.RequestTimeout))

	opts := []auth.Option{
		auth.WithBaseURL(cfg.BaseURL),
		auth.WithRefreshTimeout(cfg.RefreshTimeout),
	}
	if len(cfg.PublicPaths) > 0 {
		opts = append(opts, auth.WithPublicPaths(cfg.PublicPaths...))
	}
	client := auth.NewClient(exec, store, opts...)

	logger.Get().Debug().
		Str("base_url", cfg.BaseURL).
		Str("store", store.Name()).
		Msg("Client configured")

	return &App{
		Config: cfg,
		Store:  store,
		Auth:   client,
		Bank:   bank.NewService(client, bank.WithPageSize(cfg.ListPageSize)),
	}
}
