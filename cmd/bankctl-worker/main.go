//go:build js && wasm

package main

import (
	"context"

	"github.com/syumai/workers"

	"github.com/dvcrn/bank-api-client/internal/app"
	"github.com/dvcrn/bank-api-client/internal/config"
	"github.com/dvcrn/bank-api-client/internal/logger"
	"github.com/dvcrn/bank-api-client/internal/server"
)

var srv *server.Server

func init() {
	cfg, err := config.Load("")
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Store != config.StoreMemory {
		cfg.Store = config.StoreKV
	}

	a, err := app.New(cfg)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to create credential store")
	}

	srv = server.NewServer(a)

	// Workers have no background ticker; refresh happens on 401 only.
	srv.CheckSession(context.Background())
}

func main() {
	workers.Serve(srv)
}
