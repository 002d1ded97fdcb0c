package main

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/oz-earth/smart-contracts/pkg/db"
	"github.com/oz-earth/smart-contracts/pkg/domain"
	"github.com/oz-earth/smart-contracts/pkg/engine"
	"github.com/oz-earth/smart-contracts/services/registry/internal/authn"
	"github.com/oz-earth/smart-contracts/services/registry/internal/store"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "registry").Logger()

	var st *store.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect journal store")
		}
		st = store.New(pool)
		if err := st.EnsureSchema(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("ensure schema")
		}
	} else {
		logger.Warn().Msg("DATABASE_URL unset; event journal disabled")
	}

	creds := authn.NewRegistry()
	creds.Seed(cfg.AdminToken, domain.Address(cfg.AdminAccount))

	srv := newServer(logger, creds, st)
	srv.eng = engine.New(domain.Address(cfg.AdminAccount), engine.WithSink(srv.journal))

	logger.Info().Str("port", cfg.Port).Msg("registry listening")
	if err := http.ListenAndServe(":"+cfg.Port, srv.routes()); err != nil {
		logger.Fatal().Err(err).Msg("serve")
	}
}
