package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-bot/internal/app"
	"github.com/dvloznov/finance-bot/internal/config"
	"github.com/dvloznov/finance-bot/internal/logger"
)

func main() {
	log := logger.New()

	open := func(ctx context.Context, envFile string) (*app.App, zerolog.Logger, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, log, err
		}
		if err := cfg.ValidateStore(); err != nil {
			return nil, log, err
		}
		l, err := logger.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return nil, log, err
		}
		a, err := app.New(ctx, cfg, l)
		return a, l, err
	}

	if err := newRootCommand(open).Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
