// Command server runs the matchbook TCP matching engine front-end,
// resolving configuration from the environment and blocking until
// SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchbook/internal/config"
	"matchbook/internal/netsrv"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg, err := config.FromEnvAndFlags(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	srv := netsrv.New(cfg.BindAddr, cfg.Port, cfg.MaxClients)
	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}
