package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/matchday/internal/dbconfig"
	"github.com/pitchside/matchday/internal/match/outbox"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dbCfg := dbconfig.NewConfigFromEnv()
	database, err := setupDatabase(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer database.Close()

	services := setupServices(database)
	server := setupServer(services)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Outbox relay: recorded events -> JetStream.
	jsCfg := outbox.DefaultJetStreamConfig()
	if cfg.NATS.URL != "" {
		jsCfg.URL = cfg.NATS.URL
	}
	if cfg.NATS.Stream != "" {
		jsCfg.StreamName = cfg.NATS.Stream
	}
	if cfg.NATS.SubjectPrefix != "" {
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
	}

	publisher, err := outbox.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream publisher")
	}
	defer publisher.Close()

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	if cfg.Outbox.NotifyChannel != "" {
		listenerCfg.NotifyChannel = cfg.Outbox.NotifyChannel
	}
	if cfg.Outbox.FallbackInterval > 0 {
		listenerCfg.FallbackInterval = cfg.Outbox.FallbackInterval
	}

	listener, err := outbox.NewListener(database, publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}
	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener stopped")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("matchday service listening")
		if err := server.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := server.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close server")
	}
}
