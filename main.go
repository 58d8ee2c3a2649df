package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/civiclens/permit-crawler/archive"
	"github.com/civiclens/permit-crawler/common/config"
	"github.com/civiclens/permit-crawler/common/db"
	"github.com/civiclens/permit-crawler/common/messaging"
	"github.com/civiclens/permit-crawler/crawler"
	"github.com/civiclens/permit-crawler/scheduler"
	"github.com/civiclens/permit-crawler/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("Error loading .env file, using environment variables")
	}

	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	dbConn, err := db.SetupDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup database")
	}
	defer dbConn.Close()

	natsClient, err := messaging.SetupNatsBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup NATS client")
	}
	defer natsClient.Close()

	// Snapshot archiving is optional; without a bucket the archiver is a
	// no-op and crawls still run.
	var archiver *archive.Archiver
	if cfg.GCS.Bucket != "" {
		gcsStorage, err := archive.NewGCSStorage(ctx, cfg.GCS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup GCS storage")
		}
		defer gcsStorage.Close()
		archiver = archive.NewArchiver(gcsStorage, cfg.GCS.Bucket)
	} else {
		log.Warn().Msg("No snapshot bucket configured, page archiving disabled")
		archiver = archive.NewArchiver(nil, "")
	}

	seenCache := store.NewSeenCache(dbConn.Redis)

	orchestrator := crawler.NewOrchestrator(cfg.Browser)
	orchestrator.SetArchiver(archiver)
	orchestrator.SetSeenCache(seenCache)

	service := crawler.NewService(
		orchestrator,
		store.NewPermitStore(dbConn),
		store.NewRunStore(dbConn),
		seenCache,
		natsClient,
	)

	if err := service.Subscribe(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe crawl workers")
	}
	log.Info().Msg("Crawl workers subscribed")

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(natsClient, cfg.Scheduler.CronSpec)
		if cfg.Scheduler.Local {
			sched.SetLocalRunner(service)
		}
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	server, err := NewAppHttpServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create the server")
	}

	server.SetDB(dbConn)
	server.SetNatsClient(natsClient)
	server.setupRoute()

	go func() {
		if err := server.start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			cancel()
		}
	}()

	log.Info().Str("address", cfg.Listen.Addr()).Msg("Server started successfully")

	<-shutdown
	log.Info().Msg("Shutdown signal received")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server gracefully stopped")
}
