package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/identity-host/internal/adapter"
	"github.com/MKhiriev/identity-host/internal/config"
	"github.com/MKhiriev/identity-host/internal/delivery"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/internal/service"
	"github.com/MKhiriev/identity-host/internal/store"
	"github.com/MKhiriev/identity-host/internal/workers"
	"github.com/MKhiriev/identity-host/migrations"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("identity-host")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(
		log.WithContext(context.Background()),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	db, err := store.NewConnectPostgres(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	defer db.Close()

	if err = migrations.Migrate(db.DB); err != nil {
		log.Fatal().Err(err).Msg("error running migrations")
	}

	repositories := store.NewRepositories(db, log)
	services := service.NewServices(repositories, cfg, log)

	if err = services.CircleService.EnsureSystemCircle(ctx); err != nil {
		log.Fatal().Err(err).Msg("error ensuring system circle")
	}

	sealingKey, err := delivery.ParseSealingKey(cfg.Host.SealingKey)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid outbox sealing key")
	}
	defer sealingKey.Wipe()

	peerClient := adapter.NewPeerTransferClient(cfg.Peer, log)

	processor, err := delivery.NewProcessor(
		repositories.OutboxRepository,
		repositories.FileRepository,
		peerClient,
		cfg.Outbox,
		sealingKey,
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating outbox processor")
	}

	sender, err := delivery.NewSender(
		repositories.OutboxRepository,
		repositories.FileRepository,
		repositories.DriveRepository,
		repositories.EscrowRepository,
		services.ConnectionService,
		processor,
		sealingKey,
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating delivery sender")
	}

	reconciler := delivery.NewEscrowReconciler(
		repositories.EscrowRepository,
		services.ConnectionService,
		sender,
		log,
	)

	backgroundWorkers := workers.NewWorkers(
		workers.NewOutboxDrainWorker(processor, cfg.Outbox, log),
		workers.NewClaimRecoveryWorker(processor, log),
		workers.NewEscrowReconcileWorker(reconciler, log),
	)
	backgroundWorkers.Run()

	log.Info().
		Str("identity", cfg.Host.Identity).
		Msg("identity host started")

	<-ctx.Done()

	backgroundWorkers.Stop()
	log.Info().Msg("identity host shut down gracefully")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
