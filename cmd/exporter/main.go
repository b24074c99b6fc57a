package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"syara/config"
	"syara/internal/clickhouse"
	"syara/internal/exporter"
	"syara/internal/postgres"
	"syara/internal/rabbitmq"
	"syara/pkg/logger"
)

func main() {
	// Initialize logger
	logger.Init()
	log.Println("🚀 Starting Exporter Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("✓ Configuration loaded")
	log.Printf("  - RabbitMQ: %s (queue %s)", cfg.RabbitMQ.URL, cfg.RabbitMQ.ExportQueue)
	log.Printf("  - Postgres: %s:%d/%s", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database)
	log.Printf("  - Interval: %s (grace %s)", cfg.Export.Interval, cfg.Export.MisfireGrace)

	// Connect to Postgres
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgClient.Close()
	log.Println("✓ Connected to Postgres")

	// Connect to RabbitMQ
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()
	log.Println("✓ Connected to RabbitMQ")

	// Connect to ClickHouse for the audit trail; the exporter runs without it
	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Printf("ClickHouse unavailable, audit trail disabled: %v", err)
		chClient = nil
	} else {
		defer chClient.Close()
		log.Println("✓ Connected to ClickHouse")
	}

	reader := exporter.NewSnapshotReader(pgClient)
	exp := exporter.NewExporter(reader, publisher, chClient, cfg.RabbitMQ.ExportQueue)
	scheduler := exporter.NewScheduler(cfg.Export.Interval, cfg.Export.MisfireGrace, exp.ExportTick)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Run(ctx)

	log.Println("✓ Exporter stopped gracefully")
}
