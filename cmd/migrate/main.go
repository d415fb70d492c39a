package main

import (
	"context"
	"flag"
	"os"
	"time"

	infraBQ "github.com/dvloznov/finance-bot/internal/infra/bigquery"
	"github.com/dvloznov/finance-bot/internal/logger"
)

var (
	projectID     = flag.String("project", os.Getenv("BIGQUERY_PROJECT"), "GCP project ID (or set BIGQUERY_PROJECT env)")
	datasetID     = flag.String("dataset", infraBQ.DefaultDataset, "BigQuery dataset ID")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "", "Directory of migration files (defaults to the embedded set)")
)

func main() {
	flag.Parse()
	log := logger.New()

	// Validate required flags
	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	migrator, err := infraBQ.NewMigrator(ctx, *projectID, *datasetID, *appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer migrator.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	fsys := infraBQ.Migrations()
	if *migrationsDir != "" {
		fsys = os.DirFS(*migrationsDir)
	}

	count, err := migrator.Apply(ctx, fsys)
	if err != nil {
		log.Fatal().Err(err).Int("applied", count).Msg("Migration failed")
	}

	if count == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
		return
	}
	log.Info().Int("applied", count).Msg("Migrations applied")
}
