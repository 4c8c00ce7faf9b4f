package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/admob-reporting/internal/config"
	infra "github.com/dvloznov/admob-reporting/internal/infra/bigquery"
	"github.com/dvloznov/admob-reporting/internal/logger"
)

var (
	location      = flag.String("location", "US", "Location used when the dataset has to be created")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "", "Directory of migration files (defaults to the built-in set)")
)

func main() {
	flag.Parse()

	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	table, err := cfg.Table()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid target table")
	}
	if table.ProjectID == "" {
		log.Fatal().Msg("Error: set GOOGLE_CLOUD_PROJECT or a fully qualified TARGET_TABLE")
	}
	log = logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	if err := migrate(context.Background(), table, log); err != nil {
		log.Error().Err(err).Msg("Migration failed")
		os.Exit(1)
	}
}

func migrate(ctx context.Context, table config.TableRef, log zerolog.Logger) error {
	loader, err := infra.NewLoader(ctx, table.ProjectID)
	if err != nil {
		return err
	}
	defer loader.Close()
	client := loader.Client()

	log.Info().Str(logger.FieldTable, table.String()).Msg("Connected to BigQuery")

	created, err := loader.EnsureDataset(ctx, table, *location)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("dataset", table.DatasetID).Str("location", *location).Msg("Created dataset")
	}

	// Views select from the report table, which the first load creates.
	if _, err := loader.TableStats(ctx, table); err != nil {
		if infra.IsNotFound(err) {
			return fmt.Errorf("table %s does not exist yet, run a report load first", table)
		}
		return err
	}

	if err := ensureSchemaMigrationsTable(ctx, client, table); err != nil {
		return fmt.Errorf("ensuring schema_migrations table: %w", err)
	}

	var fsys fs.FS
	if *migrationsDir != "" {
		fsys = os.DirFS(*migrationsDir)
	} else {
		fsys, err = fs.Sub(embedded, "migrations")
		if err != nil {
			return err
		}
	}

	migrations, err := readMigrations(fsys, table, log)
	if err != nil {
		return err
	}
	log.Info().Msgf("Found %d migration files", len(migrations))

	applied, err := getAppliedMigrations(ctx, client, table)
	if err != nil {
		return err
	}
	log.Info().Msgf("Found %d already applied migrations", len(applied))

	pending := pendingMigrations(migrations, applied, log)
	for _, migration := range pending {
		log.Info().Msgf("  [RUN]  %04d_%s", migration.Version, migration.Name)

		if err := runQuery(ctx, client.Query(migration.SQL)); err != nil {
			return fmt.Errorf("executing migration %04d_%s: %w", migration.Version, migration.Name, err)
		}

		if err := recordMigration(ctx, client, table, migration); err != nil {
			return fmt.Errorf("recording migration %04d_%s: %w", migration.Version, migration.Name, err)
		}

		log.Info().Msgf("  [OK]   %04d_%s", migration.Version, migration.Name)
	}

	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	} else {
		log.Info().Msgf("Successfully applied %d migration(s)", len(pending))
	}
	return nil
}

func migrationsTable(table config.TableRef) string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", table.ProjectID, table.DatasetID)
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, table config.TableRef) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, migrationsTable(table))

	return runQuery(ctx, client.Query(sql))
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, client *bigquery.Client, table config.TableRef) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, migrationsTable(table))

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		if infra.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64                  `bigquery:"version"`
			Name      string                 `bigquery:"name"`
			AppliedAt bigquery.NullTimestamp `bigquery:"applied_at"`
			Checksum  bigquery.NullString    `bigquery:"checksum"`
			AppliedBy bigquery.NullString    `bigquery:"applied_by"`
		}

		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt.Timestamp,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func recordMigration(ctx context.Context, client *bigquery.Client, table config.TableRef, migration Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, migrationsTable(table))

	query := client.Query(sql)
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}

	return runQuery(ctx, query)
}

func runQuery(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
