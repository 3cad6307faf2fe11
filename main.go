package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stratoform/dynamigrate/pkg/config"
	"github.com/stratoform/dynamigrate/pkg/connector"
	"github.com/stratoform/dynamigrate/pkg/migrate"
	"github.com/stratoform/dynamigrate/pkg/model"
	"github.com/stratoform/dynamigrate/pkg/reconcile"
)

func main() {
	action := flag.String("action", "migrate", "migrate or reconcile")
	kindFlag := flag.String("kind", "", "restrict migration to one entity kind")
	flag.Parse()

	// Load .env if present; process environment wins.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(context.Background(), cfg, logger, *action, *kindFlag); err != nil {
		logger.Error("Run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, action, kindFlag string) error {
	factory := connector.NewFactory(cfg, logger)

	store, err := factory.CreateRelationalStore(ctx)
	if err != nil {
		return err
	}
	// Released exactly once per invocation, success or failure; the
	// store's Close is idempotent either way.
	defer store.Close()

	switch action {
	case "migrate":
		return runMigration(ctx, cfg, logger, factory, store, kindFlag)
	case "reconcile":
		return runReconciliation(ctx, cfg, logger, factory, store)
	default:
		return fmt.Errorf("unknown action %q (want migrate or reconcile)", action)
	}
}

func runMigration(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	factory *connector.Factory,
	store *connector.PostgresStore,
	kindFlag string,
) error {
	legacyTables, err := factory.CreateLegacyTables(ctx)
	if err != nil {
		return err
	}

	tables := make(map[model.EntityKind]connector.LegacyTable, len(legacyTables))
	if kindFlag != "" {
		kind, err := model.ParseKind(kindFlag)
		if err != nil {
			return err
		}
		tables[kind] = legacyTables[kind]
	} else {
		for kind, table := range legacyTables {
			tables[kind] = table
		}
	}

	migrator := migrate.NewMigrator(store, logger)
	total, err := migrator.MigrateAll(ctx, tables)

	// The summary is reported even when the run aborted partway; the
	// counts up to the failure are real.
	fmt.Print(migrator.Metrics().Report())
	if err != nil {
		return err
	}

	logger.Info("Migration completed", zap.Int64("inserted", total))
	fmt.Println(total)
	return nil
}

func runReconciliation(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	factory *connector.Factory,
	store *connector.PostgresStore,
) error {
	sources, err := factory.CreateCountSources(ctx, store)
	if err != nil {
		return err
	}

	aggregator := reconcile.NewAggregator(sources, logger).
		WithConcurrency(cfg.DBConcurrency)
	reporter := reconcile.NewReporter(cfg.StackName, logger)
	runner := reconcile.NewRunner(aggregator, reporter, logger)

	sink, err := factory.CreateReportSink(ctx)
	if err != nil {
		return err
	}
	if sink != nil {
		runner = runner.WithSink(sink, cfg.ReportPath)
	}

	cutoff := cfg.Cutoff(time.Now())
	report, err := runner.Run(ctx, model.AllKinds(), cutoff)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.LogFormat == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
