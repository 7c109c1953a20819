package main

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/logging"
	"github.com/AnshRaj112/serenify-journal/internal/services"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "journalctl",
		Short:        "journalctl - operator tool for the journal backend",
		Long:         "journalctl migrates the entry database, seeds entries and prints per-user listings and stats.",
		Version:      version,
		SilenceUsage: true,
	}

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

// env bundles what every subcommand needs: configuration, a logger writing
// to the command's stderr and an open Postgres pool.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	db     *sql.DB
}

func openEnv(cmd *cobra.Command) (*env, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	db, err := database.ConnectPostgres(cmd.Context(), cfg.PostgresURI)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Warn("close postgres", "err", err)
	}
}

// entryService builds the read/write path the server uses, without the
// listing cache unless withCache is set and Redis answers.
func (e *env) entryService(ctx context.Context, withCache bool) (*services.EntryService, func()) {
	opts := services.EntryServiceOptions{Logger: e.logger}
	cleanup := func() {}

	if withCache {
		rdb, err := database.ConnectRedis(ctx, e.cfg.RedisURI)
		if err != nil {
			e.logger.Warn("redis unavailable; cached listings will expire on their own", "err", err)
		} else {
			opts.Cache = services.NewEntryListCache(rdb, e.cfg.EntryCacheTTL)
			cleanup = func() { _ = rdb.Close() }
		}
	}
	return services.NewEntryService(database.NewEntryStore(e.db), opts), cleanup
}
