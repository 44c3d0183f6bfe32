package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledgerview/internal/amqp"
	"ledgerview/internal/config"
	"ledgerview/internal/splitwise"
	"ledgerview/internal/storage"
	"ledgerview/internal/worker"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending ledger database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(cfg.SQLiteDBPath)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d (dirty=%t)\n", cfg.SQLiteDBPath, version, dirty)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.SQLiteDBPath, "db", cfg.SQLiteDBPath, "Path to the SQLite database")
	return cmd
}

type SyncCmd struct {
	cfg    *config.Config
	limit  int
	direct bool
}

func newSyncCmd(cfg *config.Config) *cobra.Command {
	sc := &SyncCmd{cfg: cfg}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import recent Splitwise expenses",
		Long: "Queues a sync request for the worker, or with --direct fetches from " +
			"Splitwise and writes to the ledger database in this process.",
		RunE: sc.run,
	}
	cmd.Flags().IntVar(&sc.limit, "limit", cfg.SyncLimit, "Number of recent expenses to fetch")
	cmd.Flags().BoolVar(&sc.direct, "direct", false, "Import in-process instead of queueing a request")
	return cmd
}

func (sc *SyncCmd) run(cmd *cobra.Command, _ []string) error {
	if sc.limit < 1 || sc.limit > amqp.MaxSyncLimit {
		return fmt.Errorf("limit %d out of range 1-%d", sc.limit, amqp.MaxSyncLimit)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	if sc.direct {
		return sc.importDirect(ctx, cmd)
	}

	if !sc.cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is not set; use --direct to import without the worker")
	}
	client, err := amqp.NewClient(sc.cfg.AMQPURL, sc.cfg.AMQPExchange, sc.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	id, err := client.PublishSyncRequest(ctx, sc.limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued sync request %s\n", id)
	return nil
}

func (sc *SyncCmd) importDirect(ctx context.Context, cmd *cobra.Command) error {
	if sc.cfg.SplitwiseToken == "" {
		return errors.New("SPLITWISE_ACCESS_TOKEN is not set")
	}
	repo, err := storage.NewSQLiteRepository(sc.cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	client := splitwise.NewClient(sc.cfg.SplitwiseToken, splitwise.WithBaseURL(sc.cfg.SplitwiseBaseURL))
	run, err := worker.NewSyncWorker(client, repo, sc.limit).
		Import(ctx, fmt.Sprintf("cli-%d", time.Now().Unix()), sc.limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fetched %d, imported %d, skipped %d\n", run.Fetched, run.Imported, run.Skipped)
	return nil
}
