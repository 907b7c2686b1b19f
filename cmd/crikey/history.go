package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cronii/crikeyooo/internal/config"
	"github.com/cronii/crikeyooo/internal/model"
	"github.com/cronii/crikeyooo/internal/storage"
	"github.com/cronii/crikeyooo/internal/storage/postgres"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled commands",
		RunE:  runHistory,
	}
	cmd.Flags().String("journal", config.JournalJSONL, "command journal (jsonl, postgres)")
	cmd.Flags().String("journal-path", "./data/user_cmds.jsonl", "JSONL journal path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres journal")
	cmd.Flags().Uint64("chain-id", 5, "chain id to list (postgres journal)")
	cmd.Flags().Int("limit", 20, "maximum records to list")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadHistory(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var records []model.CommandRecord
	switch cfg.Journal {
	case config.JournalPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if records, err = store.RecentCommandRecords(ctx, cfg.ChainID, cfg.Limit); err != nil {
			return err
		}
	default:
		if records, err = storage.NewJsonlJournal(cfg.JournalPath).ReadCommandRecords(); err != nil {
			return err
		}
		if cfg.Limit > 0 && len(records) > cfg.Limit {
			records = records[len(records)-cfg.Limit:]
		}
	}

	for _, record := range records {
		if err := printJSON(cmd.OutOrStdout(), record); err != nil {
			return err
		}
	}
	return nil
}
