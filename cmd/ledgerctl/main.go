package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ledgerview/internal/config"
	applog "ledgerview/internal/log"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect ledger query results and run maintenance tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			applog.SetDefault(applog.New(applog.Config{
				Level:     applog.ParseLevel(cfg.LogLevel),
				Component: applog.ComponentApp,
				Output:    cmd.ErrOrStderr(),
			}))
		},
	}

	root.AddCommand(
		newRenderCmd(),
		newCompareCmd(),
		newMigrateCmd(cfg),
		newSyncCmd(cfg),
	)
	return root
}
