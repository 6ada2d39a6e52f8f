package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "retrieval-cli",
	Short:        "Track provider record retrieval attempts",
	Long:         "Lists, filters and edits retrieval attempts with an audit trail, and serves the same worklist over HTTP.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		mode := "cli"
		if cmd.Name() == serveCmd.Name() {
			mode = "serve"
		}
		if err := c.Validate(mode); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
