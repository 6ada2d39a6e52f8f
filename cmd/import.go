package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/sheet"
)

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import attempts from a CSV or XLSX sheet",
	Long:  "Imports attempts from a sheet with the export column headers. The import fails without writing anything if any id already exists.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		attempts, err := sheet.ReadFile(ctx, importPath, time.Now())
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ImportAttempts(ctx, attempts)
		if err != nil {
			return eris.Wrap(err, "import attempts")
		}

		zap.L().Info("import complete",
			zap.Int("created", n),
			zap.String("file", importPath),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d attempts.\n", n)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to .csv or .xlsx file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
