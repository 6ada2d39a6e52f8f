package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/sheet"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/internal/view"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered worklist to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, sort, err := listSpecs(cmd)
		if err != nil {
			return err
		}
		formatName, _ := cmd.Flags().GetString("format")
		format, err := sheet.ParseFormat(formatName)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("dir")
		all, _ := cmd.Flags().GetBool("all")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sf := store.AttemptFilter{}
		if !all {
			sf.Statuses = []model.Status{model.StatusResearch}
		}
		attempts, err := st.ListAttempts(ctx, sf)
		if err != nil {
			return eris.Wrap(err, "export attempts")
		}

		now := time.Now()
		res := view.Build(attempts, filter, sort, now)

		path := filepath.Join(dir, sheet.FileName(now, format))
		f, err := os.Create(path) //nolint:gosec // operator-chosen directory
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		if err := sheet.Write(f, format, res.Attempts); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "close %s", path)
		}

		zap.L().Info("export complete", zap.String("path", path), zap.Int("attempts", len(res.Attempts)))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", res.Label(), path)
		return nil
	},
}

func init() {
	addListFlags(exportCmd)
	exportCmd.Flags().String("format", "csv", "csv or xlsx")
	exportCmd.Flags().String("dir", ".", "output directory")
	rootCmd.AddCommand(exportCmd)
}
