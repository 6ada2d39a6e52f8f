package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/retrieval-cli/internal/monitoring"
	"github.com/sells-group/retrieval-cli/internal/view"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check the research worklist against the SLA and send alerts",
	Long: `Collects a snapshot of attempts in research, evaluates the configured
alert thresholds and posts any alerts to monitoring.webhook_url.
With --watch the check repeats every monitoring.check_interval_secs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		checker := newChecker(st)

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			checker.Run(ctx)
			return nil
		}

		snap, alerts, err := checker.Check(ctx)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Snapshot *monitoring.Snapshot `json:"snapshot"`
				Alerts   []monitoring.Alert   `json:"alerts"`
			}{snap, alerts})
		}
		formatSnapshot(cmd.OutOrStdout(), snap, alerts)
		return nil
	},
}

func formatSnapshot(out io.Writer, snap *monitoring.Snapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "In research:\t%d\n", snap.InResearch)
	_, _ = fmt.Fprintf(w, "Overdue (>%dd):\t%d\n", snap.SLADays, snap.Overdue)
	for _, b := range view.Buckets[1:] {
		_, _ = fmt.Fprintf(w, "  %s days:\t%d\n", b, snap.ByBucket[b])
	}
	if snap.OldestID != "" {
		_, _ = fmt.Fprintf(w, "Oldest:\t%s (%d days)\n", snap.OldestID, snap.OldestDays)
	}
	_ = w.Flush()

	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(out, "\nNo alerts.")
		return
	}
	_, _ = fmt.Fprintf(out, "\nAlerts (%d):\n", len(alerts))
	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "  [%s] %s\n", a.Severity, a.Message)
	}
}

func init() {
	monitorCmd.Flags().Bool("watch", false, "keep checking on an interval until interrupted")
	monitorCmd.Flags().Bool("json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(monitorCmd)
}
