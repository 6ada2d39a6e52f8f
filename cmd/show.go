package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retrieval-cli/internal/model"
)

var showCmd = &cobra.Command{
	Use:   "show <attempt-id>",
	Short: "Show an attempt and its audit log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a, err := st.GetAttempt(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "show attempt")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		}
		formatAttempt(cmd.OutOrStdout(), *a, time.Now(), cfg.View.SLADays)
		return nil
	},
}

// formatAttempt writes the attempt details followed by its audit log,
// newest entry first.
func formatAttempt(out io.Writer, a model.RetrievalAttempt, now time.Time, slaDays int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	field := func(label, v string) {
		if v == "" {
			v = "-"
		}
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", label, v)
	}

	days := model.DaysInResearch(now, a.LastActionAt)
	age := fmt.Sprintf("%d days", days)
	if a.Status == model.StatusResearch && model.IsOverdue(now, a.LastActionAt, slaDays) {
		age += fmt.Sprintf(" (OVERDUE +%dd)", model.OverdueDays(now, a.LastActionAt, slaDays))
	}

	field("ID", a.ID)
	field("Status", a.Status.DisplayName())
	field("Retrieval Method", string(a.RetrievalMethod))
	field("Client", a.ClientName)
	field("Demand ID", a.DemandID)
	field("Provider", a.ProviderName)
	field("Provider NPI", a.ProviderNPI)
	field("Provider Group", a.ProviderGroup)
	field("Start Address", a.StartAddress)
	field("Chase Address", a.ChaseAddress)
	field("Phone", a.Phone)
	field("Fax", a.Fax)
	field("Email", a.Email)
	field("Contact Name", a.ContactName)
	field("Research Agent", a.ResearchAgent)
	field("Last Action", a.LastActionAt.Format("2006-01-02 15:04"))
	field("In Research", age)
	field("Version", fmt.Sprintf("%d", a.Version))
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nAudit log (%d):\n", len(a.Audit))
	if len(a.Audit) == 0 {
		_, _ = fmt.Fprintln(out, "  No changes recorded.")
		return
	}
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i := len(a.Audit) - 1; i >= 0; i-- {
		e := a.Audit[i]
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s -> %s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04"),
			e.User,
			e.Field.DisplayName(),
			auditValue(e.From),
			auditValue(e.To),
			e.Reason,
		)
	}
	_ = w.Flush()
}

func auditValue(v *string) string {
	if v == nil {
		return "(empty)"
	}
	return *v
}

func init() {
	showCmd.Flags().Bool("json", false, "print the attempt as JSON")
	rootCmd.AddCommand(showCmd)
}
