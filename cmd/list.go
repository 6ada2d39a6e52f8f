package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/internal/view"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attempts in research",
	Long:  "Lists attempts still in research, filtered and sorted like the worklist. Use --all to include closed attempts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, sort, err := listSpecs(cmd)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")
		asJSON, _ := cmd.Flags().GetBool("json")

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
			return eris.Wrap(err, "list attempts")
		}

		now := time.Now()
		res := view.Build(attempts, filter, sort, now)
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		formatList(out, res, now, cfg.View.SLADays)
		return nil
	},
}

// listSpecs reads the filter and sort flags shared by list and export.
func listSpecs(cmd *cobra.Command) (view.FilterSpec, view.SortSpec, error) {
	f := cmd.Flags()
	var spec view.FilterSpec
	spec.RetrievalMethod, _ = f.GetStringSlice("method")
	spec.ClientName, _ = f.GetStringSlice("client")
	spec.DemandID, _ = f.GetStringSlice("demand")
	spec.ProviderGroup, _ = f.GetStringSlice("group")
	spec.ProviderName, _ = f.GetStringSlice("provider")
	spec.ResearchAgent, _ = f.GetStringSlice("agent")
	spec.Search, _ = f.GetString("search")

	days, _ := f.GetString("days")
	bucket, err := view.ParseBucket(days)
	if err != nil {
		return spec, view.SortSpec{}, err
	}
	spec.DaysInResearch = bucket

	sort := view.DefaultSort
	if field, _ := f.GetString("sort"); field != "" {
		if !slices.Contains(view.SortFields, field) {
			return spec, sort, eris.Errorf("unknown sort field %q", field)
		}
		sort = view.SortSpec{Field: field, Direction: view.Asc}
	}
	if f.Changed("desc") {
		if desc, _ := f.GetBool("desc"); desc {
			sort.Direction = view.Desc
		} else {
			sort.Direction = view.Asc
		}
	}
	return spec, sort, nil
}

func addListFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSlice("method", nil, "retrieval method (repeatable)")
	f.StringSlice("client", nil, "client name (repeatable)")
	f.StringSlice("demand", nil, "demand id (repeatable)")
	f.StringSlice("group", nil, "provider group (repeatable)")
	f.StringSlice("provider", nil, "provider name (repeatable)")
	f.StringSlice("agent", nil, "research agent (repeatable)")
	f.String("search", "", "id search; commas or spaces match any fragment")
	f.String("days", "all", "days in research bucket (all, 0-3, 4-7, 8-14, 15-30, 30+)")
	f.String("sort", "", "sort field (default lastActionAt, newest first)")
	f.Bool("desc", false, "sort descending")
	f.Bool("all", false, "include attempts that are no longer in research")
}

// formatList writes the derived view as a table.
func formatList(out io.Writer, res view.Result, now time.Time, slaDays int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCLIENT\tDEMAND\tPROVIDER\tSTATUS\tDAYS\tAGENT\t")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t--------\t------\t----\t-----\t")

	for _, a := range res.Attempts {
		days := fmt.Sprintf("%d", model.DaysInResearch(now, a.LastActionAt))
		if a.Status == model.StatusResearch && model.IsOverdue(now, a.LastActionAt, slaDays) {
			days += fmt.Sprintf(" OVERDUE +%dd", model.OverdueDays(now, a.LastActionAt, slaDays))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			truncateID(a.ID),
			truncate(a.ClientName, 24),
			a.DemandID,
			truncate(a.ProviderName, 24),
			a.Status.DisplayName(),
			days,
			a.ResearchAgent,
		)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out, res.Label())
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	addListFlags(listCmd)
	listCmd.Flags().Bool("json", false, "print the view as JSON")
	rootCmd.AddCommand(listCmd)
}
