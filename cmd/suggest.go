package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retrieval-cli/pkg/addressnorm"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <address>",
	Short: "Suggest normalized forms of an address",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		if !addressnorm.NeedsNormalization(address) {
			_, _ = fmt.Fprintln(out, "Address already looks normalized.")
		}

		res, err := newAddressClient().Normalize(cmd.Context(), address)
		if err != nil {
			return eris.Wrap(err, "suggest address")
		}
		if res.Error != "" {
			_, _ = fmt.Fprintln(out, res.Error)
			return nil
		}
		if len(res.Suggestions) == 0 {
			_, _ = fmt.Fprintln(out, "No suggestions.")
			return nil
		}
		for i, s := range res.Suggestions {
			_, _ = fmt.Fprintf(out, "%d. %s (%.0f%%)\n", i+1, s.Normalized, s.Confidence*100)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}
