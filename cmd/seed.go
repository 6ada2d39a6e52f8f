package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/fixture"
	"github.com/sells-group/retrieval-cli/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample attempts into the store",
	Long:  "Loads the bundled sample attempts. Attempts whose id already exists are left untouched.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		attempts, err := fixture.Load(time.Now())
		if err != nil {
			return err
		}

		created, skipped := 0, 0
		for _, a := range attempts {
			err := st.CreateAttempt(ctx, a)
			switch {
			case errors.Is(err, store.ErrDuplicate):
				skipped++
			case err != nil:
				return eris.Wrapf(err, "seed attempt %s", a.ID)
			default:
				created++
			}
		}

		zap.L().Info("seed complete", zap.Int("created", created), zap.Int("skipped", skipped))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d attempts (%d already present).\n", created, skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
