package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retrieval-cli/internal/attempt"
	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/resilience"
	"github.com/sells-group/retrieval-cli/internal/validate"
)

var editCmd = &cobra.Command{
	Use:   "edit <attempt-id>",
	Short: "Edit one attempt",
	Long: `Edits contact fields and records an outcome on one attempt.

Unset flags keep the stored value; pass an empty value (--fax "") to clear a field.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		eng := newEngine(st)

		current, err := st.GetAttempt(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "edit attempt")
		}
		form, err := editForm(cmd, *current)
		if err != nil {
			return err
		}

		save := func(ctx context.Context) (*model.RetrievalAttempt, error) {
			return eng.ApplySingleEdit(ctx, args[0], form)
		}
		var updated *model.RetrievalAttempt
		if retry, _ := cmd.Flags().GetBool("retry"); retry {
			updated, err = resilience.DoVal(ctx, saveRetry("edit"), save)
		} else {
			updated, err = save(ctx)
		}
		if err != nil {
			return reportEditError(cmd.ErrOrStderr(), err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (version %d, status %s).\n",
			updated.ID, updated.Version, updated.Status.DisplayName())
		return nil
	},
}

var bulkCmd = &cobra.Command{
	Use:   "bulk <attempt-id>...",
	Short: "Apply one edit to many attempts",
	Long: `Applies the given fields to every selected attempt in one all-or-nothing save.

Blank fields are left untouched. A reason is always required.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		form, err := bulkForm(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		eng := newEngine(st)

		save := func(ctx context.Context) ([]model.RetrievalAttempt, error) {
			return eng.ApplyBulkEdit(ctx, args, form)
		}
		var updated []model.RetrievalAttempt
		if retry, _ := cmd.Flags().GetBool("retry"); retry {
			updated, err = resilience.DoVal(ctx, saveRetry("bulk"), save)
		} else {
			updated, err = save(ctx)
		}
		if err != nil {
			return reportEditError(cmd.ErrOrStderr(), err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %d attempts.\n", len(updated))
		return nil
	},
}

// editForm starts from the stored values so that only changed flags edit the
// attempt.
func editForm(cmd *cobra.Command, current model.RetrievalAttempt) (model.EditForm, error) {
	f := cmd.Flags()
	form := model.EditForm{
		Phone:        current.Phone,
		Fax:          current.Fax,
		Email:        current.Email,
		ChaseAddress: current.ChaseAddress,
		ContactName:  current.ContactName,
	}
	set := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	set("phone", &form.Phone)
	set("fax", &form.Fax)
	set("email", &form.Email)
	set("chase-address", &form.ChaseAddress)
	set("contact-name", &form.ContactName)
	form.Reason, _ = f.GetString("reason")

	outcome, err := outcomeFlag(cmd)
	if err != nil {
		return form, err
	}
	form.Outcome = outcome
	if formatted, _ := f.GetBool("format-phone"); formatted {
		form.Phone = validate.FormatPhone(form.Phone)
	}
	return form, nil
}

func bulkForm(cmd *cobra.Command) (model.BulkEditForm, error) {
	f := cmd.Flags()
	var form model.BulkEditForm
	form.Phone, _ = f.GetString("phone")
	form.Fax, _ = f.GetString("fax")
	form.Email, _ = f.GetString("email")
	form.ChaseAddress, _ = f.GetString("chase-address")
	form.ContactName, _ = f.GetString("contact-name")
	form.Reason, _ = f.GetString("reason")

	outcome, err := outcomeFlag(cmd)
	if err != nil {
		return form, err
	}
	form.Outcome = outcome
	if pnp, _ := f.GetBool("pnp004"); pnp {
		form.Outcome = model.OutcomeResearchFailed
	}
	if formatted, _ := f.GetBool("format-phone"); formatted && form.Phone != "" {
		form.Phone = validate.FormatPhone(form.Phone)
	}
	return form, nil
}

func outcomeFlag(cmd *cobra.Command) (model.Outcome, error) {
	v, _ := cmd.Flags().GetString("outcome")
	o := model.Outcome(strings.TrimSpace(v))
	if !o.Valid() {
		return "", eris.Errorf("unknown outcome %q (research_completed, research_failed)", v)
	}
	return o, nil
}

// reportEditError prints field errors before returning err.
func reportEditError(out io.Writer, err error) error {
	switch attempt.KindOf(err) {
	case attempt.KindValidationFailed:
		for field, msg := range attempt.FieldErrorsOf(err) {
			_, _ = fmt.Fprintf(out, "  %s: %s\n", field, msg)
		}
	case attempt.KindTransientFailure:
		_, _ = fmt.Fprintln(out, "Save failed temporarily; retry with --retry.")
	}
	return err
}

func addFormFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("phone", "", "phone number")
	f.String("fax", "", "fax number")
	f.String("email", "", "email address")
	f.String("chase-address", "", "address to chase records at")
	f.String("contact-name", "", "contact name")
	f.String("outcome", "", "research_completed or research_failed")
	f.String("reason", "", "reason recorded on the audit trail")
	f.Bool("format-phone", false, "format 10-digit phone numbers as NNN-NNN-NNNN")
	f.Bool("retry", false, "retry transient save failures")
}

func init() {
	addFormFlags(editCmd)
	addFormFlags(bulkCmd)
	bulkCmd.Flags().Bool("pnp004", false, "mark every selected attempt as research failed (PNP 004)")
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(bulkCmd)
}
