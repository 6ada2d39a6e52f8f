package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/retrieval-cli/internal/model"
)

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"", true},
		{"555-123-4567", true},
		{"(555) 555-1234", true},
		{"5551234567", true},
		{"+14155550123", true},
		{"555 123 4567", true},
		{"abc", false},
		{"0123", false},
		{"   ", false},
		{"+1 (555) abc-defg", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPhone(tt.phone))
		})
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail(""))
	assert.True(t, ValidEmail("info@coastalfm.com"))
	assert.False(t, ValidEmail("info@coastalfm"))
	assert.False(t, ValidEmail("info coastal@fm.com"))
	assert.False(t, ValidEmail("@fm.com"))
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "555-555-1234", FormatPhone("(555) 555-1234"))
	assert.Equal(t, "+14155550123", FormatPhone("+14155550123"))
	assert.Equal(t, "", FormatPhone(""))
}

func TestEdit_Valid(t *testing.T) {
	v := New()
	errs := v.Edit(model.EditForm{
		Phone:        "555-123-4567",
		Email:        "a@b.co",
		ChaseAddress: "654 Harbor St, Portland, OR",
	})
	assert.True(t, errs.Valid())
}

func TestEdit_FieldErrors(t *testing.T) {
	v := New()
	errs := v.Edit(model.EditForm{
		Phone:        "12",
		Email:        "nope",
		ChaseAddress: "1 A",
		Outcome:      model.OutcomeResearchFailed,
		Reason:       "  ",
	})
	assert.Equal(t, FieldErrors{
		FieldPhone:        MsgPhone,
		FieldEmail:        MsgEmail,
		FieldChaseAddress: "Address must be at least 5 characters",
		FieldReason:       "Reason is required for Research Failed",
	}, errs)
}

func TestEdit_ReasonOnlyRequiredForTerminalOutcomes(t *testing.T) {
	v := New()
	assert.True(t, v.Edit(model.EditForm{ChaseAddress: "12345 Main"}).Valid())

	errs := v.Edit(model.EditForm{ChaseAddress: "12345 Main", Outcome: model.OutcomeResearchCompleted})
	assert.Equal(t, "Reason is required for Research Completed", errs[FieldReason])

	errs = v.Edit(model.EditForm{ChaseAddress: "12345 Main", Outcome: model.OutcomeResearchCompleted, Reason: "found"})
	assert.True(t, errs.Valid())
}

func TestEdit_UnknownOutcome(t *testing.T) {
	errs := New().Edit(model.EditForm{Outcome: "archived"})
	assert.Equal(t, MsgOutcome, errs[FieldOutcome])
}

func TestEdit_CustomAddressLength(t *testing.T) {
	v := New(WithMinAddressLength(10))
	errs := v.Edit(model.EditForm{ChaseAddress: "12 Main St"})
	assert.True(t, errs.Valid())

	errs = v.Edit(model.EditForm{ChaseAddress: "12 Main"})
	assert.Equal(t, "Address must be at least 10 characters", errs[FieldChaseAddress])
}

func TestBulk_ReasonAlwaysRequired(t *testing.T) {
	v := New()
	errs := v.Bulk(model.BulkEditForm{Phone: "555-000-0000"})
	assert.Equal(t, FieldErrors{FieldReason: MsgBulkReason}, errs)

	errs = v.Bulk(model.BulkEditForm{Outcome: model.OutcomeResearchFailed})
	assert.Equal(t, "Reason is required for Research Failed", errs[FieldReason])
}

func TestBulk_BlankFieldsSkipped(t *testing.T) {
	v := New()
	errs := v.Bulk(model.BulkEditForm{
		Phone:        "555-000-0000",
		Email:        "   ",
		ChaseAddress: " ",
		Reason:       "batch update",
	})
	assert.True(t, errs.Valid())
}

func TestBulk_NothingToApply(t *testing.T) {
	errs := New().Bulk(model.BulkEditForm{Phone: "  ", Reason: "why"})
	assert.Equal(t, FieldErrors{FieldForm: MsgNothingToApply}, errs)
}

func TestBulk_InvalidFilledFields(t *testing.T) {
	errs := New().Bulk(model.BulkEditForm{Email: "bad", ChaseAddress: "abc", Reason: "x"})
	assert.Equal(t, MsgEmail, errs[FieldEmail])
	assert.Equal(t, "Address must be at least 5 characters", errs[FieldChaseAddress])
}
