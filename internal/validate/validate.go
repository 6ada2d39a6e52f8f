// Package validate checks edit form input before an attempt is mutated.
package validate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// DefaultMinAddressLength is the shortest chase address accepted.
const DefaultMinAddressLength = 5

// Field error messages.
const (
	MsgPhone          = "Invalid phone number format"
	MsgEmail          = "Invalid email address format"
	MsgOutcome        = "Unknown outcome"
	MsgBulkReason     = "Reason is required for bulk edits"
	MsgNothingToApply = "At least one field or an outcome is required"
	MsgNoSelection    = "Select at least one attempt"
)

// Form field keys used in FieldErrors.
const (
	FieldPhone        = "phone"
	FieldEmail        = "email"
	FieldChaseAddress = "chaseAddress"
	FieldOutcome      = "outcome"
	FieldReason       = "reason"
	FieldForm         = "form"
	FieldIDs          = "ids"
)

var (
	phoneStrip   = regexp.MustCompile(`[\s\-()]`)
	phonePattern = regexp.MustCompile(`^[+]?[1-9]\d{0,15}$|^[(]?\d{3}[)]?[\s-]?\d{3}[\s-]?\d{4}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigit     = regexp.MustCompile(`\D`)
)

// FieldErrors maps a form field to a user-facing message. An empty map means
// the input is valid.
type FieldErrors map[string]string

// Valid reports whether no field failed validation.
func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// Validator applies the edit form rules.
type Validator struct {
	v             *validator.Validate
	minAddressLen int
}

// Option configures a Validator.
type Option func(*Validator)

// WithMinAddressLength overrides the minimum chase address length.
func WithMinAddressLength(n int) Option {
	return func(x *Validator) {
		if n > 0 {
			x.minAddressLen = n
		}
	}
}

// New creates a Validator with the contact-field rules registered as
// validator tags.
func New(opts ...Option) *Validator {
	x := &Validator{
		v:             validator.New(),
		minAddressLen: DefaultMinAddressLength,
	}
	for _, o := range opts {
		o(x)
	}

	// Registration only fails on empty tags or nil funcs.
	_ = x.v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = x.v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	_ = x.v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		return len(strings.TrimSpace(fl.Field().String())) >= x.minAddressLen
	})
	_ = x.v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return x
}

// contactInput carries the format rules shared by single and bulk edits.
type contactInput struct {
	Phone        string `validate:"omitempty,phone"`
	Email        string `validate:"omitempty,contact_email"`
	ChaseAddress string `validate:"omitempty,address"`
}

var fieldKeys = map[string]string{
	"Phone":        FieldPhone,
	"Email":        FieldEmail,
	"ChaseAddress": FieldChaseAddress,
}

func (x *Validator) contact(in contactInput, errs FieldErrors) {
	err := x.v.Struct(in)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs[FieldForm] = err.Error()
		return
	}
	for _, fe := range verrs {
		key := fieldKeys[fe.Field()]
		switch key {
		case FieldPhone:
			errs[key] = MsgPhone
		case FieldEmail:
			errs[key] = MsgEmail
		case FieldChaseAddress:
			errs[key] = x.addressMessage()
		}
	}
}

func (x *Validator) addressMessage() string {
	return "Address must be at least " + strconv.Itoa(x.minAddressLen) + " characters"
}

func (x *Validator) blank(s string) bool {
	return x.v.Var(s, "notblank") != nil
}

// Edit validates a single-attempt edit form.
func (x *Validator) Edit(f model.EditForm) FieldErrors {
	errs := FieldErrors{}
	x.contact(contactInput{Phone: f.Phone, Email: f.Email, ChaseAddress: f.ChaseAddress}, errs)

	if !f.Outcome.Valid() {
		errs[FieldOutcome] = MsgOutcome
	} else if f.Outcome.RequiresReason() && x.blank(f.Reason) {
		errs[FieldReason] = "Reason is required for " + f.Outcome.DisplayName()
	}
	return errs
}

// Bulk validates a bulk edit form. Blank fields are not checked since they
// are never applied; the reason is always required.
func (x *Validator) Bulk(f model.BulkEditForm) FieldErrors {
	errs := FieldErrors{}
	in := contactInput{}
	if !x.blank(f.Phone) {
		in.Phone = f.Phone
	}
	if !x.blank(f.Email) {
		in.Email = f.Email
	}
	if !x.blank(f.ChaseAddress) {
		in.ChaseAddress = f.ChaseAddress
	}
	x.contact(in, errs)

	if !f.Outcome.Valid() {
		errs[FieldOutcome] = MsgOutcome
	}
	if x.blank(f.Reason) {
		if f.Outcome.RequiresReason() {
			errs[FieldReason] = "Reason is required for " + f.Outcome.DisplayName()
		} else {
			errs[FieldReason] = MsgBulkReason
		}
	}

	if f.Outcome == model.OutcomeNone &&
		x.blank(f.Phone) && x.blank(f.Fax) && x.blank(f.Email) &&
		x.blank(f.ChaseAddress) && x.blank(f.ContactName) {
		errs[FieldForm] = MsgNothingToApply
	}
	return errs
}

// ValidPhone accepts a loose 10-digit or E.164-style number. Spaces, dashes
// and parentheses are ignored. Empty input is valid.
func ValidPhone(phone string) bool {
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phoneStrip.ReplaceAllString(phone, ""))
}

// ValidEmail checks the local@domain.tld shape. Empty input is valid.
func ValidEmail(email string) bool {
	if email == "" {
		return true
	}
	return emailPattern.MatchString(email)
}

// FormatPhone renders a 10-digit number as NNN-NNN-NNNN and returns any
// other input unchanged.
func FormatPhone(phone string) string {
	if phone == "" {
		return ""
	}
	digits := nonDigit.ReplaceAllString(phone, "")
	if len(digits) == 10 {
		return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
	}
	return phone
}
