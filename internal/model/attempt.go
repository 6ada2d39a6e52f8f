package model

import "time"

// RetrievalMethod identifies how records for an attempt are retrieved.
type RetrievalMethod string

const (
	RetrievalMethodOffsite RetrievalMethod = "Offsite"
	RetrievalMethodHIH     RetrievalMethod = "HIH"
)

// RetrievalAttempt is a work item tracking the search for contact and address
// information for a provider tied to a claim demand.
type RetrievalAttempt struct {
	ID              string          `json:"id" yaml:"id"`
	RetrievalMethod RetrievalMethod `json:"retrievalMethod" yaml:"retrieval_method"`
	ClientName      string          `json:"clientName" yaml:"client_name"`
	DemandID        string          `json:"demandId" yaml:"demand_id"`
	ProviderName    string          `json:"providerName" yaml:"provider_name"`
	ProviderNPI     string          `json:"providerNPI" yaml:"provider_npi"`
	ProviderGroup   string          `json:"providerGroup" yaml:"provider_group"`
	StartAddress    string          `json:"startAddress" yaml:"start_address"`
	ChaseAddress    string          `json:"chaseAddress" yaml:"chase_address"`
	Status          Status          `json:"status" yaml:"status"`
	LastActionAt    time.Time       `json:"lastActionAt" yaml:"-"`
	Phone           string          `json:"phone,omitempty" yaml:"phone,omitempty"`
	Fax             string          `json:"fax,omitempty" yaml:"fax,omitempty"`
	Email           string          `json:"email,omitempty" yaml:"email,omitempty"`
	ContactName     string          `json:"contactName,omitempty" yaml:"contact_name,omitempty"`
	ResearchAgent   string          `json:"researchAgent,omitempty" yaml:"research_agent,omitempty"`
	Version         int             `json:"version" yaml:"version"`
	Audit           []AuditEntry    `json:"audit,omitempty" yaml:"-"`
}

// Clone returns a copy of a that shares no audit backing array with the original.
func (a RetrievalAttempt) Clone() RetrievalAttempt {
	if a.Audit != nil {
		a.Audit = append([]AuditEntry(nil), a.Audit...)
	}
	return a
}

// AuditField names the attempt field an audit entry describes.
type AuditField string

const (
	AuditFieldPhone        AuditField = "phone"
	AuditFieldFax          AuditField = "fax"
	AuditFieldEmail        AuditField = "email"
	AuditFieldContactName  AuditField = "contactName"
	AuditFieldChaseAddress AuditField = "chaseAddress"
	AuditFieldStatus       AuditField = "status"
	AuditFieldOutcome      AuditField = "outcome"
)

// DisplayName returns the human-readable label for the field.
func (f AuditField) DisplayName() string {
	switch f {
	case AuditFieldPhone:
		return "Phone"
	case AuditFieldFax:
		return "Fax"
	case AuditFieldEmail:
		return "Email"
	case AuditFieldContactName:
		return "Contact Name"
	case AuditFieldChaseAddress:
		return "Chase Address"
	case AuditFieldStatus:
		return "Status"
	case AuditFieldOutcome:
		return "Outcome"
	default:
		return string(f)
	}
}

// AuditEntry is an immutable record of one field change on an attempt.
// From and To are nil when the value was absent.
type AuditEntry struct {
	ID        string     `json:"id"`
	AttemptID string     `json:"attemptId"`
	Field     AuditField `json:"field"`
	From      *string    `json:"from"`
	To        *string    `json:"to"`
	User      string     `json:"user"`
	Reason    string     `json:"reason,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// EditForm is the payload of a single-attempt edit. Empty optional fields
// clear the stored value.
type EditForm struct {
	Phone        string  `json:"phone"`
	Fax          string  `json:"fax"`
	Email        string  `json:"email"`
	ChaseAddress string  `json:"chaseAddress"`
	ContactName  string  `json:"contactName"`
	Outcome      Outcome `json:"outcome"`
	Reason       string  `json:"reason,omitempty"`
}

// BulkEditForm is the payload of a bulk edit. Blank fields are left untouched
// on every selected attempt and Reason is always required.
type BulkEditForm struct {
	Phone        string  `json:"phone"`
	Fax          string  `json:"fax"`
	Email        string  `json:"email"`
	ChaseAddress string  `json:"chaseAddress"`
	ContactName  string  `json:"contactName"`
	Outcome      Outcome `json:"outcome"`
	Reason       string  `json:"reason"`
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
