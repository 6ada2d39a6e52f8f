package model

// Status is the lifecycle state of a retrieval attempt.
type Status string

const (
	StatusResearch               Status = "research"
	StatusResearchedSuccess      Status = "researched_success"
	StatusResearchUnableToLocate Status = "research_unable_to_locate"
	StatusReadyForOutreach       Status = "ready_for_outreach"
	StatusRerouteToMethod        Status = "reroute_to_method"
	StatusCancelledFailed        Status = "cancelled_failed"
	StatusBlockedExternal        Status = "blocked_external"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusResearch,
	StatusResearchedSuccess,
	StatusResearchUnableToLocate,
	StatusReadyForOutreach,
	StatusRerouteToMethod,
	StatusCancelledFailed,
	StatusBlockedExternal,
}

// transitions is the adjacency table of allowed status changes. Terminal
// statuses map to an empty set.
var transitions = map[Status]map[Status]struct{}{
	StatusResearch: {
		StatusResearch:               {},
		StatusResearchedSuccess:      {},
		StatusResearchUnableToLocate: {},
		StatusReadyForOutreach:       {},
		StatusRerouteToMethod:        {},
		StatusCancelledFailed:        {},
		StatusBlockedExternal:        {},
	},
	StatusResearchedSuccess:      {},
	StatusResearchUnableToLocate: {},
	StatusReadyForOutreach:       {},
	StatusRerouteToMethod:        {},
	StatusCancelledFailed:        {},
	StatusBlockedExternal:        {},
}

// IsValidTransition reports whether an attempt in status from may move to to.
// Unknown statuses have no outbound transitions.
func IsValidTransition(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// AllowedTransitions returns the statuses reachable from s in display order.
func AllowedTransitions(s Status) []Status {
	var out []Status
	for _, to := range Statuses {
		if IsValidTransition(s, to) {
			out = append(out, to)
		}
	}
	return out
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s has no outbound transitions.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// DisplayName returns the label shown to research agents.
func (s Status) DisplayName() string {
	switch s {
	case StatusResearch:
		return "Research"
	case StatusResearchedSuccess:
		return "Researched Success"
	case StatusResearchUnableToLocate:
		return "Unable to Locate"
	case StatusReadyForOutreach:
		return "Ready for Outreach"
	case StatusRerouteToMethod:
		return "Reroute to Method"
	case StatusCancelledFailed:
		return "Cancelled - Failed"
	case StatusBlockedExternal:
		return "Blocked (External)"
	default:
		return string(s)
	}
}

// Outcome is the disposition a user picks when saving an attempt.
type Outcome string

const (
	OutcomeNone              Outcome = ""
	OutcomeResearchCompleted Outcome = "research_completed"
	OutcomeResearchFailed    Outcome = "research_failed"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeNone, OutcomeResearchCompleted, OutcomeResearchFailed:
		return true
	default:
		return false
	}
}

// RequiresReason reports whether a reason must accompany o.
func (o Outcome) RequiresReason() bool {
	return o == OutcomeResearchCompleted || o == OutcomeResearchFailed
}

// DisplayName returns the label shown for o.
func (o Outcome) DisplayName() string {
	switch o {
	case OutcomeResearchCompleted:
		return "Research Completed"
	case OutcomeResearchFailed:
		return "Research Failed"
	default:
		return "No outcome"
	}
}

// StatusFromOutcome maps an outcome to the status the attempt moves to.
//
// research_completed maps to cancelled_failed: the current attempt is
// cancelled and a new retrieval attempt is dispatched with the researched
// coordinates. research_failed maps to blocked_external (PNP 004).
func StatusFromOutcome(o Outcome) Status {
	switch o {
	case OutcomeResearchFailed:
		return StatusBlockedExternal
	case OutcomeResearchCompleted:
		return StatusCancelledFailed
	default:
		return StatusResearch
	}
}

const (
	researchCompletedMessage = "Retrieval coordinates changed as a result of research, retrieval attempt cancelled, new retrieval attempt dispatched"
	researchFailedMessage    = "PNP4 invalid contact information"
	statusUpdatedMessage     = "Status updated"
)

// OutcomeAuditMessage builds the reason recorded on a status audit entry.
func OutcomeAuditMessage(o Outcome, reason string) string {
	switch o {
	case OutcomeResearchCompleted:
		return researchCompletedMessage
	case OutcomeResearchFailed:
		if reason != "" {
			return researchFailedMessage + " - " + reason
		}
		return researchFailedMessage
	default:
		if reason != "" {
			return reason
		}
		return statusUpdatedMessage
	}
}
