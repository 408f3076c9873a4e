package domain

import "fmt"

// RejectReason tags why a record or article was turned away.
type RejectReason string

const (
	RejectMissingTitle  RejectReason = "missing_title"
	RejectTooShort      RejectReason = "too_short"
	RejectTooLong       RejectReason = "too_long"
	RejectMissingURL    RejectReason = "missing_url"
	RejectMalformedURL  RejectReason = "malformed_url"
	RejectMalformedDate RejectReason = "malformed_date"
	RejectLowQuality    RejectReason = "low_quality"
)

// Outcome is the terminal state of one article in the quality gate.
type Outcome int

const (
	OutcomeAccepted Outcome = iota + 1
	OutcomeRejected
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Decision is the gate verdict. Reason is set only for OutcomeRejected.
type Decision struct {
	Outcome Outcome
	Reason  RejectReason
}

func Accepted() Decision { return Decision{Outcome: OutcomeAccepted} }

func Rejected(reason RejectReason) Decision {
	return Decision{Outcome: OutcomeRejected, Reason: reason}
}

func Duplicate() Decision { return Decision{Outcome: OutcomeDuplicate} }

func (d Decision) String() string {
	if d.Outcome == OutcomeRejected {
		return fmt.Sprintf("rejected(%s)", d.Reason)
	}
	return d.Outcome.String()
}

// Err converts a non-accepting decision into its rejection error form.
func (d Decision) Err(url string) error {
	switch d.Outcome {
	case OutcomeRejected:
		return &ValidationRejection{URL: url, Reason: d.Reason}
	case OutcomeDuplicate:
		return &DuplicateRejection{URL: url}
	default:
		return nil
	}
}
