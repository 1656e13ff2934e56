package domain

import "fmt"

// OutcomeStatus is the tri-state result of a verification service call.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeRejected
	OutcomeUnreachable
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("OutcomeStatus(%d)", int(s))
	}
}

// Outcome is returned by mutating verification service calls.
type Outcome struct {
	Status OutcomeStatus
	Reason string
}

func Success() Outcome { return Outcome{Status: OutcomeSuccess} }
func Rejected(reason string) Outcome { return Outcome{Status: OutcomeRejected, Reason: reason} }
func Unreachable(reason string) Outcome { return Outcome{Status: OutcomeUnreachable, Reason: reason} }
func (o Outcome) OK() bool { return o.Status == OutcomeSuccess }

// Err returns nil on success, otherwise an error wrapping ErrServiceRejected
// or ErrServiceUnreachable with the reason attached.
func (o Outcome) Err() error {
	switch o.Status {
	case OutcomeSuccess:
		return nil
	case OutcomeRejected:
		return fmt.Errorf("%s: %w", o.Reason, ErrServiceRejected)
	default:
		return fmt.Errorf("%s: %w", o.Reason, ErrServiceUnreachable)
	}
}
