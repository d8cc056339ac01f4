package order

import (
	"errors"
	"fmt"
)

// State is the payment state of an order.
type State string

const (
	StatePending    State = "pending"
	StateAuthorized State = "authorized"
	StateCaptured   State = "captured"
	StateFailed     State = "failed"
	StateRefunded   State = "refunded"
)

// States lists every state in lifecycle order.
var States = []State{StatePending, StateAuthorized, StateCaptured, StateFailed, StateRefunded}

// TerminalStates are the states counted by stats. Captured may still be refunded.
var TerminalStates = []State{StateCaptured, StateFailed, StateRefunded}

func (s State) Valid() bool {
	switch s {
	case StatePending, StateAuthorized, StateCaptured, StateFailed, StateRefunded:
		return true
	}
	return false
}

func (s State) IsTerminal() bool {
	return s == StateCaptured || s == StateFailed || s == StateRefunded
}

// Outcome is the result of a payment attempt reported by the provider.
type Outcome string

const (
	OutcomeAuthorized Outcome = "authorized"
	OutcomeCaptured   Outcome = "captured"
	OutcomeDeclined   Outcome = "declined"

	// outcomeRefund drives Refund; it never arrives from the provider.
	outcomeRefund Outcome = "refund"
)

var ErrInvalidOutcome = errors.New("invalid payment outcome")

// ParseOutcome accepts the provider outcomes only.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeAuthorized, OutcomeCaptured, OutcomeDeclined:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

type edge struct {
	from    State
	outcome Outcome
}

var transitions = map[edge]State{
	{StatePending, OutcomeAuthorized}:  StateAuthorized,
	{StatePending, OutcomeCaptured}:    StateCaptured,
	{StateAuthorized, OutcomeCaptured}: StateCaptured,
	{StatePending, OutcomeDeclined}:    StateFailed,
	{StateAuthorized, OutcomeDeclined}: StateFailed,
	{StateCaptured, outcomeRefund}:     StateRefunded,
}

// targets is the state each outcome leads to, used to detect repeated signals.
var targets = map[Outcome]State{
	OutcomeAuthorized: StateAuthorized,
	OutcomeCaptured:   StateCaptured,
	OutcomeDeclined:   StateFailed,
	outcomeRefund:     StateRefunded,
}

// Next returns the state reached from from on outcome. A repeated signal
// (target equals from) returns from with a nil error and must not be recorded.
func Next(from State, outcome Outcome) (State, error) {
	if to, ok := transitions[edge{from, outcome}]; ok {
		return to, nil
	}
	to, ok := targets[outcome]
	if !ok {
		return from, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
	if to == from {
		return from, nil
	}
	return from, &InvalidTransitionError{From: from, To: to, Outcome: outcome}
}

var ErrInvalidTransition = errors.New("invalid order transition")

// InvalidTransitionError reports an outcome the current state does not accept.
type InvalidTransitionError struct {
	From    State
	To      State
	Outcome Outcome
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s on %s", e.From, e.To, e.Outcome)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
