package model

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrMalformedResponse  = goerr.New("malformed generation response")
	ErrIncompleteResponse = goerr.New("incomplete generation response")
	ErrTransportFailure   = goerr.New("generation service unavailable")
)

type OutcomeKind string

const (
	OutcomeResolved OutcomeKind = "resolved"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
)

type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonNotCombinable      Reason = "not_combinable"
	ReasonMalformedResponse  Reason = "malformed_response"
	ReasonIncompleteResponse Reason = "incomplete_response"
	ReasonTransportFailure   Reason = "transport_failure"
	ReasonPersistenceFailure Reason = "persistence_failure"
	ReasonRaceInconsistency  Reason = "race_inconsistency"
	ReasonPolicyFailure      Reason = "policy_failure"
)

// Outcome is the result of resolving one element pair
type Outcome struct {
	Kind        OutcomeKind
	Reason      Reason
	Pair        ElementPair
	Combination *Combination
	IsNew       bool

	// Err keeps the underlying error of Rejected and Failed outcomes for logging
	Err error
}

func Resolved(pair ElementPair, c *Combination, isNew bool) *Outcome {
	return &Outcome{
		Kind:        OutcomeResolved,
		Pair:        pair,
		Combination: c,
		IsNew:       isNew,
	}
}

func Rejected(pair ElementPair, reason Reason, err error) *Outcome {
	return &Outcome{
		Kind:   OutcomeRejected,
		Reason: reason,
		Pair:   pair,
		Err:    err,
	}
}

func Failed(pair ElementPair, reason Reason, err error) *Outcome {
	return &Outcome{
		Kind:   OutcomeFailed,
		Reason: reason,
		Pair:   pair,
		Err:    err,
	}
}

// OK reports whether the outcome carries a combination
func (o *Outcome) OK() bool {
	return o.Kind == OutcomeResolved && o.Combination != nil
}

// GenerationFailureReason maps an error returned by a generator to a Reason.
// Unknown errors are reported as transport failures.
func GenerationFailureReason(err error) Reason {
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return ReasonMalformedResponse
	case errors.Is(err, ErrIncompleteResponse):
		return ReasonIncompleteResponse
	default:
		return ReasonTransportFailure
	}
}
