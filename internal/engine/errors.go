package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a workflow rejection. The set is closed: every rejection a
// caller can receive from the engine is one of these, and all of them are
// recoverable by the caller. Anything else is an infrastructure fault.
type Kind string

const (
	KindForbidden         Kind = "forbidden"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidTransition Kind = "invalid_transition"
	KindValidation        Kind = "validation"
	KindDuplicateDecision Kind = "duplicate_decision"
	KindAlreadyDecided    Kind = "already_decided"
	KindAlreadySubmitted  Kind = "already_submitted"
	KindAlreadyRedeemed   Kind = "already_redeemed"
	KindNotEligible       Kind = "not_eligible"
	KindPaymentFailed     Kind = "payment_failed"
	KindNotFound          Kind = "not_found"
)

// Error is a typed workflow rejection.
type Error struct {
	Kind    Kind
	Op      string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Kind)
}

// E builds a typed workflow error.
func E(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or the empty Kind for
// infrastructure faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
