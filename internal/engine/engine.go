package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"case-engine/internal/rbac"
)

// Clock supplies the current time. Injected so the time-driven pursuit
// escalation stays reproducible in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Recipients selects notification targets: explicit principals, a role pool,
// or both.
type Recipients struct {
	UserIDs []uuid.UUID
	Role    rbac.Role
}

// Notification type tags emitted by the workflows.
const (
	NotifyCaseReviewRequested    = "case_review_requested"
	NotifyCaseOpened             = "case_opened"
	NotifyCaseRejected           = "case_rejected"
	NotifyCaseClosed             = "case_closed"
	NotifyCaseReturned           = "case_returned"
	NotifySubmissionPending      = "submission_pending"
	NotifySubmissionReviewed     = "submission_reviewed"
	NotifyWarrantsIssued         = "warrants_issued"
	NotifyInterrogationSubmitted = "interrogation_submitted"
	NotifyDecisionAwaitingChief  = "decision_awaiting_chief"
	NotifyDecisionCompleted      = "decision_completed"
	NotifyTrialScheduled         = "trial_scheduled"
	NotifyVerdictDelivered       = "verdict_delivered"
	NotifyBailRequested          = "bail_requested"
	NotifyBailApproved           = "bail_approved"
	NotifyBailPaid               = "bail_paid"
	NotifyTipReceived            = "tip_received"
	NotifyTipForwarded           = "tip_forwarded"
	NotifyTipApproved            = "tip_approved"
	NotifyTipRejected            = "tip_rejected"
)

// Notifier records outbound notifications. It is fire-and-forget: a failure
// to notify never fails the transition that triggered it, so the interface
// returns nothing.
type Notifier interface {
	Notify(ctx context.Context, to Recipients, ntype string, caseID *uuid.UUID)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Recipients, string, *uuid.UUID) {}

// requireAnyRole gates an operation on the principal holding one of the
// allowed roles, returning a typed Forbidden on a miss.
func requireAnyRole(ctx context.Context, auth *rbac.Authority, op string, principal uuid.UUID, roles ...rbac.Role) error {
	ok, err := auth.HasAnyRole(ctx, principal, roles...)
	if err != nil {
		return errors.Wrapf(err, "%s: role check failed", op)
	}
	if !ok {
		return E(KindForbidden, op, "principal %s lacks required role", principal)
	}
	return nil
}

// requirePoliceAbove gates an operation on a police rank strictly above min.
func requirePoliceAbove(ctx context.Context, auth *rbac.Authority, op string, principal uuid.UUID, min int) error {
	ok, err := auth.HasPoliceRankAbove(ctx, principal, min)
	if err != nil {
		return errors.Wrapf(err, "%s: role check failed", op)
	}
	if !ok {
		return E(KindForbidden, op, "principal %s lacks required rank", principal)
	}
	return nil
}

// newRedemptionCode returns a 32-hex-char single-use reward code.
func newRedemptionCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate redemption code")
	}
	return hex.EncodeToString(buf), nil
}
