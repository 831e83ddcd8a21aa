package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"case-engine/internal/config"
	"case-engine/internal/metrics"
	"case-engine/internal/models"
	"case-engine/internal/rbac"
	"case-engine/internal/repository"
)

// BailWorkflow owns bail request, sergeant approval and gateway
// confirmation reconciliation.
type BailWorkflow struct {
	bails    repository.BailRepository
	suspects repository.SuspectRepository
	cases    repository.CaseRepository
	auth     *rbac.Authority
	notifier Notifier
	cfg      config.BailConfig
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewBailWorkflow creates the bail workflow.
func NewBailWorkflow(
	bails repository.BailRepository,
	suspects repository.SuspectRepository,
	cases repository.CaseRepository,
	auth *rbac.Authority,
	notifier Notifier,
	cfg config.BailConfig,
	collector *metrics.Collector,
	logger *zap.Logger,
) *BailWorkflow {
	return &BailWorkflow{
		bails:    bails,
		suspects: suspects,
		cases:    cases,
		auth:     auth,
		notifier: notifier,
		cfg:      cfg,
		metrics:  collector,
		logger:   logger.Named("bail"),
	}
}

// Request opens a bail payment for an arrested suspect. Only crime levels 2
// and 3 are bailable. The correlation token is generated here; the web layer
// hands it to the gateway so retried callbacks stay correlated.
func (w *BailWorkflow) Request(ctx context.Context, principal uuid.UUID, req models.RequestBailRequest) (*models.BailPayment, error) {
	const op = "bail.request"

	s, err := w.suspects.GetByID(ctx, req.SuspectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "suspect %s not found", req.SuspectID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if s.Status != models.SuspectStatusArrested {
		w.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "suspect is %s, not arrested", s.Status)
	}

	c, err := w.cases.GetByID(ctx, s.CaseID)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !c.CrimeLevel.Bailable() {
		w.metrics.DomainError(string(KindNotEligible))
		return nil, E(KindNotEligible, op, "crime level %d is not bailable", c.CrimeLevel)
	}

	if req.Amount < w.cfg.MinAmount || req.Amount > w.cfg.MaxAmount {
		w.metrics.DomainError(string(KindValidation))
		return nil, E(KindValidation, op, "amount %d is outside [%d, %d]", req.Amount, w.cfg.MinAmount, w.cfg.MaxAmount)
	}

	token, err := newCorrelationToken()
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	b := &models.BailPayment{
		SuspectID:    req.SuspectID,
		CaseID:       s.CaseID,
		RequestedBy:  principal,
		Amount:       req.Amount,
		Status:       models.BailStatusPending,
		GatewayToken: &token,
	}
	if err := w.bails.Create(ctx, b); err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	w.notifier.Notify(ctx, Recipients{Role: rbac.RoleSergeant}, NotifyBailRequested, &s.CaseID)
	w.metrics.Transition("bail", "request", "ok")
	w.logger.Info("Bail requested",
		zap.String("bail_id", b.ID.String()),
		zap.Int64("amount", req.Amount))

	return b, nil
}

// Approve records the sergeant's approval of a pending bail request.
func (w *BailWorkflow) Approve(ctx context.Context, sergeant, bailID uuid.UUID) (*models.BailPayment, error) {
	return w.settle(ctx, "bail.approve", sergeant, bailID, true)
}

// Reject declines a pending bail request.
func (w *BailWorkflow) Reject(ctx context.Context, sergeant, bailID uuid.UUID) (*models.BailPayment, error) {
	return w.settle(ctx, "bail.reject", sergeant, bailID, false)
}

func (w *BailWorkflow) settle(ctx context.Context, op string, sergeant, bailID uuid.UUID, approve bool) (*models.BailPayment, error) {
	if err := requireAnyRole(ctx, w.auth, op, sergeant, rbac.RoleSergeant); err != nil {
		w.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	var (
		applied bool
		err     error
	)
	if approve {
		applied, err = w.bails.Approve(ctx, bailID, sergeant)
	} else {
		applied, err = w.bails.Reject(ctx, bailID, sergeant)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !applied {
		w.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "bail payment is not pending")
	}

	b, err := w.bails.GetByID(ctx, bailID)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	if approve {
		w.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{b.RequestedBy}}, NotifyBailApproved, &b.CaseID)
	}
	w.metrics.Transition("bail", "settle", string(b.Status))
	return b, nil
}

// ConfirmPayment reconciles a gateway callback. The operation is idempotent
// per correlation token: a duplicated success callback finds the payment
// already paid and returns it without a second side effect.
func (w *BailWorkflow) ConfirmPayment(ctx context.Context, result models.GatewayResult) (*models.BailPayment, error) {
	const op = "bail.confirm_payment"

	if strings.TrimSpace(result.CorrelationToken) == "" {
		return nil, E(KindValidation, op, "correlation token is required")
	}

	b, err := w.bails.GetByToken(ctx, result.CorrelationToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "no bail payment for token")
		}
		return nil, errors.Wrapf(err, "%s", op)
	}

	switch result.Outcome {
	case models.GatewayOutcomeSuccess, models.GatewayOutcomeAlreadyPaid:
		if b.Status == models.BailStatusPaid {
			// Retried or duplicated callback: nothing to re-mutate.
			w.metrics.Transition("bail", "confirm_payment", "already_paid")
			return b, nil
		}
		if result.Outcome == models.GatewayOutcomeAlreadyPaid {
			w.metrics.DomainError(string(KindPaymentFailed))
			return nil, E(KindPaymentFailed, op, "gateway reports paid but no paid record exists")
		}
		if b.Status != models.BailStatusApproved {
			w.metrics.DomainError(string(KindInvalidState))
			return nil, E(KindInvalidState, op, "bail payment is %s, not approved", b.Status)
		}

		applied, err := w.bails.MarkPaid(ctx, b.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", op)
		}
		if !applied {
			// A concurrent callback won; read its result.
			b, err = w.bails.GetByID(ctx, b.ID)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", op)
			}
			if b.Status != models.BailStatusPaid {
				return nil, E(KindInvalidState, op, "bail payment is %s", b.Status)
			}
			return b, nil
		}

		if err := w.suspects.MarkReleasedOnBail(ctx, b.SuspectID); err != nil {
			return nil, errors.Wrapf(err, "%s", op)
		}

		w.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{b.RequestedBy}}, NotifyBailPaid, &b.CaseID)
		w.metrics.Transition("bail", "confirm_payment", "paid")
		w.logger.Info("Bail payment confirmed", zap.String("bail_id", b.ID.String()))

		return w.bails.GetByID(ctx, b.ID)

	default:
		// The gateway said no. Status is left untouched so the payment can
		// be retried.
		w.metrics.DomainError(string(KindPaymentFailed))
		return nil, E(KindPaymentFailed, op, "gateway outcome %q", result.Outcome)
	}
}

// newCorrelationToken returns a 24-hex-char gateway correlation token.
func newCorrelationToken() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate correlation token")
	}
	return hex.EncodeToString(buf), nil
}
