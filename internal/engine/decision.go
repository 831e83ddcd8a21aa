package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"case-engine/internal/metrics"
	"case-engine/internal/models"
	"case-engine/internal/rbac"
	"case-engine/internal/repository"
)

const (
	minDecisionReasoning = 20
	minChiefComments     = 10
)

// DecisionChain owns the captain decision and, for critical crime levels,
// the chief-approval escalation.
type DecisionChain struct {
	decisions      repository.DecisionRepository
	interrogations repository.InterrogationRepository
	cases          repository.CaseRepository
	lifecycle      *CaseLifecycle
	auth           *rbac.Authority
	notifier       Notifier
	metrics        *metrics.Collector
	logger         *zap.Logger
}

// NewDecisionChain creates the decision workflow.
func NewDecisionChain(
	decisions repository.DecisionRepository,
	interrogations repository.InterrogationRepository,
	cases repository.CaseRepository,
	lifecycle *CaseLifecycle,
	auth *rbac.Authority,
	notifier Notifier,
	collector *metrics.Collector,
	logger *zap.Logger,
) *DecisionChain {
	return &DecisionChain{
		decisions:      decisions,
		interrogations: interrogations,
		cases:          cases,
		lifecycle:      lifecycle,
		auth:           auth,
		notifier:       notifier,
		metrics:        collector,
		logger:         logger.Named("decision_chain"),
	}
}

// Decide records the captain's guilt call on a submitted interrogation. At
// crime level 0 the decision waits for the chief; otherwise it completes
// immediately and steers the case.
func (d *DecisionChain) Decide(ctx context.Context, captain, interrogationID uuid.UUID, req models.CaptainDecisionRequest) (*models.CaptainDecision, error) {
	const op = "decision.decide"

	if err := requireAnyRole(ctx, d.auth, op, captain, rbac.RoleCaptain); err != nil {
		d.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	switch req.Decision {
	case models.CaptainVerdictGuilty, models.CaptainVerdictNotGuilty, models.CaptainVerdictNeedsMore:
	default:
		return nil, E(KindValidation, op, "unknown decision %q", req.Decision)
	}
	if len(strings.TrimSpace(req.Reasoning)) < minDecisionReasoning {
		d.metrics.DomainError(string(KindValidation))
		return nil, E(KindValidation, op, "reasoning must be at least %d characters", minDecisionReasoning)
	}

	i, err := d.interrogations.GetByID(ctx, interrogationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "interrogation %s not found", interrogationID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if i.Status != models.InterrogationStatusSubmitted {
		d.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "interrogation is %s, not submitted", i.Status)
	}

	if _, err := d.decisions.GetCaptainByInterrogation(ctx, interrogationID); err == nil {
		d.metrics.DomainError(string(KindDuplicateDecision))
		return nil, E(KindDuplicateDecision, op, "a decision already exists for this interrogation")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, errors.Wrapf(err, "%s", op)
	}

	c, err := d.cases.GetByID(ctx, i.CaseID)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	requiresChief := c.CrimeLevel == models.CrimeLevelCritical
	status := models.DecisionStatusCompleted
	if requiresChief {
		status = models.DecisionStatusAwaitingChief
	}

	decision := &models.CaptainDecision{
		InterrogationID: interrogationID,
		CaseID:          i.CaseID,
		CaptainID:       captain,
		Decision:        req.Decision,
		Reasoning:       req.Reasoning,
		Status:          status,
		RequiresChief:   requiresChief,
	}

	if err := d.decisions.CreateCaptain(ctx, decision); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// The unique constraint caught a concurrent captain.
			d.metrics.DomainError(string(KindDuplicateDecision))
			return nil, E(KindDuplicateDecision, op, "a decision already exists for this interrogation")
		}
		return nil, errors.Wrapf(err, "%s", op)
	}

	if requiresChief {
		// The interrogation is held at submitted until the chief rules.
		d.notifier.Notify(ctx, Recipients{Role: rbac.RoleChief}, NotifyDecisionAwaitingChief, &i.CaseID)
		d.metrics.Transition("decision", "decide", "awaiting_chief")
		return decision, nil
	}

	if err := d.settle(ctx, op, decision, i); err != nil {
		return nil, err
	}
	d.metrics.Transition("decision", "decide", string(req.Decision))
	return decision, nil
}

// ChiefApprove records the chief's ruling on an escalated decision. Approval
// lets the captain's call stand; rejection completes the decision but sends
// the case back to investigation.
func (d *DecisionChain) ChiefApprove(ctx context.Context, chief, captainDecisionID uuid.UUID, req models.ChiefDecisionRequest) (*models.ChiefDecision, error) {
	const op = "decision.chief_approve"

	if err := requireAnyRole(ctx, d.auth, op, chief, rbac.RoleChief); err != nil {
		d.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	if req.Decision != models.ChiefRulingApproved && req.Decision != models.ChiefRulingRejected {
		return nil, E(KindValidation, op, "unknown ruling %q", req.Decision)
	}
	if len(strings.TrimSpace(req.Comments)) < minChiefComments {
		d.metrics.DomainError(string(KindValidation))
		return nil, E(KindValidation, op, "comments must be at least %d characters", minChiefComments)
	}

	captainDecision, err := d.decisions.GetCaptainByID(ctx, captainDecisionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "captain decision %s not found", captainDecisionID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if captainDecision.Status != models.DecisionStatusAwaitingChief || !captainDecision.RequiresChief {
		d.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "decision is not awaiting chief approval")
	}

	if _, err := d.decisions.GetChiefByCaptainDecision(ctx, captainDecisionID); err == nil {
		d.metrics.DomainError(string(KindDuplicateDecision))
		return nil, E(KindDuplicateDecision, op, "a chief decision already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, errors.Wrapf(err, "%s", op)
	}

	ruling := &models.ChiefDecision{
		CaptainDecisionID: captainDecisionID,
		ChiefID:           chief,
		Decision:          req.Decision,
		Comments:          req.Comments,
	}
	if err := d.decisions.CreateChief(ctx, ruling); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			d.metrics.DomainError(string(KindDuplicateDecision))
			return nil, E(KindDuplicateDecision, op, "a chief decision already exists")
		}
		return nil, errors.Wrapf(err, "%s", op)
	}

	applied, err := d.decisions.CompleteCaptain(ctx, captainDecisionID)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !applied {
		return nil, E(KindDuplicateDecision, op, "decision was completed concurrently")
	}

	i, err := d.interrogations.GetByID(ctx, captainDecision.InterrogationID)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	if req.Decision == models.ChiefRulingApproved {
		if err := d.settle(ctx, op, captainDecision, i); err != nil {
			return nil, err
		}
	} else {
		if _, err := d.interrogations.MarkReviewed(ctx, i.ID); err != nil {
			return nil, errors.Wrapf(err, "%s", op)
		}
		if err := d.lifecycle.ReturnToInvestigation(ctx, captainDecision.CaseID, "chief rejected decision"); err != nil {
			if KindOf(err) == "" {
				return nil, err
			}
		}
	}

	d.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{captainDecision.CaptainID}}, NotifyDecisionCompleted, &captainDecision.CaseID)
	d.metrics.Transition("decision", "chief_approve", string(req.Decision))
	d.logger.Info("Chief ruling recorded",
		zap.String("captain_decision_id", captainDecisionID.String()),
		zap.String("ruling", string(req.Decision)))

	return ruling, nil
}

// settle applies the side effects of a completed captain decision: the
// interrogation is closed out and a non-guilty or needs_more call sends the
// case back for a fresh suspect submission cycle.
func (d *DecisionChain) settle(ctx context.Context, op string, decision *models.CaptainDecision, i *models.Interrogation) error {
	if _, err := d.interrogations.MarkReviewed(ctx, i.ID); err != nil {
		return errors.Wrapf(err, "%s", op)
	}

	if decision.Decision != models.CaptainVerdictGuilty {
		if err := d.lifecycle.ReturnToInvestigation(ctx, decision.CaseID, "decision: "+string(decision.Decision)); err != nil {
			if KindOf(err) == "" {
				return err
			}
		}
	}

	d.logger.Info("Captain decision settled",
		zap.String("decision_id", decision.ID.String()),
		zap.String("decision", string(decision.Decision)))
	return nil
}
