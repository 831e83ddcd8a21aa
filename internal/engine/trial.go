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
	minVerdictReasoning      = 30
	minPunishmentTitle       = 5
	minPunishmentDescription = 20
)

// TrialWorkflow owns trial creation, verdict delivery and punishment
// recording.
type TrialWorkflow struct {
	trials    repository.TrialRepository
	decisions repository.DecisionRepository
	suspects  repository.SuspectRepository
	lifecycle *CaseLifecycle
	auth      *rbac.Authority
	notifier  Notifier
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewTrialWorkflow creates the trial workflow.
func NewTrialWorkflow(
	trials repository.TrialRepository,
	decisions repository.DecisionRepository,
	suspects repository.SuspectRepository,
	lifecycle *CaseLifecycle,
	auth *rbac.Authority,
	notifier Notifier,
	collector *metrics.Collector,
	logger *zap.Logger,
) *TrialWorkflow {
	return &TrialWorkflow{
		trials:    trials,
		decisions: decisions,
		suspects:  suspects,
		lifecycle: lifecycle,
		auth:      auth,
		notifier:  notifier,
		metrics:   collector,
		logger:    logger.Named("trial"),
	}
}

// CreateTrial schedules a trial for a suspect who holds a completed guilty
// captain decision (chief-approved where required).
func (w *TrialWorkflow) CreateTrial(ctx context.Context, captain uuid.UUID, req models.CreateTrialRequest) (*models.Trial, error) {
	const op = "trial.create"

	if err := requireAnyRole(ctx, w.auth, op, captain, rbac.RoleCaptain); err != nil {
		w.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	s, err := w.suspects.GetByID(ctx, req.SuspectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "suspect %s not found", req.SuspectID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if s.CaseID != req.CaseID {
		return nil, E(KindValidation, op, "suspect %s does not belong to case %s", req.SuspectID, req.CaseID)
	}

	if _, err := w.decisions.GetCompletedGuiltyForSuspect(ctx, req.SuspectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.metrics.DomainError(string(KindNotEligible))
			return nil, E(KindNotEligible, op, "suspect has no completed guilty decision")
		}
		return nil, errors.Wrapf(err, "%s", op)
	}

	t := &models.Trial{
		CaseID:       req.CaseID,
		SuspectID:    req.SuspectID,
		JudgeID:      req.JudgeID,
		CreatedBy:    captain,
		CaptainNotes: req.CaptainNotes,
		Status:       models.TrialStatusPending,
	}
	if err := w.trials.Create(ctx, t); err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	if err := w.lifecycle.MarkTrialPending(ctx, req.CaseID); err != nil {
		if KindOf(err) == "" {
			return nil, err
		}
	}

	w.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{req.JudgeID}}, NotifyTrialScheduled, &req.CaseID)
	w.metrics.Transition("trial", "create", "ok")
	w.logger.Info("Trial scheduled",
		zap.String("trial_id", t.ID.String()),
		zap.String("case_id", req.CaseID.String()))

	return t, nil
}

// DeliverVerdict records the judge's one-time ruling. A guilty ruling must
// carry a punishment; an innocent ruling must not. The trial completes and
// the case closes either way; an innocent ruling also clears the suspect.
func (w *TrialWorkflow) DeliverVerdict(ctx context.Context, judge, trialID uuid.UUID, req models.DeliverVerdictRequest) (*models.Verdict, error) {
	const op = "trial.deliver_verdict"

	t, err := w.trials.GetByID(ctx, trialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "trial %s not found", trialID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}

	if judge != t.JudgeID {
		w.metrics.DomainError(string(KindForbidden))
		return nil, E(KindForbidden, op, "only the assigned judge may deliver the verdict")
	}
	if t.Status == models.TrialStatusCompleted {
		w.metrics.DomainError(string(KindAlreadyDecided))
		return nil, E(KindAlreadyDecided, op, "verdict was already delivered")
	}

	if err := validateVerdict(op, req); err != nil {
		w.metrics.DomainError(string(KindValidation))
		return nil, err
	}

	v := &models.Verdict{
		TrialID:   trialID,
		Decision:  req.Decision,
		Reasoning: req.Reasoning,
	}
	if req.Decision == models.TrialRulingGuilty {
		v.PunishmentTitle = &req.Punishment.Title
		v.PunishmentDescription = &req.Punishment.Description
	}

	if err := w.trials.CompleteWithVerdict(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			w.metrics.DomainError(string(KindAlreadyDecided))
			return nil, E(KindAlreadyDecided, op, "verdict was already delivered")
		}
		return nil, errors.Wrapf(err, "%s", op)
	}

	if err := w.lifecycle.CloseAfterTrial(ctx, t.CaseID); err != nil {
		if KindOf(err) == "" {
			return nil, err
		}
	}

	if req.Decision == models.TrialRulingInnocent {
		if _, err := w.suspects.Transition(ctx, repository.SuspectTransition{
			SuspectID:     t.SuspectID,
			From:          []models.SuspectStatus{models.SuspectStatusArrested},
			To:            models.SuspectStatusCleared,
			StampResolved: true,
		}); err != nil {
			return nil, errors.Wrapf(err, "%s", op)
		}
	}

	w.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{t.CreatedBy}}, NotifyVerdictDelivered, &t.CaseID)
	w.metrics.Transition("trial", "deliver_verdict", string(req.Decision))
	w.logger.Info("Verdict delivered",
		zap.String("trial_id", trialID.String()),
		zap.String("decision", string(req.Decision)))

	return v, nil
}

func validateVerdict(op string, req models.DeliverVerdictRequest) error {
	if len(strings.TrimSpace(req.Reasoning)) < minVerdictReasoning {
		return E(KindValidation, op, "reasoning must be at least %d characters", minVerdictReasoning)
	}

	switch req.Decision {
	case models.TrialRulingGuilty:
		if req.Punishment == nil {
			return E(KindValidation, op, "a guilty verdict requires a punishment")
		}
		if len(strings.TrimSpace(req.Punishment.Title)) < minPunishmentTitle {
			return E(KindValidation, op, "punishment title must be at least %d characters", minPunishmentTitle)
		}
		if len(strings.TrimSpace(req.Punishment.Description)) < minPunishmentDescription {
			return E(KindValidation, op, "punishment description must be at least %d characters", minPunishmentDescription)
		}
	case models.TrialRulingInnocent:
		if req.Punishment != nil {
			return E(KindValidation, op, "an innocent verdict cannot carry a punishment")
		}
	default:
		return E(KindValidation, op, "unknown verdict decision %q", req.Decision)
	}
	return nil
}
