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

// InterrogationWorkflow owns interrogation rating collection and averaging.
type InterrogationWorkflow struct {
	interrogations repository.InterrogationRepository
	suspects       repository.SuspectRepository
	lifecycle      *CaseLifecycle
	auth           *rbac.Authority
	notifier       Notifier
	metrics        *metrics.Collector
	logger         *zap.Logger
}

// NewInterrogationWorkflow creates the interrogation workflow.
func NewInterrogationWorkflow(
	interrogations repository.InterrogationRepository,
	suspects repository.SuspectRepository,
	lifecycle *CaseLifecycle,
	auth *rbac.Authority,
	notifier Notifier,
	collector *metrics.Collector,
	logger *zap.Logger,
) *InterrogationWorkflow {
	return &InterrogationWorkflow{
		interrogations: interrogations,
		suspects:       suspects,
		lifecycle:      lifecycle,
		auth:           auth,
		notifier:       notifier,
		metrics:        collector,
		logger:         logger.Named("interrogation"),
	}
}

// Create opens an interrogation for an arrested suspect, pairing the
// assigned detective and sergeant.
func (w *InterrogationWorkflow) Create(ctx context.Context, principal, suspectID, detectiveID, sergeantID uuid.UUID) (*models.Interrogation, error) {
	const op = "interrogation.create"

	if err := requirePoliceAbove(ctx, w.auth, op, principal, cadetRank); err != nil {
		w.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	s, err := w.suspects.GetByID(ctx, suspectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "suspect %s not found", suspectID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if s.Status != models.SuspectStatusArrested {
		w.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "suspect is %s, not arrested", s.Status)
	}

	i := &models.Interrogation{
		SuspectID:   suspectID,
		CaseID:      s.CaseID,
		DetectiveID: detectiveID,
		SergeantID:  sergeantID,
		Status:      models.InterrogationStatusPending,
	}
	if err := w.interrogations.Create(ctx, i); err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	// First interrogation moves the case along; later ones find it there
	// already, which is fine.
	if err := w.lifecycle.BeginInterrogation(ctx, s.CaseID); err != nil {
		if KindOf(err) == "" {
			return nil, err
		}
	}

	w.metrics.Transition("interrogation", "create", "ok")
	w.logger.Info("Interrogation created",
		zap.String("interrogation_id", i.ID.String()),
		zap.String("suspect_id", suspectID.String()))

	return i, nil
}

// SubmitRatings records both ratings in one shot. Only the assigned
// detective or sergeant may submit, only while pending, and both ratings and
// both note fields must be present and in range.
func (w *InterrogationWorkflow) SubmitRatings(ctx context.Context, principal, interrogationID uuid.UUID, req models.SubmitRatingsRequest) (*models.Interrogation, error) {
	const op = "interrogation.submit_ratings"

	i, err := w.interrogations.GetByID(ctx, interrogationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "interrogation %s not found", interrogationID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}

	switch i.Status {
	case models.InterrogationStatusPending:
	case models.InterrogationStatusSubmitted:
		w.metrics.DomainError(string(KindAlreadySubmitted))
		return nil, E(KindAlreadySubmitted, op, "ratings were already submitted")
	default:
		w.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "interrogation is %s", i.Status)
	}

	if principal != i.DetectiveID && principal != i.SergeantID {
		w.metrics.DomainError(string(KindForbidden))
		return nil, E(KindForbidden, op, "only the assigned detective or sergeant may submit ratings")
	}

	if req.DetectiveRating < 1 || req.DetectiveRating > 10 {
		return nil, E(KindValidation, op, "detective rating %d is out of range [1,10]", req.DetectiveRating)
	}
	if req.SergeantRating < 1 || req.SergeantRating > 10 {
		return nil, E(KindValidation, op, "sergeant rating %d is out of range [1,10]", req.SergeantRating)
	}
	if len(strings.TrimSpace(req.DetectiveNotes)) < minReviewNotes {
		return nil, E(KindValidation, op, "detective notes must be at least %d characters", minReviewNotes)
	}
	if len(strings.TrimSpace(req.SergeantNotes)) < minReviewNotes {
		return nil, E(KindValidation, op, "sergeant notes must be at least %d characters", minReviewNotes)
	}

	average := float64(req.DetectiveRating+req.SergeantRating) / 2

	applied, err := w.interrogations.SubmitRatings(ctx, interrogationID, repository.RatingsUpdate{
		DetectiveRating: req.DetectiveRating,
		SergeantRating:  req.SergeantRating,
		DetectiveNotes:  req.DetectiveNotes,
		SergeantNotes:   req.SergeantNotes,
		Average:         average,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !applied {
		w.metrics.DomainError(string(KindAlreadySubmitted))
		return nil, E(KindAlreadySubmitted, op, "ratings were already submitted")
	}

	w.notifier.Notify(ctx, Recipients{Role: rbac.RoleCaptain}, NotifyInterrogationSubmitted, &i.CaseID)
	w.metrics.Transition("interrogation", "submit_ratings", "ok")
	w.logger.Info("Interrogation ratings submitted",
		zap.String("interrogation_id", interrogationID.String()),
		zap.Float64("average", average))

	return w.interrogations.GetByID(ctx, interrogationID)
}
