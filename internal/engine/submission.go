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

// minReviewNotes is the shortest acceptable reasoning or review note.
const minReviewNotes = 10

// SubmissionReview owns the detective-to-sergeant approval gate that turns
// identified suspects into warrant holders.
type SubmissionReview struct {
	submissions repository.SubmissionRepository
	suspects    repository.SuspectRepository
	lifecycle   *CaseLifecycle
	auth        *rbac.Authority
	notifier    Notifier
	clock       Clock
	metrics     *metrics.Collector
	logger      *zap.Logger
}

// NewSubmissionReview creates the suspect submission workflow.
func NewSubmissionReview(
	submissions repository.SubmissionRepository,
	suspects repository.SuspectRepository,
	lifecycle *CaseLifecycle,
	auth *rbac.Authority,
	notifier Notifier,
	clock Clock,
	collector *metrics.Collector,
	logger *zap.Logger,
) *SubmissionReview {
	return &SubmissionReview{
		submissions: submissions,
		suspects:    suspects,
		lifecycle:   lifecycle,
		auth:        auth,
		notifier:    notifier,
		clock:       clock,
		metrics:     collector,
		logger:      logger.Named("submission_review"),
	}
}

// Submit files a detective's arrest-warrant request for one or more suspects.
func (r *SubmissionReview) Submit(ctx context.Context, detective, caseID uuid.UUID, req models.SubmitSuspectsRequest) (*models.SuspectSubmission, error) {
	const op = "submission.submit"

	if len(req.SuspectIDs) == 0 {
		r.metrics.DomainError(string(KindValidation))
		return nil, E(KindValidation, op, "at least one suspect is required")
	}
	if len(strings.TrimSpace(req.Reasoning)) < minReviewNotes {
		r.metrics.DomainError(string(KindValidation))
		return nil, E(KindValidation, op, "reasoning must be at least %d characters", minReviewNotes)
	}

	if err := requireAnyRole(ctx, r.auth, op, detective, rbac.RoleDetective); err != nil {
		r.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	c, err := r.lifecycle.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CaseStatusSuspectsIdentified {
		return nil, E(KindInvalidState, op, "case is %s; suspects must be identified first", c.Status)
	}

	// Every referenced suspect must belong to the case and still be in play.
	for _, id := range req.SuspectIDs {
		s, err := r.suspects.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, E(KindValidation, op, "suspect %s not found", id)
			}
			return nil, errors.Wrapf(err, "%s", op)
		}
		if s.CaseID != caseID {
			return nil, E(KindValidation, op, "suspect %s does not belong to case %s", id, caseID)
		}
		if s.Status == models.SuspectStatusCleared {
			return nil, E(KindValidation, op, "suspect %s has been cleared", id)
		}
	}

	sub := &models.SuspectSubmission{
		CaseID:      caseID,
		DetectiveID: detective,
		SuspectIDs:  req.SuspectIDs,
		Reasoning:   req.Reasoning,
		Status:      models.SubmissionStatusPending,
	}
	if err := r.submissions.Create(ctx, sub); err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	r.notifier.Notify(ctx, Recipients{Role: rbac.RoleSergeant}, NotifySubmissionPending, &caseID)
	r.metrics.Transition("submission", "submit", "ok")
	r.logger.Info("Suspect submission filed",
		zap.String("submission_id", sub.ID.String()),
		zap.String("case_id", caseID.String()),
		zap.Int("suspects", len(req.SuspectIDs)))

	return sub, nil
}

// Review records the sergeant's ruling. Approval issues arrest warrants for
// every referenced suspect and advances the case; rejection sends the case
// back to investigation with no warrants.
func (r *SubmissionReview) Review(ctx context.Context, sergeant, submissionID uuid.UUID, req models.ReviewSubmissionRequest) (*models.SuspectSubmission, error) {
	const op = "submission.review"

	if len(strings.TrimSpace(req.Notes)) < minReviewNotes {
		r.metrics.DomainError(string(KindValidation))
		return nil, E(KindValidation, op, "notes must be at least %d characters", minReviewNotes)
	}
	if req.Decision != models.ReviewApproved && req.Decision != models.ReviewRejected {
		return nil, E(KindValidation, op, "unknown review decision %q", req.Decision)
	}

	if err := requireAnyRole(ctx, r.auth, op, sergeant, rbac.RoleSergeant); err != nil {
		r.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	sub, err := r.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "submission %s not found", submissionID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if sub.Status != models.SubmissionStatusPending {
		r.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "submission is already %s", sub.Status)
	}

	to := models.SubmissionStatusApproved
	if req.Decision == models.ReviewRejected {
		to = models.SubmissionStatusRejected
	}

	applied, err := r.submissions.Review(ctx, submissionID, to, sergeant, req.Notes)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !applied {
		// Another sergeant won the race; their ruling stands.
		r.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "submission was reviewed concurrently")
	}

	if to == models.SubmissionStatusApproved {
		if err := r.suspects.IssueWarrants(ctx, sub.SuspectIDs, r.clock.Now()); err != nil {
			return nil, errors.Wrapf(err, "%s", op)
		}
		if err := r.lifecycle.MarkArrestApproved(ctx, sub.CaseID); err != nil {
			return nil, err
		}
		r.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{sub.DetectiveID}}, NotifyWarrantsIssued, &sub.CaseID)
	} else {
		if err := r.lifecycle.ReturnToInvestigation(ctx, sub.CaseID, "submission rejected"); err != nil {
			return nil, err
		}
		r.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{sub.DetectiveID}}, NotifySubmissionReviewed, &sub.CaseID)
	}

	r.metrics.Transition("submission", "review", string(to))
	return r.submissions.GetByID(ctx, submissionID)
}
