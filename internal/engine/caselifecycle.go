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

// legalCaseMoves is the single source of truth for case status edges. The
// named cascade methods below are the only writers; sibling workflows never
// mutate case status directly.
var legalCaseMoves = map[models.CaseStatus][]models.CaseStatus{
	models.CaseStatusDraft:              {models.CaseStatusCadetReview},
	models.CaseStatusCadetReview:        {models.CaseStatusCadetReview, models.CaseStatusOfficerReview, models.CaseStatusRejected, models.CaseStatusClosed},
	models.CaseStatusOfficerReview:      {models.CaseStatusOpen, models.CaseStatusCadetReview, models.CaseStatusRejected},
	models.CaseStatusOpen:               {models.CaseStatusUnderInvestigation},
	models.CaseStatusUnderInvestigation: {models.CaseStatusSuspectsIdentified},
	models.CaseStatusSuspectsIdentified: {models.CaseStatusArrestApproved, models.CaseStatusUnderInvestigation},
	models.CaseStatusArrestApproved:     {models.CaseStatusInterrogation, models.CaseStatusUnderInvestigation},
	models.CaseStatusInterrogation:      {models.CaseStatusTrialPending, models.CaseStatusUnderInvestigation},
	models.CaseStatusTrialPending:       {models.CaseStatusClosed},
}

// maxRejections forces permanent closure once reached during cadet review.
const maxRejections = 3

// CaseLifecycle owns the case status state machine and the rejection-count
// policy.
type CaseLifecycle struct {
	cases    repository.CaseRepository
	auth     *rbac.Authority
	notifier Notifier
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewCaseLifecycle creates the case lifecycle workflow.
func NewCaseLifecycle(cases repository.CaseRepository, auth *rbac.Authority, notifier Notifier, collector *metrics.Collector, logger *zap.Logger) *CaseLifecycle {
	return &CaseLifecycle{
		cases:    cases,
		auth:     auth,
		notifier: notifier,
		metrics:  collector,
		logger:   logger.Named("case_lifecycle"),
	}
}

// Create opens a new case file. Citizen complaints and officer-observed
// scenes both enter cadet review immediately unless saved as a draft.
func (l *CaseLifecycle) Create(ctx context.Context, principal uuid.UUID, req models.CreateCaseRequest) (*models.Case, error) {
	const op = "case.create"

	if strings.TrimSpace(req.Title) == "" {
		return nil, E(KindValidation, op, "title is required")
	}
	if !req.CrimeLevel.Valid() {
		return nil, E(KindValidation, op, "crime level %d is out of range", req.CrimeLevel)
	}
	if req.FormationType != models.FormationCitizenComplaint && req.FormationType != models.FormationOfficerScene {
		return nil, E(KindValidation, op, "unknown formation type %q", req.FormationType)
	}

	status := models.CaseStatusCadetReview
	if req.Draft {
		status = models.CaseStatusDraft
	}

	c := &models.Case{
		Title:         req.Title,
		Description:   req.Description,
		CrimeLevel:    req.CrimeLevel,
		FormationType: req.FormationType,
		Status:        status,
		CreatedBy:     principal,
		AssignedTo:    req.AssignedTo,
	}

	if err := l.cases.Create(ctx, c); err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	if status == models.CaseStatusCadetReview {
		l.notifier.Notify(ctx, Recipients{Role: rbac.RoleCadet}, NotifyCaseReviewRequested, &c.ID)
	}
	l.metrics.Transition("case", "create", "ok")
	l.logger.Info("Case created",
		zap.String("case_id", c.ID.String()),
		zap.String("status", string(c.Status)))

	return c, nil
}

// Submit moves a draft into cadet review.
func (l *CaseLifecycle) Submit(ctx context.Context, principal, caseID uuid.UUID) (*models.Case, error) {
	const op = "case.submit"

	c, err := l.getCase(ctx, op, caseID)
	if err != nil {
		return nil, err
	}
	if c.CreatedBy != principal {
		return nil, E(KindForbidden, op, "only the creator may submit a draft")
	}
	if c.Status != models.CaseStatusDraft {
		return nil, E(KindInvalidTransition, op, "case is %s, not draft", c.Status)
	}

	if err := l.setStatus(ctx, op, caseID,
		[]models.CaseStatus{models.CaseStatusDraft}, models.CaseStatusCadetReview, "draft submitted", false, false); err != nil {
		return nil, err
	}

	l.notifier.Notify(ctx, Recipients{Role: rbac.RoleCadet}, NotifyCaseReviewRequested, &caseID)
	return l.getCase(ctx, op, caseID)
}

// SubmitReview records a cadet or officer review outcome. Approval climbs
// the review ladder; rejection bumps the rejection count and a third
// rejection during cadet review closes the case for good.
func (l *CaseLifecycle) SubmitReview(ctx context.Context, principal, caseID uuid.UUID, req models.SubmitReviewRequest) (*models.Case, error) {
	const op = "case.submit_review"

	c, err := l.getCase(ctx, op, caseID)
	if err != nil {
		return nil, err
	}

	var reviewerRole rbac.Role
	switch c.Status {
	case models.CaseStatusCadetReview:
		reviewerRole = rbac.RoleCadet
	case models.CaseStatusOfficerReview:
		reviewerRole = rbac.RoleOfficer
	default:
		l.metrics.DomainError(string(KindInvalidTransition))
		return nil, E(KindInvalidTransition, op, "case is %s, not in a review state", c.Status)
	}

	if err := requireAnyRole(ctx, l.auth, op, principal, reviewerRole); err != nil {
		l.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	switch req.Decision {
	case models.ReviewApproved:
		return l.approveReview(ctx, op, c)
	case models.ReviewRejected:
		if strings.TrimSpace(req.RejectionReason) == "" {
			return nil, E(KindValidation, op, "rejection reason is required")
		}
		return l.rejectReview(ctx, op, c)
	default:
		return nil, E(KindValidation, op, "unknown review decision %q", req.Decision)
	}
}

func (l *CaseLifecycle) approveReview(ctx context.Context, op string, c *models.Case) (*models.Case, error) {
	if c.Status == models.CaseStatusCadetReview {
		if err := l.setStatus(ctx, op, c.ID,
			[]models.CaseStatus{models.CaseStatusCadetReview}, models.CaseStatusOfficerReview, "cadet approved", false, false); err != nil {
			return nil, err
		}
		l.notifier.Notify(ctx, Recipients{Role: rbac.RoleOfficer}, NotifyCaseReviewRequested, &c.ID)
	} else {
		applied, err := l.cases.Transition(ctx, repository.CaseTransition{
			CaseID:      c.ID,
			From:        []models.CaseStatus{models.CaseStatusOfficerReview},
			To:          models.CaseStatusOpen,
			Cause:       "officer approved",
			StampOpened: true,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "%s", op)
		}
		if !applied {
			return nil, E(KindInvalidTransition, op, "case changed concurrently")
		}
		l.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{c.CreatedBy}}, NotifyCaseOpened, &c.ID)
	}

	l.metrics.Transition("case", "review", "approved")
	return l.getCase(ctx, op, c.ID)
}

func (l *CaseLifecycle) rejectReview(ctx context.Context, op string, c *models.Case) (*models.Case, error) {
	expect := c.RejectionCount

	t := repository.CaseTransition{
		CaseID:           c.ID,
		From:             []models.CaseStatus{c.Status},
		BumpRejection:    true,
		ExpectRejections: &expect,
	}

	switch {
	case c.Status == models.CaseStatusCadetReview && c.RejectionCount+1 >= maxRejections:
		// Third strike during cadet review: terminal closure, no further
		// review possible.
		t.To = models.CaseStatusClosed
		t.Cause = "rejection limit reached"
		t.StampClosed = true
	case c.Status == models.CaseStatusCadetReview:
		t.To = models.CaseStatusCadetReview
		t.Cause = "cadet rejected"
	default:
		t.To = models.CaseStatusCadetReview
		t.Cause = "officer rejected"
	}

	applied, err := l.cases.Transition(ctx, t)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !applied {
		return nil, E(KindInvalidTransition, op, "case changed concurrently")
	}

	ntype := NotifyCaseRejected
	if t.To == models.CaseStatusClosed {
		ntype = NotifyCaseClosed
	}
	l.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{c.CreatedBy}}, ntype, &c.ID)
	l.metrics.Transition("case", "review", "rejected")

	return l.getCase(ctx, op, c.ID)
}

// AdvanceToInvestigation starts investigating an open case.
func (l *CaseLifecycle) AdvanceToInvestigation(ctx context.Context, principal, caseID uuid.UUID) (*models.Case, error) {
	const op = "case.advance_to_investigation"

	if err := requireAnyRole(ctx, l.auth, op, principal,
		rbac.RoleDetective, rbac.RoleSergeant, rbac.RoleCaptain, rbac.RoleChief); err != nil {
		return nil, err
	}

	if err := l.setStatus(ctx, op, caseID,
		[]models.CaseStatus{models.CaseStatusOpen}, models.CaseStatusUnderInvestigation, "investigation started", false, false); err != nil {
		return nil, err
	}
	return l.getCase(ctx, op, caseID)
}

// The named cascades below are invoked by the sibling workflows. Each is a
// single-edge transition; skipping states is rejected by the guard.

// MarkSuspectsIdentified advances under_investigation once a suspect exists.
func (l *CaseLifecycle) MarkSuspectsIdentified(ctx context.Context, caseID uuid.UUID) error {
	return l.setStatus(ctx, "case.mark_suspects_identified", caseID,
		[]models.CaseStatus{models.CaseStatusUnderInvestigation}, models.CaseStatusSuspectsIdentified, "suspect identified", false, false)
}

// MarkArrestApproved advances suspects_identified after a sergeant approves a
// suspect submission.
func (l *CaseLifecycle) MarkArrestApproved(ctx context.Context, caseID uuid.UUID) error {
	return l.setStatus(ctx, "case.mark_arrest_approved", caseID,
		[]models.CaseStatus{models.CaseStatusSuspectsIdentified}, models.CaseStatusArrestApproved, "submission approved", false, false)
}

// ReturnToInvestigation reverts a case after a rejected submission, a
// non-guilty decision, or a chief rejection.
func (l *CaseLifecycle) ReturnToInvestigation(ctx context.Context, caseID uuid.UUID, cause string) error {
	err := l.setStatus(ctx, "case.return_to_investigation", caseID,
		[]models.CaseStatus{
			models.CaseStatusSuspectsIdentified,
			models.CaseStatusArrestApproved,
			models.CaseStatusInterrogation,
		}, models.CaseStatusUnderInvestigation, cause, false, false)
	if err != nil {
		return err
	}
	l.notifier.Notify(ctx, Recipients{Role: rbac.RoleDetective}, NotifyCaseReturned, &caseID)
	return nil
}

// BeginInterrogation advances arrest_approved once an interrogation starts.
func (l *CaseLifecycle) BeginInterrogation(ctx context.Context, caseID uuid.UUID) error {
	return l.setStatus(ctx, "case.begin_interrogation", caseID,
		[]models.CaseStatus{models.CaseStatusArrestApproved}, models.CaseStatusInterrogation, "interrogation started", false, false)
}

// MarkTrialPending advances interrogation once a trial is scheduled.
func (l *CaseLifecycle) MarkTrialPending(ctx context.Context, caseID uuid.UUID) error {
	return l.setStatus(ctx, "case.mark_trial_pending", caseID,
		[]models.CaseStatus{models.CaseStatusInterrogation}, models.CaseStatusTrialPending, "trial scheduled", false, false)
}

// CloseAfterTrial closes the case once the verdict is delivered.
func (l *CaseLifecycle) CloseAfterTrial(ctx context.Context, caseID uuid.UUID) error {
	return l.setStatus(ctx, "case.close_after_trial", caseID,
		[]models.CaseStatus{models.CaseStatusTrialPending}, models.CaseStatusClosed, "verdict delivered", false, true)
}

// Get returns a case by id.
func (l *CaseLifecycle) Get(ctx context.Context, caseID uuid.UUID) (*models.Case, error) {
	return l.getCase(ctx, "case.get", caseID)
}

func (l *CaseLifecycle) setStatus(ctx context.Context, op string, caseID uuid.UUID, from []models.CaseStatus, to models.CaseStatus, cause string, stampOpened, stampClosed bool) error {
	for _, f := range from {
		if !legalMove(f, to) {
			return E(KindInvalidTransition, op, "illegal case transition %s -> %s", f, to)
		}
	}

	applied, err := l.cases.Transition(ctx, repository.CaseTransition{
		CaseID:      caseID,
		From:        from,
		To:          to,
		Cause:       cause,
		StampOpened: stampOpened,
		StampClosed: stampClosed,
	})
	if err != nil {
		return errors.Wrapf(err, "%s", op)
	}
	if !applied {
		l.metrics.DomainError(string(KindInvalidTransition))
		return E(KindInvalidTransition, op, "case is not in a state that allows %s", to)
	}

	l.metrics.Transition("case", "set_status", string(to))
	l.logger.Info("Case status changed",
		zap.String("case_id", caseID.String()),
		zap.String("to", string(to)),
		zap.String("cause", cause))
	return nil
}

func (l *CaseLifecycle) getCase(ctx context.Context, op string, caseID uuid.UUID) (*models.Case, error) {
	c, err := l.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "case %s not found", caseID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	return c, nil
}

func legalMove(from, to models.CaseStatus) bool {
	for _, t := range legalCaseMoves[from] {
		if t == to {
			return true
		}
	}
	return false
}
