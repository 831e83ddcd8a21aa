package engine

import (
	"context"
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

// TipOffWorkflow runs citizen tips through officer review, detective review,
// reward issuance and single-use redemption.
type TipOffWorkflow struct {
	tips     repository.TipOffRepository
	suspects repository.SuspectRepository
	cases    repository.CaseRepository
	auth     *rbac.Authority
	notifier Notifier
	cfg      config.NotificationsConfig
	pursuit  config.PursuitConfig
	clock    Clock
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewTipOffWorkflow creates the tip-off workflow.
func NewTipOffWorkflow(
	tips repository.TipOffRepository,
	suspects repository.SuspectRepository,
	cases repository.CaseRepository,
	auth *rbac.Authority,
	notifier Notifier,
	cfg config.NotificationsConfig,
	pursuit config.PursuitConfig,
	clock Clock,
	collector *metrics.Collector,
	logger *zap.Logger,
) *TipOffWorkflow {
	return &TipOffWorkflow{
		tips:     tips,
		suspects: suspects,
		cases:    cases,
		auth:     auth,
		notifier: notifier,
		cfg:      cfg,
		pursuit:  pursuit,
		clock:    clock,
		metrics:  collector,
		logger:   logger.Named("tipoff"),
	}
}

// Submit files a citizen tip against an existing case, optionally pointing at
// a known suspect. Any authenticated user may submit.
func (w *TipOffWorkflow) Submit(ctx context.Context, informant uuid.UUID, req models.SubmitTipRequest) (*models.TipOff, error) {
	const op = "tipoff.submit"

	if strings.TrimSpace(req.Information) == "" {
		w.metrics.DomainError(string(KindValidation))
		return nil, E(KindValidation, op, "information is required")
	}

	if _, err := w.cases.GetByID(ctx, req.CaseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "case %s not found", req.CaseID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if req.SuspectID != nil {
		s, err := w.suspects.GetByID(ctx, *req.SuspectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, E(KindNotFound, op, "suspect %s not found", *req.SuspectID)
			}
			return nil, errors.Wrapf(err, "%s", op)
		}
		if s.CaseID != req.CaseID {
			w.metrics.DomainError(string(KindValidation))
			return nil, E(KindValidation, op, "suspect %s does not belong to case %s", s.ID, req.CaseID)
		}
	}

	t := &models.TipOff{
		CaseID:      req.CaseID,
		SuspectID:   req.SuspectID,
		InformantID: informant,
		Information: req.Information,
		Status:      models.TipOffStatusPending,
	}
	if err := w.tips.Create(ctx, t); err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	w.notifier.Notify(ctx, Recipients{Role: rbac.RoleOfficer}, NotifyTipReceived, &t.CaseID)
	w.metrics.Transition("tipoff", "submit", "ok")
	w.logger.Info("Tip-off filed",
		zap.String("tip_id", t.ID.String()),
		zap.String("case_id", t.CaseID.String()))

	return t, nil
}

// OfficerReview is the first review stage. Approval forwards the tip to the
// detective pool; rejection requires a reason and ends the tip.
func (w *TipOffWorkflow) OfficerReview(ctx context.Context, officer, tipID uuid.UUID, req models.ReviewTipRequest) (*models.TipOff, error) {
	const op = "tipoff.officer_review"

	if err := requireAnyRole(ctx, w.auth, op, officer, rbac.RoleOfficer); err != nil {
		w.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	to := models.TipOffStatusOfficerApproved
	var reason *string
	if !req.Approved {
		if strings.TrimSpace(req.Reason) == "" {
			w.metrics.DomainError(string(KindValidation))
			return nil, E(KindValidation, op, "a rejection reason is required")
		}
		to = models.TipOffStatusOfficerRejected
		reason = &req.Reason
	}

	applied, err := w.tips.OfficerReview(ctx, tipID, officer, to, reason)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !applied {
		w.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "tip-off is not pending")
	}

	t, err := w.tips.GetByID(ctx, tipID)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	if req.Approved {
		w.notifier.Notify(ctx, Recipients{Role: rbac.RoleDetective}, NotifyTipForwarded, &t.CaseID)
	} else {
		w.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{t.InformantID}}, NotifyTipRejected, &t.CaseID)
	}
	w.metrics.Transition("tipoff", "officer_review", string(t.Status))
	return t, nil
}

// DetectiveReview is the final review stage. Approval issues the reward and
// the single-use redemption code; rejection requires a reason.
func (w *TipOffWorkflow) DetectiveReview(ctx context.Context, detective, tipID uuid.UUID, req models.ReviewTipRequest) (*models.TipOff, error) {
	const op = "tipoff.detective_review"

	if err := requireAnyRole(ctx, w.auth, op, detective, rbac.RoleDetective); err != nil {
		w.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	t, err := w.tips.GetByID(ctx, tipID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "tip-off %s not found", tipID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}

	if !req.Approved {
		if strings.TrimSpace(req.Reason) == "" {
			w.metrics.DomainError(string(KindValidation))
			return nil, E(KindValidation, op, "a rejection reason is required")
		}
		applied, err := w.tips.DetectiveReject(ctx, tipID, detective, req.Reason)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", op)
		}
		if !applied {
			w.metrics.DomainError(string(KindInvalidState))
			return nil, E(KindInvalidState, op, "tip-off is not awaiting detective review")
		}
		w.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{t.InformantID}}, NotifyTipRejected, &t.CaseID)
		w.metrics.Transition("tipoff", "detective_review", "rejected")
		return w.tips.GetByID(ctx, tipID)
	}

	reward, err := w.rewardFor(ctx, t)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	code, err := newRedemptionCode()
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	applied, err := w.tips.DetectiveApprove(ctx, tipID, detective, code, reward)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A code collision is possible in principle; one retry is plenty.
			code, err = newRedemptionCode()
			if err != nil {
				return nil, errors.Wrapf(err, "%s", op)
			}
			applied, err = w.tips.DetectiveApprove(ctx, tipID, detective, code, reward)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s", op)
		}
	}
	if !applied {
		w.metrics.DomainError(string(KindInvalidState))
		return nil, E(KindInvalidState, op, "tip-off is not awaiting detective review")
	}

	w.notifier.Notify(ctx, Recipients{UserIDs: []uuid.UUID{t.InformantID}}, NotifyTipApproved, &t.CaseID)
	w.metrics.Transition("tipoff", "detective_review", "approved")
	w.logger.Info("Tip-off approved",
		zap.String("tip_id", t.ID.String()),
		zap.Int64("reward", reward))

	return w.tips.GetByID(ctx, tipID)
}

// Redeem pays out an approved tip exactly once. Only the informant who filed
// the tip may redeem its code.
func (w *TipOffWorkflow) Redeem(ctx context.Context, informant uuid.UUID, code string) (*models.TipOff, error) {
	const op = "tipoff.redeem"

	if strings.TrimSpace(code) == "" {
		return nil, E(KindValidation, op, "redemption code is required")
	}

	t, err := w.tips.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "unknown redemption code")
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if t.InformantID != informant {
		w.metrics.DomainError(string(KindForbidden))
		return nil, E(KindForbidden, op, "only the informant may redeem this code")
	}

	applied, err := w.tips.Redeem(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !applied {
		w.metrics.DomainError(string(KindAlreadyRedeemed))
		return nil, E(KindAlreadyRedeemed, op, "code has already been redeemed")
	}

	w.metrics.Transition("tipoff", "redeem", "ok")
	w.logger.Info("Tip reward redeemed", zap.String("tip_id", t.ID.String()))

	return w.tips.GetByID(ctx, t.ID)
}

// rewardFor sizes the reward as a share of the linked suspect's bounty,
// floored at the configured minimum. Tips without a linked suspect get the
// minimum.
func (w *TipOffWorkflow) rewardFor(ctx context.Context, t *models.TipOff) (int64, error) {
	if t.SuspectID == nil {
		return w.cfg.TipRewardMinimum, nil
	}

	s, err := w.suspects.GetByID(ctx, *t.SuspectID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load tip suspect")
	}
	c, err := w.cases.GetByID(ctx, s.CaseID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load tip case")
	}

	days := DaysAtLarge(s.IdentifiedAt, s.ResolvedAt, w.clock.Now())
	bounty := RewardAmount(DangerScore(days, c.CrimeLevel), w.pursuit.RewardMultiplier)
	reward := int64(float64(bounty) * w.cfg.TipRewardShare)
	if reward < w.cfg.TipRewardMinimum {
		reward = w.cfg.TipRewardMinimum
	}
	return reward, nil
}
