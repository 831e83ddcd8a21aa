package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-engine/internal/models"
	"case-engine/internal/rbac"
)

func TestTipOffSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("files a pending tip and notifies officers", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		informant := r.dir.add(rbac.RoleCitizen)

		tip, err := r.Tips.Submit(ctx, informant, models.SubmitTipRequest{
			CaseID:      c.ID,
			Information: "saw the suspect near the docks on Tuesday night",
		})
		require.NoError(t, err)
		assert.Equal(t, models.TipOffStatusPending, tip.Status)
		assert.Contains(t, r.notifier.typesSent(), NotifyTipReceived)
	})

	t.Run("information is required", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		informant := r.dir.add(rbac.RoleCitizen)

		_, err := r.Tips.Submit(ctx, informant, models.SubmitTipRequest{
			CaseID:      c.ID,
			Information: "   ",
		})
		assert.True(t, IsKind(err, KindValidation))
	})

	t.Run("case must exist", func(t *testing.T) {
		r := newRig()
		informant := r.dir.add(rbac.RoleCitizen)

		_, err := r.Tips.Submit(ctx, informant, models.SubmitTipRequest{
			CaseID:      uuid.New(),
			Information: "saw the suspect near the docks",
		})
		assert.True(t, IsKind(err, KindNotFound))
	})

	t.Run("linked suspect must belong to the case", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		other, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		detective := r.dir.add(rbac.RoleDetective)
		informant := r.dir.add(rbac.RoleCitizen)

		s, err := r.Suspects.Identify(ctx, detective, other.ID, uuid.New())
		require.NoError(t, err)

		_, err = r.Tips.Submit(ctx, informant, models.SubmitTipRequest{
			CaseID:      c.ID,
			SuspectID:   &s.ID,
			Information: "saw the suspect near the docks",
		})
		assert.True(t, IsKind(err, KindValidation))
	})
}

func TestTipOffReview(t *testing.T) {
	ctx := context.Background()

	file := func(r *rig, suspectID *uuid.UUID, caseID uuid.UUID) *models.TipOff {
		informant := r.dir.add(rbac.RoleCitizen)
		tip, err := r.Tips.Submit(ctx, informant, models.SubmitTipRequest{
			CaseID:      caseID,
			SuspectID:   suspectID,
			Information: "saw the suspect near the docks on Tuesday night",
		})
		if err != nil {
			panic(err)
		}
		return tip
	}

	t.Run("officer approval forwards to detectives", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		tip := file(r, nil, c.ID)
		officer := r.dir.add(rbac.RoleOfficer)

		reviewed, err := r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true})
		require.NoError(t, err)
		assert.Equal(t, models.TipOffStatusOfficerApproved, reviewed.Status)
		assert.Contains(t, r.notifier.typesSent(), NotifyTipForwarded)
	})

	t.Run("officer rejection requires a reason", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		tip := file(r, nil, c.ID)
		officer := r.dir.add(rbac.RoleOfficer)

		_, err := r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: false})
		assert.True(t, IsKind(err, KindValidation))

		reviewed, err := r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{
			Approved: false,
			Reason:   "information is too vague to act on",
		})
		require.NoError(t, err)
		assert.Equal(t, models.TipOffStatusOfficerRejected, reviewed.Status)
		assert.Contains(t, r.notifier.typesSent(), NotifyTipRejected)
	})

	t.Run("a tip is officer-reviewed once", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		tip := file(r, nil, c.ID)
		officer := r.dir.add(rbac.RoleOfficer)

		_, err := r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true})
		require.NoError(t, err)
		_, err = r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true})
		assert.True(t, IsKind(err, KindInvalidState))
	})

	t.Run("detective approval issues the minimum reward for unlinked tips", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		tip := file(r, nil, c.ID)
		officer := r.dir.add(rbac.RoleOfficer)
		detective := r.dir.add(rbac.RoleDetective)

		_, err := r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true})
		require.NoError(t, err)

		approved, err := r.Tips.DetectiveReview(ctx, detective, tip.ID, models.ReviewTipRequest{Approved: true})
		require.NoError(t, err)
		assert.Equal(t, models.TipOffStatusApproved, approved.Status)
		require.NotNil(t, approved.RewardAmount)
		assert.Equal(t, int64(5_000_000), *approved.RewardAmount)
		require.NotNil(t, approved.RedemptionCode)
		assert.Len(t, *approved.RedemptionCode, 32)
		assert.Contains(t, r.notifier.typesSent(), NotifyTipApproved)
	})

	t.Run("linked tips earn a share of the bounty", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		detective := r.dir.add(rbac.RoleDetective)
		officer := r.dir.add(rbac.RoleOfficer)

		s, err := r.Suspects.Identify(ctx, detective, c.ID, uuid.New())
		require.NoError(t, err)
		r.suspects.setIdentifiedAt(s.ID, r.clock.Now().Add(-45*24*time.Hour))

		tip := file(r, &s.ID, c.ID)
		_, err = r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true})
		require.NoError(t, err)

		approved, err := r.Tips.DetectiveReview(ctx, detective, tip.ID, models.ReviewTipRequest{Approved: true})
		require.NoError(t, err)
		require.NotNil(t, approved.RewardAmount)

		// 45 days at level 2 scores 90; bounty 1.8B; ten percent share.
		assert.Equal(t, int64(180_000_000), *approved.RewardAmount)
	})

	t.Run("detective rejection requires a reason", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		tip := file(r, nil, c.ID)
		officer := r.dir.add(rbac.RoleOfficer)
		detective := r.dir.add(rbac.RoleDetective)

		_, err := r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true})
		require.NoError(t, err)

		_, err = r.Tips.DetectiveReview(ctx, detective, tip.ID, models.ReviewTipRequest{Approved: false})
		assert.True(t, IsKind(err, KindValidation))

		rejected, err := r.Tips.DetectiveReview(ctx, detective, tip.ID, models.ReviewTipRequest{
			Approved: false,
			Reason:   "the sighting does not match the timeline",
		})
		require.NoError(t, err)
		assert.Equal(t, models.TipOffStatusDetectiveRejected, rejected.Status)
	})

	t.Run("review stages enforce their roles", func(t *testing.T) {
		r := newRig()
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		tip := file(r, nil, c.ID)
		detective := r.dir.add(rbac.RoleDetective)
		officer := r.dir.add(rbac.RoleOfficer)

		_, err := r.Tips.OfficerReview(ctx, detective, tip.ID, models.ReviewTipRequest{Approved: true})
		assert.True(t, IsKind(err, KindForbidden))

		_, err = r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true})
		require.NoError(t, err)
		_, err = r.Tips.DetectiveReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true})
		assert.True(t, IsKind(err, KindForbidden))
	})
}

func TestTipOffRedeem(t *testing.T) {
	ctx := context.Background()

	approve := func(r *rig) (*models.TipOff, uuid.UUID) {
		c, _ := r.openCase(ctx, models.CrimeLevelMedium, models.CaseStatusUnderInvestigation)
		informant := r.dir.add(rbac.RoleCitizen)
		officer := r.dir.add(rbac.RoleOfficer)
		detective := r.dir.add(rbac.RoleDetective)

		tip, err := r.Tips.Submit(ctx, informant, models.SubmitTipRequest{
			CaseID:      c.ID,
			Information: "saw the suspect near the docks on Tuesday night",
		})
		if err != nil {
			panic(err)
		}
		if _, err := r.Tips.OfficerReview(ctx, officer, tip.ID, models.ReviewTipRequest{Approved: true}); err != nil {
			panic(err)
		}
		tip, err = r.Tips.DetectiveReview(ctx, detective, tip.ID, models.ReviewTipRequest{Approved: true})
		if err != nil {
			panic(err)
		}
		return tip, informant
	}

	t.Run("the informant redeems once", func(t *testing.T) {
		r := newRig()
		tip, informant := approve(r)

		redeemed, err := r.Tips.Redeem(ctx, informant, *tip.RedemptionCode)
		require.NoError(t, err)
		assert.Equal(t, models.TipOffStatusRedeemed, redeemed.Status)
		require.NotNil(t, redeemed.RedeemedAt)

		_, err = r.Tips.Redeem(ctx, informant, *tip.RedemptionCode)
		assert.True(t, IsKind(err, KindAlreadyRedeemed))
	})

	t.Run("only the informant may redeem", func(t *testing.T) {
		r := newRig()
		tip, _ := approve(r)
		stranger := r.dir.add(rbac.RoleCitizen)

		_, err := r.Tips.Redeem(ctx, stranger, *tip.RedemptionCode)
		assert.True(t, IsKind(err, KindForbidden))
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		r := newRig()
		informant := r.dir.add(rbac.RoleCitizen)

		_, err := r.Tips.Redeem(ctx, informant, "nosuchcode")
		assert.True(t, IsKind(err, KindNotFound))
	})
}
