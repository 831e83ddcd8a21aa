package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"case-engine/internal/models"
	"case-engine/internal/rbac"
)

// submitInterrogation drives a case to a submitted interrogation.
func submitInterrogation(ctx context.Context, r *rig, level models.CrimeLevel) *models.Interrogation {
	_, s := arrestSuspect(ctx, r, level)
	detective := r.dir.add(rbac.RoleDetective)
	sergeant := r.dir.add(rbac.RoleSergeant)

	i, err := r.Interrogations.Create(ctx, detective, s.ID, detective, sergeant)
	if err != nil {
		panic(err)
	}
	i, err = r.Interrogations.SubmitRatings(ctx, detective, i.ID, models.SubmitRatingsRequest{
		DetectiveRating: 8,
		SergeantRating:  7,
		DetectiveNotes:  "confessed to the robbery in detail",
		SergeantNotes:   "confession matches physical evidence",
	})
	if err != nil {
		panic(err)
	}
	return i
}

func TestCaptainDecision(t *testing.T) {
	ctx := context.Background()

	guilty := models.CaptainDecisionRequest{
		Decision:  models.CaptainVerdictGuilty,
		Reasoning: "confession corroborated by forensic evidence",
	}

	t.Run("guilty call completes immediately below critical", func(t *testing.T) {
		r := newRig()
		i := submitInterrogation(ctx, r, models.CrimeLevelMedium)
		captain := r.dir.add(rbac.RoleCaptain)

		d, err := r.Decisions.Decide(ctx, captain, i.ID, guilty)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionStatusCompleted, d.Status)
		assert.False(t, d.RequiresChief)

		updated, err := r.interrogations.GetByID(ctx, i.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InterrogationStatusReviewed, updated.Status)

		// A guilty call leaves the case on the trial track.
		c := mustGetCase(r, ctx, i.CaseID)
		assert.Equal(t, models.CaseStatusInterrogation, c.Status)
	})

	t.Run("non-guilty call returns the case to investigation", func(t *testing.T) {
		r := newRig()
		i := submitInterrogation(ctx, r, models.CrimeLevelMedium)
		captain := r.dir.add(rbac.RoleCaptain)

		d, err := r.Decisions.Decide(ctx, captain, i.ID, models.CaptainDecisionRequest{
			Decision:  models.CaptainVerdictNotGuilty,
			Reasoning: "the confession was retracted and nothing else holds",
		})
		require.NoError(t, err)
		assert.Equal(t, models.DecisionStatusCompleted, d.Status)

		c := mustGetCase(r, ctx, i.CaseID)
		assert.Equal(t, models.CaseStatusUnderInvestigation, c.Status)
	})

	t.Run("critical crime level escalates to the chief", func(t *testing.T) {
		r := newRig()
		i := submitInterrogation(ctx, r, models.CrimeLevelCritical)
		captain := r.dir.add(rbac.RoleCaptain)

		d, err := r.Decisions.Decide(ctx, captain, i.ID, guilty)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionStatusAwaitingChief, d.Status)
		assert.True(t, d.RequiresChief)
		assert.Contains(t, r.notifier.typesSent(), NotifyDecisionAwaitingChief)

		// Held open until the chief rules.
		updated, err := r.interrogations.GetByID(ctx, i.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InterrogationStatusSubmitted, updated.Status)
	})

	t.Run("one decision per interrogation", func(t *testing.T) {
		r := newRig()
		i := submitInterrogation(ctx, r, models.CrimeLevelMedium)
		captain := r.dir.add(rbac.RoleCaptain)

		_, err := r.Decisions.Decide(ctx, captain, i.ID, guilty)
		require.NoError(t, err)

		_, err = r.Decisions.Decide(ctx, captain, i.ID, guilty)
		assert.True(t, IsKind(err, KindDuplicateDecision))
	})

	t.Run("validates role, reasoning and interrogation state", func(t *testing.T) {
		r := newRig()
		i := submitInterrogation(ctx, r, models.CrimeLevelMedium)
		captain := r.dir.add(rbac.RoleCaptain)
		sergeant := r.dir.add(rbac.RoleSergeant)

		_, err := r.Decisions.Decide(ctx, sergeant, i.ID, guilty)
		assert.True(t, IsKind(err, KindForbidden))

		_, err = r.Decisions.Decide(ctx, captain, i.ID, models.CaptainDecisionRequest{
			Decision:  models.CaptainVerdictGuilty,
			Reasoning: "too short",
		})
		assert.True(t, IsKind(err, KindValidation))

		_, err = r.Decisions.Decide(ctx, captain, i.ID, models.CaptainDecisionRequest{
			Decision:  "maybe",
			Reasoning: "confession corroborated by forensic evidence",
		})
		assert.True(t, IsKind(err, KindValidation))

		// A pending interrogation has no ratings to rule on.
		_, s := arrestSuspect(ctx, r, models.CrimeLevelMedium)
		detective := r.dir.add(rbac.RoleDetective)
		pending, err := r.Interrogations.Create(ctx, detective, s.ID, detective, sergeant)
		require.NoError(t, err)
		_, err = r.Decisions.Decide(ctx, captain, pending.ID, guilty)
		assert.True(t, IsKind(err, KindInvalidState))
	})
}

func TestChiefApproval(t *testing.T) {
	ctx := context.Background()

	escalate := func(r *rig) *models.CaptainDecision {
		i := submitInterrogation(ctx, r, models.CrimeLevelCritical)
		captain := r.dir.add(rbac.RoleCaptain)
		d, err := r.Decisions.Decide(ctx, captain, i.ID, models.CaptainDecisionRequest{
			Decision:  models.CaptainVerdictGuilty,
			Reasoning: "confession corroborated by forensic evidence",
		})
		if err != nil {
			panic(err)
		}
		return d
	}

	t.Run("approval lets the captain's call stand", func(t *testing.T) {
		r := newRig()
		d := escalate(r)
		chief := r.dir.add(rbac.RoleChief)

		ruling, err := r.Decisions.ChiefApprove(ctx, chief, d.ID, models.ChiefDecisionRequest{
			Decision: models.ChiefRulingApproved,
			Comments: "escalation reviewed, call stands",
		})
		require.NoError(t, err)
		assert.Equal(t, models.ChiefRulingApproved, ruling.Decision)

		completed, err := r.decisions.GetCaptainByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DecisionStatusCompleted, completed.Status)

		updated, err := r.interrogations.GetByID(ctx, d.InterrogationID)
		require.NoError(t, err)
		assert.Equal(t, models.InterrogationStatusReviewed, updated.Status)

		c := mustGetCase(r, ctx, d.CaseID)
		assert.Equal(t, models.CaseStatusInterrogation, c.Status)
	})

	t.Run("rejection sends the case back to investigation", func(t *testing.T) {
		r := newRig()
		d := escalate(r)
		chief := r.dir.add(rbac.RoleChief)

		_, err := r.Decisions.ChiefApprove(ctx, chief, d.ID, models.ChiefDecisionRequest{
			Decision: models.ChiefRulingRejected,
			Comments: "the confession alone is not enough here",
		})
		require.NoError(t, err)

		c := mustGetCase(r, ctx, d.CaseID)
		assert.Equal(t, models.CaseStatusUnderInvestigation, c.Status)
	})

	t.Run("one chief ruling per decision", func(t *testing.T) {
		r := newRig()
		d := escalate(r)
		chief := r.dir.add(rbac.RoleChief)

		req := models.ChiefDecisionRequest{
			Decision: models.ChiefRulingApproved,
			Comments: "escalation reviewed, call stands",
		}
		_, err := r.Decisions.ChiefApprove(ctx, chief, d.ID, req)
		require.NoError(t, err)

		_, err = r.Decisions.ChiefApprove(ctx, chief, d.ID, req)
		assert.True(t, IsKind(err, KindInvalidState))
	})

	t.Run("only awaiting decisions can be ruled on", func(t *testing.T) {
		r := newRig()
		i := submitInterrogation(ctx, r, models.CrimeLevelMedium)
		captain := r.dir.add(rbac.RoleCaptain)
		chief := r.dir.add(rbac.RoleChief)

		d, err := r.Decisions.Decide(ctx, captain, i.ID, models.CaptainDecisionRequest{
			Decision:  models.CaptainVerdictGuilty,
			Reasoning: "confession corroborated by forensic evidence",
		})
		require.NoError(t, err)

		_, err = r.Decisions.ChiefApprove(ctx, chief, d.ID, models.ChiefDecisionRequest{
			Decision: models.ChiefRulingApproved,
			Comments: "nothing to escalate here",
		})
		assert.True(t, IsKind(err, KindInvalidState))
	})

	t.Run("only the chief rules", func(t *testing.T) {
		r := newRig()
		d := escalate(r)
		captain := r.dir.add(rbac.RoleCaptain)

		_, err := r.Decisions.ChiefApprove(ctx, captain, d.ID, models.ChiefDecisionRequest{
			Decision: models.ChiefRulingApproved,
			Comments: "escalation reviewed, call stands",
		})
		assert.True(t, IsKind(err, KindForbidden))
	})
}
