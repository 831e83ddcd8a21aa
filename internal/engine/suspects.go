package engine

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"case-engine/internal/config"
	"case-engine/internal/metrics"
	"case-engine/internal/models"
	"case-engine/internal/rbac"
	"case-engine/internal/repository"
)

// SuspectTracker owns suspect status progression and the danger-score and
// reward computation. The intensive-pursuit promotion is evaluated lazily on
// read; no background job mutates suspects.
type SuspectTracker struct {
	suspects  repository.SuspectRepository
	cases     repository.CaseRepository
	lifecycle *CaseLifecycle
	auth      *rbac.Authority
	notifier  Notifier
	cfg       config.PursuitConfig
	clock     Clock
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewSuspectTracker creates the suspect tracking workflow.
func NewSuspectTracker(
	suspects repository.SuspectRepository,
	cases repository.CaseRepository,
	lifecycle *CaseLifecycle,
	auth *rbac.Authority,
	notifier Notifier,
	cfg config.PursuitConfig,
	clock Clock,
	collector *metrics.Collector,
	logger *zap.Logger,
) *SuspectTracker {
	return &SuspectTracker{
		suspects:  suspects,
		cases:     cases,
		lifecycle: lifecycle,
		auth:      auth,
		notifier:  notifier,
		cfg:       cfg,
		clock:     clock,
		metrics:   collector,
		logger:    logger.Named("suspect_tracker"),
	}
}

// cadetRank is the rank every suspect operation must exceed.
const cadetRank = 1

// Identify links a person to a case as a suspect. The first suspect advances
// the case to suspects_identified.
func (t *SuspectTracker) Identify(ctx context.Context, principal, caseID, personID uuid.UUID) (*models.Suspect, error) {
	const op = "suspect.identify"

	if err := requirePoliceAbove(ctx, t.auth, op, principal, cadetRank); err != nil {
		t.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	c, err := t.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "case %s not found", caseID)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	if c.Status != models.CaseStatusUnderInvestigation && c.Status != models.CaseStatusSuspectsIdentified {
		return nil, E(KindInvalidState, op, "case is %s, not under investigation", c.Status)
	}

	s := &models.Suspect{
		CaseID:       caseID,
		PersonID:     personID,
		Status:       models.SuspectStatusIdentified,
		IdentifiedAt: t.clock.Now(),
	}
	if err := t.suspects.Create(ctx, s); err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	if c.Status == models.CaseStatusUnderInvestigation {
		if err := t.lifecycle.MarkSuspectsIdentified(ctx, caseID); err != nil {
			// A concurrent identification may have advanced the case
			// already; only infrastructure faults propagate.
			if KindOf(err) == "" {
				return nil, err
			}
		}
	}

	t.metrics.Transition("suspect", "identify", "ok")
	return s, nil
}

// suspectMoves lists the legal explicit status edges.
var suspectMoves = map[models.SuspectStatus][]models.SuspectStatus{
	models.SuspectStatusIdentified: {
		models.SuspectStatusUnderPursuit,
		models.SuspectStatusArrested,
		models.SuspectStatusCleared,
	},
	models.SuspectStatusUnderPursuit: {
		models.SuspectStatusIntensivePursuit,
		models.SuspectStatusArrested,
		models.SuspectStatusCleared,
	},
	models.SuspectStatusIntensivePursuit: {
		models.SuspectStatusArrested,
		models.SuspectStatusCleared,
	},
}

// ChangeStatus moves a suspect along the pursuit ladder. Any police role
// above cadet may invoke it; manual escalation straight to intensive pursuit
// is allowed regardless of elapsed time.
func (t *SuspectTracker) ChangeStatus(ctx context.Context, principal, suspectID uuid.UUID, newStatus models.SuspectStatus) (*models.Suspect, error) {
	const op = "suspect.change_status"

	if err := requirePoliceAbove(ctx, t.auth, op, principal, cadetRank); err != nil {
		t.metrics.DomainError(string(KindForbidden))
		return nil, err
	}

	s, err := t.getSuspect(ctx, op, suspectID)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return nil, E(KindInvalidState, op, "suspect is already %s", s.Status)
	}

	legal := false
	for _, to := range suspectMoves[s.Status] {
		if to == newStatus {
			legal = true
			break
		}
	}
	if !legal {
		t.metrics.DomainError(string(KindInvalidTransition))
		return nil, E(KindInvalidTransition, op, "illegal suspect transition %s -> %s", s.Status, newStatus)
	}

	applied, err := t.suspects.Transition(ctx, repository.SuspectTransition{
		SuspectID:      suspectID,
		From:           []models.SuspectStatus{s.Status},
		To:             newStatus,
		StampPursuit:   newStatus == models.SuspectStatusUnderPursuit,
		StampEscalated: newStatus == models.SuspectStatusIntensivePursuit,
		StampResolved:  newStatus.Terminal(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	if !applied {
		return nil, E(KindInvalidTransition, op, "suspect changed concurrently")
	}

	t.metrics.Transition("suspect", "change_status", string(newStatus))
	t.logger.Info("Suspect status changed",
		zap.String("suspect_id", suspectID.String()),
		zap.String("to", string(newStatus)))

	return t.getSuspect(ctx, op, suspectID)
}

// Get returns a suspect with the lazy intensive-pursuit promotion applied to
// the returned view. The stored row is untouched.
func (t *SuspectTracker) Get(ctx context.Context, suspectID uuid.UUID) (*models.Suspect, error) {
	s, err := t.getSuspect(ctx, "suspect.get", suspectID)
	if err != nil {
		return nil, err
	}
	s.Status = EffectiveStatus(s, t.cfg.IntensiveAfter, t.clock.Now())
	return s, nil
}

// WantedList returns the suspects effectively in intensive pursuit, scored
// and ordered by descending danger. Scores are recomputed on every read.
func (t *SuspectTracker) WantedList(ctx context.Context) ([]*models.WantedEntry, error) {
	const op = "suspect.wanted_list"

	suspects, err := t.suspects.ListByStatus(ctx,
		models.SuspectStatusUnderPursuit, models.SuspectStatusIntensivePursuit)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}

	now := t.clock.Now()
	entries := make([]*models.WantedEntry, 0, len(suspects))
	crimeLevels := make(map[uuid.UUID]models.CrimeLevel)

	for _, s := range suspects {
		if EffectiveStatus(s, t.cfg.IntensiveAfter, now) != models.SuspectStatusIntensivePursuit {
			continue
		}

		level, ok := crimeLevels[s.CaseID]
		if !ok {
			c, err := t.cases.GetByID(ctx, s.CaseID)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", op)
			}
			level = c.CrimeLevel
			crimeLevels[s.CaseID] = level
		}

		days := DaysAtLarge(s.IdentifiedAt, s.ResolvedAt, now)
		score := DangerScore(days, level)

		view := *s
		view.Status = models.SuspectStatusIntensivePursuit
		entries = append(entries, &models.WantedEntry{
			Suspect:      view,
			CrimeLevel:   level,
			DaysAtLarge:  days,
			DangerScore:  score,
			RewardAmount: RewardAmount(score, t.cfg.RewardMultiplier),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DangerScore > entries[j].DangerScore
	})

	t.metrics.WantedListSize(len(entries))
	return entries, nil
}

func (t *SuspectTracker) getSuspect(ctx context.Context, op string, id uuid.UUID) (*models.Suspect, error) {
	s, err := t.suspects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, E(KindNotFound, op, "suspect %s not found", id)
		}
		return nil, errors.Wrapf(err, "%s", op)
	}
	return s, nil
}
