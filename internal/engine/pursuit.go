package engine

import (
	"time"

	"case-engine/internal/models"
)

// DaysAtLarge counts whole days from identification until resolution, or
// until now for unresolved suspects.
func DaysAtLarge(identifiedAt time.Time, resolvedAt *time.Time, now time.Time) int {
	until := now
	if resolvedAt != nil {
		until = *resolvedAt
	}
	if until.Before(identifiedAt) {
		return 0
	}
	return int(until.Sub(identifiedAt).Hours() / 24)
}

// DangerScore weights days at large by inverse crime severity: level 0 is the
// most severe and carries weight 4, level 3 weight 1.
func DangerScore(daysAtLarge int, level models.CrimeLevel) int64 {
	if daysAtLarge < 0 {
		return 0
	}
	return int64(daysAtLarge) * int64(4-level)
}

// RewardAmount converts a danger score into monetary base units.
func RewardAmount(score, multiplier int64) int64 {
	return score * multiplier
}

// EffectiveStatus applies the lazy intensive-pursuit promotion: a suspect
// under pursuit for longer than intensiveAfter reads as intensive_pursuit.
// Arrested and cleared suspects are never promoted. Pure function of stored
// timestamps; no row is mutated.
func EffectiveStatus(s *models.Suspect, intensiveAfter time.Duration, now time.Time) models.SuspectStatus {
	if s.Status != models.SuspectStatusUnderPursuit {
		return s.Status
	}
	start := s.IdentifiedAt
	if s.PursuitStartedAt != nil {
		start = *s.PursuitStartedAt
	}
	if now.Sub(start) > intensiveAfter {
		return models.SuspectStatusIntensivePursuit
	}
	return s.Status
}
