package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"case-engine/internal/models"
)

// DecisionRepository handles captain and chief decision persistence. The
// unique constraints on interrogation_id and captain_decision_id are the
// storage-level backstop for the one-decision-per-link invariants.
type DecisionRepository interface {
	CreateCaptain(ctx context.Context, d *models.CaptainDecision) error
	GetCaptainByID(ctx context.Context, id uuid.UUID) (*models.CaptainDecision, error)
	GetCaptainByInterrogation(ctx context.Context, interrogationID uuid.UUID) (*models.CaptainDecision, error)
	CompleteCaptain(ctx context.Context, id uuid.UUID) (bool, error)
	CreateChief(ctx context.Context, d *models.ChiefDecision) error
	GetChiefByCaptainDecision(ctx context.Context, captainDecisionID uuid.UUID) (*models.ChiefDecision, error)
	GetCompletedGuiltyForSuspect(ctx context.Context, suspectID uuid.UUID) (*models.CaptainDecision, error)
}

type decisionRepository struct {
	db *sqlx.DB
}

// NewDecisionRepository creates a decision repository.
func NewDecisionRepository(db *sqlx.DB) DecisionRepository {
	return &decisionRepository{db: db}
}

const captainColumns = `
	id, interrogation_id, case_id, captain_id, decision, reasoning, status,
	requires_chief, decided_at, created_at, updated_at`

func (r *decisionRepository) CreateCaptain(ctx context.Context, d *models.CaptainDecision) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now()
	if d.DecidedAt.IsZero() {
		d.DecidedAt = now
	}
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
		INSERT INTO captain_decisions (
			id, interrogation_id, case_id, captain_id, decision, reasoning,
			status, requires_chief, decided_at, created_at, updated_at
		) VALUES (
			:id, :interrogation_id, :case_id, :captain_id, :decision, :reasoning,
			:status, :requires_chief, :decided_at, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "failed to create captain decision")
	}
	return nil
}

func (r *decisionRepository) GetCaptainByID(ctx context.Context, id uuid.UUID) (*models.CaptainDecision, error) {
	var d models.CaptainDecision

	query := `SELECT ` + captainColumns + ` FROM captain_decisions WHERE id = $1`

	err := r.db.GetContext(ctx, &d, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get captain decision")
	}
	return &d, nil
}

func (r *decisionRepository) GetCaptainByInterrogation(ctx context.Context, interrogationID uuid.UUID) (*models.CaptainDecision, error) {
	var d models.CaptainDecision

	query := `SELECT ` + captainColumns + ` FROM captain_decisions WHERE interrogation_id = $1`

	err := r.db.GetContext(ctx, &d, query, interrogationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get captain decision by interrogation")
	}
	return &d, nil
}

// CompleteCaptain finishes an awaiting_chief decision after the chief rules.
func (r *decisionRepository) CompleteCaptain(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE captain_decisions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, id,
		models.DecisionStatusCompleted, models.DecisionStatusAwaitingChief)
	if err != nil {
		return false, errors.Wrap(err, "failed to complete captain decision")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read captain decision result")
	}
	return rows > 0, nil
}

func (r *decisionRepository) CreateChief(ctx context.Context, d *models.ChiefDecision) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()

	query := `
		INSERT INTO chief_decisions (
			id, captain_decision_id, chief_id, decision, comments, created_at
		) VALUES (
			:id, :captain_decision_id, :chief_id, :decision, :comments, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "failed to create chief decision")
	}
	return nil
}

func (r *decisionRepository) GetChiefByCaptainDecision(ctx context.Context, captainDecisionID uuid.UUID) (*models.ChiefDecision, error) {
	var d models.ChiefDecision

	query := `
		SELECT id, captain_decision_id, chief_id, decision, comments, created_at
		FROM chief_decisions
		WHERE captain_decision_id = $1`

	err := r.db.GetContext(ctx, &d, query, captainDecisionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get chief decision")
	}
	return &d, nil
}

// GetCompletedGuiltyForSuspect finds the completed guilty decision that makes
// a suspect trial-eligible, if one exists. A decision that required chief
// approval only qualifies when the chief approved it; a chief-rejected
// decision is completed but never trial-eligible.
func (r *decisionRepository) GetCompletedGuiltyForSuspect(ctx context.Context, suspectID uuid.UUID) (*models.CaptainDecision, error) {
	var d models.CaptainDecision

	query := `
		SELECT d.id, d.interrogation_id, d.case_id, d.captain_id, d.decision,
			   d.reasoning, d.status, d.requires_chief, d.decided_at,
			   d.created_at, d.updated_at
		FROM captain_decisions d
		JOIN interrogations i ON i.id = d.interrogation_id
		WHERE i.suspect_id = $1 AND d.decision = $2 AND d.status = $3
		  AND (NOT d.requires_chief OR EXISTS (
				SELECT 1 FROM chief_decisions c
				WHERE c.captain_decision_id = d.id AND c.decision = $4))
		ORDER BY d.decided_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &d, query, suspectID,
		models.CaptainVerdictGuilty, models.DecisionStatusCompleted,
		models.ChiefRulingApproved)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get guilty decision for suspect")
	}
	return &d, nil
}
