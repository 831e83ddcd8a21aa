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

// TrialRepository handles trial and verdict persistence.
type TrialRepository interface {
	Create(ctx context.Context, t *models.Trial) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Trial, error)
	GetVerdict(ctx context.Context, trialID uuid.UUID) (*models.Verdict, error)
	CompleteWithVerdict(ctx context.Context, v *models.Verdict) error
}

type trialRepository struct {
	db *sqlx.DB
}

// NewTrialRepository creates a trial repository.
func NewTrialRepository(db *sqlx.DB) TrialRepository {
	return &trialRepository{db: db}
}

func (r *trialRepository) Create(ctx context.Context, t *models.Trial) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO trials (
			id, case_id, suspect_id, judge_id, created_by, captain_notes,
			status, created_at, updated_at
		) VALUES (
			:id, :case_id, :suspect_id, :judge_id, :created_by, :captain_notes,
			:status, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return errors.Wrap(err, "failed to create trial")
	}
	return nil
}

func (r *trialRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Trial, error) {
	var t models.Trial

	query := `
		SELECT id, case_id, suspect_id, judge_id, created_by, captain_notes,
			   status, created_at, updated_at
		FROM trials
		WHERE id = $1`

	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get trial")
	}
	return &t, nil
}

func (r *trialRepository) GetVerdict(ctx context.Context, trialID uuid.UUID) (*models.Verdict, error) {
	var v models.Verdict

	query := `
		SELECT id, trial_id, decision, reasoning, punishment_title,
			   punishment_description, created_at
		FROM verdicts
		WHERE trial_id = $1`

	err := r.db.GetContext(ctx, &v, query, trialID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get verdict")
	}
	return &v, nil
}

// CompleteWithVerdict inserts the verdict and completes the trial in one
// transaction. The unique constraint on verdicts.trial_id and the status
// guard on trials each independently reject a second verdict.
func (r *trialRepository) CompleteWithVerdict(ctx context.Context, v *models.Verdict) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin verdict transaction")
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO verdicts (
			id, trial_id, decision, reasoning, punishment_title,
			punishment_description, created_at
		) VALUES (
			:id, :trial_id, :decision, :reasoning, :punishment_title,
			:punishment_description, :created_at
		)`

	if _, err := tx.NamedExecContext(ctx, insert, v); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "failed to create verdict")
	}

	update := `
		UPDATE trials
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)`

	result, err := tx.ExecContext(ctx, update, v.TrialID,
		models.TrialStatusCompleted, models.TrialStatusPending, models.TrialStatusInProgress)
	if err != nil {
		return errors.Wrap(err, "failed to complete trial")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read trial completion result")
	}
	if rows == 0 {
		return ErrDuplicate
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit verdict")
	}
	return nil
}
