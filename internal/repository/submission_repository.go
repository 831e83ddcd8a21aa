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

// SubmissionRepository handles suspect submission persistence.
type SubmissionRepository interface {
	Create(ctx context.Context, s *models.SuspectSubmission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SuspectSubmission, error)
	Review(ctx context.Context, id uuid.UUID, to models.SubmissionStatus, reviewer uuid.UUID, notes string) (bool, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.SuspectSubmission, error)
}

type submissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a submission repository.
func NewSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, s *models.SuspectSubmission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin submission transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO suspect_submissions (
			id, case_id, detective_id, reasoning, status, created_at, updated_at
		) VALUES (
			:id, :case_id, :detective_id, :reasoning, :status, :created_at, :updated_at
		)`

	if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
		return errors.Wrap(err, "failed to create submission")
	}

	for i, suspectID := range s.SuspectIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO submission_suspects (submission_id, suspect_id, position) VALUES ($1, $2, $3)`,
			s.ID, suspectID, i)
		if err != nil {
			return errors.Wrap(err, "failed to link submission suspect")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit submission")
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SuspectSubmission, error) {
	var s models.SuspectSubmission

	query := `
		SELECT id, case_id, detective_id, reasoning, status, reviewed_by,
			   review_notes, reviewed_at, created_at, updated_at
		FROM suspect_submissions
		WHERE id = $1`

	err := r.db.GetContext(ctx, &s, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get submission")
	}

	err = r.db.SelectContext(ctx, &s.SuspectIDs,
		`SELECT suspect_id FROM submission_suspects WHERE submission_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get submission suspects")
	}

	return &s, nil
}

// Review flips a pending submission to its reviewed status. The status guard
// makes sure only one of two racing sergeants records the review.
func (r *submissionRepository) Review(ctx context.Context, id uuid.UUID, to models.SubmissionStatus, reviewer uuid.UUID, notes string) (bool, error) {
	query := `
		UPDATE suspect_submissions
		SET status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $5`

	result, err := r.db.ExecContext(ctx, query, id, to, reviewer, notes, models.SubmissionStatusPending)
	if err != nil {
		return false, errors.Wrap(err, "failed to review submission")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read submission review result")
	}
	return rows > 0, nil
}

func (r *submissionRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.SuspectSubmission, error) {
	var submissions []*models.SuspectSubmission

	query := `
		SELECT id, case_id, detective_id, reasoning, status, reviewed_by,
			   review_notes, reviewed_at, created_at, updated_at
		FROM suspect_submissions
		WHERE case_id = $1
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &submissions, query, caseID); err != nil {
		return nil, errors.Wrap(err, "failed to list case submissions")
	}
	return submissions, nil
}
