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

// RatingsUpdate carries both interrogation ratings and the computed average.
type RatingsUpdate struct {
	DetectiveRating int
	SergeantRating  int
	DetectiveNotes  string
	SergeantNotes   string
	Average         float64
}

// InterrogationRepository handles interrogation persistence.
type InterrogationRepository interface {
	Create(ctx context.Context, i *models.Interrogation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Interrogation, error)
	SubmitRatings(ctx context.Context, id uuid.UUID, u RatingsUpdate) (bool, error)
	MarkReviewed(ctx context.Context, id uuid.UUID) (bool, error)
}

type interrogationRepository struct {
	db *sqlx.DB
}

// NewInterrogationRepository creates an interrogation repository.
func NewInterrogationRepository(db *sqlx.DB) InterrogationRepository {
	return &interrogationRepository{db: db}
}

func (r *interrogationRepository) Create(ctx context.Context, i *models.Interrogation) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	now := time.Now()
	i.CreatedAt = now
	i.UpdatedAt = now

	query := `
		INSERT INTO interrogations (
			id, suspect_id, case_id, detective_id, sergeant_id, status,
			created_at, updated_at
		) VALUES (
			:id, :suspect_id, :case_id, :detective_id, :sergeant_id, :status,
			:created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, i); err != nil {
		return errors.Wrap(err, "failed to create interrogation")
	}
	return nil
}

func (r *interrogationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Interrogation, error) {
	var i models.Interrogation

	query := `
		SELECT id, suspect_id, case_id, detective_id, sergeant_id, status,
			   detective_rating, sergeant_rating, detective_notes, sergeant_notes,
			   average_rating, submitted_at, created_at, updated_at
		FROM interrogations
		WHERE id = $1`

	err := r.db.GetContext(ctx, &i, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get interrogation")
	}
	return &i, nil
}

// SubmitRatings stores both ratings and moves pending to submitted. The
// status guard rejects a second submission.
func (r *interrogationRepository) SubmitRatings(ctx context.Context, id uuid.UUID, u RatingsUpdate) (bool, error) {
	query := `
		UPDATE interrogations
		SET status = $2, detective_rating = $3, sergeant_rating = $4,
			detective_notes = $5, sergeant_notes = $6, average_rating = $7,
			submitted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $8`

	result, err := r.db.ExecContext(ctx, query, id,
		models.InterrogationStatusSubmitted,
		u.DetectiveRating, u.SergeantRating, u.DetectiveNotes, u.SergeantNotes, u.Average,
		models.InterrogationStatusPending)
	if err != nil {
		return false, errors.Wrap(err, "failed to submit interrogation ratings")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read ratings submission result")
	}
	return rows > 0, nil
}

func (r *interrogationRepository) MarkReviewed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE interrogations
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, id,
		models.InterrogationStatusReviewed, models.InterrogationStatusSubmitted)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark interrogation reviewed")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read interrogation review result")
	}
	return rows > 0, nil
}
