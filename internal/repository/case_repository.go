package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"case-engine/internal/models"
)

// CaseTransition describes one guarded status move. From lists the statuses
// the move is legal from; the UPDATE carries the guard so two concurrent
// callers cannot both win.
type CaseTransition struct {
	CaseID           uuid.UUID
	From             []models.CaseStatus
	To               models.CaseStatus
	Cause            string
	BumpRejection    bool
	ExpectRejections *int
	StampOpened      bool
	StampClosed      bool
}

// CaseRepository handles case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	Transition(ctx context.Context, t CaseTransition) (bool, error)
	ListByStatus(ctx context.Context, status models.CaseStatus) ([]*models.Case, error)
}

type caseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository creates a case repository.
func NewCaseRepository(db *sqlx.DB) CaseRepository {
	return &caseRepository{db: db}
}

func (r *caseRepository) Create(ctx context.Context, c *models.Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO cases (
			id, title, description, crime_level, formation_type, status,
			rejection_count, created_by, assigned_to, created_at, updated_at
		) VALUES (
			:id, :title, :description, :crime_level, :formation_type, :status,
			:rejection_count, :created_by, :assigned_to, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return errors.Wrap(err, "failed to create case")
	}
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	var c models.Case

	query := `
		SELECT id, title, description, crime_level, formation_type, status,
			   rejection_count, created_by, assigned_to, opened_at, closed_at,
			   created_at, updated_at
		FROM cases
		WHERE id = $1`

	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get case")
	}
	return &c, nil
}

func (r *caseRepository) Transition(ctx context.Context, t CaseTransition) (bool, error) {
	set := []string{"status = ?", "updated_at = NOW()"}
	args := []interface{}{string(t.To)}

	if t.BumpRejection {
		set = append(set, "rejection_count = rejection_count + 1")
	}
	if t.StampOpened {
		set = append(set, "opened_at = NOW()")
	}
	if t.StampClosed {
		set = append(set, "closed_at = NOW()")
	}

	from := make([]string, 0, len(t.From))
	for _, s := range t.From {
		from = append(from, string(s))
	}

	where := []string{"id = ?", "status IN (?)"}
	args = append(args, t.CaseID, from)
	if t.ExpectRejections != nil {
		where = append(where, "rejection_count = ?")
		args = append(args, *t.ExpectRejections)
	}

	query := "UPDATE cases SET " + strings.Join(set, ", ") +
		" WHERE " + strings.Join(where, " AND ")

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return false, errors.Wrap(err, "failed to build case transition query")
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), inArgs...)
	if err != nil {
		return false, errors.Wrap(err, "failed to transition case")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read case transition result")
	}
	return rows > 0, nil
}

func (r *caseRepository) ListByStatus(ctx context.Context, status models.CaseStatus) ([]*models.Case, error) {
	var cases []*models.Case

	query := `
		SELECT id, title, description, crime_level, formation_type, status,
			   rejection_count, created_by, assigned_to, opened_at, closed_at,
			   created_at, updated_at
		FROM cases
		WHERE status = $1
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &cases, query, status); err != nil {
		return nil, errors.Wrap(err, "failed to list cases")
	}
	return cases, nil
}
