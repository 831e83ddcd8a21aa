package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"case-engine/internal/models"
)

// SuspectTransition describes one guarded suspect status move.
type SuspectTransition struct {
	SuspectID      uuid.UUID
	From           []models.SuspectStatus
	To             models.SuspectStatus
	StampPursuit   bool
	StampEscalated bool
	StampResolved  bool
}

// SuspectRepository handles suspect persistence.
type SuspectRepository interface {
	Create(ctx context.Context, s *models.Suspect) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Suspect, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.Suspect, error)
	ListByStatus(ctx context.Context, statuses ...models.SuspectStatus) ([]*models.Suspect, error)
	Transition(ctx context.Context, t SuspectTransition) (bool, error)
	IssueWarrants(ctx context.Context, ids []uuid.UUID, at time.Time) error
	MarkReleasedOnBail(ctx context.Context, id uuid.UUID) error
	CountByCase(ctx context.Context, caseID uuid.UUID) (int, error)
}

type suspectRepository struct {
	db *sqlx.DB
}

// NewSuspectRepository creates a suspect repository.
func NewSuspectRepository(db *sqlx.DB) SuspectRepository {
	return &suspectRepository{db: db}
}

const suspectColumns = `
	id, case_id, person_id, status, identified_at, pursuit_started_at,
	escalated_at, resolved_at, warrant_issued, warrant_issued_at,
	released_on_bail, created_at, updated_at`

func (r *suspectRepository) Create(ctx context.Context, s *models.Suspect) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	if s.IdentifiedAt.IsZero() {
		s.IdentifiedAt = now
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
		INSERT INTO suspects (
			id, case_id, person_id, status, identified_at, pursuit_started_at,
			escalated_at, resolved_at, warrant_issued, warrant_issued_at,
			released_on_bail, created_at, updated_at
		) VALUES (
			:id, :case_id, :person_id, :status, :identified_at, :pursuit_started_at,
			:escalated_at, :resolved_at, :warrant_issued, :warrant_issued_at,
			:released_on_bail, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return errors.Wrap(err, "failed to create suspect")
	}
	return nil
}

func (r *suspectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Suspect, error) {
	var s models.Suspect

	query := `SELECT ` + suspectColumns + ` FROM suspects WHERE id = $1`

	err := r.db.GetContext(ctx, &s, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get suspect")
	}
	return &s, nil
}

func (r *suspectRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*models.Suspect, error) {
	var suspects []*models.Suspect

	query := `SELECT ` + suspectColumns + ` FROM suspects WHERE case_id = $1 ORDER BY identified_at`

	if err := r.db.SelectContext(ctx, &suspects, query, caseID); err != nil {
		return nil, errors.Wrap(err, "failed to list case suspects")
	}
	return suspects, nil
}

func (r *suspectRepository) ListByStatus(ctx context.Context, statuses ...models.SuspectStatus) ([]*models.Suspect, error) {
	list := make([]string, 0, len(statuses))
	for _, s := range statuses {
		list = append(list, string(s))
	}

	query, args, err := sqlx.In(
		`SELECT `+suspectColumns+` FROM suspects WHERE status IN (?) ORDER BY identified_at`, list)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build suspect status query")
	}

	var suspects []*models.Suspect
	if err := r.db.SelectContext(ctx, &suspects, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to list suspects by status")
	}
	return suspects, nil
}

func (r *suspectRepository) Transition(ctx context.Context, t SuspectTransition) (bool, error) {
	set := []string{"status = ?", "updated_at = NOW()"}
	args := []interface{}{string(t.To)}

	if t.StampPursuit {
		set = append(set, "pursuit_started_at = NOW()")
	}
	if t.StampEscalated {
		set = append(set, "escalated_at = NOW()")
	}
	if t.StampResolved {
		set = append(set, "resolved_at = NOW()")
	}

	from := make([]string, 0, len(t.From))
	for _, s := range t.From {
		from = append(from, string(s))
	}

	query := "UPDATE suspects SET " + strings.Join(set, ", ") + " WHERE id = ? AND status IN (?)"
	args = append(args, t.SuspectID, from)

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return false, errors.Wrap(err, "failed to build suspect transition query")
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), inArgs...)
	if err != nil {
		return false, errors.Wrap(err, "failed to transition suspect")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read suspect transition result")
	}
	return rows > 0, nil
}

func (r *suspectRepository) IssueWarrants(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	query := `
		UPDATE suspects
		SET warrant_issued = TRUE, warrant_issued_at = $2, updated_at = NOW()
		WHERE id = ANY($1)`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids), at); err != nil {
		return errors.Wrap(err, "failed to issue warrants")
	}
	return nil
}

func (r *suspectRepository) MarkReleasedOnBail(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE suspects SET released_on_bail = TRUE, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return errors.Wrap(err, "failed to mark suspect released on bail")
	}
	return nil
}

func (r *suspectRepository) CountByCase(ctx context.Context, caseID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM suspects WHERE case_id = $1`, caseID); err != nil {
		return 0, errors.Wrap(err, "failed to count case suspects")
	}
	return count, nil
}
