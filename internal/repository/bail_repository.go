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

// BailRepository handles bail payment persistence. gateway_token carries a
// unique constraint so a retried gateway callback can never produce a second
// paid record.
type BailRepository interface {
	Create(ctx context.Context, b *models.BailPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BailPayment, error)
	GetByToken(ctx context.Context, token string) (*models.BailPayment, error)
	Approve(ctx context.Context, id, sergeant uuid.UUID) (bool, error)
	Reject(ctx context.Context, id, sergeant uuid.UUID) (bool, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
}

type bailRepository struct {
	db *sqlx.DB
}

// NewBailRepository creates a bail repository.
func NewBailRepository(db *sqlx.DB) BailRepository {
	return &bailRepository{db: db}
}

const bailColumns = `
	id, suspect_id, case_id, requested_by, amount, status, approved_by,
	gateway_token, paid_at, created_at, updated_at`

func (r *bailRepository) Create(ctx context.Context, b *models.BailPayment) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	query := `
		INSERT INTO bail_payments (
			id, suspect_id, case_id, requested_by, amount, status,
			approved_by, gateway_token, paid_at, created_at, updated_at
		) VALUES (
			:id, :suspect_id, :case_id, :requested_by, :amount, :status,
			:approved_by, :gateway_token, :paid_at, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return errors.Wrap(err, "failed to create bail payment")
	}
	return nil
}

func (r *bailRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BailPayment, error) {
	var b models.BailPayment

	query := `SELECT ` + bailColumns + ` FROM bail_payments WHERE id = $1`

	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get bail payment")
	}
	return &b, nil
}

func (r *bailRepository) GetByToken(ctx context.Context, token string) (*models.BailPayment, error) {
	var b models.BailPayment

	query := `SELECT ` + bailColumns + ` FROM bail_payments WHERE gateway_token = $1`

	err := r.db.GetContext(ctx, &b, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get bail payment by token")
	}
	return &b, nil
}

func (r *bailRepository) Approve(ctx context.Context, id, sergeant uuid.UUID) (bool, error) {
	return r.settle(ctx, id, sergeant, models.BailStatusApproved)
}

func (r *bailRepository) Reject(ctx context.Context, id, sergeant uuid.UUID) (bool, error) {
	return r.settle(ctx, id, sergeant, models.BailStatusRejected)
}

func (r *bailRepository) settle(ctx context.Context, id, sergeant uuid.UUID, to models.BailStatus) (bool, error) {
	query := `
		UPDATE bail_payments
		SET status = $2, approved_by = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, id, to, sergeant, models.BailStatusPending)
	if err != nil {
		return false, errors.Wrap(err, "failed to settle bail payment")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read bail settlement result")
	}
	return rows > 0, nil
}

// MarkPaid records a successful gateway confirmation. Guarded on approved
// status; a replayed callback finds zero rows and reads the existing paid
// record instead.
func (r *bailRepository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE bail_payments
		SET status = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, id, models.BailStatusPaid, models.BailStatusApproved)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark bail paid")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read bail payment result")
	}
	return rows > 0, nil
}
