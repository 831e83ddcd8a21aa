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

// TipOffRepository handles citizen tip persistence. redemption_code is
// unique; the redeem guard makes the code single-use under concurrency.
type TipOffRepository interface {
	Create(ctx context.Context, t *models.TipOff) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TipOff, error)
	GetByCode(ctx context.Context, code string) (*models.TipOff, error)
	OfficerReview(ctx context.Context, id, officer uuid.UUID, to models.TipOffStatus, reason *string) (bool, error)
	DetectiveApprove(ctx context.Context, id, detective uuid.UUID, code string, reward int64) (bool, error)
	DetectiveReject(ctx context.Context, id, detective uuid.UUID, reason string) (bool, error)
	Redeem(ctx context.Context, code string) (bool, error)
}

type tipOffRepository struct {
	db *sqlx.DB
}

// NewTipOffRepository creates a tip-off repository.
func NewTipOffRepository(db *sqlx.DB) TipOffRepository {
	return &tipOffRepository{db: db}
}

const tipOffColumns = `
	id, case_id, suspect_id, informant_id, information, status, officer_id,
	officer_reason, detective_id, detective_reason, reward_amount,
	redemption_code, redeemed_at, created_at, updated_at`

func (r *tipOffRepository) Create(ctx context.Context, t *models.TipOff) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO tip_offs (
			id, case_id, suspect_id, informant_id, information, status,
			created_at, updated_at
		) VALUES (
			:id, :case_id, :suspect_id, :informant_id, :information, :status,
			:created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return errors.Wrap(err, "failed to create tip-off")
	}
	return nil
}

func (r *tipOffRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TipOff, error) {
	var t models.TipOff

	query := `SELECT ` + tipOffColumns + ` FROM tip_offs WHERE id = $1`

	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get tip-off")
	}
	return &t, nil
}

func (r *tipOffRepository) GetByCode(ctx context.Context, code string) (*models.TipOff, error) {
	var t models.TipOff

	query := `SELECT ` + tipOffColumns + ` FROM tip_offs WHERE redemption_code = $1`

	err := r.db.GetContext(ctx, &t, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get tip-off by code")
	}
	return &t, nil
}

func (r *tipOffRepository) OfficerReview(ctx context.Context, id, officer uuid.UUID, to models.TipOffStatus, reason *string) (bool, error) {
	query := `
		UPDATE tip_offs
		SET status = $2, officer_id = $3, officer_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5`

	result, err := r.db.ExecContext(ctx, query, id, to, officer, reason, models.TipOffStatusPending)
	if err != nil {
		return false, errors.Wrap(err, "failed to record officer review")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read officer review result")
	}
	return rows > 0, nil
}

// DetectiveApprove issues the reward and redemption code. The status guard
// means only one of two racing detectives issues a code.
func (r *tipOffRepository) DetectiveApprove(ctx context.Context, id, detective uuid.UUID, code string, reward int64) (bool, error) {
	query := `
		UPDATE tip_offs
		SET status = $2, detective_id = $3, redemption_code = $4,
			reward_amount = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6`

	result, err := r.db.ExecContext(ctx, query, id,
		models.TipOffStatusApproved, detective, code, reward,
		models.TipOffStatusOfficerApproved)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicate
		}
		return false, errors.Wrap(err, "failed to approve tip-off")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read tip approval result")
	}
	return rows > 0, nil
}

func (r *tipOffRepository) DetectiveReject(ctx context.Context, id, detective uuid.UUID, reason string) (bool, error) {
	query := `
		UPDATE tip_offs
		SET status = $2, detective_id = $3, detective_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5`

	result, err := r.db.ExecContext(ctx, query, id,
		models.TipOffStatusDetectiveRejected, detective, reason,
		models.TipOffStatusOfficerApproved)
	if err != nil {
		return false, errors.Wrap(err, "failed to reject tip-off")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read tip rejection result")
	}
	return rows > 0, nil
}

// Redeem flips an approved code to redeemed exactly once.
func (r *tipOffRepository) Redeem(ctx context.Context, code string) (bool, error) {
	query := `
		UPDATE tip_offs
		SET status = $2, redeemed_at = NOW(), updated_at = NOW()
		WHERE redemption_code = $1 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, code,
		models.TipOffStatusRedeemed, models.TipOffStatusApproved)
	if err != nil {
		return false, errors.Wrap(err, "failed to redeem tip-off")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read redemption result")
	}
	return rows > 0, nil
}
