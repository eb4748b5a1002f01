package repository

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenFilter selects OPEN movements for the session history.
type OpenFilter struct {
	From     time.Time
	To       time.Time
	BranchID *uuid.UUID
	UserID   *uuid.UUID
}

type CashRepository interface {
	WithTx(tx *gorm.DB) CashRepository
	Create(ctx context.Context, movement *model.CashMovement) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashMovement, error)
	// LastSessionEvent returns the latest OPEN or CLOSE of the branch, or nil, nil.
	LastSessionEvent(ctx context.Context, branchID uuid.UUID) (*model.CashMovement, error)
	// FindClose returns the CLOSE ending the given OPEN, or nil, nil while it is still open.
	FindClose(ctx context.Context, open *model.CashMovement) (*model.CashMovement, error)
	// ListInPeriod returns the branch movements in [from, to) oldest first.
	ListInPeriod(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]model.CashMovement, error)
	ListOpens(ctx context.Context, f OpenFilter) ([]model.CashMovement, error)
	CountLinked(ctx context.Context, documentID uuid.UUID) (int64, error)
}

type cashRepo struct {
	handle
}

func NewCashRepo(db *gorm.DB) CashRepository {
	return &cashRepo{handle{db: db}}
}

func (r *cashRepo) WithTx(tx *gorm.DB) CashRepository {
	return &cashRepo{r.bind(tx)}
}

func (r *cashRepo) Create(ctx context.Context, movement *model.CashMovement) error {
	return Classify(r.conn(ctx).Omit("User").Create(movement).Error, "cash movement not found")
}

func (r *cashRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashMovement, error) {
	var m model.CashMovement
	if err := r.conn(ctx).Preload("User").First(&m, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "cash movement not found")
	}
	return &m, nil
}

func (r *cashRepo) LastSessionEvent(ctx context.Context, branchID uuid.UUID) (*model.CashMovement, error) {
	var events []model.CashMovement
	err := r.conn(ctx).Preload("User").
		Where("branch_id = ? AND kind IN ?", branchID, []model.MovementKind{model.MovementOpen, model.MovementClose}).
		Order("occurred_at DESC, created_at DESC").
		Limit(1).Find(&events).Error
	if err != nil {
		return nil, Classify(err, "")
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *cashRepo) FindClose(ctx context.Context, open *model.CashMovement) (*model.CashMovement, error) {
	var closes []model.CashMovement
	err := r.conn(ctx).Preload("User").
		Where("kind = ? AND session_open_id = ?", model.MovementClose, open.ID).
		Limit(1).Find(&closes).Error
	if err != nil {
		return nil, Classify(err, "")
	}
	if len(closes) > 0 {
		return &closes[0], nil
	}

	// rows written before session_open_id existed: the next CLOSE of the branch
	err = r.conn(ctx).Preload("User").
		Where("branch_id = ? AND kind = ? AND session_open_id IS NULL AND occurred_at >= ?",
			open.BranchID, model.MovementClose, open.OccurredAt).
		Order("occurred_at ASC, created_at ASC").
		Limit(1).Find(&closes).Error
	if err != nil {
		return nil, Classify(err, "")
	}
	if len(closes) == 0 {
		return nil, nil
	}
	return &closes[0], nil
}

func (r *cashRepo) ListInPeriod(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]model.CashMovement, error) {
	var movements []model.CashMovement
	err := r.conn(ctx).Preload("User").
		Where("branch_id = ? AND occurred_at >= ? AND occurred_at < ?", branchID, from, to).
		Order("occurred_at ASC, created_at ASC").
		Find(&movements).Error
	return movements, Classify(err, "")
}

func (r *cashRepo) ListOpens(ctx context.Context, f OpenFilter) ([]model.CashMovement, error) {
	q := r.conn(ctx).Preload("User").Where("kind = ?", model.MovementOpen)
	if !f.From.IsZero() {
		q = q.Where("occurred_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("occurred_at < ?", f.To)
	}
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	var opens []model.CashMovement
	err := q.Order("occurred_at DESC").Find(&opens).Error
	return opens, Classify(err, "")
}

func (r *cashRepo) CountLinked(ctx context.Context, documentID uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&model.CashMovement{}).Where("document_id = ?", documentID).Count(&n).Error
	return n, Classify(err, "")
}
