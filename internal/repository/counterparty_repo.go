package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CounterpartyRepository interface {
	WithTx(tx *gorm.DB) CounterpartyRepository
	Create(ctx context.Context, cp *model.Counterparty) error
	Update(ctx context.Context, cp *model.Counterparty) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Counterparty, error)
	FindByTaxID(ctx context.Context, taxID string) (*model.Counterparty, error)
}

type counterpartyRepo struct {
	handle
}

func NewCounterpartyRepo(db *gorm.DB) CounterpartyRepository {
	return &counterpartyRepo{handle{db: db}}
}

func (r *counterpartyRepo) WithTx(tx *gorm.DB) CounterpartyRepository {
	return &counterpartyRepo{r.bind(tx)}
}

func (r *counterpartyRepo) Create(ctx context.Context, cp *model.Counterparty) error {
	return Classify(r.conn(ctx).Create(cp).Error, "counterparty not found")
}

func (r *counterpartyRepo) Update(ctx context.Context, cp *model.Counterparty) error {
	return Classify(r.conn(ctx).Save(cp).Error, "counterparty not found")
}

func (r *counterpartyRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Counterparty, error) {
	var cp model.Counterparty
	if err := r.conn(ctx).First(&cp, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "counterparty not found")
	}
	return &cp, nil
}

func (r *counterpartyRepo) FindByTaxID(ctx context.Context, taxID string) (*model.Counterparty, error) {
	var cp model.Counterparty
	if err := r.conn(ctx).First(&cp, "tax_id = ?", taxID).Error; err != nil {
		return nil, Classify(err, "counterparty not found")
	}
	return &cp, nil
}
