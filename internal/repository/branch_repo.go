package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BranchRepository interface {
	WithTx(tx *gorm.DB) BranchRepository
	Create(ctx context.Context, branch *model.Branch) error
	Update(ctx context.Context, branch *model.Branch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	// LockByID takes a row lock on the branch; per-branch units of work serialize on it.
	LockByID(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	FindAll(ctx context.Context) ([]model.Branch, error)
	ClearPrimaryExcept(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type branchRepo struct {
	handle
}

func NewBranchRepo(db *gorm.DB) BranchRepository {
	return &branchRepo{handle{db: db}}
}

func (r *branchRepo) WithTx(tx *gorm.DB) BranchRepository {
	return &branchRepo{r.bind(tx)}
}

func (r *branchRepo) Create(ctx context.Context, branch *model.Branch) error {
	return Classify(r.conn(ctx).Create(branch).Error, "branch not found")
}

func (r *branchRepo) Update(ctx context.Context, branch *model.Branch) error {
	return Classify(r.conn(ctx).Save(branch).Error, "branch not found")
}

func (r *branchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var branch model.Branch
	if err := r.conn(ctx).First(&branch, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "branch not found")
	}
	return &branch, nil
}

func (r *branchRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var branch model.Branch
	if err := forUpdate(r.conn(ctx)).First(&branch, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "branch not found")
	}
	return &branch, nil
}

func (r *branchRepo) FindAll(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	err := r.conn(ctx).Order("is_primary DESC, name ASC").Find(&branches).Error
	return branches, Classify(err, "")
}

func (r *branchRepo) ClearPrimaryExcept(ctx context.Context, id uuid.UUID) error {
	err := r.conn(ctx).Model(&model.Branch{}).
		Where("id <> ? AND is_primary = ?", id, true).
		Update("is_primary", false).Error
	return Classify(err, "")
}

func (r *branchRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&model.Branch{}).Count(&n).Error
	return n, Classify(err, "")
}
