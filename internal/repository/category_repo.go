package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	WithTx(tx *gorm.DB) CategoryRepository
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	FindAll(ctx context.Context) ([]model.Category, error)
	CountProducts(ctx context.Context, categoryIDs []uuid.UUID) (int64, error)
}

type categoryRepo struct {
	handle
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{handle{db: db}}
}

func (r *categoryRepo) WithTx(tx *gorm.DB) CategoryRepository {
	return &categoryRepo{r.bind(tx)}
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return Classify(r.conn(ctx).Create(category).Error, "category not found")
}

func (r *categoryRepo) Update(ctx context.Context, category *model.Category) error {
	return Classify(r.conn(ctx).Save(category).Error, "category not found")
}

func (r *categoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return Classify(r.conn(ctx).Delete(&model.Category{}, "id = ?", id).Error, "category not found")
}

func (r *categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := r.conn(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "category not found")
	}
	return &category, nil
}

func (r *categoryRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := forUpdate(r.conn(ctx)).First(&category, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "category not found")
	}
	return &category, nil
}

func (r *categoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.conn(ctx).Order("name ASC").Find(&categories).Error
	return categories, Classify(err, "")
}

func (r *categoryRepo) CountProducts(ctx context.Context, categoryIDs []uuid.UUID) (int64, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := r.conn(ctx).Model(&model.Product{}).Where("category_id IN ?", categoryIDs).Count(&n).Error
	return n, Classify(err, "")
}
