package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	CountDocumentLines(ctx context.Context, id uuid.UUID) (int64, error)
}

type productRepo struct {
	handle
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{handle{db: db}}
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{r.bind(tx)}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return Classify(r.conn(ctx).Create(product).Error, "product not found")
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return Classify(r.conn(ctx).Omit("Category").Save(product).Error, "product not found")
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return Classify(r.conn(ctx).Delete(&model.Product{}, "id = ?", id).Error, "product not found")
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.conn(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "product not found")
	}
	return &product, nil
}

func (r *productRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var product model.Product
	if err := r.conn(ctx).Preload("Category").First(&product, "barcode = ?", barcode).Error; err != nil {
		return nil, Classify(err, "product not found")
	}
	return &product, nil
}

func (r *productRepo) CountDocumentLines(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&model.DocumentLine{}).Where("product_id = ?", id).Count(&n).Error
	return n, Classify(err, "")
}
