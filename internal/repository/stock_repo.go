package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupedStock is the total quantity of one product across all locations of a branch.
type GroupedStock struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Total       int       `json:"total"`
	Locations   int       `json:"locations"`
}

type StockRepository interface {
	WithTx(tx *gorm.DB) StockRepository
	Create(ctx context.Context, entry *model.StockEntry) error
	Update(ctx context.Context, entry *model.StockEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error)
	// LockByKey returns nil, nil when no entry exists for the key.
	LockByKey(ctx context.Context, branchID, productID uuid.UUID, location string) (*model.StockEntry, error)
	// LockFirst returns the oldest entry of the product at the branch, or nil, nil.
	LockFirst(ctx context.Context, branchID, productID uuid.UUID) (*model.StockEntry, error)
	AddQuantity(ctx context.Context, id uuid.UUID, delta int, actor string) error
	ListByBranch(ctx context.Context, branchID uuid.UUID, onlyAlerts bool) ([]model.StockEntry, error)
	ListAlerts(ctx context.Context, branchID *uuid.UUID) ([]model.StockEntry, error)
	// PhysicalUnits sums the positive quantities of the product across all branches.
	PhysicalUnits(ctx context.Context, productID uuid.UUID) (int64, error)
	// DeleteDepleted removes the product's entries holding no physical stock.
	DeleteDepleted(ctx context.Context, productID uuid.UUID) error
	CountProductsInStock(ctx context.Context, branchID *uuid.UUID) (int64, error)
	Grouped(ctx context.Context, branchID uuid.UUID) ([]GroupedStock, error)
}

type stockRepo struct {
	handle
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{handle{db: db}}
}

func (r *stockRepo) WithTx(tx *gorm.DB) StockRepository {
	return &stockRepo{r.bind(tx)}
}

func (r *stockRepo) Create(ctx context.Context, entry *model.StockEntry) error {
	return Classify(r.conn(ctx).Omit("Branch", "Product").Create(entry).Error, "stock entry not found")
}

func (r *stockRepo) Update(ctx context.Context, entry *model.StockEntry) error {
	return Classify(r.conn(ctx).Omit("Branch", "Product").Save(entry).Error, "stock entry not found")
}

func (r *stockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return Classify(r.conn(ctx).Delete(&model.StockEntry{}, "id = ?", id).Error, "stock entry not found")
}

func (r *stockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error) {
	var entry model.StockEntry
	if err := r.conn(ctx).Preload("Product").First(&entry, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "stock entry not found")
	}
	return &entry, nil
}

func (r *stockRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error) {
	var entry model.StockEntry
	if err := forUpdate(r.conn(ctx)).First(&entry, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "stock entry not found")
	}
	return &entry, nil
}

func (r *stockRepo) LockByKey(ctx context.Context, branchID, productID uuid.UUID, location string) (*model.StockEntry, error) {
	var entries []model.StockEntry
	err := forUpdate(r.conn(ctx)).
		Where("branch_id = ? AND product_id = ? AND location = ?", branchID, productID, location).
		Limit(1).Find(&entries).Error
	if err != nil {
		return nil, Classify(err, "")
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *stockRepo) LockFirst(ctx context.Context, branchID, productID uuid.UUID) (*model.StockEntry, error) {
	var entries []model.StockEntry
	err := forUpdate(r.conn(ctx)).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		Order("created_at ASC, location ASC").
		Limit(1).Find(&entries).Error
	if err != nil {
		return nil, Classify(err, "")
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// AddQuantity applies delta in SQL so the row never round-trips a stale value.
func (r *stockRepo) AddQuantity(ctx context.Context, id uuid.UUID, delta int, actor string) error {
	res := r.conn(ctx).Model(&model.StockEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_by": actor,
		})
	if res.Error != nil {
		return Classify(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return Classify(gorm.ErrRecordNotFound, "stock entry not found")
	}
	return nil
}

func (r *stockRepo) ListByBranch(ctx context.Context, branchID uuid.UUID, onlyAlerts bool) ([]model.StockEntry, error) {
	var entries []model.StockEntry
	q := r.conn(ctx).Preload("Product").Where("branch_id = ?", branchID)
	if onlyAlerts {
		q = q.Where("quantity <= minimum")
	}
	err := q.Order("location ASC, created_at ASC").Find(&entries).Error
	return entries, Classify(err, "")
}

func (r *stockRepo) ListAlerts(ctx context.Context, branchID *uuid.UUID) ([]model.StockEntry, error) {
	var entries []model.StockEntry
	q := r.conn(ctx).Preload("Product").Preload("Branch").Where("quantity <= minimum")
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}
	err := q.Order("quantity ASC").Find(&entries).Error
	return entries, Classify(err, "")
}

func (r *stockRepo) PhysicalUnits(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.conn(ctx).Model(&model.StockEntry{}).
		Where("product_id = ? AND quantity > 0", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, Classify(err, "")
}

func (r *stockRepo) DeleteDepleted(ctx context.Context, productID uuid.UUID) error {
	err := r.conn(ctx).Where("product_id = ? AND quantity <= 0", productID).Delete(&model.StockEntry{}).Error
	return Classify(err, "")
}

func (r *stockRepo) CountProductsInStock(ctx context.Context, branchID *uuid.UUID) (int64, error) {
	var n int64
	q := r.conn(ctx).Model(&model.StockEntry{}).Where("quantity > 0")
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}
	err := q.Distinct("product_id").Count(&n).Error
	return n, Classify(err, "")
}

func (r *stockRepo) Grouped(ctx context.Context, branchID uuid.UUID) ([]GroupedStock, error) {
	var rows []GroupedStock
	err := r.conn(ctx).Table("stock_entries").
		Select(`stock_entries.product_id AS product_id,
			products.name AS product_name,
			COALESCE(SUM(stock_entries.quantity), 0) AS total,
			COUNT(*) AS locations`).
		Joins("JOIN products ON products.id = stock_entries.product_id").
		Where("stock_entries.branch_id = ?", branchID).
		Group("stock_entries.product_id, products.name").
		Order("products.name ASC").
		Scan(&rows).Error
	return rows, Classify(err, "")
}
