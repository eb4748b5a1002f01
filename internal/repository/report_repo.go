package repository

import (
	"context"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategorySales is the paid sales total attributed to one category.
type CategorySales struct {
	CategoryID uuid.UUID       `json:"category_id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
}

type ReportRepository interface {
	TopCategories(ctx context.Context, branchID *uuid.UUID, limit int) ([]CategorySales, error)
}

type reportRepo struct {
	handle
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{handle{db: db}}
}

func (r *reportRepo) TopCategories(ctx context.Context, branchID *uuid.UUID, limit int) ([]CategorySales, error) {
	const lineNet = "document_lines.quantity * document_lines.unit_price * (1 - document_lines.discount_pct / 100.0)"

	q := r.conn(ctx).Table("document_lines").
		Select("categories.id AS category_id, categories.name AS name, COALESCE(SUM("+lineNet+"), 0) AS total").
		Joins("JOIN documents ON documents.id = document_lines.document_id").
		Joins("JOIN products ON products.id = document_lines.product_id").
		Joins("JOIN categories ON categories.id = products.category_id").
		Where("documents.operation = ? AND documents.status = ?", model.OperationSale, model.StatusPaid)
	if branchID != nil {
		q = q.Where("documents.branch_id = ?", *branchID)
	}

	var rows []CategorySales
	err := q.Group("categories.id, categories.name").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, Classify(err, "")
}
