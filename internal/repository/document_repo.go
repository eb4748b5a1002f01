package repository

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentFilter narrows document listings. Zero values mean no filter.
type DocumentFilter struct {
	BranchID  *uuid.UUID
	Operation model.Operation
	Status    model.PaymentStatus
	From      time.Time
	To        time.Time
}

type DocumentRepository interface {
	WithTx(tx *gorm.DB) DocumentRepository
	CreateHeader(ctx context.Context, doc *model.Document) error
	CreateLine(ctx context.Context, line *model.DocumentLine) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus, actor string) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	// List returns documents issued in [From, To) with lines and products loaded.
	List(ctx context.Context, f DocumentFilter) ([]model.Document, error)
	// ListOrphaned returns PAID documents in [from, to) that no cash movement references.
	ListOrphaned(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]model.Document, error)
}

type documentRepo struct {
	handle
}

func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{handle{db: db}}
}

func (r *documentRepo) WithTx(tx *gorm.DB) DocumentRepository {
	return &documentRepo{r.bind(tx)}
}

func (r *documentRepo) CreateHeader(ctx context.Context, doc *model.Document) error {
	return Classify(r.conn(ctx).Omit("Lines").Create(doc).Error, "document not found")
}

func (r *documentRepo) CreateLine(ctx context.Context, line *model.DocumentLine) error {
	return Classify(r.conn(ctx).Omit("Product").Create(line).Error, "document not found")
}

func (r *documentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus, actor string) error {
	err := r.conn(ctx).Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_by": actor}).Error
	return Classify(err, "document not found")
}

func (r *documentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := r.conn(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Lines.Product").
		First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, Classify(err, "document not found")
	}
	return &doc, nil
}

func (r *documentRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := forUpdate(r.conn(ctx)).First(&doc, "id = ?", id).Error; err != nil {
		return nil, Classify(err, "document not found")
	}
	var lines []model.DocumentLine
	if err := r.conn(ctx).Where("document_id = ?", id).Order("position ASC").Find(&lines).Error; err != nil {
		return nil, Classify(err, "")
	}
	doc.Lines = lines
	doc.Total = doc.LinesTotal()
	return &doc, nil
}

func (r *documentRepo) List(ctx context.Context, f DocumentFilter) ([]model.Document, error) {
	q := r.conn(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Lines.Product")
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.Operation != "" {
		q = q.Where("operation = ?", f.Operation)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("issued_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("issued_at < ?", f.To)
	}
	var docs []model.Document
	err := q.Order("issued_at ASC, created_at ASC").Find(&docs).Error
	return docs, Classify(err, "")
}

func (r *documentRepo) ListOrphaned(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]model.Document, error) {
	q := r.conn(ctx).
		Preload("Lines").
		Where("status = ?", model.StatusPaid).
		Where("NOT EXISTS (SELECT 1 FROM cash_movements cm WHERE cm.document_id = documents.id)")
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}
	if !from.IsZero() {
		q = q.Where("issued_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("issued_at < ?", to)
	}
	var docs []model.Document
	err := q.Order("issued_at ASC").Find(&docs).Error
	return docs, Classify(err, "")
}
