package service

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReportService interface {
	Dashboard(ctx context.Context, branchID *uuid.UUID) (*DashboardStats, error)
	SalesChart(ctx context.Context, branchID *uuid.UUID) (*SalesChart, error)
	ProductActivity(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]model.ProductActivity, error)
	GroupedStock(ctx context.Context, branchID uuid.UUID) ([]repository.GroupedStock, error)
	OrphanedDocuments(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]model.Document, error)
}

type StockAlert struct {
	EntryID     uuid.UUID `json:"entry_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	BranchName  string    `json:"branch_name"`
	Location    string    `json:"location"`
	Quantity    int       `json:"quantity"`
	Minimum     int       `json:"minimum"`
}

type DashboardStats struct {
	TodaySales      decimal.Decimal `json:"today_sales"`
	ProductsInStock int64           `json:"products_in_stock"`
	Alerts          []StockAlert    `json:"alerts"`
}

type DailySales struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

type SalesChart struct {
	Days          []DailySales               `json:"days"`
	TopCategories []repository.CategorySales `json:"top_categories"`
}

const (
	chartDays          = 7
	chartTopCategories = 5
)

type reportService struct {
	txn     *repository.Transactor
	docs    repository.DocumentRepository
	stock   repository.StockRepository
	reports repository.ReportRepository
	loc     *time.Location
	now     Clock
}

func NewReportService(txn *repository.Transactor, docs repository.DocumentRepository, stock repository.StockRepository, reports repository.ReportRepository, loc *time.Location, now Clock) ReportService {
	gate := newSessionGate(loc, now)
	return &reportService{txn: txn, docs: docs, stock: stock, reports: reports, loc: gate.loc, now: gate.now}
}

func (s *reportService) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *reportService) paidSales(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]model.Document, error) {
	return s.docs.List(ctx, repository.DocumentFilter{
		BranchID:  branchID,
		Operation: model.OperationSale,
		Status:    model.StatusPaid,
		From:      from.UTC(),
		To:        to.UTC(),
	})
}

func (s *reportService) Dashboard(ctx context.Context, branchID *uuid.UUID) (*DashboardStats, error) {
	return read(ctx, s.txn, func(ctx context.Context) (*DashboardStats, error) {
		return s.dashboard(ctx, branchID)
	})
}

func (s *reportService) dashboard(ctx context.Context, branchID *uuid.UUID) (*DashboardStats, error) {
	today := s.startOfDay(s.now())
	docs, err := s.paidSales(ctx, branchID, today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for i := range docs {
		for j := range docs[i].Lines {
			total = total.Add(docs[i].Lines[j].Net())
		}
	}

	inStock, err := s.stock.CountProductsInStock(ctx, branchID)
	if err != nil {
		return nil, err
	}
	entries, err := s.stock.ListAlerts(ctx, branchID)
	if err != nil {
		return nil, err
	}
	alerts := make([]StockAlert, 0, len(entries))
	for _, e := range entries {
		a := StockAlert{
			EntryID:   e.ID,
			ProductID: e.ProductID,
			Location:  e.Location,
			Quantity:  e.Quantity,
			Minimum:   e.Minimum,
		}
		if e.Product != nil {
			a.ProductName = e.Product.Name
		}
		if e.Branch != nil {
			a.BranchName = e.Branch.Name
		}
		alerts = append(alerts, a)
	}

	return &DashboardStats{
		TodaySales:      total.Round(2),
		ProductsInStock: inStock,
		Alerts:          alerts,
	}, nil
}

// SalesChart returns seven zero-filled daily totals ending today and the best selling categories.
func (s *reportService) SalesChart(ctx context.Context, branchID *uuid.UUID) (*SalesChart, error) {
	return read(ctx, s.txn, func(ctx context.Context) (*SalesChart, error) {
		return s.salesChart(ctx, branchID)
	})
}

func (s *reportService) salesChart(ctx context.Context, branchID *uuid.UUID) (*SalesChart, error) {
	first := s.startOfDay(s.now()).AddDate(0, 0, -(chartDays - 1))
	docs, err := s.paidSales(ctx, branchID, first, first.AddDate(0, 0, chartDays))
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]decimal.Decimal, chartDays)
	for i := range docs {
		key := docs[i].IssuedAt.In(s.loc).Format("2006-01-02")
		sum := byDay[key]
		for j := range docs[i].Lines {
			sum = sum.Add(docs[i].Lines[j].Net())
		}
		byDay[key] = sum
	}

	days := make([]DailySales, 0, chartDays)
	for i := 0; i < chartDays; i++ {
		key := first.AddDate(0, 0, i).Format("2006-01-02")
		days = append(days, DailySales{Date: key, Total: byDay[key].Round(2)})
	}

	top, err := s.reports.TopCategories(ctx, branchID, chartTopCategories)
	if err != nil {
		return nil, err
	}
	return &SalesChart{Days: days, TopCategories: top}, nil
}

func (s *reportService) ProductActivity(ctx context.Context, branchID uuid.UUID, from, to time.Time) ([]model.ProductActivity, error) {
	if !to.After(from) {
		return nil, apperror.New(apperror.KindValidation, "report end must be after its start")
	}
	docs, err := read(ctx, s.txn, func(ctx context.Context) ([]model.Document, error) {
		return s.docs.List(ctx, repository.DocumentFilter{
			BranchID: &branchID,
			Status:   model.StatusPaid,
			From:     from.UTC(),
			To:       to.UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	tally := newActivityTally()
	for i := range docs {
		for j := range docs[i].Lines {
			line := &docs[i].Lines[j]
			tally.add(docs[i].Operation, line, line.Net())
		}
	}
	return tally.rows(), nil
}

func (s *reportService) GroupedStock(ctx context.Context, branchID uuid.UUID) ([]repository.GroupedStock, error) {
	return read(ctx, s.txn, func(ctx context.Context) ([]repository.GroupedStock, error) {
		return s.stock.Grouped(ctx, branchID)
	})
}

func (s *reportService) OrphanedDocuments(ctx context.Context, branchID *uuid.UUID, from, to time.Time) ([]model.Document, error) {
	return read(ctx, s.txn, func(ctx context.Context) ([]model.Document, error) {
		return s.docs.ListOrphaned(ctx, branchID, from.UTC(), to.UTC())
	})
}
