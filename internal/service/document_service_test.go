package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPostRequiresOpenSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.docs.Post(f.ctx, f.saleRequest(1))

	assert.True(t, errors.Is(err, apperror.ErrNoOpenSession))
	assert.Equal(t, 5, f.quantity(t, f.entry.ID))
}

func TestPostSaleDecrementsStockAndFeedsSummary(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "10000")

	doc := f.post(t, f.saleRequest(2))

	assert.Equal(t, model.StatusPaid, doc.Status)
	assert.Equal(t, model.DocumentReceipt, doc.Kind)
	assert.NotEmpty(t, doc.Folio)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "GENERAL", doc.Lines[0].Location)
	assertDec(t, "500", doc.Lines[0].UnitPrice)
	assertDec(t, "1000", doc.Total)
	assert.Equal(t, 3, f.quantity(t, f.entry.ID))

	sum, err := f.cash.Summary(f.ctx, f.branch.ID, nil)
	require.NoError(t, err)
	assertDec(t, "10000", sum.StartingBalance)
	assertDec(t, "1000", sum.Sales)
	assertDec(t, "0", sum.ExtraIn, "linked movement is not extra income")
	assertDec(t, "11000", sum.TheoreticalBalance)

	linked, err := f.repos.cash.CountLinked(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, linked)
	assert.Equal(t, 1, f.events.count(EventDocumentPosted))
}

func TestPostAppliesDiscountAndPriceOverride(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")

	req := f.saleRequest(3)
	req.Lines[0].UnitPrice = decPtr("333.33")
	req.Lines[0].DiscountPct = dec("10")
	doc := f.post(t, req)

	// 3 * 333.33 * 0.9 = 899.991
	assertDec(t, "899.99", doc.Total)
}

func TestPostRejectsDiscountAboveHundred(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")

	req := f.saleRequest(1)
	req.Lines[0].DiscountPct = dec("120")
	_, err := f.docs.Post(f.ctx, req)

	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestInsufficientStockLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")

	other, err := f.catalog.CreateProduct(f.ctx, &CreateProductRequest{Name: "Tea", SalePrice: dec("100")}, "test")
	require.NoError(t, err)
	otherEntry, err := f.stock.Create(f.ctx, &CreateStockRequest{BranchID: f.branch.ID, ProductID: other.ID, Quantity: 10}, "test")
	require.NoError(t, err)

	req := f.saleRequest(1)
	req.Lines = []PostLineRequest{
		{ProductID: other.ID, Quantity: 4},
		{ProductID: f.product.ID, Quantity: 6},
	}
	_, err = f.docs.Post(f.ctx, req)

	require.True(t, errors.Is(err, apperror.ErrInsufficientStock))
	assert.Contains(t, err.Error(), "Coffee 250g")
	assert.Equal(t, 10, f.quantity(t, otherEntry.ID), "earlier line rolled back")
	assert.Equal(t, 5, f.quantity(t, f.entry.ID))

	docs, err := f.reports.OrphanedDocuments(f.ctx, nil, f.clock.Now().Add(-time.Hour), f.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, docs)
	var n int64
	require.NoError(t, f.db.Model(&model.Document{}).Count(&n).Error)
	assert.Zero(t, n, "no partial document")
}

func TestPostUnknownProductRollsBack(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")

	req := f.saleRequest(1)
	req.Lines = append(req.Lines, PostLineRequest{ProductID: uuid.New(), Quantity: 1})
	_, err := f.docs.Post(f.ctx, req)

	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Equal(t, 5, f.quantity(t, f.entry.ID))
}

func TestPurchaseCreatesEntryWithDefaults(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")
	tea, err := f.catalog.CreateProduct(f.ctx, &CreateProductRequest{Name: "Tea", NetCost: dec("80")}, "test")
	require.NoError(t, err)

	doc := f.post(t, &PostDocumentRequest{
		BranchID:  f.branch.ID,
		UserID:    f.seller.ID,
		Operation: model.OperationPurchase,
		Kind:      model.DocumentInvoice,
		Lines:     []PostLineRequest{{ProductID: tea.ID, Quantity: 120, UnitPrice: decPtr("80")}},
	})

	entry, err := f.stock.Get(f.ctx, f.branch.ID, tea.ID, "")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "GENERAL", entry.Location)
	assert.Equal(t, 120, entry.Quantity)
	assert.Equal(t, 5, entry.Minimum)
	assert.Equal(t, 120, entry.Maximum, "maximum grows to the received quantity")
	assertDec(t, "9600", doc.Total)

	sum, err := f.cash.Summary(f.ctx, f.branch.ID, nil)
	require.NoError(t, err)
	assertDec(t, "9600", sum.Purchases)
	assertDec(t, "-9600", sum.TheoreticalBalance)
}

func TestPurchaseAboveMaximumAborts(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")

	_, err := f.docs.Post(f.ctx, &PostDocumentRequest{
		BranchID:  f.branch.ID,
		UserID:    f.seller.ID,
		Operation: model.OperationPurchase,
		Kind:      model.DocumentInvoice,
		Lines:     []PostLineRequest{{ProductID: f.product.ID, Quantity: 46, Location: "GENERAL"}},
	})

	assert.True(t, errors.Is(err, apperror.ErrExceedsMaximum))
	assert.Equal(t, 5, f.quantity(t, f.entry.ID))
}

func TestVoidRestoresStock(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")

	sale := f.post(t, f.saleRequest(2))
	purchase := f.post(t, &PostDocumentRequest{
		BranchID:  f.branch.ID,
		UserID:    f.seller.ID,
		Operation: model.OperationPurchase,
		Kind:      model.DocumentInvoice,
		Lines:     []PostLineRequest{{ProductID: f.product.ID, Quantity: 10, Location: "GENERAL"}},
	})
	require.Equal(t, 13, f.quantity(t, f.entry.ID))

	voided, err := f.docs.Void(f.ctx, purchase.ID, "test")
	require.NoError(t, err)
	assert.Equal(t, model.StatusVoided, voided.Status)
	assert.Equal(t, 3, f.quantity(t, f.entry.ID))

	_, err = f.docs.Void(f.ctx, sale.ID, "test")
	require.NoError(t, err)
	assert.Equal(t, 5, f.quantity(t, f.entry.ID))
}

func TestVoidTwiceIsNoop(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")
	sale := f.post(t, f.saleRequest(2))

	first, err := f.docs.Void(f.ctx, sale.ID, "test")
	require.NoError(t, err)
	second, err := f.docs.Void(f.ctx, sale.ID, "test")
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, 5, f.quantity(t, f.entry.ID))
	assert.Equal(t, 1, f.events.count(EventDocumentVoided))
}

func TestVoidedSaleDropsOutOfSummary(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "100")
	sale := f.post(t, f.saleRequest(1))

	_, err := f.docs.Void(f.ctx, sale.ID, "test")
	require.NoError(t, err)

	sum, err := f.cash.Summary(f.ctx, f.branch.ID, nil)
	require.NoError(t, err)
	assertDec(t, "0", sum.Sales)
	assertDec(t, "100", sum.TheoreticalBalance)
}

func TestVoidSaleRecreatesRemovedEntry(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")
	sale := f.post(t, f.saleRequest(5))
	require.NoError(t, f.stock.Delete(f.ctx, f.entry.ID))

	_, err := f.docs.Void(f.ctx, sale.ID, "test")
	require.NoError(t, err)

	entry, err := f.stock.Get(f.ctx, f.branch.ID, f.product.ID, "GENERAL")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 5, entry.Quantity)
}

func TestSaleBelowMinimumPublishesAlert(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")

	f.post(t, f.saleRequest(1))
	assert.Zero(t, f.events.count(EventStockAlert))

	f.post(t, f.saleRequest(2))
	assert.Equal(t, 1, f.events.count(EventStockAlert))
}

func TestPostedDocumentKeepsPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	f.open(t, f.seller, "0")
	doc := f.post(t, f.saleRequest(1))

	_, err := f.catalog.UpdateProduct(f.ctx, f.product.ID, &UpdateProductRequest{SalePrice: decPtr("900")}, "test")
	require.NoError(t, err)

	got, err := f.docs.Get(f.ctx, doc.ID)
	require.NoError(t, err)
	assertDec(t, "500", got.Total)
}

type failingSessions struct {
	CashService
}

func (failingSessions) RecordMovement(context.Context, *RecordMovementRequest) (*model.CashMovement, error) {
	return nil, apperror.ErrStoreUnavailable
}

func TestCashMovementFailureKeepsDocument(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixtureWithLogger(t, zap.New(core))
	r := f.repos
	docs := NewDocumentService(f.txn, r.docs, r.stock, r.products, r.branches, r.users, r.counterparty,
		r.cash, failingSessions{f.cash}, testStockConfig, f.events, time.UTC, f.clock.Now, zap.New(core))
	f.open(t, f.seller, "0")

	doc, err := docs.Post(f.ctx, f.saleRequest(1))
	require.NoError(t, err)
	f.tick()

	assert.Equal(t, 4, f.quantity(t, f.entry.ID))
	warned := logs.FilterMessage("document committed without cash movement").All()
	require.Len(t, warned, 1)
	assert.Equal(t, doc.Folio, warned[0].ContextMap()["folio"])

	orphans, err := f.reports.OrphanedDocuments(f.ctx, &f.branch.ID, f.clock.Now().Add(-time.Hour), f.clock.Now())
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, doc.ID, orphans[0].ID)

	repaired, err := f.cash.RepairOrphanedDocuments(f.ctx, f.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, repaired, 1)
	assertDec(t, "500", repaired[0].Amount)
	assert.Equal(t, model.MovementIncome, repaired[0].Kind)
	assert.Equal(t, doc.IssuedAt.Unix(), repaired[0].OccurredAt.Unix())

	again, err := f.cash.RepairOrphanedDocuments(f.ctx, f.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again)
}
