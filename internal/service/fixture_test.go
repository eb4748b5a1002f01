package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testStockConfig = config.StockConfig{DefaultLocation: "GENERAL", DefaultMinimum: 5, DefaultMaximum: 100}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordedEvent struct {
	name    string
	payload any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(event string, payload any) {
	r.mu.Lock()
	r.events = append(r.events, recordedEvent{name: event, payload: payload})
	r.mu.Unlock()
}

func (r *eventRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.name == name {
			n++
		}
	}
	return n
}

type repos struct {
	branches     repository.BranchRepository
	categories   repository.CategoryRepository
	products     repository.ProductRepository
	counterparty repository.CounterpartyRepository
	users        repository.UserRepository
	stock        repository.StockRepository
	docs         repository.DocumentRepository
	cash         repository.CashRepository
	reports      repository.ReportRepository
}

type fixture struct {
	ctx    context.Context
	db     *gorm.DB
	clock  *fakeClock
	events *eventRecorder
	repos  repos
	txn    *repository.Transactor

	catalog CatalogService
	stock   StockService
	cash    CashService
	docs    DocumentService
	reports ReportService

	branch  *model.Branch
	admin   *model.User
	seller  *model.User
	product *model.Product
	entry   *model.StockEntry
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a transaction holds the only connection, so nothing may bypass it
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// newFixture builds every service over a fresh database and seeds one branch,
// an admin, a seller and a product with 5 units at GENERAL priced 500.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLogger(t, zap.NewNop())
}

func newFixtureWithLogger(t *testing.T, log *zap.Logger) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		ctx:    context.Background(),
		db:     db,
		clock:  &fakeClock{now: time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)},
		events: &eventRecorder{},
		txn:    repository.NewTransactor(db, 5*time.Second, 3, log),
		repos: repos{
			branches:     repository.NewBranchRepo(db),
			categories:   repository.NewCategoryRepo(db),
			products:     repository.NewProductRepo(db),
			counterparty: repository.NewCounterpartyRepo(db),
			users:        repository.NewUserRepo(db),
			stock:        repository.NewStockRepo(db),
			docs:         repository.NewDocumentRepo(db),
			cash:         repository.NewCashRepo(db),
			reports:      repository.NewReportRepo(db),
		},
	}
	r := f.repos
	f.catalog = NewCatalogService(f.txn, r.branches, r.categories, r.products, r.stock, r.counterparty, r.users, log)
	f.stock = NewStockService(f.txn, r.stock, r.branches, r.products, testStockConfig, log)
	f.cash = NewCashService(f.txn, r.cash, r.docs, r.branches, r.users, f.events, time.UTC, f.clock.Now, log)
	f.docs = NewDocumentService(f.txn, r.docs, r.stock, r.products, r.branches, r.users, r.counterparty,
		r.cash, f.cash, testStockConfig, f.events, time.UTC, f.clock.Now, log)
	f.reports = NewReportService(f.txn, r.docs, r.stock, r.reports, time.UTC, f.clock.Now)

	var err error
	f.branch, err = f.catalog.CreateBranch(f.ctx, &CreateBranchRequest{Name: "Centro", IsPrimary: true}, "test")
	require.NoError(t, err)
	f.admin, err = f.catalog.CreateUser(f.ctx, &CreateUserRequest{Name: "Ana Admin", Email: "ana@example.com", Role: model.RoleAdmin}, "test")
	require.NoError(t, err)
	f.seller = f.newSeller(t, "Sam Seller", "sam@example.com")
	f.product, err = f.catalog.CreateProduct(f.ctx, &CreateProductRequest{
		Name:      "Coffee 250g",
		NetCost:   dec("300"),
		SalePrice: dec("500"),
	}, "test")
	require.NoError(t, err)
	minimum, maximum := 2, 50
	f.entry, err = f.stock.Create(f.ctx, &CreateStockRequest{
		BranchID:  f.branch.ID,
		ProductID: f.product.ID,
		Location:  "GENERAL",
		Quantity:  5,
		Minimum:   &minimum,
		Maximum:   &maximum,
	}, "test")
	require.NoError(t, err)
	return f
}

func (f *fixture) newSeller(t *testing.T, name, email string) *model.User {
	t.Helper()
	u, err := f.catalog.CreateUser(f.ctx, &CreateUserRequest{Name: name, Email: email, BranchID: &f.branch.ID}, "test")
	require.NoError(t, err)
	return u
}

func (f *fixture) tick() {
	f.clock.Advance(time.Minute)
}

func (f *fixture) open(t *testing.T, user *model.User, amount string) *model.CashMovement {
	t.Helper()
	m, err := f.cash.Open(f.ctx, &OpenSessionRequest{BranchID: f.branch.ID, UserID: user.ID, InitialAmount: dec(amount)})
	require.NoError(t, err)
	f.tick()
	return m
}

func (f *fixture) saleRequest(qty int) *PostDocumentRequest {
	return &PostDocumentRequest{
		BranchID:  f.branch.ID,
		UserID:    f.seller.ID,
		Operation: model.OperationSale,
		Kind:      model.DocumentReceipt,
		Lines:     []PostLineRequest{{ProductID: f.product.ID, Quantity: qty}},
	}
}

func (f *fixture) post(t *testing.T, req *PostDocumentRequest) *model.Document {
	t.Helper()
	doc, err := f.docs.Post(f.ctx, req)
	require.NoError(t, err)
	f.tick()
	return doc
}

func (f *fixture) quantity(t *testing.T, id uuid.UUID) int {
	t.Helper()
	e, err := f.stock.GetByID(f.ctx, id)
	require.NoError(t, err)
	return e.Quantity
}

// failQueriesOn makes every later query against table fail like a dropped connection.
func (f *fixture) failQueriesOn(t *testing.T, table string) {
	t.Helper()
	err := f.db.Callback().Query().Before("gorm:query").Register("test:fail_"+table, func(db *gorm.DB) {
		if db.Statement.Table == table {
			_ = db.AddError(errors.New("read tcp 10.0.0.5:5432: connection reset by peer"))
		}
	})
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
