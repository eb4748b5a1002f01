package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestPrimaryBranchIsExclusive(t *testing.T) {
	f := newFixture(t)

	north, err := f.catalog.CreateBranch(f.ctx, &CreateBranchRequest{Name: "Norte", IsPrimary: true}, "test")
	require.NoError(t, err)

	centro, err := f.catalog.GetBranch(f.ctx, f.branch.ID)
	require.NoError(t, err)
	assert.False(t, centro.IsPrimary)

	_, err = f.catalog.SetPrimaryBranch(f.ctx, f.branch.ID, "test")
	require.NoError(t, err)

	branches, err := f.catalog.ListBranches(f.ctx)
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, f.branch.ID, branches[0].ID)
	assert.True(t, branches[0].IsPrimary)
	assert.Equal(t, north.ID, branches[1].ID)
	assert.False(t, branches[1].IsPrimary)
}

func TestBranchUniqueness(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateBranch(f.ctx, &CreateBranchRequest{Name: "Centro"}, "test")
	assert.True(t, errors.Is(err, apperror.ErrDuplicateKey))

	_, err = f.catalog.CreateBranch(f.ctx, &CreateBranchRequest{Name: "Sur", Phone: strPtr("555-0101")}, "test")
	require.NoError(t, err)
	_, err = f.catalog.CreateBranch(f.ctx, &CreateBranchRequest{Name: "Este", Phone: strPtr("555-0101")}, "test")
	assert.True(t, errors.Is(err, apperror.ErrDuplicateKey))

	// blank phones stay NULL and never collide
	_, err = f.catalog.CreateBranch(f.ctx, &CreateBranchRequest{Name: "Oeste", Phone: strPtr(" ")}, "test")
	require.NoError(t, err)
	_, err = f.catalog.CreateBranch(f.ctx, &CreateBranchRequest{Name: "Puerto", Phone: strPtr("")}, "test")
	require.NoError(t, err)
}

func TestUpdateBranchIsPartial(t *testing.T) {
	f := newFixture(t)

	b, err := f.catalog.UpdateBranch(f.ctx, f.branch.ID, &UpdateBranchRequest{Address: strPtr("Av. Principal 1")}, "test")
	require.NoError(t, err)
	assert.Equal(t, "Centro", b.Name)
	require.NotNil(t, b.Address)
	assert.Equal(t, "Av. Principal 1", *b.Address)
	assert.True(t, b.IsPrimary)

	_, err = f.catalog.UpdateBranch(f.ctx, uuid.New(), &UpdateBranchRequest{Name: strPtr("x")}, "test")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestCategoryTreeIsDepthFirst(t *testing.T) {
	f := newFixture(t)
	bev, err := f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Beverages"}, "test")
	require.NoError(t, err)
	_, err = f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Sodas", ParentID: &bev.ID}, "test")
	require.NoError(t, err)
	_, err = f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Bakery", ParentID: &uuid.Nil}, "test")
	require.NoError(t, err)

	tree, err := f.catalog.CategoryTree(f.ctx)
	require.NoError(t, err)

	labels := make([]string, 0, len(tree))
	for _, n := range tree {
		labels = append(labels, n.Label)
	}
	assert.ElementsMatch(t, []string{"Beverages", "— Sodas", "Bakery"}, labels)
	for i, n := range tree {
		if n.Name == "Sodas" {
			require.Positive(t, i)
			assert.Equal(t, "Beverages", tree[i-1].Name, "children follow their parent")
			assert.Equal(t, 1, n.Depth)
		}
	}
}

func TestCategoryCannotMoveUnderDescendant(t *testing.T) {
	f := newFixture(t)
	bev, err := f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Beverages"}, "test")
	require.NoError(t, err)
	sodas, err := f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Sodas", ParentID: &bev.ID}, "test")
	require.NoError(t, err)

	_, err = f.catalog.UpdateCategory(f.ctx, bev.ID, &UpdateCategoryRequest{ParentID: &sodas.ID}, "test")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = f.catalog.UpdateCategory(f.ctx, bev.ID, &UpdateCategoryRequest{ParentID: &bev.ID}, "test")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	moved, err := f.catalog.UpdateCategory(f.ctx, sodas.ID, &UpdateCategoryRequest{ParentID: &uuid.Nil}, "test")
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
}

func TestCrossingCategoryMovesKeepTreeAcyclic(t *testing.T) {
	f := newFixture(t)
	a, err := f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Dairy"}, "test")
	require.NoError(t, err)
	b, err := f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Cheese"}, "test")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	moves := [][2]uuid.UUID{{a.ID, b.ID}, {b.ID, a.ID}}
	for i, m := range moves {
		wg.Add(1)
		go func(i int, id, parent uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.catalog.UpdateCategory(f.ctx, id, &UpdateCategoryRequest{ParentID: &parent}, "test")
		}(i, m[0], m[1])
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.True(t, errors.Is(err, apperror.ErrValidation), err.Error())
		}
	}
	assert.Equal(t, 1, failed)

	tree, err := f.catalog.CategoryTree(f.ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, 0, tree[0].Depth)
	assert.Equal(t, 1, tree[1].Depth)
}

func TestCategorySubtreeStopsOnCycles(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	idx := buildCategoryIndex([]model.Category{
		{BaseModel: model.BaseModel{ID: a}, Name: "A", ParentID: &b},
		{BaseModel: model.BaseModel{ID: b}, Name: "B", ParentID: &a},
		{BaseModel: model.BaseModel{ID: c}, Name: "C", ParentID: &b},
	})

	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, idx.subtree(a))
	assert.Empty(t, idx.flatten())
}

func TestDeleteCategoryWithProductsInSubtree(t *testing.T) {
	f := newFixture(t)
	bev, err := f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Beverages"}, "test")
	require.NoError(t, err)
	sodas, err := f.catalog.CreateCategory(f.ctx, &CreateCategoryRequest{Name: "Sodas", ParentID: &bev.ID}, "test")
	require.NoError(t, err)
	cola, err := f.catalog.CreateProduct(f.ctx, &CreateProductRequest{Name: "Cola", CategoryID: &sodas.ID}, "test")
	require.NoError(t, err)

	err = f.catalog.DeleteCategory(f.ctx, bev.ID)
	assert.True(t, errors.Is(err, apperror.ErrHasHistory))

	require.NoError(t, f.catalog.DeleteProduct(f.ctx, cola.ID))
	require.NoError(t, f.catalog.DeleteCategory(f.ctx, bev.ID))

	tree, err := f.catalog.CategoryTree(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestProductBarcodeUniqueAndLookup(t *testing.T) {
	f := newFixture(t)

	p, err := f.catalog.CreateProduct(f.ctx, &CreateProductRequest{Name: "Milk", Barcode: strPtr("7801234"), SalePrice: dec("1.99")}, "test")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultUnit, p.Unit)

	_, err = f.catalog.CreateProduct(f.ctx, &CreateProductRequest{Name: "Milk 2", Barcode: strPtr("7801234")}, "test")
	assert.True(t, errors.Is(err, apperror.ErrDuplicateKey))

	got, err := f.catalog.GetProductByBarcode(f.ctx, " 7801234 ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assertDec(t, "1.99", got.SalePrice)

	_, err = f.catalog.GetProductByBarcode(f.ctx, "nope")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDeleteProductGuards(t *testing.T) {
	f := newFixture(t)

	err := f.catalog.DeleteProduct(f.ctx, f.product.ID)
	assert.True(t, errors.Is(err, apperror.ErrHasPhysicalStock))

	f.open(t, f.seller, "0")
	f.post(t, f.saleRequest(5))
	err = f.catalog.DeleteProduct(f.ctx, f.product.ID)
	assert.True(t, errors.Is(err, apperror.ErrHasHistory))

	fresh, err := f.catalog.CreateProduct(f.ctx, &CreateProductRequest{Name: "Unsold"}, "test")
	require.NoError(t, err)
	entry, err := f.stock.Create(f.ctx, &CreateStockRequest{BranchID: f.branch.ID, ProductID: fresh.ID}, "test")
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeleteProduct(f.ctx, fresh.ID))
	_, err = f.stock.GetByID(f.ctx, entry.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "empty entries go with the product")
}

func TestCounterpartyCRUD(t *testing.T) {
	f := newFixture(t)

	cp, err := f.catalog.CreateCounterparty(f.ctx, &CounterpartyRequest{TaxID: "76.123.456-7", Name: "Acme", IsSupplier: true}, "test")
	require.NoError(t, err)

	_, err = f.catalog.CreateCounterparty(f.ctx, &CounterpartyRequest{TaxID: "76.123.456-7", Name: "Other"}, "test")
	assert.True(t, errors.Is(err, apperror.ErrDuplicateKey))

	yes := true
	updated, err := f.catalog.UpdateCounterparty(f.ctx, cp.ID, &UpdateCounterpartyRequest{IsCustomer: &yes}, "test")
	require.NoError(t, err)
	assert.True(t, updated.IsCustomer)
	assert.True(t, updated.IsSupplier)

	got, err := f.catalog.GetCounterpartyByTaxID(f.ctx, "76.123.456-7")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	_, err = f.catalog.CreateCounterparty(f.ctx, &CounterpartyRequest{TaxID: "1", Name: "Bad", Email: "not-an-email"}, "test")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestPostWithCounterparty(t *testing.T) {
	f := newFixture(t)
	cp, err := f.catalog.CreateCounterparty(f.ctx, &CounterpartyRequest{TaxID: "99", Name: "Walk-in", IsCustomer: true}, "test")
	require.NoError(t, err)
	f.open(t, f.seller, "0")

	req := f.saleRequest(1)
	req.CounterpartyID = &cp.ID
	doc := f.post(t, req)
	require.NotNil(t, doc.CounterpartyID)
	assert.Equal(t, cp.ID, *doc.CounterpartyID)

	missing := uuid.New()
	req.CounterpartyID = &missing
	_, err = f.docs.Post(f.ctx, req)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestUsers(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, model.RoleSeller, f.seller.Role)
	assert.False(t, f.seller.IsPrivileged())
	assert.True(t, f.admin.IsPrivileged())

	_, err := f.catalog.CreateUser(f.ctx, &CreateUserRequest{Name: "Dup", Email: "SAM@example.com"}, "test")
	assert.True(t, errors.Is(err, apperror.ErrDuplicateKey), "emails are case-insensitive")

	missing := uuid.New()
	_, err = f.catalog.CreateUser(f.ctx, &CreateUserRequest{Name: "Lost", Email: "lost@example.com", BranchID: &missing}, "test")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestSeedIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	branches := repository.NewBranchRepo(db)
	users := repository.NewUserRepo(db)
	catalog := NewCatalogService(
		repository.NewTransactor(db, 5*time.Second, 3, zap.NewNop()),
		branches,
		repository.NewCategoryRepo(db),
		repository.NewProductRepo(db),
		repository.NewStockRepo(db),
		repository.NewCounterpartyRepo(db),
		users,
		zap.NewNop(),
	)

	require.NoError(t, catalog.Seed(ctx))
	require.NoError(t, catalog.Seed(ctx))

	all, err := branches.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsPrimary)

	admin, err := users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, admin.Role)
	require.NotNil(t, admin.BranchID)
	assert.Equal(t, all[0].ID, *admin.BranchID)
}
