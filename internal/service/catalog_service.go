package service

import (
	"context"
	"strings"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/apperror"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CatalogService interface {
	CreateBranch(ctx context.Context, req *CreateBranchRequest, actor string) (*model.Branch, error)
	UpdateBranch(ctx context.Context, id uuid.UUID, req *UpdateBranchRequest, actor string) (*model.Branch, error)
	GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	ListBranches(ctx context.Context) ([]model.Branch, error)
	SetPrimaryBranch(ctx context.Context, id uuid.UUID, actor string) (*model.Branch, error)

	CreateCategory(ctx context.Context, req *CreateCategoryRequest, actor string) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *UpdateCategoryRequest, actor string) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CategoryTree(ctx context.Context) ([]model.CategoryNode, error)

	CreateProduct(ctx context.Context, req *CreateProductRequest, actor string) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, actor string) (*model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateCounterparty(ctx context.Context, req *CounterpartyRequest, actor string) (*model.Counterparty, error)
	UpdateCounterparty(ctx context.Context, id uuid.UUID, req *UpdateCounterpartyRequest, actor string) (*model.Counterparty, error)
	GetCounterparty(ctx context.Context, id uuid.UUID) (*model.Counterparty, error)
	GetCounterpartyByTaxID(ctx context.Context, taxID string) (*model.Counterparty, error)

	CreateUser(ctx context.Context, req *CreateUserRequest, actor string) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)

	// Seed creates a primary branch and an administrator on an empty store.
	Seed(ctx context.Context) error
}

type CreateBranchRequest struct {
	Name      string  `json:"name" validate:"required,max=150"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	IsPrimary bool    `json:"is_primary"`
}

type UpdateBranchRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=150"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	IsPrimary *bool   `json:"is_primary"`
}

type CounterpartyRequest struct {
	TaxID      string `json:"tax_id" validate:"required,max=32"`
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
	Address    string `json:"address" validate:"omitempty,max=255"`
	IsCustomer bool   `json:"is_customer"`
	IsSupplier bool   `json:"is_supplier"`
}

type UpdateCounterpartyRequest struct {
	TaxID      *string `json:"tax_id" validate:"omitempty,min=1,max=32"`
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	Address    *string `json:"address" validate:"omitempty,max=255"`
	IsCustomer *bool   `json:"is_customer"`
	IsSupplier *bool   `json:"is_supplier"`
}

type CreateUserRequest struct {
	Name     string     `json:"name" validate:"required,max=255"`
	Email    string     `json:"email" validate:"required,email"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=SUPERADMIN ADMIN SELLER"`
	BranchID *uuid.UUID `json:"branch_id"`
}

type catalogService struct {
	txn          *repository.Transactor
	branches     repository.BranchRepository
	categories   repository.CategoryRepository
	products     repository.ProductRepository
	stock        repository.StockRepository
	counterparty repository.CounterpartyRepository
	users        repository.UserRepository
	log          *zap.Logger
}

func NewCatalogService(
	txn *repository.Transactor,
	branches repository.BranchRepository,
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	stock repository.StockRepository,
	counterparty repository.CounterpartyRepository,
	users repository.UserRepository,
	log *zap.Logger,
) CatalogService {
	return &catalogService{
		txn:          txn,
		branches:     branches,
		categories:   categories,
		products:     products,
		stock:        stock,
		counterparty: counterparty,
		users:        users,
		log:          log.Named("catalog"),
	}
}

// blankToNil maps "" to nil so optional unique columns stay NULL.
func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *catalogService) CreateBranch(ctx context.Context, req *CreateBranchRequest, actor string) (*model.Branch, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	branch := &model.Branch{
		Name:      strings.TrimSpace(req.Name),
		Address:   blankToNil(req.Address),
		Phone:     blankToNil(req.Phone),
		IsPrimary: req.IsPrimary,
	}
	branch.Stamp(actor)

	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		branches := s.branches.WithTx(tx)
		if err := branches.Create(ctx, branch); err != nil {
			return err
		}
		if branch.IsPrimary {
			return branches.ClearPrimaryExcept(ctx, branch.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *catalogService) UpdateBranch(ctx context.Context, id uuid.UUID, req *UpdateBranchRequest, actor string) (*model.Branch, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var updated *model.Branch
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		branches := s.branches.WithTx(tx)
		branch, err := branches.LockByID(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			branch.Name = strings.TrimSpace(*req.Name)
		}
		if req.Address != nil {
			branch.Address = blankToNil(req.Address)
		}
		if req.Phone != nil {
			branch.Phone = blankToNil(req.Phone)
		}
		if req.IsPrimary != nil {
			branch.IsPrimary = *req.IsPrimary
		}
		branch.UpdatedBy = actor

		if err := branches.Update(ctx, branch); err != nil {
			return err
		}
		if branch.IsPrimary {
			if err := branches.ClearPrimaryExcept(ctx, branch.ID); err != nil {
				return err
			}
		}
		updated = branch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *catalogService) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	return s.branches.FindByID(ctx, id)
}

func (s *catalogService) ListBranches(ctx context.Context) ([]model.Branch, error) {
	return s.branches.FindAll(ctx)
}

func (s *catalogService) SetPrimaryBranch(ctx context.Context, id uuid.UUID, actor string) (*model.Branch, error) {
	primary := true
	return s.UpdateBranch(ctx, id, &UpdateBranchRequest{IsPrimary: &primary}, actor)
}

func (s *catalogService) CreateCounterparty(ctx context.Context, req *CounterpartyRequest, actor string) (*model.Counterparty, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	cp := &model.Counterparty{
		TaxID:      strings.TrimSpace(req.TaxID),
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		IsCustomer: req.IsCustomer,
		IsSupplier: req.IsSupplier,
	}
	cp.Stamp(actor)
	if err := s.counterparty.Create(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *catalogService) UpdateCounterparty(ctx context.Context, id uuid.UUID, req *UpdateCounterpartyRequest, actor string) (*model.Counterparty, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	cp, err := s.counterparty.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.TaxID != nil {
		cp.TaxID = strings.TrimSpace(*req.TaxID)
	}
	if req.Name != nil {
		cp.Name = *req.Name
	}
	if req.Email != nil {
		cp.Email = *req.Email
	}
	if req.Phone != nil {
		cp.Phone = *req.Phone
	}
	if req.Address != nil {
		cp.Address = *req.Address
	}
	if req.IsCustomer != nil {
		cp.IsCustomer = *req.IsCustomer
	}
	if req.IsSupplier != nil {
		cp.IsSupplier = *req.IsSupplier
	}
	cp.UpdatedBy = actor

	if err := s.counterparty.Update(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *catalogService) GetCounterparty(ctx context.Context, id uuid.UUID) (*model.Counterparty, error) {
	return s.counterparty.FindByID(ctx, id)
}

func (s *catalogService) GetCounterpartyByTaxID(ctx context.Context, taxID string) (*model.Counterparty, error) {
	return s.counterparty.FindByTaxID(ctx, strings.TrimSpace(taxID))
}

func (s *catalogService) CreateUser(ctx context.Context, req *CreateUserRequest, actor string) (*model.User, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if req.BranchID != nil {
		if _, err := s.branches.FindByID(ctx, *req.BranchID); err != nil {
			return nil, err
		}
	}

	role := req.Role
	if role == "" {
		role = model.RoleSeller
	}
	user := &model.User{
		Name:     req.Name,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Role:     role,
		BranchID: req.BranchID,
		IsActive: true,
	}
	user.Stamp(actor)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *catalogService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *catalogService) Seed(ctx context.Context) error {
	n, err := s.branches.Count(ctx)
	if err != nil {
		return err
	}
	var primaryID *uuid.UUID
	if n == 0 {
		branch, err := s.CreateBranch(ctx, &CreateBranchRequest{Name: "Main Branch", IsPrimary: true}, "system")
		if err != nil {
			return err
		}
		primaryID = &branch.ID
		s.log.Info("seeded primary branch", zap.String("branch_id", branch.ID.String()))
	}

	if _, err := s.users.FindByEmail(ctx, "admin@example.com"); err == nil {
		return nil
	} else if apperror.KindOf(err) != apperror.KindNotFound {
		return err
	}
	admin, err := s.CreateUser(ctx, &CreateUserRequest{
		Name:     "Administrator",
		Email:    "admin@example.com",
		Role:     model.RoleSuperAdmin,
		BranchID: primaryID,
	}, "system")
	if err != nil {
		return err
	}
	s.log.Info("seeded administrator", zap.String("user_id", admin.ID.String()))
	return nil
}
