package service

import (
	"context"
	"strings"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/apperror"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StockService interface {
	// Get returns nil, nil when no entry matches. An empty location picks the
	// oldest entry of the product at the branch.
	Get(ctx context.Context, branchID, productID uuid.UUID, location string) (*model.StockEntry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error)
	Create(ctx context.Context, req *CreateStockRequest, actor string) (*model.StockEntry, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateStockRequest, actor string) (*model.StockEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByBranch(ctx context.Context, branchID uuid.UUID, onlyAlerts bool) ([]model.StockEntry, error)
	// AdjustQuantity is a manual correction. The result must stay within [0, maximum].
	AdjustQuantity(ctx context.Context, req *AdjustStockRequest, actor string) (*model.StockEntry, error)
}

type CreateStockRequest struct {
	BranchID  uuid.UUID `json:"branch_id" validate:"uuid_required"`
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Location  string    `json:"location" validate:"omitempty,max=100"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
	Minimum   *int      `json:"minimum" validate:"omitempty,gte=0"`
	Maximum   *int      `json:"maximum" validate:"omitempty,gte=0"`
}

type UpdateStockRequest struct {
	Location *string `json:"location" validate:"omitempty,min=1,max=100"`
	Quantity *int    `json:"quantity" validate:"omitempty,gte=0"`
	Minimum  *int    `json:"minimum" validate:"omitempty,gte=0"`
	Maximum  *int    `json:"maximum" validate:"omitempty,gte=0"`
}

type AdjustStockRequest struct {
	BranchID  uuid.UUID `json:"branch_id" validate:"uuid_required"`
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Location  string    `json:"location" validate:"required,max=100"`
	Delta     int       `json:"delta" validate:"required"`
}

type stockService struct {
	txn      *repository.Transactor
	stock    repository.StockRepository
	branches repository.BranchRepository
	products repository.ProductRepository
	cfg      config.StockConfig
	log      *zap.Logger
}

func NewStockService(
	txn *repository.Transactor,
	stock repository.StockRepository,
	branches repository.BranchRepository,
	products repository.ProductRepository,
	cfg config.StockConfig,
	log *zap.Logger,
) StockService {
	return &stockService{
		txn:      txn,
		stock:    stock,
		branches: branches,
		products: products,
		cfg:      cfg,
		log:      log.Named("stock"),
	}
}

func exceedsMaximum(quantity, maximum int) error {
	return apperror.Newf(apperror.KindExceedsMaximum, "quantity %d exceeds maximum %d", quantity, maximum)
}

func (s *stockService) Get(ctx context.Context, branchID, productID uuid.UUID, location string) (*model.StockEntry, error) {
	return read(ctx, s.txn, func(ctx context.Context) (*model.StockEntry, error) {
		if location == "" {
			return s.stock.LockFirst(ctx, branchID, productID)
		}
		return s.stock.LockByKey(ctx, branchID, productID, location)
	})
}

func (s *stockService) GetByID(ctx context.Context, id uuid.UUID) (*model.StockEntry, error) {
	return read(ctx, s.txn, func(ctx context.Context) (*model.StockEntry, error) {
		return s.stock.FindByID(ctx, id)
	})
}

func (s *stockService) Create(ctx context.Context, req *CreateStockRequest, actor string) (*model.StockEntry, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	entry := &model.StockEntry{
		BranchID:  req.BranchID,
		ProductID: req.ProductID,
		Location:  strings.TrimSpace(req.Location),
		Quantity:  req.Quantity,
		Minimum:   s.cfg.DefaultMinimum,
		Maximum:   s.cfg.DefaultMaximum,
	}
	if entry.Location == "" {
		entry.Location = s.cfg.DefaultLocation
	}
	if req.Minimum != nil {
		entry.Minimum = *req.Minimum
	}
	if req.Maximum != nil {
		entry.Maximum = *req.Maximum
	}
	if entry.Quantity > entry.Maximum {
		return nil, exceedsMaximum(entry.Quantity, entry.Maximum)
	}
	entry.Stamp(actor)

	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)
		if _, err := s.branches.WithTx(tx).FindByID(ctx, entry.BranchID); err != nil {
			return err
		}
		if _, err := s.products.WithTx(tx).FindByID(ctx, entry.ProductID); err != nil {
			return err
		}
		existing, err := stock.LockByKey(ctx, entry.BranchID, entry.ProductID, entry.Location)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Newf(apperror.KindDuplicateKey, "stock entry already exists for this product at location %q", entry.Location)
		}
		return stock.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Update merges the supplied fields over the stored entry and re-checks the
// maximum against the merged values.
func (s *stockService) Update(ctx context.Context, id uuid.UUID, req *UpdateStockRequest, actor string) (*model.StockEntry, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var updated *model.StockEntry
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)
		entry, err := stock.LockByID(ctx, id)
		if err != nil {
			return err
		}

		if req.Location != nil {
			entry.Location = strings.TrimSpace(*req.Location)
		}
		if req.Quantity != nil {
			entry.Quantity = *req.Quantity
		}
		if req.Minimum != nil {
			entry.Minimum = *req.Minimum
		}
		if req.Maximum != nil {
			entry.Maximum = *req.Maximum
		}
		if entry.Quantity > entry.Maximum {
			return exceedsMaximum(entry.Quantity, entry.Maximum)
		}
		entry.UpdatedBy = actor

		if err := stock.Update(ctx, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete refuses entries that still hold units; they must be zeroed first.
func (s *stockService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.txn.Do(ctx, func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)
		entry, err := stock.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if entry.Quantity > 0 {
			return apperror.Newf(apperror.KindHasPhysicalStock, "stock entry still holds %d unit(s)", entry.Quantity)
		}
		return stock.Delete(ctx, id)
	})
}

func (s *stockService) ListByBranch(ctx context.Context, branchID uuid.UUID, onlyAlerts bool) ([]model.StockEntry, error) {
	return read(ctx, s.txn, func(ctx context.Context) ([]model.StockEntry, error) {
		if _, err := s.branches.FindByID(ctx, branchID); err != nil {
			return nil, err
		}
		return s.stock.ListByBranch(ctx, branchID, onlyAlerts)
	})
}

func (s *stockService) AdjustQuantity(ctx context.Context, req *AdjustStockRequest, actor string) (*model.StockEntry, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var adjusted *model.StockEntry
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)
		entry, err := stock.LockByKey(ctx, req.BranchID, req.ProductID, req.Location)
		if err != nil {
			return err
		}
		if entry == nil {
			return apperror.Newf(apperror.KindNotFound, "no stock entry for this product at location %q", req.Location)
		}
		next := entry.Quantity + req.Delta
		if next < 0 {
			return apperror.Newf(apperror.KindInsufficientStock, "adjustment would leave %d unit(s) at location %q", next, entry.Location)
		}
		if next > entry.Maximum {
			return exceedsMaximum(next, entry.Maximum)
		}
		if err := stock.AddQuantity(ctx, entry.ID, req.Delta, actor); err != nil {
			return err
		}
		entry.Quantity = next
		adjusted = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("stock adjusted",
		zap.String("entry_id", adjusted.ID.String()),
		zap.Int("delta", req.Delta),
		zap.Int("quantity", adjusted.Quantity))
	return adjusted, nil
}
