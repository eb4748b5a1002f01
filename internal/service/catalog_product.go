package service

import (
	"context"
	"strings"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/pkg/apperror"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Barcode     *string         `json:"barcode" validate:"omitempty,max=64"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	NetCost     decimal.Decimal `json:"net_cost" validate:"decimal_gte0"`
	SalePrice   decimal.Decimal `json:"sale_price" validate:"decimal_gte0"`
	Unit        string          `json:"unit" validate:"omitempty,max=20"`
}

type UpdateProductRequest struct {
	Barcode     *string          `json:"barcode" validate:"omitempty,max=64"`
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	NetCost     *decimal.Decimal `json:"net_cost" validate:"omitempty,decimal_gte0"`
	SalePrice   *decimal.Decimal `json:"sale_price" validate:"omitempty,decimal_gte0"`
	Unit        *string          `json:"unit" validate:"omitempty,min=1,max=20"`
}

func (s *catalogService) CreateProduct(ctx context.Context, req *CreateProductRequest, actor string) (*model.Product, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	product := &model.Product{
		Barcode:     blankToNil(req.Barcode),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CategoryID:  normalizeParent(req.CategoryID),
		NetCost:     req.NetCost.Round(2),
		SalePrice:   req.SalePrice.Round(2),
		Unit:        req.Unit,
	}
	if product.Unit == "" {
		product.Unit = model.DefaultUnit
	}
	if product.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *product.CategoryID); err != nil {
			return nil, err
		}
	}
	product.Stamp(actor)
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, actor string) (*model.Product, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Barcode != nil {
		product.Barcode = blankToNil(req.Barcode)
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.CategoryID != nil {
		product.CategoryID = normalizeParent(req.CategoryID)
		if product.CategoryID != nil {
			if _, err := s.categories.FindByID(ctx, *product.CategoryID); err != nil {
				return nil, err
			}
		}
		product.Category = nil
	}
	if req.NetCost != nil {
		product.NetCost = req.NetCost.Round(2)
	}
	if req.SalePrice != nil {
		product.SalePrice = req.SalePrice.Round(2)
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	product.UpdatedBy = actor

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *catalogService) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	return s.products.FindByBarcode(ctx, strings.TrimSpace(barcode))
}

// DeleteProduct refuses products referenced by a document line or still
// holding stock. Empty stock entries go with the product.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.txn.Do(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		stock := s.stock.WithTx(tx)

		if _, err := products.FindByID(ctx, id); err != nil {
			return err
		}
		lines, err := products.CountDocumentLines(ctx, id)
		if err != nil {
			return err
		}
		if lines > 0 {
			return apperror.Newf(apperror.KindHasHistory, "product is referenced by %d document line(s)", lines)
		}
		total, err := stock.PhysicalUnits(ctx, id)
		if err != nil {
			return err
		}
		if total > 0 {
			return apperror.Newf(apperror.KindHasPhysicalStock, "product still has %d unit(s) in stock", total)
		}
		if err := stock.DeleteDepleted(ctx, id); err != nil {
			return err
		}
		return products.Delete(ctx, id)
	})
}
