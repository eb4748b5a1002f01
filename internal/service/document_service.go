package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/apperror"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DocumentService interface {
	// Post records a sale or purchase and its stock effect atomically, then
	// links a cash movement to it. A failed cash movement is logged and does
	// not undo the document.
	Post(ctx context.Context, req *PostDocumentRequest) (*model.Document, error)
	// Void reverses the stock effect of a document. Voiding twice is a no-op.
	Void(ctx context.Context, id uuid.UUID, actor string) (*model.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
}

type PostDocumentRequest struct {
	BranchID       uuid.UUID           `json:"branch_id" validate:"uuid_required"`
	UserID         uuid.UUID           `json:"user_id" validate:"uuid_required"`
	CounterpartyID *uuid.UUID          `json:"counterparty_id"`
	Operation      model.Operation     `json:"operation" validate:"required,oneof=SALE PURCHASE"`
	Kind           model.DocumentKind  `json:"kind" validate:"required,oneof=INVOICE RECEIPT"`
	Folio          string              `json:"folio" validate:"max=64"`
	Status         model.PaymentStatus `json:"status" validate:"omitempty,oneof=PENDING PAID"`
	Notes          string              `json:"notes"`
	Lines          []PostLineRequest   `json:"lines" validate:"required,min=1,dive"`
}

type PostLineRequest struct {
	ProductID   uuid.UUID        `json:"product_id" validate:"uuid_required"`
	Quantity    int              `json:"quantity" validate:"gt=0"`
	UnitPrice   *decimal.Decimal `json:"unit_price" validate:"omitempty,decimal_gte0"`
	DiscountPct decimal.Decimal  `json:"discount_pct" validate:"decimal_gte0"`
	Location    string           `json:"location" validate:"max=100"`
}

type documentService struct {
	txn          *repository.Transactor
	docs         repository.DocumentRepository
	stock        repository.StockRepository
	products     repository.ProductRepository
	branches     repository.BranchRepository
	users        repository.UserRepository
	counterparty repository.CounterpartyRepository
	cash         repository.CashRepository
	sessions     CashService
	stockCfg     config.StockConfig
	notifier     Notifier
	sessionGate
	log *zap.Logger
}

func NewDocumentService(
	txn *repository.Transactor,
	docs repository.DocumentRepository,
	stock repository.StockRepository,
	products repository.ProductRepository,
	branches repository.BranchRepository,
	users repository.UserRepository,
	counterparty repository.CounterpartyRepository,
	cash repository.CashRepository,
	sessions CashService,
	stockCfg config.StockConfig,
	notifier Notifier,
	loc *time.Location,
	now Clock,
	log *zap.Logger,
) DocumentService {
	return &documentService{
		txn:          txn,
		docs:         docs,
		stock:        stock,
		products:     products,
		branches:     branches,
		users:        users,
		counterparty: counterparty,
		cash:         cash,
		sessions:     sessions,
		stockCfg:     stockCfg,
		notifier:     notifier,
		sessionGate:  newSessionGate(loc, now),
		log:          log.Named("documents"),
	}
}

// folioFor builds "<first letter of the kind>-<unix seconds>".
func folioFor(kind model.DocumentKind, at time.Time) string {
	return fmt.Sprintf("%s-%d", string(kind)[:1], at.Unix())
}

func (s *documentService) validate(req *PostDocumentRequest) error {
	if err := validator.Check(req); err != nil {
		return err
	}
	for i, line := range req.Lines {
		if line.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
			return apperror.Newf(apperror.KindValidation, "line %d: discount must be between 0 and 100", i+1)
		}
	}
	return nil
}

func (s *documentService) Post(ctx context.Context, req *PostDocumentRequest) (*model.Document, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = model.StatusPaid
	}
	actor := req.UserID.String()

	var docID uuid.UUID
	var alerts []model.StockEntry
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		alerts = alerts[:0]
		docs := s.docs.WithTx(tx)
		stock := s.stock.WithTx(tx)
		products := s.products.WithTx(tx)

		if _, err := s.branches.WithTx(tx).LockByID(ctx, req.BranchID); err != nil {
			return err
		}
		if _, err := s.requireOpen(ctx, s.cash.WithTx(tx), req.BranchID); err != nil {
			return err
		}
		if _, err := s.users.WithTx(tx).FindByID(ctx, req.UserID); err != nil {
			return err
		}
		if req.CounterpartyID != nil {
			if _, err := s.counterparty.WithTx(tx).FindByID(ctx, *req.CounterpartyID); err != nil {
				return err
			}
		}

		now := s.now()
		folio := strings.TrimSpace(req.Folio)
		if folio == "" {
			folio = folioFor(req.Kind, now)
		}
		doc := &model.Document{
			BranchID:       req.BranchID,
			CounterpartyID: req.CounterpartyID,
			UserID:         req.UserID,
			Operation:      req.Operation,
			Kind:           req.Kind,
			Folio:          folio,
			Status:         model.StatusPending,
			IssuedAt:       now,
			Notes:          req.Notes,
		}
		doc.Stamp(actor)
		if err := docs.CreateHeader(ctx, doc); err != nil {
			return err
		}

		for i, in := range req.Lines {
			product, err := products.FindByID(ctx, in.ProductID)
			if apperror.KindOf(err) == apperror.KindNotFound {
				return apperror.Newf(apperror.KindNotFound, "line %d: product %s not found", i+1, in.ProductID)
			}
			if err != nil {
				return err
			}
			price := product.SalePrice
			if in.UnitPrice != nil {
				price = in.UnitPrice.Round(2)
			}

			location := strings.TrimSpace(in.Location)
			var entry *model.StockEntry
			if location != "" {
				entry, err = stock.LockByKey(ctx, req.BranchID, product.ID, location)
			} else {
				entry, err = stock.LockFirst(ctx, req.BranchID, product.ID)
			}
			if err != nil {
				return err
			}

			switch req.Operation {
			case model.OperationSale:
				if entry == nil || entry.Quantity < in.Quantity {
					where := ""
					if location != "" {
						where = fmt.Sprintf(" at %s", location)
					}
					return apperror.Newf(apperror.KindInsufficientStock, "insufficient stock for product %s (%s)%s",
						product.Name, product.ID, where)
				}
				if err := stock.AddQuantity(ctx, entry.ID, -in.Quantity, actor); err != nil {
					return err
				}
				entry.Quantity -= in.Quantity
				if entry.IsAlert() {
					alerts = append(alerts, *entry)
				}

			case model.OperationPurchase:
				if entry == nil {
					entry, err = s.openEntry(ctx, stock, req.BranchID, product.ID, location, in.Quantity, actor)
					if err != nil {
						return err
					}
				}
				if entry.Quantity+in.Quantity > entry.Maximum {
					return apperror.Newf(apperror.KindExceedsMaximum, "receiving %d unit(s) of %s at %s would exceed the maximum of %d",
						in.Quantity, product.Name, entry.Location, entry.Maximum)
				}
				if err := stock.AddQuantity(ctx, entry.ID, in.Quantity, actor); err != nil {
					return err
				}
			}

			line := &model.DocumentLine{
				DocumentID:  doc.ID,
				Position:    i + 1,
				ProductID:   product.ID,
				Quantity:    in.Quantity,
				UnitPrice:   price,
				DiscountPct: in.DiscountPct.Round(2),
				Location:    entry.Location,
			}
			if err := docs.CreateLine(ctx, line); err != nil {
				return err
			}
		}

		if err := docs.UpdateStatus(ctx, doc.ID, status, actor); err != nil {
			return err
		}
		docID = doc.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.FindByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	s.log.Info("document posted",
		zap.String("document_id", doc.ID.String()),
		zap.String("folio", doc.Folio),
		zap.String("operation", string(doc.Operation)),
		zap.String("total", doc.Total.StringFixed(2)))

	s.postCashMovement(ctx, doc)

	s.notifier.Publish(EventDocumentPosted, newDocumentEvent(doc))
	for _, e := range alerts {
		s.notifier.Publish(EventStockAlert, stockAlertEvent{
			EntryID:   e.ID,
			BranchID:  e.BranchID,
			ProductID: e.ProductID,
			Location:  e.Location,
			Quantity:  e.Quantity,
			Minimum:   e.Minimum,
		})
	}
	return doc, nil
}

// openEntry creates the entry a purchase receives into when none exists yet.
// Losing the insert race to a concurrent purchase replays the whole document.
func (s *documentService) openEntry(ctx context.Context, stock repository.StockRepository, branchID, productID uuid.UUID, location string, incoming int, actor string) (*model.StockEntry, error) {
	if location == "" {
		location = s.stockCfg.DefaultLocation
	}
	maximum := s.stockCfg.DefaultMaximum
	if incoming > maximum {
		maximum = incoming
	}
	entry := &model.StockEntry{
		BranchID:  branchID,
		ProductID: productID,
		Location:  location,
		Quantity:  0,
		Minimum:   s.stockCfg.DefaultMinimum,
		Maximum:   maximum,
	}
	entry.Stamp(actor)
	if err := stock.Create(ctx, entry); err != nil {
		if apperror.KindOf(err) == apperror.KindDuplicateKey {
			return nil, repository.MarkRetryable(err)
		}
		return nil, err
	}
	return entry, nil
}

// postCashMovement links the cash side of a committed document. It runs in
// its own transaction; orphaned documents are picked up by the repair job.
func (s *documentService) postCashMovement(ctx context.Context, doc *model.Document) {
	docID := doc.ID
	amount := doc.Total
	_, err := s.sessions.RecordMovement(ctx, &RecordMovementRequest{
		BranchID:    doc.BranchID,
		UserID:      doc.UserID,
		Kind:        movementKindFor(doc.Operation),
		Amount:      &amount,
		Description: fmt.Sprintf("Movement for document %s (%s)", doc.Folio, doc.Kind),
		DocumentID:  &docID,
	})
	if err != nil {
		s.log.Warn("document committed without cash movement",
			zap.String("document_id", doc.ID.String()),
			zap.String("folio", doc.Folio),
			zap.Error(err))
	}
}

func (s *documentService) Void(ctx context.Context, id uuid.UUID, actor string) (*model.Document, error) {
	voided := false
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		voided = false
		docs := s.docs.WithTx(tx)
		stock := s.stock.WithTx(tx)

		doc, err := docs.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if doc.Status == model.StatusVoided {
			return nil
		}

		for i := range doc.Lines {
			line := &doc.Lines[i]
			entry, err := stock.LockByKey(ctx, doc.BranchID, line.ProductID, line.Location)
			if err != nil {
				return err
			}

			switch doc.Operation {
			case model.OperationSale:
				if entry == nil {
					// the entry was removed after the sale: put the units back where they came from
					maximum := s.stockCfg.DefaultMaximum
					if line.Quantity > maximum {
						maximum = line.Quantity
					}
					entry = &model.StockEntry{
						BranchID:  doc.BranchID,
						ProductID: line.ProductID,
						Location:  line.Location,
						Minimum:   s.stockCfg.DefaultMinimum,
						Maximum:   maximum,
					}
					entry.Stamp(actor)
					if err := stock.Create(ctx, entry); err != nil {
						return err
					}
				}
				if err := stock.AddQuantity(ctx, entry.ID, line.Quantity, actor); err != nil {
					return err
				}
			case model.OperationPurchase:
				if entry == nil {
					s.log.Warn("voided purchase line has no stock entry to reverse",
						zap.String("document_id", doc.ID.String()),
						zap.String("product_id", line.ProductID.String()),
						zap.String("location", line.Location))
					continue
				}
				// may go negative when the units were sold meanwhile
				if err := stock.AddQuantity(ctx, entry.ID, -line.Quantity, actor); err != nil {
					return err
				}
			}
		}

		if err := docs.UpdateStatus(ctx, doc.ID, model.StatusVoided, actor); err != nil {
			return err
		}
		voided = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if voided {
		s.log.Info("document voided", zap.String("document_id", doc.ID.String()), zap.String("folio", doc.Folio))
		s.notifier.Publish(EventDocumentVoided, newDocumentEvent(doc))
	}
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return read(ctx, s.txn, func(ctx context.Context) (*model.Document, error) {
		return s.docs.FindByID(ctx, id)
	})
}
