package service

import (
	"context"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event names pushed to connected clients.
const (
	EventDocumentPosted       = "document_posted"
	EventDocumentVoided       = "document_voided"
	EventCashSessionOpened    = "cash_session_opened"
	EventCashSessionClosed    = "cash_session_closed"
	EventCashMovementRecorded = "cash_movement_recorded"
	EventStockAlert           = "stock_alert"
)

// Notifier fans events out to listeners. Publish must not block.
type Notifier interface {
	Publish(event string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, any) {}

// NopNotifier discards every event.
var NopNotifier Notifier = nopNotifier{}

// Clock returns the current instant. Services read time only through it.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

type documentEvent struct {
	ID        uuid.UUID           `json:"id"`
	BranchID  uuid.UUID           `json:"branch_id"`
	Folio     string              `json:"folio"`
	Operation model.Operation     `json:"operation"`
	Status    model.PaymentStatus `json:"status"`
	Total     decimal.Decimal     `json:"total"`
	UserID    uuid.UUID           `json:"user_id"`
}

func newDocumentEvent(doc *model.Document) documentEvent {
	return documentEvent{
		ID:        doc.ID,
		BranchID:  doc.BranchID,
		Folio:     doc.Folio,
		Operation: doc.Operation,
		Status:    doc.Status,
		Total:     doc.Total,
		UserID:    doc.UserID,
	}
}

type stockAlertEvent struct {
	EntryID   uuid.UUID `json:"entry_id"`
	BranchID  uuid.UUID `json:"branch_id"`
	ProductID uuid.UUID `json:"product_id"`
	Location  string    `json:"location"`
	Quantity  int       `json:"quantity"`
	Minimum   int       `json:"minimum"`
}

// read runs fn through txn.Read and hands back its result.
func read[T any](ctx context.Context, txn *repository.Transactor, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := txn.Read(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
