package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/apperror"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CashService interface {
	Open(ctx context.Context, req *OpenSessionRequest) (*model.CashMovement, error)
	Status(ctx context.Context, branchID uuid.UUID) (*model.SessionStatus, error)
	Close(ctx context.Context, req *CloseSessionRequest) (*model.Reconciliation, error)
	// Summary reports the running balance of the current session, or of
	// sessionID when given.
	Summary(ctx context.Context, branchID uuid.UUID, sessionID *uuid.UUID) (*model.Reconciliation, error)
	SessionDetail(ctx context.Context, sessionID uuid.UUID) (*model.SessionDetail, error)
	History(ctx context.Context, req *HistoryRequest) ([]model.Reconciliation, error)
	RecordMovement(ctx context.Context, req *RecordMovementRequest) (*model.CashMovement, error)
	// RepairOrphanedDocuments posts the missing cash movement of every PAID
	// document issued since the given instant.
	RepairOrphanedDocuments(ctx context.Context, since time.Time) ([]model.CashMovement, error)
}

type OpenSessionRequest struct {
	BranchID      uuid.UUID       `json:"branch_id" validate:"uuid_required"`
	UserID        uuid.UUID       `json:"user_id" validate:"uuid_required"`
	InitialAmount decimal.Decimal `json:"initial_amount" validate:"decimal_gte0"`
	Description   string          `json:"description"`
}

type CloseSessionRequest struct {
	BranchID      uuid.UUID       `json:"branch_id" validate:"uuid_required"`
	UserID        uuid.UUID       `json:"user_id" validate:"uuid_required"`
	CountedAmount decimal.Decimal `json:"counted_amount" validate:"decimal_gte0"`
	SessionID     *uuid.UUID      `json:"session_id"`
	Description   string          `json:"description"`
}

type HistoryRequest struct {
	From     time.Time  `json:"from" validate:"required"`
	To       time.Time  `json:"to" validate:"required,gtfield=From"`
	BranchID *uuid.UUID `json:"branch_id"`
	UserID   *uuid.UUID `json:"user_id"`
}

type RecordMovementRequest struct {
	BranchID    uuid.UUID          `json:"branch_id" validate:"uuid_required"`
	UserID      uuid.UUID          `json:"user_id" validate:"uuid_required"`
	Kind        model.MovementKind `json:"kind" validate:"required,oneof=INCOME EXPENSE"`
	Amount      *decimal.Decimal   `json:"amount" validate:"omitempty,decimal_gte0"`
	Description string             `json:"description" validate:"max=500"`
	DocumentID  *uuid.UUID         `json:"document_id"`
}

type cashService struct {
	txn      *repository.Transactor
	cash     repository.CashRepository
	docs     repository.DocumentRepository
	branches repository.BranchRepository
	users    repository.UserRepository
	notifier Notifier
	sessionGate
	log *zap.Logger
}

// sessionGate derives drawer states from OPEN/CLOSE events. The calendar
// day is taken in loc.
type sessionGate struct {
	loc *time.Location
	now Clock
}

func newSessionGate(loc *time.Location, now Clock) sessionGate {
	if now == nil {
		now = SystemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return sessionGate{loc: loc, now: now}
}

func NewCashService(
	txn *repository.Transactor,
	cash repository.CashRepository,
	docs repository.DocumentRepository,
	branches repository.BranchRepository,
	users repository.UserRepository,
	notifier Notifier,
	loc *time.Location,
	now Clock,
	log *zap.Logger,
) CashService {
	return &cashService{
		txn:         txn,
		cash:        cash,
		docs:        docs,
		branches:    branches,
		users:       users,
		notifier:    notifier,
		sessionGate: newSessionGate(loc, now),
		log:         log.Named("cash"),
	}
}

// sameDay compares calendar days in the configured timezone.
func (s sessionGate) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(s.loc).Date()
	by, bm, bd := b.In(s.loc).Date()
	return ay == by && am == bm && ad == bd
}

func (s sessionGate) stateOf(last *model.CashMovement, now time.Time) model.SessionState {
	switch {
	case last == nil || last.Kind == model.MovementClose:
		return model.SessionClosed
	case s.sameDay(last.OccurredAt, now):
		return model.SessionOpen
	default:
		return model.SessionPendingClose
	}
}

func (s sessionGate) status(ctx context.Context, cash repository.CashRepository, branchID uuid.UUID) (*model.SessionStatus, error) {
	last, err := cash.LastSessionEvent(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return &model.SessionStatus{
		BranchID:  branchID,
		State:     s.stateOf(last, s.now()),
		LastEvent: last,
	}, nil
}

// requireOpen is the posting precondition shared with the document poster.
func (s sessionGate) requireOpen(ctx context.Context, cash repository.CashRepository, branchID uuid.UUID) (*model.SessionStatus, error) {
	st, err := s.status(ctx, cash, branchID)
	if err != nil {
		return nil, err
	}
	switch st.State {
	case model.SessionClosed:
		return nil, apperror.New(apperror.KindNoOpenSession, "cash session is closed, open it before operating")
	case model.SessionPendingClose:
		return nil, apperror.Newf(apperror.KindPendingClose, "cash session opened on %s must be closed first",
			st.LastEvent.OccurredAt.In(s.loc).Format("2006-01-02"))
	}
	return st, nil
}

func userName(u *model.User) string {
	if u == nil {
		return "unknown user"
	}
	return u.Name
}

func (s *cashService) Status(ctx context.Context, branchID uuid.UUID) (*model.SessionStatus, error) {
	return read(ctx, s.txn, func(ctx context.Context) (*model.SessionStatus, error) {
		if _, err := s.branches.FindByID(ctx, branchID); err != nil {
			return nil, err
		}
		return s.status(ctx, s.cash, branchID)
	})
}

func (s *cashService) Open(ctx context.Context, req *OpenSessionRequest) (*model.CashMovement, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var opened *model.CashMovement
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		cash := s.cash.WithTx(tx)
		if _, err := s.branches.WithTx(tx).LockByID(ctx, req.BranchID); err != nil {
			return err
		}
		user, err := s.users.WithTx(tx).FindByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		st, err := s.status(ctx, cash, req.BranchID)
		if err != nil {
			return err
		}
		if st.State != model.SessionClosed {
			return apperror.Newf(apperror.KindAlreadyOpen, "cash session already opened by %s", userName(st.LastEvent.User))
		}

		desc := req.Description
		if desc == "" {
			desc = fmt.Sprintf("Session opened by %s", user.Name)
		}
		m := &model.CashMovement{
			BranchID:    req.BranchID,
			UserID:      user.ID,
			Kind:        model.MovementOpen,
			Amount:      req.InitialAmount.Round(2),
			Description: desc,
			OccurredAt:  s.now(),
		}
		m.Stamp(user.ID.String())
		if err := cash.Create(ctx, m); err != nil {
			return err
		}
		m.User = user
		opened = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cash session opened",
		zap.String("branch_id", opened.BranchID.String()),
		zap.String("session_id", opened.ID.String()))
	s.notifier.Publish(EventCashSessionOpened, opened)
	return opened, nil
}

// findOpen resolves an OPEN movement by id within branch (any branch when branchID is nil).
func findOpen(ctx context.Context, cash repository.CashRepository, id uuid.UUID, branchID *uuid.UUID) (*model.CashMovement, error) {
	open, err := cash.FindByID(ctx, id)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return nil, apperror.New(apperror.KindNotFound, "cash session not found")
		}
		return nil, err
	}
	if open.Kind != model.MovementOpen || (branchID != nil && open.BranchID != *branchID) {
		return nil, apperror.New(apperror.KindNotFound, "cash session not found")
	}
	return open, nil
}

func (s *cashService) Close(ctx context.Context, req *CloseSessionRequest) (*model.Reconciliation, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var result *model.Reconciliation
	var closing *model.CashMovement
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		cash := s.cash.WithTx(tx)
		docs := s.docs.WithTx(tx)
		if _, err := s.branches.WithTx(tx).LockByID(ctx, req.BranchID); err != nil {
			return err
		}
		user, err := s.users.WithTx(tx).FindByID(ctx, req.UserID)
		if err != nil {
			return err
		}

		var open *model.CashMovement
		if req.SessionID != nil {
			open, err = findOpen(ctx, cash, *req.SessionID, &req.BranchID)
			if err != nil {
				return err
			}
			closed, err := cash.FindClose(ctx, open)
			if err != nil {
				return err
			}
			if closed != nil {
				return apperror.New(apperror.KindNoOpenSession, "cash session is already closed")
			}
		} else {
			last, err := cash.LastSessionEvent(ctx, req.BranchID)
			if err != nil {
				return err
			}
			if last == nil || last.Kind != model.MovementOpen {
				return apperror.New(apperror.KindNoOpenSession, "no open cash session for this branch")
			}
			open = last
		}

		if open.UserID != user.ID && !user.IsPrivileged() {
			return apperror.Newf(apperror.KindForbidden, "cash session was opened by %s and can only be closed by them or an administrator",
				userName(open.User))
		}

		now := s.now()
		rec, err := s.reconcile(ctx, docs, cash, open, now)
		if err != nil {
			return err
		}
		counted := req.CountedAmount.Round(2)
		variance := counted.Sub(rec.TheoreticalBalance)

		desc := req.Description
		if desc == "" {
			desc = fmt.Sprintf("Session closed by %s. Difference: %s", user.Name, variance.StringFixed(2))
		}
		closing = &model.CashMovement{
			BranchID:      req.BranchID,
			UserID:        user.ID,
			Kind:          model.MovementClose,
			Amount:        counted,
			Description:   desc,
			OccurredAt:    now,
			Variance:      &variance,
			SessionOpenID: &open.ID,
		}
		closing.Stamp(user.ID.String())
		if err := cash.Create(ctx, closing); err != nil {
			return err
		}

		rec.State = model.SessionClosed
		rec.CountedAmount = &counted
		rec.Difference = &variance
		rec.CloseID = &closing.ID
		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cash session closed",
		zap.String("branch_id", req.BranchID.String()),
		zap.String("session_id", result.SessionID.String()),
		zap.String("theoretical", result.TheoreticalBalance.StringFixed(2)),
		zap.String("variance", result.Difference.StringFixed(2)))
	s.notifier.Publish(EventCashSessionClosed, result)
	return result, nil
}

func (s *cashService) Summary(ctx context.Context, branchID uuid.UUID, sessionID *uuid.UUID) (*model.Reconciliation, error) {
	return read(ctx, s.txn, func(ctx context.Context) (*model.Reconciliation, error) {
		return s.summary(ctx, branchID, sessionID)
	})
}

func (s *cashService) summary(ctx context.Context, branchID uuid.UUID, sessionID *uuid.UUID) (*model.Reconciliation, error) {
	if _, err := s.branches.FindByID(ctx, branchID); err != nil {
		return nil, err
	}
	now := s.now()

	if sessionID != nil {
		open, err := findOpen(ctx, s.cash, *sessionID, &branchID)
		if err != nil {
			return nil, err
		}
		return s.sessionReconciliation(ctx, open, now)
	}

	last, err := s.cash.LastSessionEvent(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if last == nil || last.Kind != model.MovementOpen {
		return &model.Reconciliation{
			BranchID:           branchID,
			State:              model.SessionClosed,
			PeriodStart:        now,
			PeriodEnd:          now,
			StartingBalance:    decimal.Zero,
			Sales:              decimal.Zero,
			Purchases:          decimal.Zero,
			ExtraIn:            decimal.Zero,
			ExtraOut:           decimal.Zero,
			TheoreticalBalance: decimal.Zero,
		}, nil
	}
	rec, err := s.reconcile(ctx, s.docs, s.cash, last, now)
	if err != nil {
		return nil, err
	}
	rec.State = s.stateOf(last, now)
	return rec, nil
}

// sessionReconciliation covers [open, close) for closed sessions and [open, now) otherwise.
func (s *cashService) sessionReconciliation(ctx context.Context, open *model.CashMovement, now time.Time) (*model.Reconciliation, error) {
	closed, err := s.cash.FindClose(ctx, open)
	if err != nil {
		return nil, err
	}
	end := now
	if closed != nil {
		end = closed.OccurredAt
	}
	rec, err := s.reconcile(ctx, s.docs, s.cash, open, end)
	if err != nil {
		return nil, err
	}
	if closed == nil {
		rec.State = s.stateOf(open, now)
		return rec, nil
	}

	rec.State = model.SessionClosed
	counted := closed.Amount
	variance := counted.Sub(rec.TheoreticalBalance)
	if closed.Variance != nil {
		variance = *closed.Variance
	}
	rec.CountedAmount = &counted
	rec.Difference = &variance
	rec.CloseID = &closed.ID
	return rec, nil
}

func (s *cashService) SessionDetail(ctx context.Context, sessionID uuid.UUID) (*model.SessionDetail, error) {
	return read(ctx, s.txn, func(ctx context.Context) (*model.SessionDetail, error) {
		return s.sessionDetail(ctx, sessionID)
	})
}

func (s *cashService) sessionDetail(ctx context.Context, sessionID uuid.UUID) (*model.SessionDetail, error) {
	open, err := findOpen(ctx, s.cash, sessionID, nil)
	if err != nil {
		return nil, err
	}
	rec, err := s.sessionReconciliation(ctx, open, s.now())
	if err != nil {
		return nil, err
	}
	movements, err := s.cash.ListInPeriod(ctx, open.BranchID, rec.PeriodStart, rec.PeriodEnd)
	if err != nil {
		return nil, err
	}
	branchID := open.BranchID
	docs, err := s.docs.List(ctx, repository.DocumentFilter{
		BranchID: &branchID,
		From:     rec.PeriodStart,
		To:       rec.PeriodEnd,
	})
	if err != nil {
		return nil, err
	}
	return &model.SessionDetail{Reconciliation: *rec, Movements: movements, Documents: docs}, nil
}

func (s *cashService) History(ctx context.Context, req *HistoryRequest) ([]model.Reconciliation, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	return read(ctx, s.txn, func(ctx context.Context) ([]model.Reconciliation, error) {
		return s.history(ctx, req)
	})
}

func (s *cashService) history(ctx context.Context, req *HistoryRequest) ([]model.Reconciliation, error) {
	opens, err := s.cash.ListOpens(ctx, repository.OpenFilter{
		From:     req.From,
		To:       req.To,
		BranchID: req.BranchID,
		UserID:   req.UserID,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]model.Reconciliation, 0, len(opens))
	for i := range opens {
		rec, err := s.sessionReconciliation(ctx, &opens[i], now)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *cashService) RecordMovement(ctx context.Context, req *RecordMovementRequest) (*model.CashMovement, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if req.Amount == nil && req.DocumentID == nil {
		return nil, apperror.New(apperror.KindValidation, "amount is required when no document is linked")
	}

	var recorded *model.CashMovement
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		cash := s.cash.WithTx(tx)
		if _, err := s.branches.WithTx(tx).LockByID(ctx, req.BranchID); err != nil {
			return err
		}
		user, err := s.users.WithTx(tx).FindByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		st, err := s.status(ctx, cash, req.BranchID)
		if err != nil {
			return err
		}
		if st.State == model.SessionClosed {
			return apperror.New(apperror.KindNoOpenSession, "cash session is closed, open it before recording movements")
		}

		m := &model.CashMovement{
			BranchID:    req.BranchID,
			UserID:      user.ID,
			Kind:        req.Kind,
			Description: req.Description,
			DocumentID:  req.DocumentID,
			OccurredAt:  s.now(),
		}
		if req.Amount != nil {
			m.Amount = req.Amount.Round(2)
		}
		if req.DocumentID != nil {
			doc, err := s.docs.WithTx(tx).FindByID(ctx, *req.DocumentID)
			if err != nil {
				return err
			}
			if doc.BranchID != req.BranchID {
				return apperror.New(apperror.KindValidation, "document belongs to another branch")
			}
			if doc.Status == model.StatusVoided {
				return apperror.Newf(apperror.KindValidation, "document %s is voided", doc.Folio)
			}
			if req.Amount == nil {
				m.Amount = doc.Total
			}
			if m.Description == "" {
				m.Description = fmt.Sprintf("Movement for document %s (%s)", doc.Folio, doc.Kind)
			}
		}
		m.Stamp(user.ID.String())
		if err := cash.Create(ctx, m); err != nil {
			return err
		}
		m.User = user
		recorded = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(EventCashMovementRecorded, recorded)
	return recorded, nil
}

func (s *cashService) RepairOrphanedDocuments(ctx context.Context, since time.Time) ([]model.CashMovement, error) {
	orphans, err := s.docs.ListOrphaned(ctx, nil, since, time.Time{})
	if err != nil {
		return nil, err
	}

	repaired := make([]model.CashMovement, 0, len(orphans))
	for i := range orphans {
		doc := &orphans[i]
		var created *model.CashMovement
		err := s.txn.Do(ctx, func(tx *gorm.DB) error {
			cash := s.cash.WithTx(tx)
			locked, err := s.docs.WithTx(tx).LockByID(ctx, doc.ID)
			if err != nil {
				return err
			}
			n, err := cash.CountLinked(ctx, doc.ID)
			if err != nil {
				return err
			}
			if n > 0 || locked.Status != model.StatusPaid {
				return nil
			}
			docID := locked.ID
			m := &model.CashMovement{
				BranchID:    locked.BranchID,
				UserID:      locked.UserID,
				Kind:        movementKindFor(locked.Operation),
				Amount:      locked.Total,
				DocumentID:  &docID,
				Description: fmt.Sprintf("Reconciled movement for document %s (%s)", locked.Folio, locked.Kind),
				OccurredAt:  locked.IssuedAt,
			}
			m.Stamp("reconciler")
			if err := cash.Create(ctx, m); err != nil {
				return err
			}
			created = m
			return nil
		})
		if err != nil {
			s.log.Error("failed to repair orphaned document",
				zap.String("document_id", doc.ID.String()), zap.String("folio", doc.Folio), zap.Error(err))
			return repaired, err
		}
		if created != nil {
			repaired = append(repaired, *created)
			s.log.Info("repaired orphaned document",
				zap.String("document_id", doc.ID.String()), zap.String("folio", doc.Folio))
		}
	}
	return repaired, nil
}

func movementKindFor(op model.Operation) model.MovementKind {
	if op == model.OperationPurchase {
		return model.MovementExpense
	}
	return model.MovementIncome
}

// reconcile computes the drawer balance of the session opened by open over [open, end):
// theoretical = start + sales + extraIn - purchases - extraOut. Movements linked
// to a document are left out of extraIn/extraOut; the document already counts.
func (s *cashService) reconcile(ctx context.Context, docs repository.DocumentRepository, cash repository.CashRepository, open *model.CashMovement, end time.Time) (*model.Reconciliation, error) {
	branchID := open.BranchID
	paid, err := docs.List(ctx, repository.DocumentFilter{
		BranchID: &branchID,
		Status:   model.StatusPaid,
		From:     open.OccurredAt,
		To:       end,
	})
	if err != nil {
		return nil, err
	}
	movements, err := cash.ListInPeriod(ctx, branchID, open.OccurredAt, end)
	if err != nil {
		return nil, err
	}

	sales, purchases := decimal.Zero, decimal.Zero
	activity := newActivityTally()
	for i := range paid {
		doc := &paid[i]
		for j := range doc.Lines {
			line := &doc.Lines[j]
			net := line.Net()
			switch doc.Operation {
			case model.OperationSale:
				sales = sales.Add(net)
			case model.OperationPurchase:
				purchases = purchases.Add(net)
			}
			activity.add(doc.Operation, line, net)
		}
	}

	extraIn, extraOut := decimal.Zero, decimal.Zero
	for i := range movements {
		m := &movements[i]
		if m.IsLinked() {
			continue
		}
		switch m.Kind {
		case model.MovementIncome:
			extraIn = extraIn.Add(m.Amount)
		case model.MovementExpense:
			extraOut = extraOut.Add(m.Amount)
		}
	}

	sales, purchases = sales.Round(2), purchases.Round(2)
	start := open.Amount
	openID, openedBy := open.ID, open.UserID
	return &model.Reconciliation{
		SessionID:          &openID,
		BranchID:           branchID,
		OpenedBy:           &openedBy,
		OpenedByName:       userName(open.User),
		State:              model.SessionOpen,
		PeriodStart:        open.OccurredAt,
		PeriodEnd:          end,
		StartingBalance:    start,
		Sales:              sales,
		Purchases:          purchases,
		ExtraIn:            extraIn,
		ExtraOut:           extraOut,
		TheoreticalBalance: start.Add(sales).Add(extraIn).Sub(purchases).Sub(extraOut),
		Products:           activity.rows(),
	}, nil
}

// activityTally accumulates per-product quantities and totals.
type activityTally map[uuid.UUID]*model.ProductActivity

func newActivityTally() activityTally {
	return activityTally{}
}

func (t activityTally) add(op model.Operation, line *model.DocumentLine, net decimal.Decimal) {
	row, ok := t[line.ProductID]
	if !ok {
		row = &model.ProductActivity{
			ProductID:     line.ProductID,
			SoldTotal:     decimal.Zero,
			PurchaseTotal: decimal.Zero,
		}
		if line.Product != nil {
			row.ProductName = line.Product.Name
		}
		t[line.ProductID] = row
	}
	switch op {
	case model.OperationSale:
		row.SoldQty += line.Quantity
		row.SoldTotal = row.SoldTotal.Add(net)
	case model.OperationPurchase:
		row.PurchasedQty += line.Quantity
		row.PurchaseTotal = row.PurchaseTotal.Add(net)
	}
}

func (t activityTally) rows() []model.ProductActivity {
	out := make([]model.ProductActivity, 0, len(t))
	for _, row := range t {
		r := *row
		r.SoldTotal = r.SoldTotal.Round(2)
		r.PurchaseTotal = r.PurchaseTotal.Round(2)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out
}
