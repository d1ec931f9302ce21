package billing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kirana-erp/kirana-erp/internal/ledger"
	"github.com/kirana-erp/kirana-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBill(ctx context.Context, ownerID, billID int64) (*Bill, error)
	ListBills(ctx context.Context, ownerID int64, limit, offset int) ([]Bill, int, error)
	ListBillPayments(ctx context.Context, ownerID, billID int64) ([]PaymentRecord, error)
	GetCustomerPhone(ctx context.Context, ownerID, customerID int64) (string, error)
}

// PaymentStateUpdate carries the mutable payment fields of a bill.
type PaymentStateUpdate struct {
	Status        PaymentStatus
	IsCredit      bool
	CreditAmount  float64
	CreditPaid    float64
	CreditBalance float64
}

// TxRepository exposes the operations available inside the bill transaction.
type TxRepository interface {
	ProductsForUpdate(ctx context.Context, ownerID int64, ids []int64) (map[int64]ProductSnapshot, error)
	DecrementStock(ctx context.Context, ownerID, productID int64, qty float64) error
	NextBillNumber(ctx context.Context, ownerID int64, day time.Time) (string, error)
	InsertBill(ctx context.Context, b *Bill) (int64, error)
	InsertLineItems(ctx context.Context, billID int64, items []BillLineItem) error
	InsertLedgerRows(ctx context.Context, rows []ledger.Row) error
	InsertPaymentRecord(ctx context.Context, rec PaymentRecord) (int64, error)
	BillForUpdate(ctx context.Context, ownerID, billID int64) (*Bill, error)
	UpdatePaymentState(ctx context.Context, billID int64, st PaymentStateUpdate) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// AllowNegativeStock switches the stock policy from strict (reject the
	// whole bill on any shortage) to permissive (allow negative stock and
	// flag the bill for review).
	AllowNegativeStock bool
}

// Service orchestrates bill composition and the payment state machine.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	events      EventPublisher
	logger      *slog.Logger
	allowNeg    bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, events EventPublisher, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, events: events, logger: logger, allowNeg: cfg.AllowNegativeStock}
}

// CreateBill validates the request and runs the atomic pipeline: lock
// products, check and decrement stock, write the bill with its line items,
// project sales ledger rows, initialize the payment state. Any failure rolls
// the whole bill back.
func (s *Service) CreateBill(ctx context.Context, input CreateBillInput) (*BillReceipt, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	if err := s.validateCreate(ctx, ownerID, input); err != nil {
		return nil, err
	}

	insertedKey := false
	if input.IdempotencyKey != "" {
		if _, err := uuid.Parse(input.IdempotencyKey); err != nil {
			return nil, fmt.Errorf("%w: idempotency key must be a UUID", ErrValidation)
		}
		if s.idempotency != nil {
			if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "billing"); err != nil {
				return nil, err
			}
			insertedKey = true
		}
	}

	now := time.Now()
	var receipt BillReceipt
	var createdBill Bill

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		productIDs := make([]int64, 0, len(input.Items))
		needed := make(map[int64]float64, len(input.Items))
		for _, item := range input.Items {
			if _, seen := needed[item.ProductID]; !seen {
				productIDs = append(productIDs, item.ProductID)
			}
			needed[item.ProductID] += item.Quantity
		}

		products, err := tx.ProductsForUpdate(ctx, ownerID, productIDs)
		if err != nil {
			return err
		}
		for _, id := range productIDs {
			p, ok := products[id]
			if !ok || !p.IsActive {
				return fmt.Errorf("%w: product %d", ErrInvalidProduct, id)
			}
		}

		// Strict policy pre-checks every requested quantity before any
		// mutation so a shortage never needs a compensating reversal.
		needsReview := false
		for _, id := range productIDs {
			p := products[id]
			if p.Stock+1e-9 < needed[id] {
				if !s.allowNeg {
					return fmt.Errorf("%w: product %d has %.3f, requested %.3f", ErrInsufficientStock, id, p.Stock, needed[id])
				}
				needsReview = true
			}
		}

		lineItems := make([]BillLineItem, 0, len(input.Items))
		var subtotal float64
		for _, item := range input.Items {
			p := products[item.ProductID]
			lineTotal := round2(item.Quantity * p.Price)
			lineItems = append(lineItems, BillLineItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				UnitPrice:   p.Price,
				TotalPrice:  lineTotal,
			})
			subtotal += lineTotal
		}
		subtotal = round2(subtotal)
		taxAmount := round2(subtotal * input.TaxRate / 100)
		total := round2(subtotal + taxAmount - input.DiscountAmount)
		if total < 0 {
			return fmt.Errorf("%w: discount exceeds bill value", ErrValidation)
		}
		if input.PaymentMethod == MethodPartial && input.PartialAmount >= total {
			return fmt.Errorf("%w: partial amount must be below the bill total", ErrValidation)
		}

		for _, id := range productIDs {
			if err := tx.DecrementStock(ctx, ownerID, id, needed[id]); err != nil {
				return err
			}
		}

		number, err := tx.NextBillNumber(ctx, ownerID, now)
		if err != nil {
			return err
		}

		state := initialPaymentState(input.PaymentMethod, total, input.PartialAmount)
		bill := Bill{
			BillNumber:      number,
			BusinessOwnerID: ownerID,
			CustomerID:      input.CustomerID,
			Subtotal:        subtotal,
			TaxAmount:       taxAmount,
			DiscountAmount:  input.DiscountAmount,
			TotalAmount:     total,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   state.Status,
			IsCredit:        state.IsCredit,
			CreditAmount:    state.CreditAmount,
			CreditPaid:      state.CreditPaid,
			CreditBalance:   state.CreditBalance,
			ChequeNumber:    input.ChequeNumber,
			NeedsReview:     needsReview,
			CreatedAt:       now,
		}
		billID, err := tx.InsertBill(ctx, &bill)
		if err != nil {
			return err
		}
		bill.ID = billID

		for i := range lineItems {
			lineItems[i].BillID = billID
		}
		if err := tx.InsertLineItems(ctx, billID, lineItems); err != nil {
			return err
		}

		rows := projectLedgerRows(bill, lineItems, products, now)
		if err := tx.InsertLedgerRows(ctx, rows); err != nil {
			return err
		}

		if state.RealizedNow > 0 {
			method := input.PaymentMethod
			if method == MethodPartial {
				method = MethodCash
			}
			if _, err := tx.InsertPaymentRecord(ctx, PaymentRecord{
				BillID:          billID,
				BusinessOwnerID: ownerID,
				Amount:          state.RealizedNow,
				Method:          method,
				ProcessedAt:     now,
			}); err != nil {
				return err
			}
		}

		createdBill = bill
		receipt = BillReceipt{BillID: billID, BillNumber: number, Status: state.Status, TotalAmount: total}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return nil, err
	}

	s.publishBillCreated(ctx, createdBill)
	s.recordAudit(ctx, ownerID, "billing:create", "bill", receipt.BillNumber, map[string]any{
		"bill_id": receipt.BillID,
		"total":   receipt.TotalAmount,
		"method":  string(createdBill.PaymentMethod),
	})
	return &receipt, nil
}

// ReceivePayment settles amount against an outstanding bill. Legal only for
// open credit, partially paid and bounced-cheque bills; the amount is capped
// at the current balance.
func (s *Service) ReceivePayment(ctx context.Context, input ReceivePaymentInput) (*PaymentResult, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	switch input.Method {
	case MethodCash, MethodUPI, MethodCard:
	default:
		return nil, fmt.Errorf("%w: payment method must be cash, upi or card", ErrValidation)
	}

	now := time.Now()
	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bill, err := tx.BillForUpdate(ctx, ownerID, input.BillID)
		if err != nil {
			return err
		}
		if !canReceivePayment(bill.PaymentStatus) {
			return fmt.Errorf("%w: cannot receive payment in state %s", ErrInvalidStateTransition, bill.PaymentStatus)
		}
		if input.Amount > bill.CreditBalance+1e-9 {
			return fmt.Errorf("%w: balance is %.2f", ErrOverpayment, bill.CreditBalance)
		}

		newPaid := round2(bill.CreditPaid + input.Amount)
		newBalance := round2(bill.CreditAmount - newPaid)
		if newBalance < 0.005 {
			newBalance = 0
		}
		newStatus := statusAfterPayment(bill.PaymentStatus, newBalance)

		if _, err := tx.InsertPaymentRecord(ctx, PaymentRecord{
			BillID:          bill.ID,
			BusinessOwnerID: ownerID,
			Amount:          input.Amount,
			Method:          input.Method,
			ProcessedAt:     now,
		}); err != nil {
			return err
		}
		if err := tx.UpdatePaymentState(ctx, bill.ID, PaymentStateUpdate{
			Status:        newStatus,
			IsCredit:      bill.IsCredit,
			CreditAmount:  bill.CreditAmount,
			CreditPaid:    newPaid,
			CreditBalance: newBalance,
		}); err != nil {
			return err
		}
		result = PaymentResult{BillID: bill.ID, Status: newStatus, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, ownerID, "billing:receive_payment", "bill", fmt.Sprintf("%d", input.BillID), map[string]any{
		"amount":      input.Amount,
		"new_status":  string(result.Status),
		"new_balance": result.NewBalance,
	})
	return &result, nil
}

// ClearCheque realizes a deposited cheque. The payment record is dated at
// clearance time: revenue is recognized when realized, not when billed.
func (s *Service) ClearCheque(ctx context.Context, billID int64) (*PaymentResult, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}

	now := time.Now()
	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bill, err := tx.BillForUpdate(ctx, ownerID, billID)
		if err != nil {
			return err
		}
		if bill.PaymentStatus != StatusChequeDeposited {
			return fmt.Errorf("%w: cannot clear cheque in state %s", ErrInvalidStateTransition, bill.PaymentStatus)
		}
		if _, err := tx.InsertPaymentRecord(ctx, PaymentRecord{
			BillID:          bill.ID,
			BusinessOwnerID: ownerID,
			Amount:          bill.TotalAmount,
			Method:          MethodCheque,
			ProcessedAt:     now,
		}); err != nil {
			return err
		}
		if err := tx.UpdatePaymentState(ctx, bill.ID, PaymentStateUpdate{Status: StatusChequeCleared}); err != nil {
			return err
		}
		result = PaymentResult{BillID: bill.ID, Status: StatusChequeCleared}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, ownerID, "billing:clear_cheque", "bill", fmt.Sprintf("%d", billID), nil)
	return &result, nil
}

// BounceCheque converts a deposited cheque into an open receivable. No
// payment record is written.
func (s *Service) BounceCheque(ctx context.Context, billID int64) (*PaymentResult, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}

	now := time.Now()
	var result PaymentResult
	var bounced Bill
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bill, err := tx.BillForUpdate(ctx, ownerID, billID)
		if err != nil {
			return err
		}
		if bill.PaymentStatus != StatusChequeDeposited {
			return fmt.Errorf("%w: cannot bounce cheque in state %s", ErrInvalidStateTransition, bill.PaymentStatus)
		}
		if err := tx.UpdatePaymentState(ctx, bill.ID, PaymentStateUpdate{
			Status:        StatusChequeBounced,
			IsCredit:      true,
			CreditAmount:  bill.TotalAmount,
			CreditPaid:    0,
			CreditBalance: bill.TotalAmount,
		}); err != nil {
			return err
		}
		bounced = *bill
		result = PaymentResult{BillID: bill.ID, Status: StatusChequeBounced, NewBalance: bill.TotalAmount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		evt := ChequeBouncedEvent{
			BillID:          bounced.ID,
			BillNumber:      bounced.BillNumber,
			BusinessOwnerID: ownerID,
			CustomerID:      bounced.CustomerID,
			Amount:          bounced.TotalAmount,
			BouncedAt:       now,
		}
		if err := s.events.PublishChequeBounced(ctx, evt); err != nil {
			s.logger.Warn("publish cheque bounced", slog.Any("error", err), slog.Int64("bill_id", bounced.ID))
		}
	}
	s.recordAudit(ctx, ownerID, "billing:bounce_cheque", "bill", fmt.Sprintf("%d", billID), map[string]any{
		"amount": bounced.TotalAmount,
	})
	return &result, nil
}

// GetBill returns a bill scoped to the authenticated owner.
func (s *Service) GetBill(ctx context.Context, billID int64) (*Bill, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.GetBill(ctx, ownerID, billID)
}

// ListBills returns a page of bills with the total count.
func (s *Service) ListBills(ctx context.Context, limit, offset int) ([]Bill, int, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, 0, shared.ErrTenantRequired
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListBills(ctx, ownerID, limit, offset)
}

// ListBillPayments returns the realized payments of a bill.
func (s *Service) ListBillPayments(ctx context.Context, billID int64) ([]PaymentRecord, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.ListBillPayments(ctx, ownerID, billID)
}

func (s *Service) validateCreate(ctx context.Context, ownerID int64, input CreateBillInput) error {
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: at least one line item required", ErrValidation)
	}
	for _, item := range input.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return fmt.Errorf("%w: line items need a product and a positive quantity", ErrValidation)
		}
	}
	if !ValidMethod(input.PaymentMethod) {
		return fmt.Errorf("%w: unsupported payment method %q", ErrValidation, input.PaymentMethod)
	}
	if input.DiscountAmount < 0 || input.TaxRate < 0 {
		return fmt.Errorf("%w: tax and discount cannot be negative", ErrValidation)
	}
	if input.PaymentMethod == MethodPartial && input.PartialAmount <= 0 {
		return fmt.Errorf("%w: partial bills need the amount collected now", ErrValidation)
	}
	if input.PaymentMethod == MethodCheque {
		// No anonymous cheque bills: the cheque must be traceable to a
		// customer we can actually reach.
		if input.CustomerID == 0 {
			return fmt.Errorf("%w: cheque bills require a customer", ErrValidation)
		}
		phone, err := s.repo.GetCustomerPhone(ctx, ownerID, input.CustomerID)
		if err != nil {
			return err
		}
		if phone == "" {
			return fmt.Errorf("%w: cheque bills require a customer with a phone number", ErrValidation)
		}
	}
	return nil
}

func (s *Service) publishBillCreated(ctx context.Context, bill Bill) {
	if s.events == nil {
		return
	}
	evt := BillCreatedEvent{
		BillID:          bill.ID,
		BillNumber:      bill.BillNumber,
		BusinessOwnerID: bill.BusinessOwnerID,
		CustomerID:      bill.CustomerID,
		TotalAmount:     bill.TotalAmount,
		PaymentMethod:   bill.PaymentMethod,
		PaymentStatus:   bill.PaymentStatus,
		CreatedAt:       bill.CreatedAt,
	}
	if err := s.events.PublishBillCreated(ctx, evt); err != nil {
		s.logger.Warn("publish bill created", slog.Any("error", err), slog.Int64("bill_id", bill.ID))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record", slog.Any("error", err), slog.String("action", action))
	}
}

// projectLedgerRows materializes one reporting row per line item, with the
// bill-level tax and discount apportioned by line share.
func projectLedgerRows(bill Bill, items []BillLineItem, products map[int64]ProductSnapshot, at time.Time) []ledger.Row {
	rows := make([]ledger.Row, 0, len(items))
	for _, item := range items {
		var share float64
		if bill.Subtotal > 0 {
			share = item.TotalPrice / bill.Subtotal
		}
		rows = append(rows, ledger.Row{
			BillID:          bill.ID,
			BillNumber:      bill.BillNumber,
			BusinessOwnerID: bill.BusinessOwnerID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Category:        products[item.ProductID].Category,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TotalPrice:      item.TotalPrice,
			TaxAmount:       round2(bill.TaxAmount * share),
			DiscountAmount:  round2(bill.DiscountAmount * share),
			PaymentMethod:   string(bill.PaymentMethod),
			SaleDate:        at,
			SaleTime:        at.Format("15:04:05"),
			CreatedAt:       at,
		})
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
