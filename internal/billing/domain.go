package billing

import (
	"errors"
	"time"
)

// PaymentMethod enumerates how a bill is settled.
type PaymentMethod string

const (
	MethodCash    PaymentMethod = "CASH"
	MethodUPI     PaymentMethod = "UPI"
	MethodCard    PaymentMethod = "CARD"
	MethodCredit  PaymentMethod = "CREDIT"
	MethodPartial PaymentMethod = "PARTIAL"
	MethodCheque  PaymentMethod = "CHEQUE"
)

// PaymentStatus enumerates payment lifecycle states.
type PaymentStatus string

const (
	StatusUnpaid          PaymentStatus = "UNPAID"
	StatusPartial         PaymentStatus = "PARTIAL"
	StatusPaid            PaymentStatus = "PAID"
	StatusCredit          PaymentStatus = "CREDIT"
	StatusCreditPartial   PaymentStatus = "CREDIT_PARTIAL"
	StatusChequeDeposited PaymentStatus = "CHEQUE_DEPOSITED"
	StatusChequeCleared   PaymentStatus = "CHEQUE_CLEARED"
	StatusChequeBounced   PaymentStatus = "CHEQUE_BOUNCED"
)

// Domain errors.
var (
	ErrValidation             = errors.New("billing: validation failed")
	ErrInvalidProduct         = errors.New("billing: product missing or inactive")
	ErrInsufficientStock      = errors.New("billing: insufficient stock")
	ErrBillNotFound           = errors.New("billing: bill not found")
	ErrInvalidStateTransition = errors.New("billing: invalid payment state transition")
	ErrOverpayment            = errors.New("billing: amount exceeds outstanding balance")
)

// Bill is a customer transaction aggregating line items into a payable total.
// Payment fields are mutated only through the payment state machine.
type Bill struct {
	ID              int64
	BillNumber      string
	BusinessOwnerID int64
	CustomerID      int64
	Subtotal        float64
	TaxAmount       float64
	DiscountAmount  float64
	TotalAmount     float64
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	IsCredit        bool
	CreditAmount    float64
	CreditPaid      float64
	CreditBalance   float64
	ChequeNumber    string
	NeedsReview     bool
	CreatedAt       time.Time
}

// BillLineItem is immutable after creation. ProductName and UnitPrice are
// snapshots taken at billing time.
type BillLineItem struct {
	ID          int64
	BillID      int64
	ProductID   int64
	ProductName string
	Quantity    float64
	UnitPrice   float64
	TotalPrice  float64
}

// PaymentRecord is one realized payment or cheque-clearance event.
// Append-only; pending cheques never produce a record.
type PaymentRecord struct {
	ID              int64
	BillID          int64
	BusinessOwnerID int64
	Amount          float64
	Method          PaymentMethod
	ProcessedAt     time.Time
}

// ProductSnapshot is the slice of a product the composer needs while the row
// is locked.
type ProductSnapshot struct {
	ID       int64
	Name     string
	Category string
	Price    float64
	Cost     float64
	Stock    float64
	IsActive bool
}

// LineItemInput is one requested sale line. Quantity is validated > 0; the
// unit price always comes from the product row, never from the client.
type LineItemInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
}

// CreateBillInput is the bill composer request.
type CreateBillInput struct {
	CustomerID     int64           `json:"customer_id"`
	Items          []LineItemInput `json:"items" validate:"required,min=1,dive"`
	PaymentMethod  PaymentMethod   `json:"payment_method" validate:"required"`
	TaxRate        float64         `json:"tax_rate" validate:"gte=0,lte=100"`
	DiscountAmount float64         `json:"discount_amount" validate:"gte=0"`
	PartialAmount  float64         `json:"partial_amount" validate:"gte=0"`
	ChequeNumber   string          `json:"cheque_number"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// BillReceipt is returned to the caller after a committed bill.
type BillReceipt struct {
	BillID      int64         `json:"bill_id"`
	BillNumber  string        `json:"bill_number"`
	Status      PaymentStatus `json:"status"`
	TotalAmount float64       `json:"total_amount"`
}

// ReceivePaymentInput settles part of an outstanding balance.
type ReceivePaymentInput struct {
	BillID int64         `json:"bill_id" validate:"required,gt=0"`
	Amount float64       `json:"amount" validate:"required,gt=0"`
	Method PaymentMethod `json:"method" validate:"required"`
}

// PaymentResult reports the state after a payment operation.
type PaymentResult struct {
	BillID     int64         `json:"bill_id"`
	Status     PaymentStatus `json:"status"`
	NewBalance float64       `json:"new_balance"`
}

// ValidMethod reports whether m is a supported payment method.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodUPI, MethodCard, MethodCredit, MethodPartial, MethodCheque:
		return true
	}
	return false
}
