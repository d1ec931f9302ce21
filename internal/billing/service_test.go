package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kirana-erp/kirana-erp/internal/ledger"
	"github.com/kirana-erp/kirana-erp/internal/shared"
)

type memoryBillingRepo struct {
	products   map[int64]ProductSnapshot
	phones     map[int64]string
	bills      map[int64]*Bill
	lineItems  map[int64][]BillLineItem
	ledgerRows []ledger.Row
	payments   []PaymentRecord
	nextBillID int64
	seq        map[string]int
}

func newMemoryBillingRepo() *memoryBillingRepo {
	return &memoryBillingRepo{
		products:  make(map[int64]ProductSnapshot),
		phones:    make(map[int64]string),
		bills:     make(map[int64]*Bill),
		lineItems: make(map[int64][]BillLineItem),
		seq:       make(map[string]int),
	}
}

func (r *memoryBillingRepo) snapshot() *memoryBillingRepo {
	cp := newMemoryBillingRepo()
	for k, v := range r.products {
		cp.products[k] = v
	}
	for k, v := range r.phones {
		cp.phones[k] = v
	}
	for k, v := range r.bills {
		b := *v
		cp.bills[k] = &b
	}
	for k, v := range r.lineItems {
		cp.lineItems[k] = append([]BillLineItem(nil), v...)
	}
	cp.ledgerRows = append([]ledger.Row(nil), r.ledgerRows...)
	cp.payments = append([]PaymentRecord(nil), r.payments...)
	cp.nextBillID = r.nextBillID
	for k, v := range r.seq {
		cp.seq[k] = v
	}
	return cp
}

func (r *memoryBillingRepo) restore(from *memoryBillingRepo) {
	r.products = from.products
	r.phones = from.phones
	r.bills = from.bills
	r.lineItems = from.lineItems
	r.ledgerRows = from.ledgerRows
	r.payments = from.payments
	r.nextBillID = from.nextBillID
	r.seq = from.seq
}

// WithTx emulates transactional rollback by restoring a snapshot on error.
func (r *memoryBillingRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.restore(before)
		return err
	}
	return nil
}

func (r *memoryBillingRepo) GetBill(ctx context.Context, ownerID, billID int64) (*Bill, error) {
	b, ok := r.bills[billID]
	if !ok || b.BusinessOwnerID != ownerID {
		return nil, ErrBillNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryBillingRepo) ListBills(ctx context.Context, ownerID int64, limit, offset int) ([]Bill, int, error) {
	var out []Bill
	for _, b := range r.bills {
		if b.BusinessOwnerID == ownerID {
			out = append(out, *b)
		}
	}
	return out, len(out), nil
}

func (r *memoryBillingRepo) ListBillPayments(ctx context.Context, ownerID, billID int64) ([]PaymentRecord, error) {
	var out []PaymentRecord
	for _, p := range r.payments {
		if p.BusinessOwnerID == ownerID && p.BillID == billID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryBillingRepo) GetCustomerPhone(ctx context.Context, ownerID, customerID int64) (string, error) {
	return r.phones[customerID], nil
}

func (r *memoryBillingRepo) ProductsForUpdate(ctx context.Context, ownerID int64, ids []int64) (map[int64]ProductSnapshot, error) {
	out := make(map[int64]ProductSnapshot)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *memoryBillingRepo) DecrementStock(ctx context.Context, ownerID, productID int64, qty float64) error {
	p := r.products[productID]
	p.Stock -= qty
	r.products[productID] = p
	return nil
}

func (r *memoryBillingRepo) NextBillNumber(ctx context.Context, ownerID int64, day time.Time) (string, error) {
	key := day.Format("20060102")
	r.seq[key]++
	return "BILL-" + key + "-" + time.Now().Format("0405") + string(rune('0'+r.seq[key])), nil
}

func (r *memoryBillingRepo) InsertBill(ctx context.Context, b *Bill) (int64, error) {
	r.nextBillID++
	cp := *b
	cp.ID = r.nextBillID
	r.bills[cp.ID] = &cp
	return cp.ID, nil
}

func (r *memoryBillingRepo) InsertLineItems(ctx context.Context, billID int64, items []BillLineItem) error {
	r.lineItems[billID] = append(r.lineItems[billID], items...)
	return nil
}

func (r *memoryBillingRepo) InsertLedgerRows(ctx context.Context, rows []ledger.Row) error {
	r.ledgerRows = append(r.ledgerRows, rows...)
	return nil
}

func (r *memoryBillingRepo) InsertPaymentRecord(ctx context.Context, rec PaymentRecord) (int64, error) {
	rec.ID = int64(len(r.payments) + 1)
	r.payments = append(r.payments, rec)
	return rec.ID, nil
}

func (r *memoryBillingRepo) BillForUpdate(ctx context.Context, ownerID, billID int64) (*Bill, error) {
	return r.GetBill(ctx, ownerID, billID)
}

func (r *memoryBillingRepo) UpdatePaymentState(ctx context.Context, billID int64, st PaymentStateUpdate) error {
	b, ok := r.bills[billID]
	if !ok {
		return ErrBillNotFound
	}
	b.PaymentStatus = st.Status
	b.IsCredit = st.IsCredit
	b.CreditAmount = st.CreditAmount
	b.CreditPaid = st.CreditPaid
	b.CreditBalance = st.CreditBalance
	return nil
}

func (r *memoryBillingRepo) ledgerRowsForBill(billID int64) int {
	count := 0
	for _, row := range r.ledgerRows {
		if row.BillID == billID {
			count++
		}
	}
	return count
}

type captureEvents struct {
	created []BillCreatedEvent
	bounced []ChequeBouncedEvent
}

func (c *captureEvents) PublishBillCreated(ctx context.Context, evt BillCreatedEvent) error {
	c.created = append(c.created, evt)
	return nil
}

func (c *captureEvents) PublishChequeBounced(ctx context.Context, evt ChequeBouncedEvent) error {
	c.bounced = append(c.bounced, evt)
	return nil
}

const testOwner int64 = 7

func testContext() context.Context {
	return shared.ContextWithTenant(context.Background(), testOwner)
}

func newTestService(repo *memoryBillingRepo, cfg ServiceConfig) (*Service, *captureEvents) {
	events := &captureEvents{}
	return NewService(repo, nil, nil, events, nil, cfg), events
}

func seedProduct(repo *memoryBillingRepo, id int64, price, cost, stock float64) {
	repo.products[id] = ProductSnapshot{
		ID:       id,
		Name:     "Product " + string(rune('A'+id)),
		Category: "grocery",
		Price:    price,
		Cost:     cost,
		Stock:    stock,
		IsActive: true,
	}
}

func TestCreateBillCashPaysImmediately(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 100, 60, 10)
	seedProduct(repo, 2, 50, 30, 10)
	svc, events := newTestService(repo, ServiceConfig{})

	receipt, err := svc.CreateBill(testContext(), CreateBillInput{
		Items: []LineItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		PaymentMethod: MethodCash,
	})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.Equal(t, StatusPaid, receipt.Status)
	require.Equal(t, 250.0, receipt.TotalAmount)

	bill := repo.bills[receipt.BillID]
	require.Equal(t, 250.0, bill.Subtotal)
	require.False(t, bill.IsCredit)
	require.Equal(t, 0.0, bill.CreditBalance)

	require.Len(t, repo.payments, 1)
	require.Equal(t, 250.0, repo.payments[0].Amount)
	require.Equal(t, MethodCash, repo.payments[0].Method)

	require.Equal(t, 8.0, repo.products[1].Stock)
	require.Equal(t, 9.0, repo.products[2].Stock)

	require.Len(t, events.created, 1)
	require.Equal(t, receipt.BillID, events.created[0].BillID)
}

func TestCreateBillRecomputesTotals(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 200, 120, 10)
	svc, _ := newTestService(repo, ServiceConfig{})

	receipt, err := svc.CreateBill(testContext(), CreateBillInput{
		Items:          []LineItemInput{{ProductID: 1, Quantity: 3}},
		PaymentMethod:  MethodUPI,
		TaxRate:        10,
		DiscountAmount: 50,
	})
	require.NoError(t, err)

	bill := repo.bills[receipt.BillID]
	require.Equal(t, 600.0, bill.Subtotal)
	require.Equal(t, 60.0, bill.TaxAmount)
	require.Equal(t, 50.0, bill.DiscountAmount)
	require.Equal(t, 610.0, bill.TotalAmount)
}

func TestCreateBillProjectsLedgerRowPerLineItem(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 100, 60, 20)
	seedProduct(repo, 2, 40, 25, 20)
	seedProduct(repo, 3, 15, 10, 20)
	svc, _ := newTestService(repo, ServiceConfig{})

	receipt, err := svc.CreateBill(testContext(), CreateBillInput{
		Items: []LineItemInput{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 4},
			{ProductID: 3, Quantity: 2},
		},
		PaymentMethod: MethodCard,
	})
	require.NoError(t, err)
	require.Len(t, repo.lineItems[receipt.BillID], 3)
	require.Equal(t, 3, repo.ledgerRowsForBill(receipt.BillID))

	for _, row := range repo.ledgerRows {
		require.Equal(t, receipt.BillNumber, row.BillNumber)
		require.Equal(t, testOwner, row.BusinessOwnerID)
		require.Equal(t, "grocery", row.Category)
	}
}

func TestCreateBillInsufficientStockStrict(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 100, 60, 3)
	svc, events := newTestService(repo, ServiceConfig{})

	_, err := svc.CreateBill(testContext(), CreateBillInput{
		Items:         []LineItemInput{{ProductID: 1, Quantity: 10}},
		PaymentMethod: MethodCash,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.Equal(t, 3.0, repo.products[1].Stock)
	require.Empty(t, repo.bills)
	require.Empty(t, repo.payments)
	require.Empty(t, repo.ledgerRows)
	require.Empty(t, events.created)
}

func TestCreateBillPermissivePolicyFlagsReview(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 100, 60, 3)
	svc, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	receipt, err := svc.CreateBill(testContext(), CreateBillInput{
		Items:         []LineItemInput{{ProductID: 1, Quantity: 10}},
		PaymentMethod: MethodCash,
	})
	require.NoError(t, err)
	require.True(t, repo.bills[receipt.BillID].NeedsReview)
	require.Equal(t, -7.0, repo.products[1].Stock)
}

func TestCreateBillInvalidProduct(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc, _ := newTestService(repo, ServiceConfig{})

	_, err := svc.CreateBill(testContext(), CreateBillInput{
		Items:         []LineItemInput{{ProductID: 99, Quantity: 1}},
		PaymentMethod: MethodCash,
	})
	require.ErrorIs(t, err, ErrInvalidProduct)
}

func TestCreateBillRequiresTenant(t *testing.T) {
	repo := newMemoryBillingRepo()
	svc, _ := newTestService(repo, ServiceConfig{})

	_, err := svc.CreateBill(context.Background(), CreateBillInput{
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodCash,
	})
	require.ErrorIs(t, err, shared.ErrTenantRequired)
}

func TestCreditBillLifecycle(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 500, 300, 10)
	svc, _ := newTestService(repo, ServiceConfig{})
	ctx := testContext()

	receipt, err := svc.CreateBill(ctx, CreateBillInput{
		CustomerID:    11,
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodCredit,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCredit, receipt.Status)

	bill := repo.bills[receipt.BillID]
	require.True(t, bill.IsCredit)
	require.Equal(t, 500.0, bill.CreditAmount)
	require.Equal(t, 500.0, bill.CreditBalance)
	require.Empty(t, repo.payments)

	result, err := svc.ReceivePayment(ctx, ReceivePaymentInput{BillID: receipt.BillID, Amount: 300, Method: MethodCash})
	require.NoError(t, err)
	require.Equal(t, StatusCreditPartial, result.Status)
	require.Equal(t, 200.0, result.NewBalance)

	bill = repo.bills[receipt.BillID]
	require.Equal(t, bill.CreditAmount-bill.CreditPaid, bill.CreditBalance)

	result, err = svc.ReceivePayment(ctx, ReceivePaymentInput{BillID: receipt.BillID, Amount: 200, Method: MethodUPI})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, result.Status)
	require.Equal(t, 0.0, result.NewBalance)
	require.Len(t, repo.payments, 2)
}

func TestReceivePaymentRejectsOverpayment(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 500, 300, 10)
	svc, _ := newTestService(repo, ServiceConfig{})
	ctx := testContext()

	receipt, err := svc.CreateBill(ctx, CreateBillInput{
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodCredit,
	})
	require.NoError(t, err)

	_, err = svc.ReceivePayment(ctx, ReceivePaymentInput{BillID: receipt.BillID, Amount: 600, Method: MethodCash})
	require.ErrorIs(t, err, ErrOverpayment)

	bill := repo.bills[receipt.BillID]
	require.Equal(t, 500.0, bill.CreditBalance)
	require.Empty(t, repo.payments)
}

func TestReceivePaymentRejectsPaidBill(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 100, 60, 10)
	svc, _ := newTestService(repo, ServiceConfig{})
	ctx := testContext()

	receipt, err := svc.CreateBill(ctx, CreateBillInput{
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodCash,
	})
	require.NoError(t, err)

	_, err = svc.ReceivePayment(ctx, ReceivePaymentInput{BillID: receipt.BillID, Amount: 50, Method: MethodCash})
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestPartialBillLifecycle(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 500, 300, 10)
	svc, _ := newTestService(repo, ServiceConfig{})
	ctx := testContext()

	receipt, err := svc.CreateBill(ctx, CreateBillInput{
		CustomerID:    11,
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodPartial,
		PartialAmount: 200,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPartial, receipt.Status)

	bill := repo.bills[receipt.BillID]
	require.Equal(t, 300.0, bill.CreditBalance)
	require.Len(t, repo.payments, 1)
	require.Equal(t, 200.0, repo.payments[0].Amount)

	result, err := svc.ReceivePayment(ctx, ReceivePaymentInput{BillID: receipt.BillID, Amount: 300, Method: MethodCash})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, result.Status)
}

func TestPartialAmountMustBeBelowTotal(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 500, 300, 10)
	svc, _ := newTestService(repo, ServiceConfig{})

	_, err := svc.CreateBill(testContext(), CreateBillInput{
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodPartial,
		PartialAmount: 500,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestChequeBillRequiresCustomerWithPhone(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 500, 300, 10)
	svc, _ := newTestService(repo, ServiceConfig{})

	_, err := svc.CreateBill(testContext(), CreateBillInput{
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodCheque,
	})
	require.ErrorIs(t, err, ErrValidation)

	repo.phones[11] = ""
	_, err = svc.CreateBill(testContext(), CreateBillInput{
		CustomerID:    11,
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodCheque,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestChequeClearLifecycle(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 500, 300, 10)
	repo.phones[11] = "9876543210"
	svc, _ := newTestService(repo, ServiceConfig{})
	ctx := testContext()

	receipt, err := svc.CreateBill(ctx, CreateBillInput{
		CustomerID:    11,
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodCheque,
	})
	require.NoError(t, err)
	require.Equal(t, StatusChequeDeposited, receipt.Status)
	require.Empty(t, repo.payments, "deposited cheque must not realize a payment")

	result, err := svc.ClearCheque(ctx, receipt.BillID)
	require.NoError(t, err)
	require.Equal(t, StatusChequeCleared, result.Status)
	require.Len(t, repo.payments, 1)
	require.Equal(t, 500.0, repo.payments[0].Amount)

	_, err = svc.ClearCheque(ctx, receipt.BillID)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	require.Len(t, repo.payments, 1)
}

func TestBounceChequeOpensReceivable(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 500, 300, 10)
	repo.phones[11] = "9876543210"
	svc, events := newTestService(repo, ServiceConfig{})
	ctx := testContext()

	receipt, err := svc.CreateBill(ctx, CreateBillInput{
		CustomerID:    11,
		Items:         []LineItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: MethodCheque,
	})
	require.NoError(t, err)

	result, err := svc.BounceCheque(ctx, receipt.BillID)
	require.NoError(t, err)
	require.Equal(t, StatusChequeBounced, result.Status)
	require.Equal(t, 500.0, result.NewBalance)
	require.Empty(t, repo.payments, "bounce must not realize a payment")

	bill := repo.bills[receipt.BillID]
	require.True(t, bill.IsCredit)
	require.Equal(t, 500.0, bill.CreditBalance)

	require.Len(t, events.bounced, 1)
	require.Equal(t, 500.0, events.bounced[0].Amount)

	// A bounced cheque collects like an open credit bill.
	payResult, err := svc.ReceivePayment(ctx, ReceivePaymentInput{BillID: receipt.BillID, Amount: 500, Method: MethodCash})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, payResult.Status)

	_, err = svc.BounceCheque(ctx, receipt.BillID)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestCreditBalanceInvariantHolds(t *testing.T) {
	repo := newMemoryBillingRepo()
	seedProduct(repo, 1, 100, 60, 100)
	svc, _ := newTestService(repo, ServiceConfig{})
	ctx := testContext()

	receipt, err := svc.CreateBill(ctx, CreateBillInput{
		Items:         []LineItemInput{{ProductID: 1, Quantity: 9}},
		PaymentMethod: MethodCredit,
	})
	require.NoError(t, err)

	for _, amount := range []float64{150, 250, 100, 400} {
		_, err := svc.ReceivePayment(ctx, ReceivePaymentInput{BillID: receipt.BillID, Amount: amount, Method: MethodCash})
		require.NoError(t, err)
		bill := repo.bills[receipt.BillID]
		require.Equal(t, bill.CreditAmount-bill.CreditPaid, bill.CreditBalance)
		require.GreaterOrEqual(t, bill.CreditBalance, 0.0)
	}
	require.Equal(t, StatusPaid, repo.bills[receipt.BillID].PaymentStatus)
}
