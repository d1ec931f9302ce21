package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-erp/kirana-erp/internal/ledger"
	"github.com/kirana-erp/kirana-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for billing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a single transaction; the whole bill pipeline commits
// or rolls back together.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const billColumns = `id, bill_number, business_owner_id, COALESCE(customer_id, 0), subtotal, tax_amount, discount_amount, total_amount,
	payment_method, payment_status, is_credit, credit_amount, credit_paid_amount, credit_balance, cheque_number, needs_review, created_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.BillNumber, &b.BusinessOwnerID, &b.CustomerID, &b.Subtotal, &b.TaxAmount, &b.DiscountAmount,
		&b.TotalAmount, &b.PaymentMethod, &b.PaymentStatus, &b.IsCredit, &b.CreditAmount, &b.CreditPaid, &b.CreditBalance,
		&b.ChequeNumber, &b.NeedsReview, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetBill returns one bill scoped to the owner.
func (r *Repository) GetBill(ctx context.Context, ownerID, billID int64) (*Bill, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE business_owner_id=$1 AND id=$2`, ownerID, billID)
	return scanBill(row)
}

// ListBills returns a page of bills, newest first, with the total count.
func (r *Repository) ListBills(ctx context.Context, ownerID int64, limit, offset int) ([]Bill, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bills WHERE business_owner_id=$1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+billColumns+` FROM bills WHERE business_owner_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

// ListBillPayments returns the realized payment records of a bill.
func (r *Repository) ListBillPayments(ctx context.Context, ownerID, billID int64) ([]PaymentRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, bill_id, business_owner_id, amount, method, processed_at
FROM payment_records WHERE business_owner_id=$1 AND bill_id=$2 ORDER BY processed_at, id`, ownerID, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PaymentRecord
	for rows.Next() {
		var rec PaymentRecord
		if err := rows.Scan(&rec.ID, &rec.BillID, &rec.BusinessOwnerID, &rec.Amount, &rec.Method, &rec.ProcessedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetCustomerPhone returns the phone of an owner's customer, empty when the
// customer does not exist.
func (r *Repository) GetCustomerPhone(ctx context.Context, ownerID, customerID int64) (string, error) {
	var phone string
	err := r.pool.QueryRow(ctx, `SELECT phone FROM customers WHERE business_owner_id=$1 AND id=$2`, ownerID, customerID).Scan(&phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return phone, nil
}

// ProductsForUpdate locks and returns the requested product rows. Rows are
// locked in id order so concurrent bills touching the same products cannot
// deadlock.
func (t *txRepo) ProductsForUpdate(ctx context.Context, ownerID int64, ids []int64) (map[int64]ProductSnapshot, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, category, price, cost, stock, is_active
FROM products WHERE business_owner_id=$1 AND id = ANY($2) ORDER BY id FOR UPDATE`, ownerID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[int64]ProductSnapshot, len(ids))
	for rows.Next() {
		var p ProductSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Cost, &p.Stock, &p.IsActive); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// DecrementStock reduces product stock and refreshes last_stock_update. The
// row is already locked by ProductsForUpdate.
func (t *txRepo) DecrementStock(ctx context.Context, ownerID, productID int64, qty float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock - $3, last_stock_update = NOW()
WHERE business_owner_id=$1 AND id=$2`, ownerID, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", ErrInvalidProduct, productID)
	}
	return nil
}

// NextBillNumber allocates the next number in the owner's per-day sequence.
// The upsert takes a row lock, so concurrent bills serialise briefly here
// and never produce duplicates.
func (t *txRepo) NextBillNumber(ctx context.Context, ownerID int64, day time.Time) (string, error) {
	var seq int
	err := t.tx.QueryRow(ctx, `INSERT INTO bill_number_seq (business_owner_id, day, last_seq) VALUES ($1, $2, 1)
ON CONFLICT (business_owner_id, day) DO UPDATE SET last_seq = bill_number_seq.last_seq + 1
RETURNING last_seq`, ownerID, day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BILL-%s-%04d", day.Format("20060102"), seq), nil
}

// InsertBill persists the bill header and returns its id.
func (t *txRepo) InsertBill(ctx context.Context, b *Bill) (int64, error) {
	var customerID any
	if b.CustomerID > 0 {
		customerID = b.CustomerID
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO bills (bill_number, business_owner_id, customer_id, subtotal, tax_amount,
	discount_amount, total_amount, payment_method, payment_status, is_credit, credit_amount, credit_paid_amount,
	credit_balance, cheque_number, needs_review, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`,
		b.BillNumber, b.BusinessOwnerID, customerID, b.Subtotal, b.TaxAmount, b.DiscountAmount, b.TotalAmount,
		b.PaymentMethod, b.PaymentStatus, b.IsCredit, b.CreditAmount, b.CreditPaid, b.CreditBalance, b.ChequeNumber,
		b.NeedsReview, b.CreatedAt).Scan(&id)
	return id, err
}

// InsertLineItems persists the immutable line item snapshots.
func (t *txRepo) InsertLineItems(ctx context.Context, billID int64, items []BillLineItem) error {
	for _, item := range items {
		_, err := t.tx.Exec(ctx, `INSERT INTO bill_line_items (bill_id, product_id, product_name, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6)`, billID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.TotalPrice)
		if err != nil {
			return err
		}
	}
	return nil
}

// InsertLedgerRows materializes the reporting rows for the bill.
func (t *txRepo) InsertLedgerRows(ctx context.Context, rows []ledger.Row) error {
	for _, row := range rows {
		_, err := t.tx.Exec(ctx, `INSERT INTO sales_ledger (bill_id, bill_number, business_owner_id, product_id, product_name,
	category, quantity, unit_price, total_price, tax_amount, discount_amount, payment_method, sale_date, sale_time, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			row.BillID, row.BillNumber, row.BusinessOwnerID, row.ProductID, row.ProductName, row.Category,
			row.Quantity, row.UnitPrice, row.TotalPrice, row.TaxAmount, row.DiscountAmount, row.PaymentMethod,
			row.SaleDate, row.SaleTime, row.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// InsertPaymentRecord appends a realized payment.
func (t *txRepo) InsertPaymentRecord(ctx context.Context, rec PaymentRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payment_records (bill_id, business_owner_id, amount, method, processed_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, rec.BillID, rec.BusinessOwnerID, rec.Amount, rec.Method, rec.ProcessedAt).Scan(&id)
	return id, err
}

// BillForUpdate locks a bill row for a payment state transition.
func (t *txRepo) BillForUpdate(ctx context.Context, ownerID, billID int64) (*Bill, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE business_owner_id=$1 AND id=$2 FOR UPDATE`, ownerID, billID)
	return scanBill(row)
}

// UpdatePaymentState writes the mutable payment fields of a bill.
func (t *txRepo) UpdatePaymentState(ctx context.Context, billID int64, st PaymentStateUpdate) error {
	_, err := t.tx.Exec(ctx, `UPDATE bills SET payment_status=$2, is_credit=$3, credit_amount=$4, credit_paid_amount=$5, credit_balance=$6
WHERE id=$1`, billID, st.Status, st.IsCredit, st.CreditAmount, st.CreditPaid, st.CreditBalance)
	return err
}
