package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-erp/kirana-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the sales ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListMismatchedBills returns bills whose ledger row count differs from
// their line item count, plus the total number of bills scanned.
func (r *Repository) ListMismatchedBills(ctx context.Context, ownerID int64) ([]BillMismatch, int, error) {
	var scanned int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bills WHERE business_owner_id=$1`, ownerID).Scan(&scanned); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT b.id, b.bill_number, COUNT(DISTINCT li.id), COUNT(DISTINCT sl.id)
FROM bills b
LEFT JOIN bill_line_items li ON li.bill_id = b.id
LEFT JOIN sales_ledger sl ON sl.bill_id = b.id
WHERE b.business_owner_id = $1
GROUP BY b.id, b.bill_number
HAVING COUNT(DISTINCT li.id) <> COUNT(DISTINCT sl.id)
ORDER BY b.id`, ownerID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var mismatches []BillMismatch
	for rows.Next() {
		var m BillMismatch
		if err := rows.Scan(&m.BillID, &m.BillNumber, &m.LineItems, &m.LedgerRows); err != nil {
			return nil, 0, err
		}
		mismatches = append(mismatches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return mismatches, scanned, nil
}

// RebuildRowsForBill drops and re-projects the ledger rows of one bill from
// its line items and the product catalog, in a single transaction. Returns
// the number of rows written.
func (r *Repository) RebuildRowsForBill(ctx context.Context, ownerID, billID int64) (int, error) {
	inserted := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			billNumber     string
			subtotal       float64
			taxAmount      float64
			discountAmount float64
			method         string
			createdAt      time.Time
		)
		err := tx.QueryRow(ctx, `SELECT bill_number, subtotal, tax_amount, discount_amount, payment_method, created_at
FROM bills WHERE business_owner_id=$1 AND id=$2 FOR UPDATE`, ownerID, billID).
			Scan(&billNumber, &subtotal, &taxAmount, &discountAmount, &method, &createdAt)
		if err != nil {
			return err
		}

		itemRows, err := tx.Query(ctx, `SELECT li.product_id, li.product_name, li.quantity, li.unit_price, li.total_price, COALESCE(p.category, '')
FROM bill_line_items li
LEFT JOIN products p ON p.id = li.product_id
WHERE li.bill_id = $1
ORDER BY li.id`, billID)
		if err != nil {
			return err
		}
		defer itemRows.Close()

		var rebuilt []Row
		for itemRows.Next() {
			var row Row
			if err := itemRows.Scan(&row.ProductID, &row.ProductName, &row.Quantity, &row.UnitPrice, &row.TotalPrice, &row.Category); err != nil {
				return err
			}
			var share float64
			if subtotal > 0 {
				share = row.TotalPrice / subtotal
			}
			row.BillID = billID
			row.BillNumber = billNumber
			row.BusinessOwnerID = ownerID
			row.TaxAmount = taxAmount * share
			row.DiscountAmount = discountAmount * share
			row.PaymentMethod = method
			row.SaleDate = createdAt
			row.SaleTime = createdAt.Format("15:04:05")
			row.CreatedAt = createdAt
			rebuilt = append(rebuilt, row)
		}
		if err := itemRows.Err(); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM sales_ledger WHERE bill_id=$1 AND business_owner_id=$2`, billID, ownerID); err != nil {
			return err
		}
		for _, row := range rebuilt {
			_, err := tx.Exec(ctx, `INSERT INTO sales_ledger (bill_id, bill_number, business_owner_id, product_id, product_name,
	category, quantity, unit_price, total_price, tax_amount, discount_amount, payment_method, sale_date, sale_time, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
				row.BillID, row.BillNumber, row.BusinessOwnerID, row.ProductID, row.ProductName, row.Category,
				row.Quantity, row.UnitPrice, row.TotalPrice, row.TaxAmount, row.DiscountAmount, row.PaymentMethod,
				row.SaleDate, row.SaleTime, row.CreatedAt)
			if err != nil {
				return err
			}
		}
		inserted = len(rebuilt)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListRows returns ledger rows for the owner within a sale date window.
func (r *Repository) ListRows(ctx context.Context, ownerID int64, from, to time.Time) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, bill_id, bill_number, business_owner_id, product_id, product_name,
	category, quantity, unit_price, total_price, tax_amount, discount_amount, payment_method, sale_date, sale_time::text, created_at
FROM sales_ledger
WHERE business_owner_id=$1 AND sale_date >= $2 AND sale_date <= $3
ORDER BY sale_date, id`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.BillID, &row.BillNumber, &row.BusinessOwnerID, &row.ProductID, &row.ProductName,
			&row.Category, &row.Quantity, &row.UnitPrice, &row.TotalPrice, &row.TaxAmount, &row.DiscountAmount,
			&row.PaymentMethod, &row.SaleDate, &row.SaleTime, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
