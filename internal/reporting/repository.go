package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository provides PostgreSQL backed metric aggregates.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// SalesTotal sums everything billed in the window, realized or not.
func (r *PgRepository) SalesTotal(ctx context.Context, ownerID int64, from, to time.Time) (float64, int, error) {
	var total float64
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
FROM bills
WHERE business_owner_id=$1 AND created_at >= $2 AND created_at <= $3`, ownerID, from, to).
		Scan(&total, &count)
	if err != nil {
		return 0, 0, err
	}
	return total, count, nil
}

// RevenueTotal sums payment records processed in the window. Pending cheques
// write no payment record until clearance, so they are excluded by
// construction rather than by a filter.
func (r *PgRepository) RevenueTotal(ctx context.Context, ownerID int64, from, to time.Time) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)
FROM payment_records
WHERE business_owner_id=$1 AND processed_at >= $2 AND processed_at <= $3`, ownerID, from, to).
		Scan(&total)
	return total, err
}

// RealizedCost sums quantity times product cost over the ledger rows of
// bills that had payments processed in the window.
func (r *PgRepository) RealizedCost(ctx context.Context, ownerID int64, from, to time.Time) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(sl.quantity * p.cost), 0)
FROM sales_ledger sl
JOIN products p ON p.id = sl.product_id
WHERE sl.business_owner_id = $1
  AND sl.bill_id IN (
	SELECT DISTINCT bill_id FROM payment_records
	WHERE business_owner_id=$1 AND processed_at >= $2 AND processed_at <= $3
  )`, ownerID, from, to).
		Scan(&total)
	return total, err
}

// ReceivableTotal sums the open credit book.
func (r *PgRepository) ReceivableTotal(ctx context.Context, ownerID int64) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(credit_balance), 0)
FROM bills
WHERE business_owner_id=$1 AND is_credit AND credit_balance > 0`, ownerID).
		Scan(&total)
	return total, err
}

// ChequesInFlightTotal sums bills deposited but not yet cleared.
func (r *PgRepository) ChequesInFlightTotal(ctx context.Context, ownerID int64) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0)
FROM bills
WHERE business_owner_id=$1 AND payment_status = 'CHEQUE_DEPOSITED'`, ownerID).
		Scan(&total)
	return total, err
}
