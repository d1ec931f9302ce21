package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerColumns = `id, business_owner_id, name, COALESCE(phone, ''), COALESCE(address, ''), created_at`

// Repository provides PostgreSQL backed persistence for the customer book.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.BusinessOwnerID, &c.Name, &c.Phone, &c.Address, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCustomer inserts a customer.
func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO customers (business_owner_id, name, phone, address)
VALUES ($1, $2, $3, $4)
RETURNING `+customerColumns, c.BusinessOwnerID, c.Name, c.Phone, c.Address)
	return scanCustomer(row)
}

// UpdateCustomer mutates customer details scoped to the owner.
func (r *Repository) UpdateCustomer(ctx context.Context, ownerID, customerID int64, input CustomerInput) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `UPDATE customers
SET name=$3, phone=$4, address=$5
WHERE business_owner_id=$1 AND id=$2
RETURNING `+customerColumns, ownerID, customerID, input.Name, input.Phone, input.Address)
	return scanCustomer(row)
}

// GetCustomer fetches one customer scoped to the owner.
func (r *Repository) GetCustomer(ctx context.Context, ownerID, customerID int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE business_owner_id=$1 AND id=$2`, ownerID, customerID)
	return scanCustomer(row)
}

// ListCustomers returns one page plus the total count.
func (r *Repository) ListCustomers(ctx context.Context, ownerID int64, limit, offset int) ([]Customer, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE business_owner_id=$1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE business_owner_id=$1
ORDER BY name, id
LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListCreditSummaries aggregates open credit balances per customer,
// largest outstanding first.
func (r *Repository) ListCreditSummaries(ctx context.Context, ownerID int64) ([]CreditSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.name, COALESCE(c.phone, ''), COUNT(b.id), COALESCE(SUM(b.credit_balance), 0)
FROM customers c
JOIN bills b ON b.customer_id = c.id AND b.is_credit AND b.credit_balance > 0
WHERE c.business_owner_id = $1
GROUP BY c.id, c.name, c.phone
ORDER BY SUM(b.credit_balance) DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CreditSummary
	for rows.Next() {
		var s CreditSummary
		if err := rows.Scan(&s.CustomerID, &s.CustomerName, &s.Phone, &s.OpenBills, &s.Outstanding); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
