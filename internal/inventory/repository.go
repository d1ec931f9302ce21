package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, business_owner_id, name, COALESCE(category, ''), price, cost, stock, min_stock, is_active, last_stock_update, created_at`

// Repository provides PostgreSQL backed persistence for the product catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.BusinessOwnerID, &p.Name, &p.Category, &p.Price, &p.Cost,
		&p.Stock, &p.MinStock, &p.IsActive, &p.LastStockUpdate, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts a catalog entry.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products (business_owner_id, name, category, price, cost, stock, min_stock, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+productColumns,
		p.BusinessOwnerID, p.Name, p.Category, p.Price, p.Cost, p.Stock, p.MinStock, p.IsActive)
	return scanProduct(row)
}

// UpdateProduct mutates catalog fields only; stock stays untouched.
func (r *Repository) UpdateProduct(ctx context.Context, ownerID, productID int64, input UpdateProductInput) (*Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
SET name=$3, category=$4, price=$5, cost=$6, min_stock=$7
WHERE business_owner_id=$1 AND id=$2
RETURNING `+productColumns,
		ownerID, productID, input.Name, input.Category, input.Price, input.Cost, input.MinStock)
	return scanProduct(row)
}

// DeactivateProduct soft-deletes a product.
func (r *Repository) DeactivateProduct(ctx context.Context, ownerID, productID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active=FALSE WHERE business_owner_id=$1 AND id=$2`, ownerID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetProduct fetches one product scoped to the owner.
func (r *Repository) GetProduct(ctx context.Context, ownerID, productID int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE business_owner_id=$1 AND id=$2`, ownerID, productID)
	return scanProduct(row)
}

// ListProducts returns one catalog page plus the total count.
func (r *Repository) ListProducts(ctx context.Context, ownerID int64, limit, offset int) ([]Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE business_owner_id=$1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE business_owner_id=$1
ORDER BY name, id
LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListLowStock returns active products at or below min_stock.
func (r *Repository) ListLowStock(ctx context.Context, ownerID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE business_owner_id=$1 AND is_active AND stock <= min_stock
ORDER BY stock, name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AddStock increments stock and stamps last_stock_update.
func (r *Repository) AddStock(ctx context.Context, ownerID, productID int64, qty float64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
SET stock = stock + $3, last_stock_update = NOW()
WHERE business_owner_id=$1 AND id=$2
RETURNING `+productColumns, ownerID, productID, qty)
	return scanProduct(row)
}
