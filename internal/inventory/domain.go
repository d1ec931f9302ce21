package inventory

import (
	"errors"
	"time"
)

// Errors.
var (
	ErrValidation      = errors.New("inventory: validation failed")
	ErrProductNotFound = errors.New("inventory: product not found")
)

// Product is a catalog entry. Stock is decremented only inside the billing
// transaction; Restock is the inbound path.
type Product struct {
	ID              int64      `json:"id"`
	BusinessOwnerID int64      `json:"-"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Price           float64    `json:"price"`
	Cost            float64    `json:"cost"`
	Stock           float64    `json:"stock"`
	MinStock        float64    `json:"min_stock"`
	IsActive        bool       `json:"is_active"`
	LastStockUpdate *time.Time `json:"last_stock_update,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CreateProductInput creates a catalog entry.
type CreateProductInput struct {
	Name     string  `json:"name" validate:"required"`
	Category string  `json:"category"`
	Price    float64 `json:"price" validate:"gte=0"`
	Cost     float64 `json:"cost" validate:"gte=0"`
	Stock    float64 `json:"stock" validate:"gte=0"`
	MinStock float64 `json:"min_stock" validate:"gte=0"`
}

// UpdateProductInput mutates catalog fields; stock is not updatable here.
type UpdateProductInput struct {
	Name     string  `json:"name" validate:"required"`
	Category string  `json:"category"`
	Price    float64 `json:"price" validate:"gte=0"`
	Cost     float64 `json:"cost" validate:"gte=0"`
	MinStock float64 `json:"min_stock" validate:"gte=0"`
}
