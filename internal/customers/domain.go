package customers

import (
	"errors"
	"time"
)

// Errors.
var (
	ErrValidation       = errors.New("customers: validation failed")
	ErrCustomerNotFound = errors.New("customers: customer not found")
)

// Customer is someone the business bills. Phone is required for credit and
// cheque bills so the owner can chase the money.
type Customer struct {
	ID              int64     `json:"id"`
	BusinessOwnerID int64     `json:"-"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CustomerInput creates or updates a customer.
type CustomerInput struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CreditSummary is one customer's open credit position.
type CreditSummary struct {
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Phone        string  `json:"phone"`
	OpenBills    int     `json:"open_bills"`
	Outstanding  float64 `json:"outstanding"`
}
