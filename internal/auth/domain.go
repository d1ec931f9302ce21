package auth

import "time"

// Owner represents an authenticated business owner account. One owner is one
// tenant; every row the owner writes is scoped to their id.
type Owner struct {
	ID           int64
	Email        string
	PasswordHash string
	ShopName     string
	CreatedAt    time.Time
}
