package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTenantRequired indicates a request without an authenticated owner.
	ErrTenantRequired = errors.New("business owner not resolved from session")
)
