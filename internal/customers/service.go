package customers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CreateCustomer(ctx context.Context, c Customer) (*Customer, error)
	UpdateCustomer(ctx context.Context, ownerID, customerID int64, input CustomerInput) (*Customer, error)
	GetCustomer(ctx context.Context, ownerID, customerID int64) (*Customer, error)
	ListCustomers(ctx context.Context, ownerID int64, limit, offset int) ([]Customer, int, error)
	ListCreditSummaries(ctx context.Context, ownerID int64) ([]CreditSummary, error)
}

// Service coordinates customer book operations.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateCustomer adds a customer for the authenticated owner.
func (s *Service) CreateCustomer(ctx context.Context, input CustomerInput) (*Customer, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.CreateCustomer(ctx, Customer{
		BusinessOwnerID: ownerID,
		Name:            input.Name,
		Phone:           input.Phone,
		Address:         input.Address,
	})
}

// UpdateCustomer mutates customer details.
func (s *Service) UpdateCustomer(ctx context.Context, customerID int64, input CustomerInput) (*Customer, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.UpdateCustomer(ctx, ownerID, customerID, input)
}

// GetCustomer returns one customer.
func (s *Service) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.GetCustomer(ctx, ownerID, customerID)
}

// ListCustomers returns one page of the customer book.
func (s *Service) ListCustomers(ctx context.Context, limit, offset int) ([]Customer, int, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, 0, shared.ErrTenantRequired
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListCustomers(ctx, ownerID, limit, offset)
}

// ListCreditSummaries returns customers with open credit, largest first.
func (s *Service) ListCreditSummaries(ctx context.Context) ([]CreditSummary, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.ListCreditSummaries(ctx, ownerID)
}
