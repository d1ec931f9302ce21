package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CreateProduct(ctx context.Context, p Product) (*Product, error)
	UpdateProduct(ctx context.Context, ownerID, productID int64, input UpdateProductInput) (*Product, error)
	DeactivateProduct(ctx context.Context, ownerID, productID int64) error
	GetProduct(ctx context.Context, ownerID, productID int64) (*Product, error)
	ListProducts(ctx context.Context, ownerID int64, limit, offset int) ([]Product, int, error)
	ListLowStock(ctx context.Context, ownerID int64) ([]Product, error)
	AddStock(ctx context.Context, ownerID, productID int64, qty float64) (*Product, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates product catalog operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateProduct adds a catalog entry for the authenticated owner.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if input.Price < 0 || input.Cost < 0 || input.Stock < 0 || input.MinStock < 0 {
		return nil, fmt.Errorf("%w: negative values not allowed", ErrValidation)
	}

	product, err := s.repo.CreateProduct(ctx, Product{
		BusinessOwnerID: ownerID,
		Name:            input.Name,
		Category:        input.Category,
		Price:           input.Price,
		Cost:            input.Cost,
		Stock:           input.Stock,
		MinStock:        input.MinStock,
		IsActive:        true,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, ownerID, "inventory:create", product.ID)
	return product, nil
}

// UpdateProduct mutates catalog fields. Stock is out of reach: only billing
// decrements and Restock increments touch it.
func (s *Service) UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*Product, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if input.Price < 0 || input.Cost < 0 || input.MinStock < 0 {
		return nil, fmt.Errorf("%w: negative values not allowed", ErrValidation)
	}
	product, err := s.repo.UpdateProduct(ctx, ownerID, productID, input)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, ownerID, "inventory:update", productID)
	return product, nil
}

// DeactivateProduct hides a product from new bills without deleting history.
func (s *Service) DeactivateProduct(ctx context.Context, productID int64) error {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return shared.ErrTenantRequired
	}
	if err := s.repo.DeactivateProduct(ctx, ownerID, productID); err != nil {
		return err
	}
	s.recordAudit(ctx, ownerID, "inventory:deactivate", productID)
	return nil
}

// Restock adds inbound quantity to a product.
func (s *Service) Restock(ctx context.Context, productID int64, qty float64) (*Product, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	if qty <= 0 {
		return nil, fmt.Errorf("%w: restock quantity must be positive", ErrValidation)
	}
	product, err := s.repo.AddStock(ctx, ownerID, productID, qty)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, ownerID, "inventory:restock", productID)
	return product, nil
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.GetProduct(ctx, ownerID, productID)
}

// ListProducts returns a catalog page with the total count.
func (s *Service) ListProducts(ctx context.Context, limit, offset int) ([]Product, int, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, 0, shared.ErrTenantRequired
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListProducts(ctx, ownerID, limit, offset)
}

// ListLowStock returns active products at or below their minimum stock.
func (s *Service) ListLowStock(ctx context.Context) ([]Product, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.ListLowStock(ctx, ownerID)
}

func (s *Service) recordAudit(ctx context.Context, ownerID int64, action string, productID int64) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  ownerID,
		Action:   action,
		Entity:   "product",
		EntityID: fmt.Sprintf("%d", productID),
	}); err != nil {
		s.logger.Warn("audit record", slog.Any("error", err), slog.String("action", action))
	}
}
