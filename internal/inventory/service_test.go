package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

type memoryProductRepo struct {
	nextID   int64
	products map[int64]*Product
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{nextID: 1, products: make(map[int64]*Product)}
}

func (r *memoryProductRepo) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	p.ID = r.nextID
	r.nextID++
	r.products[p.ID] = &p
	cp := p
	return &cp, nil
}

func (r *memoryProductRepo) UpdateProduct(ctx context.Context, ownerID, productID int64, input UpdateProductInput) (*Product, error) {
	p, ok := r.products[productID]
	if !ok || p.BusinessOwnerID != ownerID {
		return nil, ErrProductNotFound
	}
	p.Name = input.Name
	p.Category = input.Category
	p.Price = input.Price
	p.Cost = input.Cost
	p.MinStock = input.MinStock
	cp := *p
	return &cp, nil
}

func (r *memoryProductRepo) DeactivateProduct(ctx context.Context, ownerID, productID int64) error {
	p, ok := r.products[productID]
	if !ok || p.BusinessOwnerID != ownerID {
		return ErrProductNotFound
	}
	p.IsActive = false
	return nil
}

func (r *memoryProductRepo) GetProduct(ctx context.Context, ownerID, productID int64) (*Product, error) {
	p, ok := r.products[productID]
	if !ok || p.BusinessOwnerID != ownerID {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryProductRepo) ListProducts(ctx context.Context, ownerID int64, limit, offset int) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if p.BusinessOwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (r *memoryProductRepo) ListLowStock(ctx context.Context, ownerID int64) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if p.BusinessOwnerID == ownerID && p.IsActive && p.Stock <= p.MinStock {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryProductRepo) AddStock(ctx context.Context, ownerID, productID int64, qty float64) (*Product, error) {
	p, ok := r.products[productID]
	if !ok || p.BusinessOwnerID != ownerID {
		return nil, ErrProductNotFound
	}
	p.Stock += qty
	cp := *p
	return &cp, nil
}

const testOwner int64 = 7

func testCtx() context.Context {
	return shared.ContextWithTenant(context.Background(), testOwner)
}

func TestCreateProduct(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil, nil)

	p, err := svc.CreateProduct(testCtx(), CreateProductInput{
		Name: "Basmati Rice 5kg", Category: "Grocery", Price: 640, Cost: 520, Stock: 20, MinStock: 5,
	})
	require.NoError(t, err)
	require.NotZero(t, p.ID)
	require.Equal(t, testOwner, p.BusinessOwnerID)
	require.True(t, p.IsActive)
}

func TestCreateProductRequiresName(t *testing.T) {
	svc := NewService(newMemoryProductRepo(), nil, nil)
	_, err := svc.CreateProduct(testCtx(), CreateProductInput{Price: 10})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateProductRequiresTenant(t *testing.T) {
	svc := NewService(newMemoryProductRepo(), nil, nil)
	_, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "Salt"})
	require.ErrorIs(t, err, shared.ErrTenantRequired)
}

func TestUpdateProductDoesNotTouchStock(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.CreateProduct(testCtx(), CreateProductInput{Name: "Sugar 1kg", Price: 48, Cost: 40, Stock: 30, MinStock: 10})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(testCtx(), p.ID, UpdateProductInput{Name: "Sugar 1kg", Price: 52, Cost: 42, MinStock: 8})
	require.NoError(t, err)
	require.Equal(t, 52.0, updated.Price)
	require.Equal(t, 30.0, updated.Stock)
}

func TestRestockRejectsNonPositiveQuantity(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.CreateProduct(testCtx(), CreateProductInput{Name: "Tea 250g", Price: 120, Cost: 95, Stock: 4, MinStock: 6})
	require.NoError(t, err)

	_, err = svc.Restock(testCtx(), p.ID, 0)
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Restock(testCtx(), p.ID, -3)
	require.ErrorIs(t, err, ErrValidation)
}

func TestRestockClearsLowStock(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.CreateProduct(testCtx(), CreateProductInput{Name: "Tea 250g", Price: 120, Cost: 95, Stock: 4, MinStock: 6})
	require.NoError(t, err)

	low, err := svc.ListLowStock(testCtx())
	require.NoError(t, err)
	require.Len(t, low, 1)

	updated, err := svc.Restock(testCtx(), p.ID, 20)
	require.NoError(t, err)
	require.Equal(t, 24.0, updated.Stock)

	low, err = svc.ListLowStock(testCtx())
	require.NoError(t, err)
	require.Empty(t, low)
}

func TestProductsAreTenantScoped(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.CreateProduct(testCtx(), CreateProductInput{Name: "Oil 1L", Price: 180, Cost: 150, Stock: 12, MinStock: 4})
	require.NoError(t, err)

	otherCtx := shared.ContextWithTenant(context.Background(), testOwner+1)
	_, err = svc.GetProduct(otherCtx, p.ID)
	require.ErrorIs(t, err, ErrProductNotFound)

	products, total, err := svc.ListProducts(otherCtx, 50, 0)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, products)
}
