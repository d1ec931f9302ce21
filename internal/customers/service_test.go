package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

type memoryCustomerRepo struct {
	nextID    int64
	customers map[int64]*Customer
	credit    []CreditSummary
}

func newMemoryCustomerRepo() *memoryCustomerRepo {
	return &memoryCustomerRepo{nextID: 1, customers: make(map[int64]*Customer)}
}

func (r *memoryCustomerRepo) CreateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	c.ID = r.nextID
	r.nextID++
	r.customers[c.ID] = &c
	cp := c
	return &cp, nil
}

func (r *memoryCustomerRepo) UpdateCustomer(ctx context.Context, ownerID, customerID int64, input CustomerInput) (*Customer, error) {
	c, ok := r.customers[customerID]
	if !ok || c.BusinessOwnerID != ownerID {
		return nil, ErrCustomerNotFound
	}
	c.Name = input.Name
	c.Phone = input.Phone
	c.Address = input.Address
	cp := *c
	return &cp, nil
}

func (r *memoryCustomerRepo) GetCustomer(ctx context.Context, ownerID, customerID int64) (*Customer, error) {
	c, ok := r.customers[customerID]
	if !ok || c.BusinessOwnerID != ownerID {
		return nil, ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryCustomerRepo) ListCustomers(ctx context.Context, ownerID int64, limit, offset int) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		if c.BusinessOwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (r *memoryCustomerRepo) ListCreditSummaries(ctx context.Context, ownerID int64) ([]CreditSummary, error) {
	return r.credit, nil
}

func testCtx() context.Context {
	return shared.ContextWithTenant(context.Background(), 7)
}

func TestCreateCustomer(t *testing.T) {
	svc := NewService(newMemoryCustomerRepo(), nil)
	c, err := svc.CreateCustomer(testCtx(), CustomerInput{Name: "Ravi Kumar", Phone: "+919876543210"})
	require.NoError(t, err)
	require.NotZero(t, c.ID)
	require.Equal(t, int64(7), c.BusinessOwnerID)
}

func TestCreateCustomerRequiresName(t *testing.T) {
	svc := NewService(newMemoryCustomerRepo(), nil)
	_, err := svc.CreateCustomer(testCtx(), CustomerInput{Phone: "+919876543210"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCustomerOperationsRequireTenant(t *testing.T) {
	svc := NewService(newMemoryCustomerRepo(), nil)
	_, err := svc.CreateCustomer(context.Background(), CustomerInput{Name: "Ravi"})
	require.ErrorIs(t, err, shared.ErrTenantRequired)
	_, err = svc.ListCreditSummaries(context.Background())
	require.ErrorIs(t, err, shared.ErrTenantRequired)
}

func TestCustomersAreTenantScoped(t *testing.T) {
	repo := newMemoryCustomerRepo()
	svc := NewService(repo, nil)
	c, err := svc.CreateCustomer(testCtx(), CustomerInput{Name: "Ravi Kumar"})
	require.NoError(t, err)

	otherCtx := shared.ContextWithTenant(context.Background(), 8)
	_, err = svc.GetCustomer(otherCtx, c.ID)
	require.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestListCreditSummaries(t *testing.T) {
	repo := newMemoryCustomerRepo()
	repo.credit = []CreditSummary{
		{CustomerID: 1, CustomerName: "Ravi Kumar", OpenBills: 2, Outstanding: 700},
		{CustomerID: 2, CustomerName: "Meena Traders", OpenBills: 1, Outstanding: 250},
	}
	svc := NewService(repo, nil)

	summaries, err := svc.ListCreditSummaries(testCtx())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, 700.0, summaries[0].Outstanding)
}
