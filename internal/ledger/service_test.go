package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

type memoryLedgerRepo struct {
	scanned    int
	mismatches []BillMismatch
	lineCounts map[int64]int
	rows       map[int64]int
	rebuilds   []int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		lineCounts: make(map[int64]int),
		rows:       make(map[int64]int),
	}
}

func (r *memoryLedgerRepo) ListMismatchedBills(ctx context.Context, ownerID int64) ([]BillMismatch, int, error) {
	var out []BillMismatch
	for _, m := range r.mismatches {
		if r.rows[m.BillID] != r.lineCounts[m.BillID] {
			out = append(out, m)
		}
	}
	return out, r.scanned, nil
}

func (r *memoryLedgerRepo) RebuildRowsForBill(ctx context.Context, ownerID, billID int64) (int, error) {
	r.rebuilds = append(r.rebuilds, billID)
	r.rows[billID] = r.lineCounts[billID]
	return r.lineCounts[billID], nil
}

func (r *memoryLedgerRepo) ListRows(ctx context.Context, ownerID int64, from, to time.Time) ([]Row, error) {
	return nil, nil
}

func testContext() context.Context {
	return shared.ContextWithTenant(context.Background(), 7)
}

func TestReconcileBackfillsMissingRows(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.scanned = 10
	repo.lineCounts[3] = 2
	repo.rows[3] = 0
	repo.lineCounts[5] = 3
	repo.rows[5] = 1
	repo.mismatches = []BillMismatch{
		{BillID: 3, BillNumber: "BILL-20260831-0003", LineItems: 2, LedgerRows: 0},
		{BillID: 5, BillNumber: "BILL-20260831-0005", LineItems: 3, LedgerRows: 1},
	}
	svc := NewService(repo, nil)

	report, err := svc.Reconcile(testContext())
	require.NoError(t, err)
	require.Equal(t, 10, report.BillsScanned)
	require.Len(t, report.Discrepancies, 2)
	require.Equal(t, 5, report.RowsBackfilled)
	require.Equal(t, []int64{3, 5}, repo.rebuilds)
}

func TestReconcileIsIdempotent(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.scanned = 4
	repo.lineCounts[3] = 2
	repo.rows[3] = 0
	repo.mismatches = []BillMismatch{
		{BillID: 3, BillNumber: "BILL-20260831-0003", LineItems: 2, LedgerRows: 0},
	}
	svc := NewService(repo, nil)

	first, err := svc.Reconcile(testContext())
	require.NoError(t, err)
	require.Equal(t, 2, first.RowsBackfilled)

	second, err := svc.Reconcile(testContext())
	require.NoError(t, err)
	require.Empty(t, second.Discrepancies)
	require.Zero(t, second.RowsBackfilled)
	require.Len(t, repo.rebuilds, 1)
}

func TestReconcileRequiresTenant(t *testing.T) {
	svc := NewService(newMemoryLedgerRepo(), nil)
	_, err := svc.Reconcile(context.Background())
	require.ErrorIs(t, err, shared.ErrTenantRequired)
}
