package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

// BillMismatch identifies a committed bill whose ledger row count drifted
// from its line item count.
type BillMismatch struct {
	BillID     int64
	BillNumber string
	LineItems  int
	LedgerRows int
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	ListMismatchedBills(ctx context.Context, ownerID int64) ([]BillMismatch, int, error)
	RebuildRowsForBill(ctx context.Context, ownerID, billID int64) (int, error)
	ListRows(ctx context.Context, ownerID int64, from, to time.Time) ([]Row, error)
}

// Service owns the administrative repair path for the sales ledger. The
// normal path never goes through here: rows are projected inside the bill
// transaction.
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

// Reconcile scans the owner's bills for missing ledger rows and rebuilds
// them from the line items. Safe to run repeatedly; a clean ledger yields an
// empty report.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}

	mismatches, scanned, err := s.repo.ListMismatchedBills(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{BillsScanned: scanned}
	for _, m := range mismatches {
		s.logger.Warn("ledger discrepancy",
			slog.Int64("bill_id", m.BillID),
			slog.String("bill_number", m.BillNumber),
			slog.Int("line_items", m.LineItems),
			slog.Int("ledger_rows", m.LedgerRows),
		)
		inserted, err := s.repo.RebuildRowsForBill(ctx, ownerID, m.BillID)
		if err != nil {
			return nil, err
		}
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			BillID:     m.BillID,
			BillNumber: m.BillNumber,
			LineItems:  m.LineItems,
			LedgerRows: m.LedgerRows,
			Backfilled: inserted,
		})
		report.RowsBackfilled += inserted
	}
	return report, nil
}

// ListRows returns ledger rows for a date window.
func (s *Service) ListRows(ctx context.Context, from, to time.Time) ([]Row, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.ListRows(ctx, ownerID, from, to)
}
