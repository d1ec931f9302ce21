package ledger

import "time"

// Row is one denormalized reporting record per sold line item. Rows are
// written in the same transaction as the bill; reconciliation only repairs
// historical gaps.
type Row struct {
	ID              int64
	BillID          int64
	BillNumber      string
	BusinessOwnerID int64
	ProductID       int64
	ProductName     string
	Category        string
	Quantity        float64
	UnitPrice       float64
	TotalPrice      float64
	TaxAmount       float64
	DiscountAmount  float64
	PaymentMethod   string
	SaleDate        time.Time
	SaleTime        string
	CreatedAt       time.Time
}

// Discrepancy describes a bill whose ledger row count does not match its
// line item count.
type Discrepancy struct {
	BillID     int64  `json:"bill_id"`
	BillNumber string `json:"bill_number"`
	LineItems  int    `json:"line_items"`
	LedgerRows int    `json:"ledger_rows"`
	Backfilled int    `json:"backfilled"`
}

// ReconcileReport summarises one reconciliation run.
type ReconcileReport struct {
	BillsScanned   int           `json:"bills_scanned"`
	Discrepancies  []Discrepancy `json:"discrepancies"`
	RowsBackfilled int           `json:"rows_backfilled"`
}
