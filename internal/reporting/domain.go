package reporting

import "time"

// Metrics is the dashboard summary for one tenant and window.
//
// Sales counts everything billed in the window, realized or not. Revenue
// counts only money actually collected (payment records) in the window.
// Receivable is the open credit book; cheques pending clearance are reported
// separately since they are neither collected nor formally on credit.
type Metrics struct {
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	Sales           float64   `json:"sales"`
	Revenue         float64   `json:"revenue"`
	Profit          float64   `json:"profit"`
	Receivable      float64   `json:"receivable"`
	ChequesInFlight float64   `json:"cheques_in_flight"`
	BillCount       int       `json:"bill_count"`
}
