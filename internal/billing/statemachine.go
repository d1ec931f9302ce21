package billing

// initialPaymentState computes the payment fields a bill is born with.
// Cash, UPI and card settle immediately. Credit opens the full amount as a
// receivable. Partial collects some cash now and opens the rest. A cheque is
// in flight: not a receivable yet, and no realized payment either.
type initialState struct {
	Status        PaymentStatus
	IsCredit      bool
	CreditAmount  float64
	CreditPaid    float64
	CreditBalance float64
	// RealizedNow is the amount to write as a PaymentRecord at creation,
	// zero when nothing is realized.
	RealizedNow float64
}

func initialPaymentState(method PaymentMethod, total, partialAmount float64) initialState {
	switch method {
	case MethodCash, MethodUPI, MethodCard:
		return initialState{Status: StatusPaid, RealizedNow: total}
	case MethodCredit:
		return initialState{
			Status:        StatusCredit,
			IsCredit:      true,
			CreditAmount:  total,
			CreditBalance: total,
		}
	case MethodPartial:
		return initialState{
			Status:        StatusPartial,
			IsCredit:      true,
			CreditAmount:  total,
			CreditPaid:    partialAmount,
			CreditBalance: total - partialAmount,
			RealizedNow:   partialAmount,
		}
	case MethodCheque:
		return initialState{Status: StatusChequeDeposited}
	}
	return initialState{Status: StatusUnpaid}
}

// canReceivePayment reports whether a bill in the given state may accept a
// payment. A bounced cheque is an open receivable, so it collects like an
// open credit bill.
func canReceivePayment(status PaymentStatus) bool {
	switch status {
	case StatusCredit, StatusCreditPartial, StatusPartial, StatusChequeBounced:
		return true
	}
	return false
}

// statusAfterPayment returns the state a bill lands in once a payment leaves
// balance outstanding, or PAID when the balance reaches zero. Bills that
// started as PARTIAL stay PARTIAL; credit-originated bills (including bounced
// cheques) move to CREDIT_PARTIAL.
func statusAfterPayment(current PaymentStatus, remaining float64) PaymentStatus {
	if remaining <= 0 {
		return StatusPaid
	}
	if current == StatusPartial {
		return StatusPartial
	}
	return StatusCreditPartial
}
