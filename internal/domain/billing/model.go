package billing

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is derived from the summary's numbers on every mutation and
// is never set independently.
type PaymentStatus string

const (
	StatusUnpaid        PaymentStatus = "UNPAID"
	StatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	StatusPaid          PaymentStatus = "PAID"
)

// PaymentMethod identifies how money moved. REFUND is reserved for entries
// the reconciliation engine synthesizes itself.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "CASH"
	MethodCard   PaymentMethod = "CARD"
	MethodUPI    PaymentMethod = "UPI"
	MethodRefund PaymentMethod = "REFUND"
)

// ValidForPayment reports whether the method may be supplied on AddPayment.
func (m PaymentMethod) ValidForPayment() bool {
	switch m {
	case MethodCash, MethodCard, MethodUPI:
		return true
	}
	return false
}

type TransactionKind string

const (
	KindPayment TransactionKind = "PAYMENT"
	KindRefund  TransactionKind = "REFUND"
)

// BillingSummary is the current-state snapshot of what is owed and paid for
// one visit/order. ReceivedTotal always reflects gross payments received;
// refunds live only in the ledger. Discount and GSTAmount are carried for
// the caller's benefit — the net = gross − discount relationship is caller
// responsibility and is not enforced here.
type BillingSummary struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Code          string        `db:"code" json:"code"`
	BillableTotal float64       `db:"billable_total" json:"billable_total"`
	Discount      float64       `db:"discount" json:"discount"`
	GSTAmount     float64       `db:"gst_amount" json:"gst_amount"`
	ReceivedTotal float64       `db:"received_total" json:"received_total"`
	DueAmount     float64       `db:"due_amount" json:"due_amount"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	UpdatedBy     string        `db:"updated_by" json:"updated_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// TransactionEntry is one immutable ledger line. A PAYMENT entry has
// ReceivedAmount > 0 and RefundAmount == 0; a REFUND entry the inverse.
// DueAmountSnapshot records the summary's due amount immediately after this
// entry was applied.
type TransactionEntry struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	SummaryID         uuid.UUID       `db:"summary_id" json:"summary_id"`
	Kind              TransactionKind `db:"kind" json:"kind"`
	Method            PaymentMethod   `db:"method" json:"method"`
	CashAmount        float64         `db:"cash_amount" json:"cash_amount"`
	CardAmount        float64         `db:"card_amount" json:"card_amount"`
	UPIAmount         float64         `db:"upi_amount" json:"upi_amount"`
	ReceivedAmount    float64         `db:"received_amount" json:"received_amount"`
	RefundAmount      float64         `db:"refund_amount" json:"refund_amount"`
	DueAmountSnapshot float64         `db:"due_snapshot" json:"due_amount_snapshot"`
	Remarks           string          `db:"remarks" json:"remarks"`
	CreatedBy         string          `db:"created_by" json:"created_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// StatusFor derives the payment status from the numbers: PAID iff nothing is
// due, UNPAID iff nothing was ever received and something is due,
// PARTIALLY_PAID otherwise.
func StatusFor(dueAmount, receivedTotal float64) PaymentStatus {
	switch {
	case dueAmount == 0:
		return StatusPaid
	case receivedTotal == 0:
		return StatusUnpaid
	default:
		return StatusPartiallyPaid
	}
}

// reconcile recomputes DueAmount and PaymentStatus from the current
// BillableTotal and ReceivedTotal, always from first principles, and returns
// the unclamped candidate due. A negative candidate means the payer is owed
// money back.
func (s *BillingSummary) reconcile() float64 {
	candidate := s.BillableTotal - s.ReceivedTotal
	if candidate < 0 {
		s.DueAmount = 0
	} else {
		s.DueAmount = candidate
	}
	s.PaymentStatus = StatusFor(s.DueAmount, s.ReceivedTotal)
	return candidate
}
