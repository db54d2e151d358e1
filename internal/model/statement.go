package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocStatus is the document workflow state of invoices, payments and statements.
type DocStatus string

const (
	DocStatusDrafted        DocStatus = "DR"
	DocStatusInProgress     DocStatus = "IP"
	DocStatusCompleted      DocStatus = "CO"
	DocStatusClosed         DocStatus = "CL"
	DocStatusWaitingPayment DocStatus = "WP"
	DocStatusVoided         DocStatus = "VO"
)

// BankStatement groups the lines imported for one bank account.
type BankStatement struct {
	ID            int64
	BankAccountID int64
	Name          string
	Description   string
	StatementDate time.Time
	DocStatus     DocStatus
	Lines         []BankStatementLine
}

// BankStatementLine is a committed statement line. Matching mutates
// Description and the linked record IDs.
type BankStatementLine struct {
	ID                int64
	StatementID       int64
	Line              int64 // external transaction id
	StatementLineDate time.Time
	ValutaDate        time.Time
	TrxAmt            decimal.Decimal
	StmtAmt           decimal.Decimal
	EftTrxID          string
	EftPayee          string
	EftPayeeAccount   string
	EftCheckNo        string
	EftMemo           string
	EftReference      string
	EftTrxType        string
	ReferenceNo       string
	Memo              string
	Description       string

	InvoiceID int64 // 0 = none
	PaymentID int64 // 0 = none
	PartnerID int64 // 0 = none
}

// NeedsMatching reports a non-zero line with neither payment nor invoice.
func (l BankStatementLine) NeedsMatching() bool {
	return !l.TrxAmt.IsZero() && l.PaymentID == 0 && l.InvoiceID <= 0
}

// NeedsPayment reports a non-zero line linked to an invoice but not yet to a payment.
func (l BankStatementLine) NeedsPayment() bool {
	return !l.TrxAmt.IsZero() && l.PaymentID == 0 && l.InvoiceID > 0
}
