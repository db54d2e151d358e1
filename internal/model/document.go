package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is an ERP invoice as seen by the matchers.
type Invoice struct {
	ID         int64
	DocumentNo string
	IsSOTrx    bool // sales transaction
	IsActive   bool
	DocStatus  DocStatus
	PartnerID  int64
	GrandTotal decimal.Decimal
	OpenAmt    decimal.Decimal
}

// Payment is an ERP payment document.
type Payment struct {
	ID            int64
	DocumentNo    string
	IsReceipt     bool
	IsReconciled  bool
	DocStatus     DocStatus
	PayAmt        decimal.Decimal
	DateTrx       time.Time
	PartnerID     int64
	InvoiceID     int64 // 0 = none
	BankAccountID int64
}
