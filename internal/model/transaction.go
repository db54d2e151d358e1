package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementLine is one entry of a Hibiscus export, independent of the
// file layout it came from.
type StatementLine struct {
	BankAccountNo      string
	RoutingNo          string
	ExternalTrxID      string // Umsatz_Id; duplicate-detection key
	PayeeAccountNo     string
	PayeeName          string
	CheckNo            string
	Amount             decimal.Decimal // positive = credit, negative = debit
	StatementLineDate  time.Time
	ValutaDate         time.Time
	Memo               string // Zweck, Zweck2, Zweck3 joined by "\n"
	SecondaryMemo      string // "Name=Value" pairs joined by "\n"
	TrxType            string
	Reference          string
	StatementReference string
	Checksum           *int64 // nil when the file declares none
}

// StagingRecord is a StatementLine persisted for later import into a
// bank statement.
type StagingRecord struct {
	ID            int64
	BankAccountID int64
	LineNo        int64 // numeric ExternalTrxID
	Trx           StatementLine

	LineDescription string // Kommentar
	EftTrxType      string // GvCode
	ReferenceNo     string // MandateId
	StatementName   string
	StatementDate   time.Time
	Description     string
}
