package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWithNote(t *testing.T) {
	tests := []struct {
		name        string
		description string
		note        string
		want        string
	}{
		{"empty", "", "Exact match", "¡ Exact match ¡ "},
		{"keeps text", "paid by card", "Exact match", "¡ Exact match ¡ paid by card"},
		{"replaces note", "¡ Old ¡ paid by card", "New", "¡ New ¡ paid by card"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithNote(tt.description, tt.note))
		})
	}
}

func TestWithNote_RepeatedKeepsOneNote(t *testing.T) {
	d := "original"
	for i := 0; i < 3; i++ {
		d = WithNote(d, "Exact match")
	}
	assert.Equal(t, "¡ Exact match ¡ original", d)
}

func TestMatchInfo_Apply(t *testing.T) {
	line := BankStatementLine{Description: "x", InvoiceID: 7}
	MatchInfo{PaymentID: 3, PartnerID: 9, Note: "found"}.Apply(&line)

	assert.Equal(t, int64(7), line.InvoiceID, "zero invoice in match keeps existing link")
	assert.Equal(t, int64(3), line.PaymentID)
	assert.Equal(t, int64(9), line.PartnerID)
	assert.Equal(t, "¡ found ¡ x", line.Description)
}

func TestMatchInfo_IsEmpty(t *testing.T) {
	assert.True(t, MatchInfo{}.IsEmpty())
	assert.False(t, MatchInfo{PartnerID: 1}.IsEmpty())
	assert.False(t, MatchInfo{Note: "n"}.IsEmpty())
}

func TestBankStatementLine_Needs(t *testing.T) {
	amt := decimal.RequireFromString("10.00")
	tests := []struct {
		name     string
		line     BankStatementLine
		matching bool
		payment  bool
	}{
		{"zero amount", BankStatementLine{}, false, false},
		{"unmatched", BankStatementLine{TrxAmt: amt}, true, false},
		{"invoice only", BankStatementLine{TrxAmt: amt, InvoiceID: 4}, false, true},
		{"paid", BankStatementLine{TrxAmt: amt, PaymentID: 2}, false, false},
		{"paid with invoice", BankStatementLine{TrxAmt: amt, PaymentID: 2, InvoiceID: 4}, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.matching, tt.line.NeedsMatching(), "NeedsMatching %s", tt.name)
		assert.Equal(t, tt.payment, tt.line.NeedsPayment(), "NeedsPayment %s", tt.name)
	}
}
