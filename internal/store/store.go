// Package store declares the record store the importer, matchers and
// statement workflow operate on.
package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bxservice/hibiscus-recon/internal/model"
)

// ErrNotFound is returned when a record looked up by ID does not exist.
var ErrNotFound = errors.New("not found")

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Around returns the range of days days before and after d.
func Around(d time.Time, days int) DateRange {
	return DateRange{From: d.AddDate(0, 0, -days), To: d.AddDate(0, 0, days)}
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(truncateDay(r.From)) && !day.After(truncateDay(r.To))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InvoiceQuery filters invoices by document number, direction and status.
type InvoiceQuery struct {
	DocumentNo  string
	IsSOTrx     bool
	DocStatuses []model.DocStatus
	OnlyActive  bool
}

// Matches reports whether inv satisfies the query.
func (q InvoiceQuery) Matches(inv model.Invoice) bool {
	if inv.DocumentNo != q.DocumentNo || inv.IsSOTrx != q.IsSOTrx {
		return false
	}
	if q.OnlyActive && !inv.IsActive {
		return false
	}
	return len(q.DocStatuses) == 0 || slices.Contains(q.DocStatuses, inv.DocStatus)
}

// PaymentQuery filters payments joined with their partner and the partner's
// bank accounts. A payment qualifies when its date lies in any of DateRanges.
type PaymentQuery struct {
	IsReceipt    bool
	IsReconciled bool
	DocStatuses  []model.DocStatus
	PayAmt       decimal.Decimal
	PartnerName  string
	IBAN         string
	DateRanges   []DateRange
}

// Matches reports whether p, paid to partner, satisfies the query.
func (q PaymentQuery) Matches(p model.Payment, partner model.Partner) bool {
	if p.IsReceipt != q.IsReceipt || p.IsReconciled != q.IsReconciled {
		return false
	}
	if len(q.DocStatuses) > 0 && !slices.Contains(q.DocStatuses, p.DocStatus) {
		return false
	}
	if !p.PayAmt.Equal(q.PayAmt) {
		return false
	}
	if partner.ID != p.PartnerID || partner.Name != q.PartnerName {
		return false
	}
	if !slices.Contains(partner.IBAN, q.IBAN) {
		return false
	}
	return q.InDateRange(p.DateTrx)
}

// InDateRange reports whether t lies in any of the query's date ranges.
func (q PaymentQuery) InDateRange(t time.Time) bool {
	for _, r := range q.DateRanges {
		if r.Contains(t) {
			return true
		}
	}
	return false
}

// BankAccounts resolves own bank accounts.
type BankAccounts interface {
	// FindBankAccounts returns every bank account with the given account and routing number.
	FindBankAccounts(ctx context.Context, accountNo, routingNo string) ([]model.BankAccount, error)
	CreateBankAccount(ctx context.Context, ba *model.BankAccount) error
}

// Staging holds records loaded from a file and not yet imported.
type Staging interface {
	SaveStagingRecord(ctx context.Context, rec *model.StagingRecord) error
	// CountStagingByLine counts staged records for line on bankAccountID, ignoring excludeID.
	CountStagingByLine(ctx context.Context, line, bankAccountID, excludeID int64) (int, error)
	StagingRecords(ctx context.Context) ([]model.StagingRecord, error)
	DeleteStagingRecords(ctx context.Context, ids []int64) error
	DeleteAllStaging(ctx context.Context) (int, error)
}

// Statements holds imported bank statements and their lines.
type Statements interface {
	// PostedStatementName returns the name of a statement on bankAccountID
	// that already holds line, and false if there is none.
	PostedStatementName(ctx context.Context, line, bankAccountID int64) (string, bool, error)
	CreateStatement(ctx context.Context, st *model.BankStatement) error
	Statement(ctx context.Context, id int64) (*model.BankStatement, error)
	LatestDraftStatement(ctx context.Context, bankAccountID int64) (*model.BankStatement, error)
	UpdateStatementLine(ctx context.Context, line *model.BankStatementLine) error
	SetStatementStatus(ctx context.Context, id int64, status model.DocStatus) error
}

// Invoices looks up invoices.
type Invoices interface {
	// FirstInvoice returns the lowest-ID invoice matching q, or nil.
	FirstInvoice(ctx context.Context, q InvoiceQuery) (*model.Invoice, error)
	CreateInvoice(ctx context.Context, inv *model.Invoice) error
}

// Payments looks up and creates payments.
type Payments interface {
	// FirstPayment returns the lowest-ID payment matching q, or nil.
	FirstPayment(ctx context.Context, q PaymentQuery) (*model.Payment, error)
	CreatePayment(ctx context.Context, p *model.Payment) error
}

// Partners holds business partners.
type Partners interface {
	CreatePartner(ctx context.Context, p *model.Partner) error
	Partner(ctx context.Context, id int64) (*model.Partner, error)
}

// Store is the complete record store.
type Store interface {
	BankAccounts
	Staging
	Statements
	Invoices
	Payments
	Partners
	Close() error
}
