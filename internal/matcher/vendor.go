package matcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bxservice/hibiscus-recon/internal/config"
	"github.com/bxservice/hibiscus-recon/internal/i18n"
	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

// VendorSEPAPayment matches outgoing money against pending vendor payments,
// as created by a SEPA credit transfer run.
type VendorSEPAPayment struct {
	daysRange int
	payments  store.Payments
	printer   *i18n.Printer
	log       zerolog.Logger
}

// NewVendorSEPAPayment creates the matcher. cfg.DateRangeMatcher is the
// tolerance in days around the book and value dates.
func NewVendorSEPAPayment(cfg config.MatchingConfig, payments store.Payments, printer *i18n.Printer, log zerolog.Logger) *VendorSEPAPayment {
	if printer == nil {
		printer = i18n.NewPrinter("en")
	}
	return &VendorSEPAPayment{
		daysRange: cfg.DateRangeMatcher,
		payments:  payments,
		printer:   printer,
		log:       log,
	}
}

// FindMatch implements Matcher. Only lines with a negative amount are
// considered.
func (m *VendorSEPAPayment) FindMatch(ctx context.Context, line *model.BankStatementLine) (model.MatchInfo, error) {
	var info model.MatchInfo
	if !line.TrxAmt.IsNegative() {
		return info, nil
	}

	p, err := m.payments.FirstPayment(ctx, store.PaymentQuery{
		IsReceipt:    false,
		IsReconciled: false,
		DocStatuses:  []model.DocStatus{model.DocStatusCompleted, model.DocStatusClosed},
		PayAmt:       line.TrxAmt.Neg(),
		PartnerName:  line.EftPayee,
		IBAN:         line.EftPayeeAccount,
		DateRanges: []store.DateRange{
			store.Around(line.StatementLineDate, m.daysRange),
			store.Around(line.ValutaDate, m.daysRange),
		},
	})
	if err != nil {
		return info, fmt.Errorf("looking up vendor payment: %w", err)
	}
	if p == nil {
		m.log.Debug().Int64("line", line.Line).Msg("no vendor payment found")
		return info, nil
	}

	info.PaymentID = p.ID
	info.PartnerID = p.PartnerID
	if p.InvoiceID > 0 {
		info.InvoiceID = p.InvoiceID
	}
	info.Note = m.printer.Sprintf(i18n.ExactMatch)
	return info, nil
}
