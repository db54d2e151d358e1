package matcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bxservice/hibiscus-recon/internal/config"
	"github.com/bxservice/hibiscus-recon/internal/i18n"
	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

// ErrNoInvoicePattern means no sales invoice pattern is configured.
var ErrNoInvoicePattern = errors.New("no sales invoice match pattern configured")

// invoiceStatuses are the states of an invoice that can still receive money.
var invoiceStatuses = []model.DocStatus{
	model.DocStatusCompleted,
	model.DocStatusClosed,
	model.DocStatusWaitingPayment,
}

// InvoiceInMemo matches incoming money against open sales invoices whose
// document number appears in the line memo.
type InvoiceInMemo struct {
	patterns []*regexp.Regexp
	invoices store.Invoices
	printer  *i18n.Printer
	log      zerolog.Logger
}

// NewInvoiceInMemo compiles the configured patterns. Each needs exactly one
// capture group holding the invoice number.
func NewInvoiceInMemo(cfg config.MatchingConfig, invoices store.Invoices, printer *i18n.Printer, log zerolog.Logger) (*InvoiceInMemo, error) {
	m := &InvoiceInMemo{invoices: invoices, printer: printer, log: log}
	if m.printer == nil {
		m.printer = i18n.NewPrinter("en")
	}
	for _, p := range cfg.InvoicePatterns() {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("pattern %q: want exactly one capture group, got %d", p, re.NumSubexp())
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// FindMatch implements Matcher. Only lines with a positive amount are
// considered.
func (m *InvoiceInMemo) FindMatch(ctx context.Context, line *model.BankStatementLine) (model.MatchInfo, error) {
	var info model.MatchInfo
	if len(m.patterns) == 0 {
		return info, ErrNoInvoicePattern
	}
	if !line.TrxAmt.IsPositive() {
		return info, nil
	}

	var found []model.Invoice
	for _, docNo := range m.Candidates(line.EftMemo) {
		inv, err := m.invoices.FirstInvoice(ctx, store.InvoiceQuery{
			DocumentNo:  docNo,
			IsSOTrx:     true,
			DocStatuses: invoiceStatuses,
			OnlyActive:  true,
		})
		if err != nil {
			return info, fmt.Errorf("looking up invoice %s: %w", docNo, err)
		}
		if inv == nil || !inv.OpenAmt.IsPositive() {
			m.log.Debug().Str("candidate", docNo).Msg("no open invoice")
			continue
		}
		m.log.Debug().Str("candidate", docNo).Int64("invoice", inv.ID).Msg("open invoice found")
		found = append(found, *inv)
	}
	if len(found) == 0 {
		return info, nil
	}

	first := found[0]
	info.PartnerID = first.PartnerID
	switch {
	case len(found) > 1:
		docNos := make([]string, len(found))
		for i, inv := range found {
			docNos[i] = inv.DocumentNo
		}
		info.Note = m.printer.Sprintf(i18n.MultiInvoiceMatch, strings.Join(docNos, ", "))
	case line.TrxAmt.Equal(first.OpenAmt):
		info.InvoiceID = first.ID
		info.Note = m.printer.Sprintf(i18n.ExactMatch)
	default:
		info.Note = m.printer.Sprintf(i18n.MatchInvoiceNotAmount, first.DocumentNo, m.printer.Amount(first.OpenAmt))
	}
	return info, nil
}

// Candidates extracts the invoice numbers found in memo, in first-seen order.
// Every pattern runs on the memo as-is and again with newlines removed,
// since exports may break a number across lines.
func (m *InvoiceInMemo) Candidates(memo string) []string {
	joined := strings.ReplaceAll(memo, "\n", "")
	var out []string
	for _, re := range m.patterns {
		for _, text := range []string{memo, joined} {
			for _, sub := range re.FindAllStringSubmatch(text, -1) {
				if !slices.Contains(out, sub[1]) {
					out = append(out, sub[1])
				}
			}
		}
	}
	return out
}
