// Package i18n renders the user-facing notes written by matching and
// statement validation.
package i18n

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// Message keys.
const (
	ExactMatch            = "ExactMatch"
	MatchInvoiceNotAmount = "MatchInvoiceNotAmount"
	MultiInvoiceMatch     = "MultiInvoiceMatch"
	LineMustBeMatched     = "LineMustBeMatched"
	LineMustMatchPayment  = "LineMustMatchPayment"
)

var messages = map[language.Tag]map[string]string{
	language.English: {
		ExactMatch:            "Exact match",
		MatchInvoiceNotAmount: "Invoice %s found, open amount %v does not match",
		MultiInvoiceMatch:     "Several invoices found: %s. Create a payment allocating them",
		LineMustBeMatched:     "%d line(s) must be matched or get a charge: %s",
		LineMustMatchPayment:  "%d line(s) have an invoice but need a payment: %s",
	},
	language.German: {
		ExactMatch:            "Exakte Übereinstimmung",
		MatchInvoiceNotAmount: "Rechnung %s gefunden, offener Betrag %v stimmt nicht überein",
		MultiInvoiceMatch:     "Mehrere Rechnungen gefunden: %s. Zahlung mit Zuordnung anlegen",
		LineMustBeMatched:     "%d Zeile(n) müssen zugeordnet werden oder eine Gebühr erhalten: %s",
		LineMustMatchPayment:  "%d Zeile(n) haben eine Rechnung, aber noch keine Zahlung: %s",
	},
}

var cat = func() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}
	return b
}()

var matcher = language.NewMatcher([]language.Tag{language.English, language.German})

// Printer renders messages in one language.
type Printer struct {
	p       *message.Printer
	group   string
	decimal string
}

// NewPrinter returns a Printer for lang, e.g. "de" or "en-US".
// Unsupported or invalid languages fall back to English.
func NewPrinter(lang string) *Printer {
	tag := language.English
	if t, err := language.Parse(lang); err == nil {
		_, idx, _ := matcher.Match(t)
		tag = []language.Tag{language.English, language.German}[idx]
	}
	p := message.NewPrinter(tag, message.Catalog(cat))
	// 1234.5 is exact in binary, so the locale symbols can be read off it.
	sample := []rune(p.Sprint(number.Decimal(1234.5, number.Scale(1))))
	return &Printer{
		p:       p,
		group:   string(sample[1]),
		decimal: string(sample[len(sample)-2]),
	}
}

// Sprintf renders the message key with args.
func (p *Printer) Sprintf(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// Amount formats d with grouping and two decimals in the printer's locale.
// Digits come from the decimal itself, so large amounts stay exact.
func (p *Printer) Amount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(p.group)
		}
		b.WriteRune(c)
	}
	b.WriteString(p.decimal)
	b.WriteString(frac)
	return b.String()
}
