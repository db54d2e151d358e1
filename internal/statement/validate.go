package statement

import (
	"sort"
	"strconv"
	"strings"

	"github.com/bxservice/hibiscus-recon/internal/i18n"
	"github.com/bxservice/hibiscus-recon/internal/model"
)

// ValidationError lists the lines that keep a statement in draft.
type ValidationError struct {
	LinesToMatch []int64 // neither payment nor invoice
	LinesToPay   []int64 // invoice but no payment
}

func (e *ValidationError) Error() string {
	return e.Message(i18n.NewPrinter("en"))
}

// Message renders the error with p, joining both parts with " + ".
func (e *ValidationError) Message(p *i18n.Printer) string {
	var parts []string
	if len(e.LinesToMatch) > 0 {
		parts = append(parts, p.Sprintf(i18n.LineMustBeMatched, len(e.LinesToMatch), joinLines(e.LinesToMatch)))
	}
	if len(e.LinesToPay) > 0 {
		parts = append(parts, p.Sprintf(i18n.LineMustMatchPayment, len(e.LinesToPay), joinLines(e.LinesToPay)))
	}
	return strings.Join(parts, " + ")
}

func joinLines(lines []int64) string {
	s := make([]string, len(lines))
	for i, l := range lines {
		s[i] = strconv.FormatInt(l, 10)
	}
	return strings.Join(s, ", ")
}

// Validate checks that every non-zero line of st is settled by a payment.
// It returns a *ValidationError naming the open lines, or nil.
func Validate(st *model.BankStatement) error {
	lines := make([]model.BankStatementLine, len(st.Lines))
	copy(lines, st.Lines)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Line < lines[j].Line })

	var verr ValidationError
	for _, l := range lines {
		switch {
		case l.NeedsMatching():
			verr.LinesToMatch = append(verr.LinesToMatch, l.Line)
		case l.NeedsPayment():
			verr.LinesToPay = append(verr.LinesToPay, l.Line)
		}
	}
	if len(verr.LinesToMatch) == 0 && len(verr.LinesToPay) == 0 {
		return nil
	}
	return &verr
}
