package importer

import (
	"hash/crc32"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ChecksumInput holds the row values covered by the Hibiscus checksum.
// Empty strings stand for absent values.
type ChecksumInput struct {
	Art                 string
	KontoID             int64
	Amount              decimal.Decimal
	CustomerRef         string
	CounterpartyRouting string
	CounterpartyAccount string
	CounterpartyName    string
	PrimaNota           string
	Memo                string // merged memo, newline separated
	Date                time.Time
	Valuta              time.Time
}

// Checksum recomputes the CRC32 that Hibiscus exports per transaction.
//
// The string hashed is the concatenation Hibiscus builds internally,
// including the literal "null" it renders for absent values and the
// amount rendered as a double. It is known not to reproduce the exported
// value for every row, so a mismatch is only a hint of tampering.
func Checksum(in ChecksumInput) int64 {
	// full case mapping, so "ß" becomes "SS"
	upper := cases.Upper(language.Und)
	var b strings.Builder
	b.WriteString(upper.String(in.Art))
	b.WriteString(strconv.FormatInt(in.KontoID, 10))
	b.WriteString(doubleString(in.Amount.InexactFloat64()))
	b.WriteString(orNull(in.CustomerRef))
	b.WriteString(orNull(in.CounterpartyRouting))
	b.WriteString(orNull(in.CounterpartyAccount))
	b.WriteString(upper.String(orNull(in.CounterpartyName)))
	b.WriteString(orNull(in.PrimaNota))
	// saldo is not part of the checksum
	b.WriteString(upper.String(strings.ReplaceAll(in.Memo, "\n", " ")))
	b.WriteString(in.Date.Format(DateFormat))
	b.WriteString(in.Valuta.Format(DateFormat))
	return int64(crc32.ChecksumIEEE([]byte(b.String())))
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

// doubleString renders f the way Hibiscus prints a double: at least one
// fractional digit, scientific notation outside [1e-3, 1e7).
func doubleString(f float64) string {
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(f, 'E', -1, 64)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	n, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(n)
}
