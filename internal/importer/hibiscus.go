package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bxservice/hibiscus-recon/internal/model"
)

// Column names of the Hibiscus export, in file order.
const (
	ColKontoAccountNo  = "Konto_AccountNo"
	ColKontoRoutingNo  = "Konto_RoutingNo"
	ColKontoID         = "Konto_Id"
	ColUmsatzID        = "Umsatz_Id"
	ColEmpfaengerKonto = "Empfaenger_Konto"
	ColEmpfaengerBlz   = "Empfaenger_Blz"
	ColEmpfaengerName  = "Empfaenger_Name"
	ColBetrag          = "Betrag"
	ColZweck           = "Zweck"
	ColZweck2          = "Zweck2"
	ColZweck3          = "Zweck3"
	ColDatum           = "Datum"
	ColValuta          = "Valuta"
	ColKommentar       = "Kommentar"
	ColChecksum        = "Checksum"
	ColGvCode          = "GvCode"
	ColEndToEndID      = "EndToEndId"
	ColMandateID       = "MandateId"
	ColPrimaNota       = "PrimaNota"
	ColArt             = "Art"
	ColCustomerRef     = "CustomerRef"
	ColAddKey          = "AddKey"
	ColTxID            = "TxId"
	ColPurposeCode     = "PurposeCode"
	ColEmpfaengerName2 = "Empfaenger_Name2"
	ColUmsatzTypName   = "UmsatzTyp_Name"
)

// Columns lists every column the reader requires in the header.
var Columns = []string{
	ColKontoAccountNo, ColKontoRoutingNo, ColKontoID, ColUmsatzID,
	ColEmpfaengerKonto, ColEmpfaengerBlz, ColEmpfaengerName, ColBetrag,
	ColZweck, ColZweck2, ColZweck3, ColDatum, ColValuta, ColKommentar,
	ColChecksum, ColGvCode, ColEndToEndID, ColMandateID, ColPrimaNota,
	ColArt, ColCustomerRef, ColAddKey, ColTxID, ColPurposeCode,
	ColEmpfaengerName2, ColUmsatzTypName,
}

// secondaryMemoColumns are appended to the secondary memo in this order.
var secondaryMemoColumns = []string{
	ColPrimaNota, ColArt, ColCustomerRef, ColAddKey,
	ColTxID, ColPurposeCode, ColEmpfaengerName2, ColUmsatzTypName,
}

const (
	// DateFormat is the layout of Datum and Valuta.
	DateFormat = "02.01.2006"
	// dateParseFormat also accepts single-digit day and month.
	dateParseFormat = "2.1.2006"
)

var errNullValue = errors.New("null value encountered")

// Row is one parsed data row of a Hibiscus export.
type Row struct {
	Number   int // physical line the record starts on, header = 1
	KontoID  int64
	UmsatzID int64
	Line     model.StatementLine

	Comment   string // Kommentar
	GvCode    string
	MandateID string

	checksum ChecksumInput
}

// ChecksumInput returns the values the row checksum is computed from.
func (r *Row) ChecksumInput() ChecksumInput {
	return r.checksum
}

// Reader reads Rows from a Hibiscus CSV export.
type Reader struct {
	cr       *csv.Reader
	cols     map[string]int
	row      int
	stmtRef  string
	readHead bool
}

// NewReader creates a Reader. delimiter 0 detects ';' or ',' from the header.
// fileName is used to derive the statement reference.
func NewReader(r io.Reader, fileName string, delimiter rune) *Reader {
	br := bufio.NewReader(r)
	if delimiter == 0 {
		delimiter = sniffDelimiter(br)
	}
	cr := csv.NewReader(br)
	cr.Comma = delimiter
	return &Reader{
		cr:      cr,
		row:     1,
		stmtRef: StatementReference(fileName),
	}
}

// sniffDelimiter picks the more frequent of ';' and ',' in the first line.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(4096)
	if i := strings.IndexByte(string(head), '\n'); i >= 0 {
		head = head[:i]
	}
	if strings.Count(string(head), ",") > strings.Count(string(head), ";") {
		return ','
	}
	return ';'
}

// StatementReference returns the part of fileName after the last
// underscore, or after the last path separator when there is none.
func StatementReference(fileName string) string {
	last := strings.LastIndex(fileName, "_")
	if last < 0 {
		last = strings.LastIndex(fileName, string(filepath.Separator))
	}
	if last > 0 {
		return fileName[last+1:]
	}
	return fileName
}

// Line returns the physical line the record read last starts on.
func (r *Reader) Line() int {
	return r.row
}

func (r *Reader) readHeader() error {
	header, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("missing header")
		}
		return fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	r.cols = make(map[string]int, len(header))
	for i, h := range header {
		r.cols[strings.TrimSpace(h)] = i
	}
	for _, c := range Columns {
		if _, ok := r.cols[c]; !ok {
			return fmt.Errorf("missing column %s", c)
		}
	}
	r.cr.FieldsPerRecord = len(header)
	return nil
}

// Next returns the next row, or io.EOF after the last one.
func (r *Reader) Next() (*Row, error) {
	if !r.readHead {
		r.readHead = true
		if err := r.readHeader(); err != nil {
			return nil, err
		}
	}
	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			r.row = pe.StartLine
		} else {
			r.row++
		}
		return nil, err
	}
	// a quoted field may span lines, so count from where the record starts
	r.row, _ = r.cr.FieldPos(0)
	return r.parseRow(rec)
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.row, err)
		}
		rows = append(rows, row)
	}
}

func (r *Reader) parseRow(rec []string) (*Row, error) {
	get := func(col string) string {
		return rec[r.cols[col]]
	}
	required := func(col string) (string, error) {
		v := get(col)
		if v == "" {
			return "", fmt.Errorf("%s: %w", col, errNullValue)
		}
		return v, nil
	}
	requiredInt := func(col string) (int64, error) {
		v, err := required(col)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing %s %q: %w", col, v, err)
		}
		return n, nil
	}
	date := func(col string) (time.Time, error) {
		v, err := required(col)
		if err != nil {
			return time.Time{}, err
		}
		d, err := time.Parse(dateParseFormat, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing %s %q: %w", col, v, err)
		}
		return d, nil
	}

	accountNo, err := required(ColKontoAccountNo)
	if err != nil {
		return nil, err
	}
	routingNo, err := required(ColKontoRoutingNo)
	if err != nil {
		return nil, err
	}
	kontoID, err := requiredInt(ColKontoID)
	if err != nil {
		return nil, err
	}
	umsatzID, err := requiredInt(ColUmsatzID)
	if err != nil {
		return nil, err
	}
	rawAmount, err := required(ColBetrag)
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	datum, err := date(ColDatum)
	if err != nil {
		return nil, err
	}
	valuta, err := date(ColValuta)
	if err != nil {
		return nil, err
	}

	var checksum *int64
	var trxType string
	if v := get(ColChecksum); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", ColChecksum, v, err)
		}
		checksum = &n
		trxType = strconv.FormatInt(n, 10)
	}

	memo := MergeMemo(get(ColZweck), get(ColZweck2), get(ColZweck3))

	secondary := make([][2]string, 0, len(secondaryMemoColumns))
	for _, col := range secondaryMemoColumns {
		secondary = append(secondary, [2]string{col, get(col)})
	}

	row := &Row{
		Number:   r.row,
		KontoID:  kontoID,
		UmsatzID: umsatzID,
		Line: model.StatementLine{
			BankAccountNo:      accountNo,
			RoutingNo:          routingNo,
			ExternalTrxID:      strconv.FormatInt(umsatzID, 10),
			PayeeAccountNo:     get(ColEmpfaengerKonto),
			PayeeName:          get(ColEmpfaengerName),
			CheckNo:            get(ColEmpfaengerBlz),
			Amount:             amount,
			StatementLineDate:  datum,
			ValutaDate:         valuta,
			Memo:               memo,
			SecondaryMemo:      SecondaryMemo(secondary),
			TrxType:            trxType,
			Reference:          get(ColEndToEndID),
			StatementReference: r.stmtRef,
			Checksum:           checksum,
		},
		Comment:   get(ColKommentar),
		GvCode:    get(ColGvCode),
		MandateID: get(ColMandateID),
		checksum: ChecksumInput{
			Art:                 get(ColArt),
			KontoID:             kontoID,
			Amount:              amount,
			CustomerRef:         get(ColCustomerRef),
			CounterpartyRouting: get(ColEmpfaengerBlz),
			CounterpartyAccount: get(ColEmpfaengerKonto),
			CounterpartyName:    get(ColEmpfaengerName),
			PrimaNota:           get(ColPrimaNota),
			Memo:                memo,
			Date:                datum,
			Valuta:              valuta,
		},
	}
	return row, nil
}

// ParseAmount parses an amount that may use a comma as decimal separator.
// The precision of the input is kept.
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// MergeMemo joins the non-empty memo parts with newlines.
func MergeMemo(parts ...string) string {
	present := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			present = append(present, p)
		}
	}
	return strings.Join(present, "\n")
}

// SecondaryMemo renders name/value pairs as "Name=Value" lines, skipping
// blank values.
func SecondaryMemo(pairs [][2]string) string {
	var b strings.Builder
	for _, p := range pairs {
		if strings.TrimSpace(p[1]) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p[0])
		b.WriteString("=")
		b.WriteString(p[1])
	}
	return b.String()
}
