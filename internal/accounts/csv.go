// Package accounts seeds the bank accounts exports are loaded into from a
// CSV file.
package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/bxservice/hibiscus-recon/internal/model"
)

// Header is the expected first row of a bank account file.
const Header = "name,account_no,routing_no"

const (
	numFields    = 3
	colName      = 0
	colAccountNo = 1
	colRoutingNo = 2
)

// ReadBankAccounts reads a bank account CSV with a header row.
func ReadBankAccounts(r io.Reader) ([]model.BankAccount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bank accounts CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if got := strings.Join(records[0], ","); got != Header {
		return nil, fmt.Errorf("unexpected header %q, want %q", got, Header)
	}

	var out []model.BankAccount
	for i, rec := range records[1:] {
		ba, err := UnmarshalBankAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, ba)
	}
	return out, nil
}

// UnmarshalBankAccount converts a CSV row to a BankAccount.
func UnmarshalBankAccount(record []string) (model.BankAccount, error) {
	if len(record) != numFields {
		return model.BankAccount{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ba := model.BankAccount{
		Name:      strings.TrimSpace(record[colName]),
		AccountNo: strings.TrimSpace(record[colAccountNo]),
		RoutingNo: strings.TrimSpace(record[colRoutingNo]),
	}
	if ba.AccountNo == "" || ba.RoutingNo == "" {
		return model.BankAccount{}, fmt.Errorf("account_no and routing_no are required")
	}
	return ba, nil
}
