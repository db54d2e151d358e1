package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bxservice/hibiscus-recon/internal/model"
)

const stagingColumns = `id, bank_account_id, line_no, account_no, routing_no, external_trx_id,
	payee_account_no, payee_name, check_no, amount, statement_line_date, valuta_date,
	memo, secondary_memo, trx_type, reference, statement_reference, checksum,
	line_description, eft_trx_type, reference_no, statement_name, statement_date, description`

// SaveStagingRecord implements store.Staging.
func (s *Store) SaveStagingRecord(ctx context.Context, rec *model.StagingRecord) error {
	var checksum sql.NullInt64
	if rec.Trx.Checksum != nil {
		checksum = sql.NullInt64{Int64: *rec.Trx.Checksum, Valid: true}
	}
	t := rec.Trx
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO staging (bank_account_id, line_no, account_no, routing_no, external_trx_id,
			payee_account_no, payee_name, check_no, amount, statement_line_date, valuta_date,
			memo, secondary_memo, trx_type, reference, statement_reference, checksum,
			line_description, eft_trx_type, reference_no, statement_name, statement_date, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BankAccountID, rec.LineNo, t.BankAccountNo, t.RoutingNo, t.ExternalTrxID,
		t.PayeeAccountNo, t.PayeeName, t.CheckNo, t.Amount.String(),
		formatTime(t.StatementLineDate), formatTime(t.ValutaDate),
		t.Memo, t.SecondaryMemo, t.TrxType, t.Reference, t.StatementReference, checksum,
		rec.LineDescription, rec.EftTrxType, rec.ReferenceNo, rec.StatementName,
		formatTime(rec.StatementDate), rec.Description)
	if err != nil {
		return fmt.Errorf("inserting staging record: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	return err
}

// CountStagingByLine implements store.Staging.
func (s *Store) CountStagingByLine(ctx context.Context, line, bankAccountID, excludeID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM staging WHERE line_no = ? AND bank_account_id = ? AND id <> ?`,
		line, bankAccountID, excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting staging records: %w", err)
	}
	return n, nil
}

// StagingRecords implements store.Staging.
func (s *Store) StagingRecords(ctx context.Context) ([]model.StagingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+stagingColumns+` FROM staging ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying staging records: %w", err)
	}
	defer rows.Close()

	var out []model.StagingRecord
	for rows.Next() {
		rec, err := scanStaging(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanStaging(sc scanner) (*model.StagingRecord, error) {
	var (
		rec                      model.StagingRecord
		amount, lineDate, valuta string
		statementDate            string
		checksum                 sql.NullInt64
	)
	t := &rec.Trx
	err := sc.Scan(&rec.ID, &rec.BankAccountID, &rec.LineNo, &t.BankAccountNo, &t.RoutingNo, &t.ExternalTrxID,
		&t.PayeeAccountNo, &t.PayeeName, &t.CheckNo, &amount, &lineDate, &valuta,
		&t.Memo, &t.SecondaryMemo, &t.TrxType, &t.Reference, &t.StatementReference, &checksum,
		&rec.LineDescription, &rec.EftTrxType, &rec.ReferenceNo, &rec.StatementName, &statementDate, &rec.Description)
	if err != nil {
		return nil, fmt.Errorf("scanning staging record: %w", err)
	}
	if checksum.Valid {
		v := checksum.Int64
		t.Checksum = &v
	}
	if t.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if t.StatementLineDate, err = parseTime(lineDate); err != nil {
		return nil, err
	}
	if t.ValutaDate, err = parseTime(valuta); err != nil {
		return nil, err
	}
	if rec.StatementDate, err = parseTime(statementDate); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteStagingRecords implements store.Staging.
func (s *Store) DeleteStagingRecords(ctx context.Context, ids []int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM staging WHERE id = ?`, id); err != nil {
				return fmt.Errorf("deleting staging record %d: %w", id, err)
			}
		}
		return nil
	})
}

// DeleteAllStaging implements store.Staging.
func (s *Store) DeleteAllStaging(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM staging`)
	if err != nil {
		return 0, fmt.Errorf("deleting staging records: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
