package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

const lineColumns = `id, statement_id, line, statement_line_date, valuta_date, trx_amt, stmt_amt,
	eft_trx_id, eft_payee, eft_payee_account, eft_check_no, eft_memo, eft_reference,
	eft_trx_type, reference_no, memo, description, invoice_id, payment_id, partner_id`

// PostedStatementName implements store.Statements.
func (s *Store) PostedStatementName(ctx context.Context, line, bankAccountID int64) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT s.name FROM statement_lines l
		 JOIN statements s ON s.id = l.statement_id
		 WHERE l.line = ? AND s.bank_account_id = ?
		 ORDER BY l.id LIMIT 1`, line, bankAccountID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying posted lines: %w", err)
	}
	return name, true, nil
}

// CreateStatement implements store.Statements. The header and its lines are
// written in one transaction.
func (s *Store) CreateStatement(ctx context.Context, st *model.BankStatement) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO statements (bank_account_id, name, description, statement_date, doc_status)
			 VALUES (?, ?, ?, ?, ?)`,
			st.BankAccountID, st.Name, st.Description, formatTime(st.StatementDate), string(st.DocStatus))
		if err != nil {
			return fmt.Errorf("inserting statement: %w", err)
		}
		if st.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for i := range st.Lines {
			l := &st.Lines[i]
			l.StatementID = st.ID
			res, err := tx.ExecContext(ctx,
				`INSERT INTO statement_lines (statement_id, line, statement_line_date, valuta_date,
					trx_amt, stmt_amt, eft_trx_id, eft_payee, eft_payee_account, eft_check_no,
					eft_memo, eft_reference, eft_trx_type, reference_no, memo, description,
					invoice_id, payment_id, partner_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				l.StatementID, l.Line, formatTime(l.StatementLineDate), formatTime(l.ValutaDate),
				l.TrxAmt.String(), l.StmtAmt.String(), l.EftTrxID, l.EftPayee, l.EftPayeeAccount, l.EftCheckNo,
				l.EftMemo, l.EftReference, l.EftTrxType, l.ReferenceNo, l.Memo, l.Description,
				l.InvoiceID, l.PaymentID, l.PartnerID)
			if err != nil {
				return fmt.Errorf("inserting line %d: %w", l.Line, err)
			}
			if l.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Statement implements store.Statements. Lines are ordered by ID.
func (s *Store) Statement(ctx context.Context, id int64) (*model.BankStatement, error) {
	var (
		st            model.BankStatement
		statementDate string
		status        string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, bank_account_id, name, description, statement_date, doc_status
		 FROM statements WHERE id = ?`, id).
		Scan(&st.ID, &st.BankAccountID, &st.Name, &st.Description, &statementDate, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("statement %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying statement %d: %w", id, err)
	}
	st.DocStatus = model.DocStatus(status)
	if st.StatementDate, err = parseTime(statementDate); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM statement_lines WHERE statement_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying lines of statement %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		st.Lines = append(st.Lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &st, nil
}

func scanLine(sc scanner) (*model.BankStatementLine, error) {
	var (
		l                model.BankStatementLine
		lineDate, valuta string
		trxAmt, stmtAmt  string
	)
	err := sc.Scan(&l.ID, &l.StatementID, &l.Line, &lineDate, &valuta, &trxAmt, &stmtAmt,
		&l.EftTrxID, &l.EftPayee, &l.EftPayeeAccount, &l.EftCheckNo, &l.EftMemo, &l.EftReference,
		&l.EftTrxType, &l.ReferenceNo, &l.Memo, &l.Description, &l.InvoiceID, &l.PaymentID, &l.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("scanning statement line: %w", err)
	}
	if l.StatementLineDate, err = parseTime(lineDate); err != nil {
		return nil, err
	}
	if l.ValutaDate, err = parseTime(valuta); err != nil {
		return nil, err
	}
	if l.TrxAmt, err = parseDecimal(trxAmt); err != nil {
		return nil, err
	}
	if l.StmtAmt, err = parseDecimal(stmtAmt); err != nil {
		return nil, err
	}
	return &l, nil
}

// LatestDraftStatement implements store.Statements.
func (s *Store) LatestDraftStatement(ctx context.Context, bankAccountID int64) (*model.BankStatement, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM statements WHERE bank_account_id = ? AND doc_status = ?
		 ORDER BY id DESC LIMIT 1`, bankAccountID, string(model.DocStatusDrafted)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("draft statement for bank account %d: %w", bankAccountID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying draft statement: %w", err)
	}
	return s.Statement(ctx, id)
}

// UpdateStatementLine implements store.Statements. Only the fields matching
// and payment creation change are written.
func (s *Store) UpdateStatementLine(ctx context.Context, line *model.BankStatementLine) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE statement_lines SET description = ?, invoice_id = ?, payment_id = ?, partner_id = ?
		 WHERE id = ?`,
		line.Description, line.InvoiceID, line.PaymentID, line.PartnerID, line.ID)
	if err != nil {
		return fmt.Errorf("updating statement line %d: %w", line.ID, err)
	}
	return mustAffect(res, "statement line", line.ID)
}

// SetStatementStatus implements store.Statements.
func (s *Store) SetStatementStatus(ctx context.Context, id int64, status model.DocStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE statements SET doc_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating statement %d: %w", id, err)
	}
	return mustAffect(res, "statement", id)
}
