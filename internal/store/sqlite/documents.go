package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

// FirstInvoice implements store.Invoices. Amounts are stored as text, so
// status and activity are filtered here with the query's own rules.
func (s *Store) FirstInvoice(ctx context.Context, q store.InvoiceQuery) (*model.Invoice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_no, is_so_trx, is_active, doc_status, partner_id, grand_total, open_amt
		 FROM invoices WHERE document_no = ? AND is_so_trx = ? ORDER BY id`, q.DocumentNo, q.IsSOTrx)
	if err != nil {
		return nil, fmt.Errorf("querying invoices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			inv              model.Invoice
			status           string
			grandTotal, open string
		)
		if err := rows.Scan(&inv.ID, &inv.DocumentNo, &inv.IsSOTrx, &inv.IsActive, &status,
			&inv.PartnerID, &grandTotal, &open); err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}
		inv.DocStatus = model.DocStatus(status)
		if inv.GrandTotal, err = parseDecimal(grandTotal); err != nil {
			return nil, err
		}
		if inv.OpenAmt, err = parseDecimal(open); err != nil {
			return nil, err
		}
		if q.Matches(inv) {
			return &inv, nil
		}
	}
	return nil, rows.Err()
}

// CreateInvoice implements store.Invoices.
func (s *Store) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (document_no, is_so_trx, is_active, doc_status, partner_id, grand_total, open_amt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.DocumentNo, inv.IsSOTrx, inv.IsActive, string(inv.DocStatus), inv.PartnerID,
		inv.GrandTotal.String(), inv.OpenAmt.String())
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", err)
	}
	inv.ID, err = res.LastInsertId()
	return err
}

// FirstPayment implements store.Payments. Payments are joined with their
// partner and the partner's IBANs in SQL; amount, status and date windows
// are checked with the query's own rules.
func (s *Store) FirstPayment(ctx context.Context, q store.PaymentQuery) (*model.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.document_no, p.is_receipt, p.is_reconciled, p.doc_status, p.pay_amt,
			p.date_trx, p.partner_id, p.invoice_id, p.bank_account_id, bp.name, bpb.iban
		 FROM payments p
		 JOIN partners bp ON p.partner_id = bp.id
		 JOIN partner_ibans bpb ON bpb.partner_id = bp.id
		 WHERE p.is_receipt = ? AND p.is_reconciled = ? AND bp.name = ? AND bpb.iban = ?
		 ORDER BY p.id`,
		q.IsReceipt, q.IsReconciled, q.PartnerName, q.IBAN)
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p              model.Payment
			partner        model.Partner
			status, amount string
			dateTrx, iban  string
		)
		if err := rows.Scan(&p.ID, &p.DocumentNo, &p.IsReceipt, &p.IsReconciled, &status, &amount,
			&dateTrx, &p.PartnerID, &p.InvoiceID, &p.BankAccountID, &partner.Name, &iban); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		p.DocStatus = model.DocStatus(status)
		if p.PayAmt, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if p.DateTrx, err = parseTime(dateTrx); err != nil {
			return nil, err
		}
		partner.ID = p.PartnerID
		partner.IBAN = []string{iban}
		if q.Matches(p, partner) {
			return &p, nil
		}
	}
	return nil, rows.Err()
}

// CreatePayment implements store.Payments.
func (s *Store) CreatePayment(ctx context.Context, p *model.Payment) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (document_no, is_receipt, is_reconciled, doc_status, pay_amt, date_trx,
			partner_id, invoice_id, bank_account_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.DocumentNo, p.IsReceipt, p.IsReconciled, string(p.DocStatus), p.PayAmt.String(),
		formatTime(p.DateTrx), p.PartnerID, p.InvoiceID, p.BankAccountID)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// CreatePartner implements store.Partners.
func (s *Store) CreatePartner(ctx context.Context, p *model.Partner) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO partners (name) VALUES (?)`, p.Name)
		if err != nil {
			return fmt.Errorf("inserting partner: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, iban := range p.IBAN {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO partner_ibans (partner_id, iban) VALUES (?, ?)`, p.ID, iban); err != nil {
				return fmt.Errorf("inserting IBAN %s: %w", iban, err)
			}
		}
		return nil
	})
}

// Partner implements store.Partners.
func (s *Store) Partner(ctx context.Context, id int64) (*model.Partner, error) {
	p := model.Partner{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM partners WHERE id = ?`, id).Scan(&p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("partner %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying partner %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT iban FROM partner_ibans WHERE partner_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("querying IBANs of partner %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var iban string
		if err := rows.Scan(&iban); err != nil {
			return nil, fmt.Errorf("scanning IBAN: %w", err)
		}
		p.IBAN = append(p.IBAN, iban)
	}
	return &p, rows.Err()
}
