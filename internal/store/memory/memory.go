// Package memory is an in-memory implementation of store.Store.
// It is safe for concurrent use; data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps all records in maps keyed by ID.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	bankAccounts map[int64]model.BankAccount
	staging      map[int64]model.StagingRecord
	statements   map[int64]model.BankStatement
	lines        map[int64]model.BankStatementLine
	invoices     map[int64]model.Invoice
	payments     map[int64]model.Payment
	partners     map[int64]model.Partner
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		bankAccounts: make(map[int64]model.BankAccount),
		staging:      make(map[int64]model.StagingRecord),
		statements:   make(map[int64]model.BankStatement),
		lines:        make(map[int64]model.BankStatementLine),
		invoices:     make(map[int64]model.Invoice),
		payments:     make(map[int64]model.Payment),
		partners:     make(map[int64]model.Partner),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FindBankAccounts implements store.BankAccounts.
func (s *Store) FindBankAccounts(ctx context.Context, accountNo, routingNo string) ([]model.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.BankAccount
	for _, id := range sortedKeys(s.bankAccounts) {
		ba := s.bankAccounts[id]
		if ba.AccountNo == accountNo && ba.RoutingNo == routingNo {
			result = append(result, ba)
		}
	}
	return result, nil
}

// CreateBankAccount implements store.BankAccounts.
func (s *Store) CreateBankAccount(ctx context.Context, ba *model.BankAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ba.ID = s.newID()
	s.bankAccounts[ba.ID] = *ba
	return nil
}

// SaveStagingRecord implements store.Staging.
func (s *Store) SaveStagingRecord(ctx context.Context, rec *model.StagingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == 0 {
		rec.ID = s.newID()
	}
	s.staging[rec.ID] = *rec
	return nil
}

// CountStagingByLine implements store.Staging.
func (s *Store) CountStagingByLine(ctx context.Context, line, bankAccountID, excludeID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for id, rec := range s.staging {
		if id != excludeID && rec.LineNo == line && rec.BankAccountID == bankAccountID {
			n++
		}
	}
	return n, nil
}

// StagingRecords implements store.Staging.
func (s *Store) StagingRecords(ctx context.Context) ([]model.StagingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]model.StagingRecord, 0, len(s.staging))
	for _, id := range sortedKeys(s.staging) {
		recs = append(recs, s.staging[id])
	}
	return recs, nil
}

// DeleteStagingRecords implements store.Staging.
func (s *Store) DeleteStagingRecords(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.staging, id)
	}
	return nil
}

// DeleteAllStaging implements store.Staging.
func (s *Store) DeleteAllStaging(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.staging)
	clear(s.staging)
	return n, nil
}

// PostedStatementName implements store.Statements.
func (s *Store) PostedStatementName(ctx context.Context, line, bankAccountID int64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range sortedKeys(s.lines) {
		l := s.lines[id]
		if l.Line != line {
			continue
		}
		st := s.statements[l.StatementID]
		if st.BankAccountID == bankAccountID {
			return st.Name, true, nil
		}
	}
	return "", false, nil
}

// CreateStatement implements store.Statements. Lines are stored with the statement.
func (s *Store) CreateStatement(ctx context.Context, st *model.BankStatement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.ID = s.newID()
	for i := range st.Lines {
		st.Lines[i].ID = s.newID()
		st.Lines[i].StatementID = st.ID
		s.lines[st.Lines[i].ID] = st.Lines[i]
	}
	header := *st
	header.Lines = nil
	s.statements[st.ID] = header
	return nil
}

// Statement implements store.Statements.
func (s *Store) Statement(ctx context.Context, id int64) (*model.BankStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.statementLocked(id)
}

func (s *Store) statementLocked(id int64) (*model.BankStatement, error) {
	st, ok := s.statements[id]
	if !ok {
		return nil, fmt.Errorf("statement %d: %w", id, store.ErrNotFound)
	}
	for _, lid := range sortedKeys(s.lines) {
		if l := s.lines[lid]; l.StatementID == id {
			st.Lines = append(st.Lines, l)
		}
	}
	return &st, nil
}

// LatestDraftStatement implements store.Statements.
func (s *Store) LatestDraftStatement(ctx context.Context, bankAccountID int64) (*model.BankStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := sortedKeys(s.statements)
	for i := len(keys) - 1; i >= 0; i-- {
		st := s.statements[keys[i]]
		if st.BankAccountID == bankAccountID && st.DocStatus == model.DocStatusDrafted {
			return s.statementLocked(st.ID)
		}
	}
	return nil, fmt.Errorf("draft statement for bank account %d: %w", bankAccountID, store.ErrNotFound)
}

// UpdateStatementLine implements store.Statements.
func (s *Store) UpdateStatementLine(ctx context.Context, line *model.BankStatementLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lines[line.ID]; !ok {
		return fmt.Errorf("statement line %d: %w", line.ID, store.ErrNotFound)
	}
	s.lines[line.ID] = *line
	return nil
}

// SetStatementStatus implements store.Statements.
func (s *Store) SetStatementStatus(ctx context.Context, id int64, status model.DocStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statements[id]
	if !ok {
		return fmt.Errorf("statement %d: %w", id, store.ErrNotFound)
	}
	st.DocStatus = status
	s.statements[id] = st
	return nil
}

// FirstInvoice implements store.Invoices.
func (s *Store) FirstInvoice(ctx context.Context, q store.InvoiceQuery) (*model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range sortedKeys(s.invoices) {
		if inv := s.invoices[id]; q.Matches(inv) {
			return &inv, nil
		}
	}
	return nil, nil
}

// CreateInvoice implements store.Invoices.
func (s *Store) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv.ID = s.newID()
	s.invoices[inv.ID] = *inv
	return nil
}

// FirstPayment implements store.Payments.
func (s *Store) FirstPayment(ctx context.Context, q store.PaymentQuery) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range sortedKeys(s.payments) {
		p := s.payments[id]
		if q.Matches(p, s.partners[p.PartnerID]) {
			return &p, nil
		}
	}
	return nil, nil
}

// CreatePayment implements store.Payments.
func (s *Store) CreatePayment(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.newID()
	s.payments[p.ID] = *p
	return nil
}

// CreatePartner implements store.Partners.
func (s *Store) CreatePartner(ctx context.Context, p *model.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.newID()
	s.partners[p.ID] = *p
	return nil
}

// Partner implements store.Partners.
func (s *Store) Partner(ctx context.Context, id int64) (*model.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partners[id]
	if !ok {
		return nil, fmt.Errorf("partner %d: %w", id, store.ErrNotFound)
	}
	return &p, nil
}
