// Package statement turns staged Hibiscus rows into bank statements and
// drives them through matching, payment creation and preparation.
package statement

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bxservice/hibiscus-recon/internal/matcher"
	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

// ErrNotDraft means the statement has already left the draft state.
var ErrNotDraft = errors.New("statement is not in draft")

// Store is what the Service needs from the record store.
type Store interface {
	store.Staging
	store.Statements
	store.Payments
}

// Service provides the statement workflow.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService creates a statement Service.
func NewService(st Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log}
}

// Import moves all staging records into new draft statements, one per bank
// account in order of first appearance, and deletes the imported records.
func (s *Service) Import(ctx context.Context) ([]model.BankStatement, error) {
	records, err := s.store.StagingRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading staging records: %w", err)
	}

	var order []int64
	byAccount := make(map[int64][]model.StagingRecord)
	for _, rec := range records {
		if _, seen := byAccount[rec.BankAccountID]; !seen {
			order = append(order, rec.BankAccountID)
		}
		byAccount[rec.BankAccountID] = append(byAccount[rec.BankAccountID], rec)
	}

	var created []model.BankStatement
	for _, accountID := range order {
		recs := byAccount[accountID]
		st := newStatement(recs)
		if err := s.store.CreateStatement(ctx, &st); err != nil {
			return created, fmt.Errorf("creating statement for bank account %d: %w", accountID, err)
		}

		ids := make([]int64, len(recs))
		for i, r := range recs {
			ids[i] = r.ID
		}
		if err := s.store.DeleteStagingRecords(ctx, ids); err != nil {
			return created, fmt.Errorf("deleting imported staging records: %w", err)
		}

		s.log.Info().Int64("statement", st.ID).Int64("bank_account", accountID).
			Int("lines", len(st.Lines)).Msg("statement imported")
		created = append(created, st)
	}
	return created, nil
}

func newStatement(recs []model.StagingRecord) model.BankStatement {
	first := recs[0]
	st := model.BankStatement{
		BankAccountID: first.BankAccountID,
		Name:          first.StatementName,
		Description:   first.Description,
		StatementDate: first.StatementDate,
		DocStatus:     model.DocStatusDrafted,
	}
	for _, r := range recs {
		st.Lines = append(st.Lines, model.BankStatementLine{
			Line:              r.LineNo,
			StatementLineDate: r.Trx.StatementLineDate,
			ValutaDate:        r.Trx.ValutaDate,
			TrxAmt:            r.Trx.Amount,
			StmtAmt:           r.Trx.Amount,
			EftTrxID:          r.Trx.ExternalTrxID,
			EftPayee:          r.Trx.PayeeName,
			EftPayeeAccount:   r.Trx.PayeeAccountNo,
			EftCheckNo:        r.Trx.CheckNo,
			EftMemo:           r.Trx.Memo,
			EftReference:      r.Trx.Reference,
			EftTrxType:        r.EftTrxType,
			ReferenceNo:       r.ReferenceNo,
			Memo:              r.Trx.SecondaryMemo,
			Description:       r.LineDescription,
		})
	}
	return st
}

// LineError records a line the matcher failed on.
type LineError struct {
	Line int64
	Err  error
}

// MatchSummary counts the outcome of matching a statement.
type MatchSummary struct {
	Lines   int // lines handed to the matcher
	Matched int // lines that got an invoice or payment
	Noted   int // lines that only got a note
	Failed  []LineError
}

// Match runs m over every non-zero line of a draft statement that has no
// payment yet and stores what it finds. A failing line is recorded and
// skipped, except for a missing invoice pattern which aborts the run.
func (s *Service) Match(ctx context.Context, statementID int64, m matcher.Matcher) (*MatchSummary, error) {
	st, err := s.draft(ctx, statementID)
	if err != nil {
		return nil, err
	}

	sum := &MatchSummary{}
	for i := range st.Lines {
		line := &st.Lines[i]
		if line.TrxAmt.IsZero() || line.PaymentID != 0 {
			continue
		}
		sum.Lines++

		info, err := m.FindMatch(ctx, line)
		if errors.Is(err, matcher.ErrNoInvoicePattern) {
			return sum, err
		}
		if err != nil {
			s.log.Error().Err(err).Int64("line", line.Line).Msg("matching failed")
			sum.Failed = append(sum.Failed, LineError{Line: line.Line, Err: err})
			continue
		}
		if info.IsEmpty() {
			continue
		}

		info.Apply(line)
		if err := s.store.UpdateStatementLine(ctx, line); err != nil {
			return sum, fmt.Errorf("updating line %d: %w", line.Line, err)
		}
		if info.InvoiceID > 0 || info.PaymentID > 0 {
			sum.Matched++
		} else {
			sum.Noted++
		}
	}

	s.log.Info().Int64("statement", st.ID).Int("lines", sum.Lines).Int("matched", sum.Matched).
		Int("noted", sum.Noted).Int("failed", len(sum.Failed)).Msg("statement matched")
	return sum, nil
}

// CreatePayments creates a completed, reconciled payment for every line of
// a draft statement that has an invoice but no payment, and links it.
func (s *Service) CreatePayments(ctx context.Context, statementID int64) ([]model.Payment, error) {
	st, err := s.draft(ctx, statementID)
	if err != nil {
		return nil, err
	}

	var created []model.Payment
	for i := range st.Lines {
		line := &st.Lines[i]
		if !line.NeedsPayment() {
			continue
		}
		p := model.Payment{
			DocumentNo:    fmt.Sprintf("%d-%d", st.ID, line.Line),
			IsReceipt:     line.TrxAmt.IsPositive(),
			IsReconciled:  true,
			DocStatus:     model.DocStatusCompleted,
			PayAmt:        line.TrxAmt.Abs(),
			DateTrx:       line.StatementLineDate,
			PartnerID:     line.PartnerID,
			InvoiceID:     line.InvoiceID,
			BankAccountID: st.BankAccountID,
		}
		if err := s.store.CreatePayment(ctx, &p); err != nil {
			return created, fmt.Errorf("creating payment for line %d: %w", line.Line, err)
		}
		line.PaymentID = p.ID
		if err := s.store.UpdateStatementLine(ctx, line); err != nil {
			return created, fmt.Errorf("linking payment to line %d: %w", line.Line, err)
		}
		s.log.Info().Int64("line", line.Line).Int64("payment", p.ID).Int64("invoice", p.InvoiceID).Msg("payment created")
		created = append(created, p)
	}
	return created, nil
}

// Prepare moves a draft statement to in progress. It refuses with a
// *ValidationError while lines are unsettled.
func (s *Service) Prepare(ctx context.Context, statementID int64) error {
	st, err := s.draft(ctx, statementID)
	if err != nil {
		return err
	}
	if err := Validate(st); err != nil {
		return err
	}
	if err := s.store.SetStatementStatus(ctx, st.ID, model.DocStatusInProgress); err != nil {
		return fmt.Errorf("preparing statement %d: %w", st.ID, err)
	}
	s.log.Info().Int64("statement", st.ID).Msg("statement prepared")
	return nil
}

func (s *Service) draft(ctx context.Context, id int64) (*model.BankStatement, error) {
	st, err := s.store.Statement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading statement %d: %w", id, err)
	}
	if st.DocStatus != model.DocStatusDrafted {
		return nil, fmt.Errorf("statement %d (%s): %w", id, st.DocStatus, ErrNotDraft)
	}
	return st, nil
}
