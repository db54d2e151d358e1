package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createAccount(t *testing.T, s *Store, no string) model.BankAccount {
	t.Helper()
	ba := model.BankAccount{Name: "Main", AccountNo: no, RoutingNo: "COBADEFFXXX"}
	require.NoError(t, s.CreateBankAccount(context.Background(), &ba))
	return ba
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	ba := model.BankAccount{AccountNo: "1", RoutingNo: "2"}
	require.NoError(t, s.CreateBankAccount(context.Background(), &ba))
	require.NoError(t, s.Close())

	// migrations already applied
	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	got, err := s.FindBankAccounts(context.Background(), "1", "2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ba.ID, got[0].ID)
}

func TestBankAccounts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	ba := createAccount(t, s, "1234567890")
	createAccount(t, s, "999")

	got, err := s.FindBankAccounts(ctx, "1234567890", "COBADEFFXXX")
	require.NoError(t, err)
	assert.Equal(t, []model.BankAccount{ba}, got)

	got, err = s.FindBankAccounts(ctx, "1234567890", "OTHER")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func stagingRecord(accountID, lineNo int64) *model.StagingRecord {
	checksum := int64(4023883722)
	return &model.StagingRecord{
		BankAccountID: accountID,
		LineNo:        lineNo,
		Trx: model.StatementLine{
			BankAccountNo:      "1234567890",
			RoutingNo:          "COBADEFFXXX",
			ExternalTrxID:      "1001",
			PayeeAccountNo:     "DE02120300000000202051",
			PayeeName:          "ACME GmbH",
			CheckNo:            "BYLADEM1001",
			Amount:             dec("-12.30"),
			StatementLineDate:  date(2024, 5, 2),
			ValutaDate:         date(2024, 5, 3),
			Memo:               "RE 480200000001\nDanke",
			SecondaryMemo:      "Art=Gutschrift",
			TrxType:            "4023883722",
			Reference:          "E2E",
			StatementReference: "2024-05.csv",
			Checksum:           &checksum,
		},
		LineDescription: "Kommentar",
		EftTrxType:      "166",
		ReferenceNo:     "MANDATE",
		StatementName:   "2024-06-01 09:30:15.123",
		StatementDate:   time.Date(2024, 6, 1, 9, 30, 15, 123_000_000, time.UTC),
		Description:     "Uploaded via Hibiscus loader",
	}
}

func TestStaging(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	ba := createAccount(t, s, "1234567890")

	first := stagingRecord(ba.ID, 1001)
	require.NoError(t, s.SaveStagingRecord(ctx, first))
	assert.NotZero(t, first.ID)

	second := stagingRecord(ba.ID, 1001)
	second.Trx.Checksum = nil
	require.NoError(t, s.SaveStagingRecord(ctx, second))

	n, err := s.CountStagingByLine(ctx, 1001, ba.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.CountStagingByLine(ctx, 1001, ba.ID+1, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	recs, err := s.StagingRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	got := recs[0]
	assert.Equal(t, first.ID, got.ID)
	assert.True(t, got.Trx.Amount.Equal(dec("-12.3")))
	got.Trx.Amount = first.Trx.Amount
	assert.Equal(t, *first, got)
	assert.Nil(t, recs[1].Trx.Checksum)

	require.NoError(t, s.DeleteStagingRecords(ctx, []int64{first.ID}))
	recs, _ = s.StagingRecords(ctx)
	assert.Len(t, recs, 1)

	deleted, err := s.DeleteAllStaging(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestStaging_UnknownAccount(t *testing.T) {
	s := openTest(t)
	err := s.SaveStagingRecord(context.Background(), stagingRecord(42, 1))
	assert.Error(t, err, "foreign keys are enforced")
}

func TestStatements(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	ba := createAccount(t, s, "1234567890")

	st := &model.BankStatement{
		BankAccountID: ba.ID,
		Name:          "2024-06-01 09:30:15.123",
		Description:   "Uploaded via Hibiscus loader",
		StatementDate: time.Date(2024, 6, 1, 9, 30, 15, 0, time.UTC),
		DocStatus:     model.DocStatusDrafted,
		Lines: []model.BankStatementLine{
			{Line: 1001, TrxAmt: dec("150"), StmtAmt: dec("150"), EftMemo: "RE 1", StatementLineDate: date(2024, 5, 2), ValutaDate: date(2024, 5, 3)},
			{Line: 1002, TrxAmt: dec("-5"), StmtAmt: dec("-5"), EftPayee: "Bank"},
		},
	}
	require.NoError(t, s.CreateStatement(ctx, st))
	require.NotZero(t, st.ID)
	require.NotZero(t, st.Lines[1].ID)
	assert.Equal(t, st.ID, st.Lines[0].StatementID)

	got, err := s.Statement(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.Name, got.Name)
	assert.Equal(t, st.StatementDate, got.StatementDate)
	assert.Equal(t, model.DocStatusDrafted, got.DocStatus)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "RE 1", got.Lines[0].EftMemo)
	assert.Equal(t, date(2024, 5, 3), got.Lines[0].ValutaDate)
	assert.True(t, got.Lines[1].TrxAmt.Equal(dec("-5")))

	name, found, err := s.PostedStatementName(ctx, 1002, ba.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, st.Name, name)
	_, found, err = s.PostedStatementName(ctx, 1003, ba.ID)
	require.NoError(t, err)
	assert.False(t, found)

	draft, err := s.LatestDraftStatement(ctx, ba.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, draft.ID)

	line := got.Lines[0]
	line.Description = "¡ Exact match ¡ "
	line.InvoiceID = 7
	line.PartnerID = 8
	line.PaymentID = 9
	require.NoError(t, s.UpdateStatementLine(ctx, &line))
	got, _ = s.Statement(ctx, st.ID)
	assert.Equal(t, line.Description, got.Lines[0].Description)
	assert.Equal(t, int64(7), got.Lines[0].InvoiceID)
	assert.Equal(t, int64(9), got.Lines[0].PaymentID)

	require.NoError(t, s.SetStatementStatus(ctx, st.ID, model.DocStatusInProgress))
	_, err = s.LatestDraftStatement(ctx, ba.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	missing := model.BankStatementLine{ID: 999}
	assert.ErrorIs(t, s.UpdateStatementLine(ctx, &missing), store.ErrNotFound)
	assert.ErrorIs(t, s.SetStatementStatus(ctx, 999, model.DocStatusCompleted), store.ErrNotFound)
	_, err = s.Statement(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFirstInvoice(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	drafted := model.Invoice{DocumentNo: "480200000001", IsSOTrx: true, IsActive: true,
		DocStatus: model.DocStatusDrafted, OpenAmt: dec("10"), GrandTotal: dec("10")}
	require.NoError(t, s.CreateInvoice(ctx, &drafted))
	open := model.Invoice{DocumentNo: "480200000001", IsSOTrx: true, IsActive: true,
		DocStatus: model.DocStatusCompleted, PartnerID: 3, OpenAmt: dec("150.00"), GrandTotal: dec("200")}
	require.NoError(t, s.CreateInvoice(ctx, &open))

	q := store.InvoiceQuery{
		DocumentNo:  "480200000001",
		IsSOTrx:     true,
		DocStatuses: []model.DocStatus{model.DocStatusCompleted},
		OnlyActive:  true,
	}
	got, err := s.FirstInvoice(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, open.ID, got.ID)
	assert.True(t, got.OpenAmt.Equal(dec("150")))
	assert.Equal(t, int64(3), got.PartnerID)

	q.IsSOTrx = false
	got, err = s.FirstInvoice(ctx, q)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFirstPayment(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	partner := model.Partner{Name: "Office Supplies KG", IBAN: []string{"DE1", "DE2"}}
	require.NoError(t, s.CreatePartner(ctx, &partner))

	gotPartner, err := s.Partner(ctx, partner.ID)
	require.NoError(t, err)
	assert.Equal(t, partner, *gotPartner)

	add := func(amount string, day int, receipt bool) model.Payment {
		p := model.Payment{DocStatus: model.DocStatusCompleted, PayAmt: dec(amount), IsReceipt: receipt,
			DateTrx: date(2024, 5, day), PartnerID: partner.ID, InvoiceID: 5}
		require.NoError(t, s.CreatePayment(ctx, &p))
		return p
	}
	add("12.30", 10, true)
	add("12.31", 10, false)
	want := add("12.3", 8, false)
	add("12.30", 10, false)

	q := store.PaymentQuery{
		DocStatuses: []model.DocStatus{model.DocStatusCompleted, model.DocStatusClosed},
		PayAmt:      dec("12.30"),
		PartnerName: "Office Supplies KG",
		IBAN:        "DE2",
		DateRanges:  []store.DateRange{store.Around(date(2024, 5, 10), 2)},
	}
	got, err := s.FirstPayment(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, int64(5), got.InvoiceID)

	q.IBAN = "DE3"
	got, err = s.FirstPayment(ctx, q)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.Partner(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
