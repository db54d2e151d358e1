package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

func TestBankAccounts(t *testing.T) {
	ctx := context.Background()
	s := New()
	ba := &model.BankAccount{Name: "Giro", AccountNo: "1234567890", RoutingNo: "COBADEFFXXX"}
	require.NoError(t, s.CreateBankAccount(ctx, ba))
	assert.NotZero(t, ba.ID)

	found, err := s.FindBankAccounts(ctx, "1234567890", "COBADEFFXXX")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ba.ID, found[0].ID)

	found, err = s.FindBankAccounts(ctx, "1234567890", "OTHER")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestStaging(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := &model.StagingRecord{BankAccountID: 1, LineNo: 42}
	b := &model.StagingRecord{BankAccountID: 1, LineNo: 43}
	require.NoError(t, s.SaveStagingRecord(ctx, a))
	require.NoError(t, s.SaveStagingRecord(ctx, b))

	n, err := s.CountStagingByLine(ctx, 42, 1, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "own record is excluded")

	n, err = s.CountStagingByLine(ctx, 42, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := s.StagingRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(42), recs[0].LineNo)

	require.NoError(t, s.DeleteStagingRecords(ctx, []int64{a.ID}))
	deleted, err := s.DeleteAllStaging(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestStatements(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := &model.BankStatement{
		BankAccountID: 7,
		Name:          "2024-05-02 10:00:00",
		DocStatus:     model.DocStatusDrafted,
		Lines: []model.BankStatementLine{
			{Line: 100, TrxAmt: decimal.RequireFromString("10")},
			{Line: 101, TrxAmt: decimal.RequireFromString("-5")},
		},
	}
	require.NoError(t, s.CreateStatement(ctx, st))

	name, ok, err := s.PostedStatementName(ctx, 101, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, st.Name, name)

	_, ok, err = s.PostedStatementName(ctx, 101, 8)
	require.NoError(t, err)
	assert.False(t, ok)

	draft, err := s.LatestDraftStatement(ctx, 7)
	require.NoError(t, err)
	require.Len(t, draft.Lines, 2)

	line := draft.Lines[0]
	line.Description = "changed"
	require.NoError(t, s.UpdateStatementLine(ctx, &line))

	require.NoError(t, s.SetStatementStatus(ctx, st.ID, model.DocStatusInProgress))
	got, err := s.Statement(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusInProgress, got.DocStatus)
	assert.Equal(t, "changed", got.Lines[0].Description)

	_, err = s.LatestDraftStatement(ctx, 7)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Statement(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFirstPayment_OrdersByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	partner := &model.Partner{Name: "Vendor", IBAN: []string{"DE1"}}
	require.NoError(t, s.CreatePartner(ctx, partner))

	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		require.NoError(t, s.CreatePayment(ctx, &model.Payment{
			PartnerID: partner.ID,
			DocStatus: model.DocStatusCompleted,
			PayAmt:    decimal.RequireFromString("12.00"),
			DateTrx:   date,
		}))
	}

	p, err := s.FirstPayment(ctx, store.PaymentQuery{
		PayAmt:      decimal.RequireFromString("12"),
		PartnerName: "Vendor",
		IBAN:        "DE1",
		DateRanges:  []store.DateRange{store.Around(date, 0)},
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, partner.ID+1, p.ID)
}

func TestFirstInvoice_None(t *testing.T) {
	s := New()
	inv, err := s.FirstInvoice(context.Background(), store.InvoiceQuery{DocumentNo: "x"})
	require.NoError(t, err)
	assert.Nil(t, inv)
}
