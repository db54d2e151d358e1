package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxservice/hibiscus-recon/internal/config"
	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store/memory"
)

type stubMatcher struct{ note string }

func (s stubMatcher) FindMatch(ctx context.Context, line *model.BankStatementLine) (model.MatchInfo, error) {
	return model.MatchInfo{Note: s.note}, nil
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get(InvoiceInMemoName))
	assert.NotNil(t, r.Get("Vendor-SEPA-Payment"))
	assert.Nil(t, r.Get("unknown"))
	assert.Equal(t, []string{"invoice-in-memo", "vendor-sepa-payment"}, r.Names())
}

func TestRegistry_New(t *testing.T) {
	st := memory.New()
	deps := Deps{
		Config:   config.MatchingConfig{SalesInvoiceMatchRegex: invoicePattern},
		Invoices: st,
		Payments: st,
	}
	r := DefaultRegistry()

	m, err := r.New(InvoiceInMemoName, deps)
	require.NoError(t, err)
	assert.IsType(t, &InvoiceInMemo{}, m)

	m, err = r.New(VendorSEPAPaymentName, deps)
	require.NoError(t, err)
	assert.IsType(t, &VendorSEPAPayment{}, m)

	m, err = r.New("de.example.Unknown", deps)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRegistry_NewFactoryError(t *testing.T) {
	deps := Deps{Config: config.MatchingConfig{SalesInvoiceMatchRegex: "(unclosed"}}
	_, err := DefaultRegistry().New(InvoiceInMemoName, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating matcher invoice-in-memo")
}

func TestRegistry_Extend(t *testing.T) {
	r := DefaultRegistry()
	r.Register("always-note", func(Deps) (Matcher, error) { return stubMatcher{note: "hello"}, nil })

	m, err := r.New("ALWAYS-NOTE", Deps{})
	require.NoError(t, err)
	info, err := m.FindMatch(context.Background(), &model.BankStatementLine{})
	require.NoError(t, err)
	assert.Equal(t, "hello", info.Note)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register("x", func(Deps) (Matcher, error) { return stubMatcher{}, nil })
	assert.Panics(t, func() {
		r.Register("X", func(Deps) (Matcher, error) { return stubMatcher{}, nil })
	})
}
