package cached

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store/memory"
)

type countingStore struct {
	*memory.Store
	finds int
}

func (c *countingStore) FindBankAccounts(ctx context.Context, accountNo, routingNo string) ([]model.BankAccount, error) {
	c.finds++
	return c.Store.FindBankAccounts(ctx, accountNo, routingNo)
}

func TestFindBankAccounts_Cached(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{Store: memory.New()}
	s := New(next, time.Minute)

	ba := &model.BankAccount{Name: "Main", AccountNo: "1234567890", RoutingNo: "COBADEFFXXX"}
	require.NoError(t, s.CreateBankAccount(ctx, ba))

	for i := 0; i < 3; i++ {
		got, err := s.FindBankAccounts(ctx, "1234567890", "COBADEFFXXX")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, ba.ID, got[0].ID)
	}
	assert.Equal(t, 1, next.finds)
}

func TestCreateBankAccount_Invalidates(t *testing.T) {
	ctx := context.Background()
	next := &countingStore{Store: memory.New()}
	s := New(next, time.Minute)

	got, err := s.FindBankAccounts(ctx, "999", "COBADEFFXXX")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.CreateBankAccount(ctx, &model.BankAccount{AccountNo: "999", RoutingNo: "COBADEFFXXX"}))
	got, err = s.FindBankAccounts(ctx, "999", "COBADEFFXXX")
	require.NoError(t, err)
	assert.Len(t, got, 1, "a lookup cached before the account existed is dropped")
	assert.Equal(t, 2, next.finds)
}

func TestPassThrough(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), time.Minute)

	inv := &model.Invoice{DocumentNo: "480200000001", IsSOTrx: true}
	require.NoError(t, s.CreateInvoice(ctx, inv))
	assert.NotZero(t, inv.ID)
	require.NoError(t, s.Close())
}
