// Package cached wraps a store.Store with an in-process cache of bank
// account lookups. Loading a file resolves the same account for every row.
package cached

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

// DefaultExpiration is how long a resolved account stays cached.
const DefaultExpiration = 5 * time.Minute

// Store caches FindBankAccounts and passes everything else through.
type Store struct {
	store.Store
	accounts *gocache.Cache
}

var _ store.Store = (*Store)(nil)

// New wraps next. Entries expire after ttl.
func New(next store.Store, ttl time.Duration) *Store {
	return &Store{Store: next, accounts: gocache.New(ttl, 2*ttl)}
}

func accountKey(accountNo, routingNo string) string {
	return accountNo + "\x00" + routingNo
}

// FindBankAccounts implements store.BankAccounts. Callers must not modify
// the returned slice.
func (s *Store) FindBankAccounts(ctx context.Context, accountNo, routingNo string) ([]model.BankAccount, error) {
	key := accountKey(accountNo, routingNo)
	if v, found := s.accounts.Get(key); found {
		return v.([]model.BankAccount), nil
	}
	accounts, err := s.Store.FindBankAccounts(ctx, accountNo, routingNo)
	if err != nil {
		return nil, err
	}
	s.accounts.Set(key, accounts, gocache.DefaultExpiration)
	return accounts, nil
}

// CreateBankAccount implements store.BankAccounts and drops cached lookups
// the new account could change.
func (s *Store) CreateBankAccount(ctx context.Context, ba *model.BankAccount) error {
	if err := s.Store.CreateBankAccount(ctx, ba); err != nil {
		return err
	}
	s.accounts.Delete(accountKey(ba.AccountNo, ba.RoutingNo))
	return nil
}
