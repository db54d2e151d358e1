package accounts

import (
	"context"
	"fmt"
	"io"

	"github.com/bxservice/hibiscus-recon/internal/model"
)

// Store is what seeding needs from the record store.
type Store interface {
	FindBankAccounts(ctx context.Context, accountNo, routingNo string) ([]model.BankAccount, error)
	CreateBankAccount(ctx context.Context, ba *model.BankAccount) error
}

// Service seeds bank accounts.
type Service struct {
	store Store
}

// NewService creates a Service.
func NewService(st Store) *Service {
	return &Service{store: st}
}

// ImportResult lists what Import did.
type ImportResult struct {
	Created []model.BankAccount
	Skipped []model.BankAccount // account and routing number already known
}

// Import creates every account read from r that the store does not know yet.
// Rows repeating an earlier row are skipped as well.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	accounts, err := ReadBankAccounts(r)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	for _, ba := range accounts {
		existing, err := s.store.FindBankAccounts(ctx, ba.AccountNo, ba.RoutingNo)
		if err != nil {
			return res, fmt.Errorf("looking up %s/%s: %w", ba.AccountNo, ba.RoutingNo, err)
		}
		if len(existing) > 0 {
			res.Skipped = append(res.Skipped, existing[0])
			continue
		}
		if err := s.store.CreateBankAccount(ctx, &ba); err != nil {
			return res, fmt.Errorf("creating %s/%s: %w", ba.AccountNo, ba.RoutingNo, err)
		}
		res.Created = append(res.Created, ba)
	}
	return res, nil
}
