// Package accounts exposes read access to accounts.
package accounts

import (
	"context"

	"github.com/tradesim/orderexec/internal/models"
	"github.com/tradesim/orderexec/internal/store"
)

// Service provides account lookups. Account balances are only ever mutated by
// the execution engine.
type Service struct {
	store store.AccountStore
}

// NewService creates an account read service
func NewService(st store.AccountStore) *Service {
	return &Service{store: st}
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// GetAccountByNumber retrieves an account by its account number
func (s *Service) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return s.store.GetAccountByNumber(ctx, accountNumber)
}

// ListAccountsByUser retrieves all accounts owned by a user
func (s *Service) ListAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error) {
	return s.store.ListAccountsByUser(ctx, userID)
}

// ListAccounts retrieves all accounts
func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccounts(ctx)
}
