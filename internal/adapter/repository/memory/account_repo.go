package memory

import (
	"github.com/iho/txledger/internal/domain"
)

// AccountRepository implements usecase.AccountStore with a map.
type AccountRepository struct {
	accounts map[domain.ClientID]*domain.Account
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[domain.ClientID]*domain.Account),
	}
}

// GetOrCreate returns the account for client, creating it on first use.
func (r *AccountRepository) GetOrCreate(client domain.ClientID) *domain.Account {
	account, ok := r.accounts[client]
	if !ok {
		account = domain.NewAccount(client)
		r.accounts[client] = account
	}
	return account
}

// Snapshot returns copies of all accounts.
func (r *AccountRepository) Snapshot() []domain.Account {
	out := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		out = append(out, *account)
	}
	return out
}

func (r *AccountRepository) Len() int {
	return len(r.accounts)
}
