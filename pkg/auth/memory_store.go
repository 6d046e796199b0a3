package auth

import (
	"sort"
	"sync"
)

// MemoryStore is a CredentialStore that lives only as long as the process.
// Tests set the *Error fields to make the matching call fail.
type MemoryStore struct {
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error

	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]Account{}}
}

func (m *MemoryStore) Store(account *Account) error {
	switch {
	case m.StoreError != nil:
		return m.StoreError
	case account == nil || account.Username == "":
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	m.accounts[account.Username] = *account
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Retrieve(username string) (*Account, error) {
	switch {
	case m.RetrieveError != nil:
		return nil, m.RetrieveError
	case username == "":
		return nil, ErrInvalidCredentials
	}
	m.mu.RLock()
	account, ok := m.accounts[username]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns the accounts ordered by username
func (m *MemoryStore) List() ([]*Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	out := make([]*Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		account := account
		out = append(out, &account)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *MemoryStore) Delete(username string) error {
	switch {
	case m.DeleteError != nil:
		return m.DeleteError
	case username == "":
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *MemoryStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[username]
	return ok
}

// Count is the number of stored accounts
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
