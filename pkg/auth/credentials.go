package auth

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/models"
)

// Account is a stored session for one Instagram login
type Account struct {
	Username     string            `json:"username"`
	UserID       string            `json:"user_id,omitempty"`
	SessionID    string            `json:"session_id"`
	CSRFToken    string            `json:"csrf_token"`
	Cookies      map[string]string `json:"cookies,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// AccountFromSession converts a live session into a storable account
func AccountFromSession(s *models.Session) *Account {
	cookies := make(map[string]string, len(s.Cookies))
	for k, v := range s.Cookies {
		cookies[k] = v
	}
	return &Account{
		Username:     s.Username,
		UserID:       s.UserID,
		SessionID:    s.SessionID,
		CSRFToken:    s.CSRFToken,
		Cookies:      cookies,
		LastModified: time.Now(),
	}
}

// Session converts the account back into a session the client can use
func (a *Account) Session() *models.Session {
	return &models.Session{
		Username:  a.Username,
		UserID:    a.UserID,
		SessionID: a.SessionID,
		CSRFToken: a.CSRFToken,
		Cookies:   a.Cookies,
		SavedAt:   a.LastModified,
	}
}

// CredentialStore is the interface for storing and retrieving accounts
type CredentialStore interface {
	// Store saves the account, replacing any previous one with the same username
	Store(account *Account) error

	// Retrieve gets the account for a username
	Retrieve(username string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes the account for a username
	Delete(username string) error

	// Exists checks if an account exists for a username
	Exists(username string) bool
}

// Manager tries each store in order: the system keyring when available, an
// encrypted file, then the environment.
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager keeping its encrypted file in dir
func NewManager(dir string) (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the account using the first store that accepts it
func (m *Manager) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return errors.New("username is required")
	}
	if account.SessionID == "" {
		return errors.New("session ID is required")
	}
	if account.CSRFToken == "" {
		return errors.New("CSRF token is required")
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(account); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the account from the first store that has it
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, igerrors.Wrap(igerrors.KindSessionNotFound, ErrCredentialsNotFound, "no stored session for %s", username)
}

// RetrieveDefault returns the most recently stored account
func (m *Manager) RetrieveDefault() (*Account, error) {
	accounts, err := m.List()
	if err == nil && len(accounts) > 0 {
		return accounts[0], nil
	}
	return nil, igerrors.Wrap(igerrors.KindSessionNotFound, ErrCredentialsNotFound, "no stored sessions")
}

// List returns the accounts of all stores, newest first. When several stores
// hold the same username the most recent copy wins.
func (m *Manager) List() ([]*Account, error) {
	accountMap := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := accountMap[account.Username]; !ok || account.LastModified.After(existing.LastModified) {
				accountMap[account.Username] = account
			}
		}
	}

	result := make([]*Account, 0, len(accountMap))
	for _, account := range accountMap {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastModified.Equal(result[j].LastModified) {
			return result[i].Username < result[j].Username
		}
		return result[i].LastModified.After(result[j].LastModified)
	})

	return result, nil
}

// Delete removes the account from every store holding it
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found for user: %s", username)
	}

	return nil
}

// SanitizeAccount creates a copy of the account with tokens masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Username:     account.Username,
		UserID:       account.UserID,
		SessionID:    maskString(account.SessionID),
		CSRFToken:    maskString(account.CSRFToken),
		LastModified: account.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
