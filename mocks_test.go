package accounts_test

import (
	"context"
	"database/sql"
	"sync"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockIdentity implements accounts.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements accounts.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// noopLogger swallows everything; used where log output is irrelevant
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// fakeAccounts fakes the directory with an in-memory map. The embedded
// interface covers methods a test never calls; touching one panics, which
// is what we want.
type fakeAccounts struct {
	accounts.Accounts

	mu      sync.Mutex
	byID    map[string]*accounts.Account
	byEmail map[string]*accounts.Account
	byToken map[string]*accounts.Account

	registered []*accounts.Account
	confirmed  []uuid.UUID

	registerErr error
}

func newFakeAccounts(seed ...*accounts.Account) *fakeAccounts {
	f := &fakeAccounts{
		byID:    map[string]*accounts.Account{},
		byEmail: map[string]*accounts.Account{},
		byToken: map[string]*accounts.Account{},
	}
	for _, a := range seed {
		f.index(a)
	}
	return f
}

func (f *fakeAccounts) index(a *accounts.Account) {
	f.byID[a.ID.String()] = a
	f.byEmail[a.Email] = a
	if a.ConfirmationToken != nil {
		f.byToken[*a.ConfirmationToken] = a
	}
}

func (f *fakeAccounts) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"id": id})
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byEmail[email]; ok {
		return a, nil
	}
	return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"column": "email"})
}

func (f *fakeAccounts) GetByConfirmationToken(ctx context.Context, token string) (*accounts.Account, error) {
	return f.GetByConfirmationTokenTx(ctx, nil, token)
}

func (f *fakeAccounts) GetByConfirmationTokenTx(ctx context.Context, tx bun.IDB, token string) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byToken[token]; ok {
		return a, nil
	}
	return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"column": "confirmation_token"})
}

func (f *fakeAccounts) Register(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	return f.RegisterTx(ctx, nil, account)
}

func (f *fakeAccounts) RegisterTx(ctx context.Context, tx bun.IDB, account *accounts.Account) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Role == "" {
		account.Role = accounts.RoleUser
	}
	f.index(account)
	f.registered = append(f.registered, account)
	return account, nil
}

func (f *fakeAccounts) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*accounts.Account, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]*accounts.Account, 0, len(f.byID))
	for _, a := range f.byID {
		records = append(records, a)
	}
	return records, len(records), nil
}

func (f *fakeAccounts) MarkConfirmed(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	return f.MarkConfirmedTx(ctx, nil, id)
}

func (f *fakeAccounts) MarkConfirmedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*accounts.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id.String()]
	if !ok {
		return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"id": id.String()})
	}
	a.Confirmed = true
	f.confirmed = append(f.confirmed, id)
	return a, nil
}

// fakeRepoManager satisfies RepositoryManager without a database. RunInTx
// runs the body directly with a zero transaction.
type fakeRepoManager struct {
	accounts accounts.Accounts
	cars     accounts.Cars
}

func (m *fakeRepoManager) Validate() error { return nil }
func (m *fakeRepoManager) MustValidate()   {}

func (m *fakeRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return f(ctx, bun.Tx{})
	}
}

func (m *fakeRepoManager) Accounts() accounts.Accounts { return m.accounts }
func (m *fakeRepoManager) Cars() accounts.Cars         { return m.cars }

var _ accounts.RepositoryManager = (*fakeRepoManager)(nil)

// fakeMailer records dispatched messages and can be told to fail
type fakeMailer struct {
	mu       sync.Mutex
	messages []accounts.MailMessage
	err      error
}

func (f *fakeMailer) Dispatch(ctx context.Context, msg accounts.MailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

var _ accounts.MailDispatcher = (*fakeMailer)(nil)
