package bank

import (
	"context"

	"github.com/dvcrn/bank-api-client/internal/auth"
	"github.com/dvcrn/bank-api-client/internal/cascade"
)

const (
	AccountsPath  = "/api/accounts"
	CustomersPath = "/api/customers"

	DefaultPageSize = 100
)

// Service reads and writes accounts and customers through an authenticated
// client. Single reads by id go through the fallback cascade.
type Service struct {
	accounts  *resource[Account]
	customers *resource[Customer]
}

type options struct {
	pageSize int
	cascade  []cascade.Option
}

// Option configures a Service.
type Option func(*options)

// WithPageSize bounds collection fetches.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithOnStep observes every cascade step of single reads.
func WithOnStep(fn func(cascade.StepResult)) Option {
	return func(o *options) { o.cascade = append(o.cascade, cascade.WithOnStep(fn)) }
}

func NewService(client *auth.Client, opts ...Option) *Service {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		accounts: newResource(client, "account", AccountsPath, o.pageSize,
			func(a Account) string { return a.ID.String() }, o.cascade...),
		customers: newResource(client, "customer", CustomersPath, o.pageSize,
			func(c Customer) string { return c.ID.String() }, o.cascade...),
	}
}

// GetAccount reads one account, falling back to raw repair and a collection
// scan when the direct read fails.
func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	return s.accounts.get(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.accounts.list(ctx)
}

func (s *Service) CreateAccount(ctx context.Context, a *Account) (*Account, error) {
	return s.accounts.create(ctx, a)
}

func (s *Service) UpdateAccount(ctx context.Context, id string, a *Account) (*Account, error) {
	return s.accounts.update(ctx, id, a)
}

func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	return s.accounts.delete(ctx, id)
}

// GetCustomer reads one customer through the same fallback chain as
// GetAccount.
func (s *Service) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	return s.customers.get(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.customers.list(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	return s.customers.create(ctx, c)
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, c *Customer) (*Customer, error) {
	return s.customers.update(ctx, id, c)
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	return s.customers.delete(ctx, id)
}
