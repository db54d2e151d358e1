// Package matcher links bank statement lines to the invoices and payments
// they settle.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bxservice/hibiscus-recon/internal/config"
	"github.com/bxservice/hibiscus-recon/internal/i18n"
	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

// Matcher finds the records a statement line settles. Ambiguity is never an
// error: it yields an empty MatchInfo or one that only carries a note.
type Matcher interface {
	FindMatch(ctx context.Context, line *model.BankStatementLine) (model.MatchInfo, error)
}

// Deps holds what a matcher may need at construction time.
type Deps struct {
	Config   config.MatchingConfig
	Invoices store.Invoices
	Payments store.Payments
	Printer  *i18n.Printer
	Log      zerolog.Logger
}

// Factory builds a matcher from its dependencies.
type Factory func(Deps) (Matcher, error)

// Registry holds matcher factories keyed by identifier.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty matcher registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Panics on duplicate identifier.
func (r *Registry) Register(name string, f Factory) {
	key := strings.ToLower(name)
	if _, ok := r.factories[key]; ok {
		panic("duplicate matcher: " + key)
	}
	r.factories[key] = f
}

// Get returns the factory for name, or nil.
func (r *Registry) Get(name string) Factory {
	return r.factories[strings.ToLower(name)]
}

// Names returns the registered identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the matcher registered as name. It returns nil and no error
// when name is unknown; callers treat that as matching not being configured.
func (r *Registry) New(name string, deps Deps) (Matcher, error) {
	f := r.Get(name)
	if f == nil {
		return nil, nil
	}
	m, err := f(deps)
	if err != nil {
		return nil, fmt.Errorf("creating matcher %s: %w", name, err)
	}
	return m, nil
}

// Built-in matcher identifiers.
const (
	InvoiceInMemoName     = "invoice-in-memo"
	VendorSEPAPaymentName = "vendor-sepa-payment"
)

// DefaultRegistry returns a registry with all built-in matchers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(InvoiceInMemoName, func(d Deps) (Matcher, error) {
		return NewInvoiceInMemo(d.Config, d.Invoices, d.Printer, d.Log)
	})
	r.Register(VendorSEPAPaymentName, func(d Deps) (Matcher, error) {
		return NewVendorSEPAPayment(d.Config, d.Payments, d.Printer, d.Log), nil
	})
	return r
}
