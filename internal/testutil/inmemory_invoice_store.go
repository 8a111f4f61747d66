package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/Additional-Code/invoicedesk/internal/entity"
	"github.com/Additional-Code/invoicedesk/internal/filter"
	repo "github.com/Additional-Code/invoicedesk/internal/repository/invoice"
)

// InMemoryInvoiceStore mirrors the invoice repository, including the unique
// index on invoice_number.
type InMemoryInvoiceStore struct {
	mu       sync.RWMutex
	invoices map[string]entity.Invoice

	// HidePrecheck makes InvoiceNumberExists always report false so the unique
	// index is the only guard, as during a concurrent create.
	HidePrecheck bool
	// FailWrites, when set, is returned by every Create, Update and Delete.
	FailWrites error
}

// NewInMemoryInvoiceStore creates an empty store.
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{invoices: make(map[string]entity.Invoice)}
}

// Create stores a copy of inv.
func (s *InMemoryInvoiceStore) Create(_ context.Context, inv *entity.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}
	if s.numberTaken(inv.InvoiceNumber) {
		return repo.ErrDuplicateNumber
	}
	s.invoices[inv.ID] = *inv
	return nil
}

// GetByID returns a copy of the stored invoice.
func (s *InMemoryInvoiceStore) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &inv, nil
}

// Update replaces the mutable columns; invoice_number and created_at are kept.
func (s *InMemoryInvoiceStore) Update(_ context.Context, inv *entity.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}
	stored, ok := s.invoices[inv.ID]
	if !ok {
		return repo.ErrNotFound
	}
	updated := *inv
	updated.InvoiceNumber = stored.InvoiceNumber
	updated.CreatedAt = stored.CreatedAt
	s.invoices[inv.ID] = updated
	return nil
}

// Delete removes the invoice with id.
func (s *InMemoryInvoiceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}
	if _, ok := s.invoices[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.invoices, id)
	return nil
}

// List applies f in memory, newest first, and pages the result.
func (s *InMemoryInvoiceStore) List(_ context.Context, f filter.InvoiceFilter) ([]entity.Invoice, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(lo.Values(s.invoices), func(inv entity.Invoice, _ int) bool {
		return f.Match(&inv)
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if f.Offset > 0 {
		matched = matched[min(f.Offset, total):]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

// InvoiceNumberExists reports whether number is taken, ignoring case.
func (s *InMemoryInvoiceStore) InvoiceNumberExists(_ context.Context, number string) (bool, error) {
	if s.HidePrecheck {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.numberTaken(number), nil
}

// Len returns the number of stored invoices.
func (s *InMemoryInvoiceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invoices)
}

// Put stores inv as-is, bypassing every check. Useful for fixtures.
func (s *InMemoryInvoiceStore) Put(inv entity.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = inv
}

// Clear drops every invoice and resets the knobs.
func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = make(map[string]entity.Invoice)
	s.HidePrecheck = false
	s.FailWrites = nil
}

func (s *InMemoryInvoiceStore) numberTaken(number string) bool {
	for _, inv := range s.invoices {
		if strings.EqualFold(inv.InvoiceNumber, number) {
			return true
		}
	}
	return false
}
