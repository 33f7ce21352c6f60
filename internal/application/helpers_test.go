package application

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/persistence"
)

// memoryStore is an in-memory implementation of the repository interfaces
// used by the service tests.
type memoryStore struct {
	mu        sync.Mutex
	customers map[string]crm.Customer
	lists     map[string]crm.CustomerList
	rules     map[string]crm.Rule
	slots     map[string]crm.TourSlot

	incrementErr error
	usageCalls   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		customers: make(map[string]crm.Customer),
		lists:     make(map[string]crm.CustomerList),
		rules:     make(map[string]crm.Rule),
		slots:     make(map[string]crm.TourSlot),
	}
}

func (m *memoryStore) CreateCustomer(_ context.Context, customer crm.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customer.ID]; ok {
		return persistence.ErrConstraintViolation
	}
	m.customers[customer.ID] = customer
	return nil
}

func (m *memoryStore) UpdateCustomer(_ context.Context, customer crm.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customer.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.customers[customer.ID] = customer
	return nil
}

func (m *memoryStore) GetCustomer(_ context.Context, id string) (crm.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.customers[id]
	if !ok {
		return crm.Customer{}, persistence.ErrNotFound
	}
	return customer, nil
}

func (m *memoryStore) ListCustomers(_ context.Context) ([]crm.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]crm.Customer, 0, len(m.customers))
	for _, customer := range m.customers {
		out = append(out, customer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteCustomer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.customers, id)
	return nil
}

func (m *memoryStore) CreateCustomerList(_ context.Context, list crm.CustomerList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[list.ID]; ok {
		return persistence.ErrConstraintViolation
	}
	m.lists[list.ID] = list
	return nil
}

func (m *memoryStore) UpdateCustomerList(_ context.Context, list crm.CustomerList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[list.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.lists[list.ID] = list
	return nil
}

func (m *memoryStore) GetCustomerList(_ context.Context, id string) (crm.CustomerList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.lists[id]
	if !ok {
		return crm.CustomerList{}, persistence.ErrNotFound
	}
	return list, nil
}

func (m *memoryStore) ListCustomerLists(_ context.Context) ([]crm.CustomerList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]crm.CustomerList, 0, len(m.lists))
	for _, list := range m.lists {
		out = append(out, list)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteCustomerList(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.lists, id)
	return nil
}

func (m *memoryStore) CreateRule(_ context.Context, rule crm.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; ok {
		return persistence.ErrConstraintViolation
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *memoryStore) UpdateRule(_ context.Context, rule crm.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *memoryStore) GetRule(_ context.Context, id string) (crm.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return crm.Rule{}, persistence.ErrNotFound
	}
	return rule, nil
}

func (m *memoryStore) ListRules(_ context.Context) ([]crm.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]crm.Rule, 0, len(m.rules))
	for _, rule := range m.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *memoryStore) IncrementRuleUsage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usageCalls++
	if m.incrementErr != nil {
		return m.incrementErr
	}
	rule, ok := m.rules[id]
	if !ok {
		return persistence.ErrNotFound
	}
	rule.UsageCount++
	m.rules[id] = rule
	return nil
}

func (m *memoryStore) CreateTourSlot(_ context.Context, slot crm.TourSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.ID]; ok {
		return persistence.ErrConstraintViolation
	}
	m.slots[slot.ID] = slot
	return nil
}

func (m *memoryStore) UpdateTourSlot(_ context.Context, slot crm.TourSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.slots[slot.ID] = slot
	return nil
}

func (m *memoryStore) GetTourSlot(_ context.Context, id string) (crm.TourSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	if !ok {
		return crm.TourSlot{}, persistence.ErrNotFound
	}
	return slot, nil
}

func (m *memoryStore) ListTourSlots(_ context.Context) ([]crm.TourSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]crm.TourSlot, 0, len(m.slots))
	for _, slot := range m.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteTourSlot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.slots, id)
	return nil
}

// recordingCache captures the invalidations the services issue.
type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
	flushed     int
}

func (c *recordingCache) Invalidate(customerID string) {
	c.mu.Lock()
	c.invalidated = append(c.invalidated, customerID)
	c.mu.Unlock()
}

func (c *recordingCache) InvalidateAll() {
	c.mu.Lock()
	c.flushed++
	c.mu.Unlock()
}

func isValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
