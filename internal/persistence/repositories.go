package persistence

import (
	"context"

	"github.com/example/route-crm/internal/crm"
)

// CustomerRepository exposes CRUD operations for customers, including their
// owned intervals, vacations and personal terms. ListCustomers is the bulk
// read the tour builder snapshots from.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer crm.Customer) error
	UpdateCustomer(ctx context.Context, customer crm.Customer) error
	GetCustomer(ctx context.Context, id string) (crm.Customer, error)
	ListCustomers(ctx context.Context) ([]crm.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

// CustomerListRepository exposes CRUD operations for customer lists and
// their shared terms.
type CustomerListRepository interface {
	CreateCustomerList(ctx context.Context, list crm.CustomerList) error
	UpdateCustomerList(ctx context.Context, list crm.CustomerList) error
	GetCustomerList(ctx context.Context, id string) (crm.CustomerList, error)
	ListCustomerLists(ctx context.Context) ([]crm.CustomerList, error)
	DeleteCustomerList(ctx context.Context, id string) error
}

// RuleRepository exposes CRUD operations for recurrence rule templates.
// IncrementRuleUsage is the best-effort usage counter bump performed after a
// rule is applied to a customer; callers tolerate its failure.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule crm.Rule) error
	UpdateRule(ctx context.Context, rule crm.Rule) error
	GetRule(ctx context.Context, id string) (crm.Rule, error)
	ListRules(ctx context.Context) ([]crm.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	IncrementRuleUsage(ctx context.Context, id string) error
}

// TourSlotRepository exposes CRUD operations for the recurring tour slots
// offered to ad-hoc customers.
type TourSlotRepository interface {
	CreateTourSlot(ctx context.Context, slot crm.TourSlot) error
	UpdateTourSlot(ctx context.Context, slot crm.TourSlot) error
	GetTourSlot(ctx context.Context, id string) (crm.TourSlot, error)
	ListTourSlots(ctx context.Context) ([]crm.TourSlot, error)
	DeleteTourSlot(ctx context.Context, id string) error
}
