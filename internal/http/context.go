package http

import "context"

type contextKey string

const (
	customerIDContextKey contextKey = "customer_id"
	listIDContextKey     contextKey = "list_id"
	ruleIDContextKey     contextKey = "rule_id"
	slotIDContextKey     contextKey = "slot_id"
)

// ContextWithCustomerID injects the customer identifier resolved from the request path.
func ContextWithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, customerIDContextKey, customerID)
}

// CustomerIDFromContext extracts a customer identifier previously associated with the context.
func CustomerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(customerIDContextKey).(string)
	return id, ok
}

// ContextWithListID injects the list identifier resolved from the request path.
func ContextWithListID(ctx context.Context, listID string) context.Context {
	return context.WithValue(ctx, listIDContextKey, listID)
}

// ListIDFromContext extracts a list identifier previously associated with the context.
func ListIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(listIDContextKey).(string)
	return id, ok
}

// ContextWithRuleID injects the rule identifier resolved from the request path.
func ContextWithRuleID(ctx context.Context, ruleID string) context.Context {
	return context.WithValue(ctx, ruleIDContextKey, ruleID)
}

// RuleIDFromContext extracts a rule identifier previously associated with the context.
func RuleIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ruleIDContextKey).(string)
	return id, ok
}

// ContextWithSlotID injects the tour slot identifier resolved from the request path.
func ContextWithSlotID(ctx context.Context, slotID string) context.Context {
	return context.WithValue(ctx, slotIDContextKey, slotID)
}

// SlotIDFromContext extracts a tour slot identifier previously associated with the context.
func SlotIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(slotIDContextKey).(string)
	return id, ok
}
