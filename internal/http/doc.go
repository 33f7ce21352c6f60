// Package http provides HTTP handlers and middleware for the route CRM API.
//
// The router exposes the following endpoints:
//   - GET /customers, POST /customers, GET/PUT/DELETE /customers/{id}: customer
//     management exchanging the `customerDTO` payload defined in
//     customer_handler.go. Day-valued fields use the YYYY-MM-DD format in the
//     service timezone; record timestamps use RFC 3339.
//   - POST /customers/{id}/vacations, DELETE /customers/{id}/vacations/{index}:
//     vacation ranges. Starts normalize to local midnight, ends to the last
//     instant of their day.
//   - POST /customers/{id}/completions, DELETE /customers/{id}/completions?type=:
//     completion markers per appointment type. Completing a visit consumes a
//     pending reschedule override.
//   - POST /customers/{id}/reschedule, DELETE /customers/{id}/reschedule: the
//     one-shot date override for the next open occurrence.
//   - GET /customers/{id}/slot-suggestions?start=&horizon=: ranked tour slot
//     suggestions for ad-hoc customers.
//   - GET /lists, POST /lists, GET/PUT/DELETE /lists/{id}, POST /lists/{id}/terms:
//     customer list management and term pair generation, exchanging the
//     `listDTO` payload defined in list_handler.go.
//   - GET /rules, POST /rules, GET/PUT/DELETE /rules/{id},
//     POST /rules/{id}/applications: rule templates and their materialization
//     onto customers, exchanging the `ruleDTO` payload defined in rule_handler.go.
//   - GET /tour?date=: the aggregated day snapshot with overdue, due-today,
//     upcoming and done sections plus counters.
//   - GET /tour-slots, POST /tour-slots, GET/PUT/DELETE /tour-slots/{id}: the
//     recurring tour slot catalog.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
