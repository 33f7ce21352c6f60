package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/route-crm/internal/application"
	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

type customerService interface {
	CreateCustomer(ctx context.Context, input application.CustomerInput) (crm.Customer, error)
	UpdateCustomer(ctx context.Context, id string, input application.CustomerInput) (crm.Customer, error)
	GetCustomer(ctx context.Context, id string) (crm.Customer, error)
	ListCustomers(ctx context.Context) ([]crm.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	AddVacation(ctx context.Context, id string, from, to time.Time) (crm.Customer, error)
	RemoveVacation(ctx context.Context, id string, index int) (crm.Customer, error)
	MarkCompleted(ctx context.Context, id string, t crm.AppointmentType, at time.Time) (crm.Customer, error)
	ClearCompletion(ctx context.Context, id string, t crm.AppointmentType) (crm.Customer, error)
	Reschedule(ctx context.Context, id string, to time.Time) (crm.Customer, error)
	ClearReschedule(ctx context.Context, id string) (crm.Customer, error)
}

type CustomerHandler struct {
	service   customerService
	responder responder
	loc       *time.Location
	logger    *slog.Logger
}

func NewCustomerHandler(service customerService, loc *time.Location, logger *slog.Logger) *CustomerHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &CustomerHandler{service: service, responder: newResponder(base), loc: loc, logger: base}
}

func (h *CustomerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CustomerHandler", operation, attrs...)
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode customer request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create")
	customer, err := h.service.CreateCustomer(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "customer creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("customer_id", customer.ID).InfoContext(r.Context(), "customer created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "customer_id", customerID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode customer update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Update", "customer_id", customerID)
	customer, err := h.service.UpdateCustomer(r.Context(), customerID, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "customer update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "customer updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.log(r.Context(), "Get", "customer_id", customerID).ErrorContext(r.Context(), "customer fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "customer list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(customers)).InfoContext(r.Context(), "customers listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCustomersResponse{Customers: toCustomerDTOs(customers, h.loc)})
}

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	logger := h.log(r.Context(), "Delete", "customer_id", customerID)
	if err := h.service.DeleteCustomer(r.Context(), customerID); err != nil {
		logger.ErrorContext(r.Context(), "customer delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "customer deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// AddVacation handles POST /customers/{id}/vacations.
func (h *CustomerHandler) AddVacation(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	var req vacationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	from, err := parseDay(req.From, h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	to, err := parseDay(req.To, h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "AddVacation", "customer_id", customerID)
	customer, err := h.service.AddVacation(r.Context(), customerID, from, to)
	if err != nil {
		logger.ErrorContext(r.Context(), "vacation add failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "vacation added")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

// RemoveVacation handles DELETE /customers/{id}/vacations/{index}.
func (h *CustomerHandler) RemoveVacation(w http.ResponseWriter, r *http.Request, index int) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}
	if index < 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidVacationIdx)
		return
	}

	logger := h.log(r.Context(), "RemoveVacation", "customer_id", customerID, "vacation_index", index)
	customer, err := h.service.RemoveVacation(r.Context(), customerID, index)
	if err != nil {
		logger.ErrorContext(r.Context(), "vacation remove failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "vacation removed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

// MarkCompleted handles POST /customers/{id}/completions.
func (h *CustomerHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	var at time.Time
	if strings.TrimSpace(req.At) != "" {
		parsed, err := parseDay(req.At, h.loc)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		at = parsed
	}

	logger := h.log(r.Context(), "MarkCompleted", "customer_id", customerID, "appointment_type", req.Type)
	customer, err := h.service.MarkCompleted(r.Context(), customerID, crm.AppointmentType(req.Type), at)
	if err != nil {
		logger.ErrorContext(r.Context(), "completion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "visit completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

// ClearCompletion handles DELETE /customers/{id}/completions?type=pickup|delivery.
func (h *CustomerHandler) ClearCompletion(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	logger := h.log(r.Context(), "ClearCompletion", "customer_id", customerID)
	customer, err := h.service.ClearCompletion(r.Context(), customerID, crm.AppointmentType(r.URL.Query().Get("type")))
	if err != nil {
		logger.ErrorContext(r.Context(), "completion clear failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "completion cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

// Reschedule handles POST /customers/{id}/reschedule.
func (h *CustomerHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	to, err := parseDay(req.To, h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "Reschedule", "customer_id", customerID)
	customer, err := h.service.Reschedule(r.Context(), customerID, to)
	if err != nil {
		logger.ErrorContext(r.Context(), "reschedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "customer rescheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

// ClearReschedule handles DELETE /customers/{id}/reschedule.
func (h *CustomerHandler) ClearReschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	logger := h.log(r.Context(), "ClearReschedule", "customer_id", customerID)
	customer, err := h.service.ClearReschedule(r.Context(), customerID)
	if err != nil {
		logger.ErrorContext(r.Context(), "reschedule clear failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reschedule cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, customerResponse{Customer: toCustomerDTO(customer, h.loc)})
}

type customerRequest struct {
	Name             string        `json:"name"`
	City             string        `json:"city"`
	Status           string        `json:"status"`
	PreferredWeekday *int          `json:"preferred_weekday"`
	PickupWeekdays   []int         `json:"pickup_weekdays"`
	DeliveryWeekdays []int         `json:"delivery_weekdays"`
	ListID           string        `json:"list_id"`
	ListTerms        []termRequest `json:"list_terms"`
}

func (r customerRequest) toInput(loc *time.Location) (application.CustomerInput, error) {
	terms, err := toListTerms(r.ListTerms, loc)
	if err != nil {
		return application.CustomerInput{}, err
	}
	return application.CustomerInput{
		Name:             strings.TrimSpace(r.Name),
		City:             strings.TrimSpace(r.City),
		Status:           crm.CustomerStatus(r.Status),
		PreferredWeekday: toWeekdayPtr(r.PreferredWeekday),
		PickupWeekdays:   toWeekdays(r.PickupWeekdays),
		DeliveryWeekdays: toWeekdays(r.DeliveryWeekdays),
		ListID:           strings.TrimSpace(r.ListID),
		ListTerms:        terms,
	}, nil
}

type vacationRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type completionRequest struct {
	Type string `json:"type"`
	At   string `json:"at"`
}

type rescheduleRequest struct {
	To string `json:"to"`
}

type customerResponse struct {
	Customer customerDTO `json:"customer"`
}

type listCustomersResponse struct {
	Customers []customerDTO `json:"customers"`
}

type customerDTO struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	City             string        `json:"city"`
	Status           string        `json:"status"`
	PreferredWeekday *int          `json:"preferred_weekday,omitempty"`
	PickupWeekdays   []int         `json:"pickup_weekdays,omitempty"`
	DeliveryWeekdays []int         `json:"delivery_weekdays,omitempty"`
	ListID           string        `json:"list_id,omitempty"`
	ListTerms        []termDTO     `json:"list_terms,omitempty"`
	Intervals        []intervalDTO `json:"intervals,omitempty"`
	Vacations        []vacationDTO `json:"vacations,omitempty"`
	RescheduledTo    string        `json:"rescheduled_to,omitempty"`
	PickupDone       bool          `json:"pickup_done"`
	PickupDoneAt     string        `json:"pickup_done_at,omitempty"`
	DeliveryDone     bool          `json:"delivery_done"`
	DeliveryDoneAt   string        `json:"delivery_done_at,omitempty"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
}

type intervalDTO struct {
	ID             string `json:"id"`
	PickupBase     string `json:"pickup_base,omitempty"`
	DeliveryBase   string `json:"delivery_base,omitempty"`
	Repeats        bool   `json:"repeats"`
	StepDays       int    `json:"step_days,omitempty"`
	MaxOccurrences int    `json:"max_occurrences,omitempty"`
	SourceRuleID   string `json:"source_rule_id,omitempty"`
}

type vacationDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type termDTO struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

type termRequest struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

func toCustomerDTO(customer crm.Customer, loc *time.Location) customerDTO {
	dto := customerDTO{
		ID:               customer.ID,
		Name:             customer.Name,
		City:             customer.City,
		Status:           string(customer.Status),
		PreferredWeekday: fromWeekdayPtr(customer.PreferredWeekday),
		PickupWeekdays:   fromWeekdays(customer.PickupWeekdays),
		DeliveryWeekdays: fromWeekdays(customer.DeliveryWeekdays),
		ListID:           customer.ListID,
		ListTerms:        toTermDTOs(customer.ListTerms, loc),
		PickupDone:       customer.PickupDone,
		DeliveryDone:     customer.DeliveryDone,
		CreatedAt:        customer.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        customer.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if customer.RescheduledTo != nil {
		dto.RescheduledTo = formatDay(*customer.RescheduledTo, loc)
	}
	if customer.PickupDoneAt != nil {
		dto.PickupDoneAt = customer.PickupDoneAt.UTC().Format(time.RFC3339Nano)
	}
	if customer.DeliveryDoneAt != nil {
		dto.DeliveryDoneAt = customer.DeliveryDoneAt.UTC().Format(time.RFC3339Nano)
	}
	for _, iv := range customer.Intervals {
		dto.Intervals = append(dto.Intervals, intervalDTO{
			ID:             iv.ID,
			PickupBase:     formatDay(iv.PickupBase, loc),
			DeliveryBase:   formatDay(iv.DeliveryBase, loc),
			Repeats:        iv.Repeats,
			StepDays:       iv.StepDays,
			MaxOccurrences: iv.MaxOccurrences,
			SourceRuleID:   iv.SourceRuleID,
		})
	}
	for _, entry := range customer.VacationPeriods() {
		dto.Vacations = append(dto.Vacations, vacationDTO{
			From: formatDay(entry.From, loc),
			To:   formatDay(entry.To, loc),
		})
	}
	return dto
}

func toCustomerDTOs(customers []crm.Customer, loc *time.Location) []customerDTO {
	if len(customers) == 0 {
		return nil
	}
	out := make([]customerDTO, 0, len(customers))
	for _, customer := range customers {
		out = append(out, toCustomerDTO(customer, loc))
	}
	return out
}

func toTermDTOs(terms []crm.ListTerm, loc *time.Location) []termDTO {
	if len(terms) == 0 {
		return nil
	}
	out := make([]termDTO, 0, len(terms))
	for _, term := range terms {
		out = append(out, termDTO{Date: formatDay(term.Date, loc), Type: string(term.Type)})
	}
	return out
}

func toListTerms(terms []termRequest, loc *time.Location) ([]crm.ListTerm, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	out := make([]crm.ListTerm, 0, len(terms))
	for _, term := range terms {
		date, err := parseDay(term.Date, loc)
		if err != nil {
			return nil, errInvalidDate
		}
		out = append(out, crm.ListTerm{Date: date, Type: crm.AppointmentType(term.Type)})
	}
	return out, nil
}

func toWeekdayPtr(value *int) *calendar.Weekday {
	if value == nil {
		return nil
	}
	day := calendar.Weekday(*value)
	return &day
}

func fromWeekdayPtr(day *calendar.Weekday) *int {
	if day == nil {
		return nil
	}
	value := int(*day)
	return &value
}

func toWeekdays(values []int) []calendar.Weekday {
	if len(values) == 0 {
		return nil
	}
	out := make([]calendar.Weekday, 0, len(values))
	for _, value := range values {
		out = append(out, calendar.Weekday(value))
	}
	return out
}

func fromWeekdays(days []calendar.Weekday) []int {
	if len(days) == 0 {
		return nil
	}
	out := make([]int, 0, len(days))
	for _, day := range days {
		out = append(out, int(day))
	}
	return out
}

// parseDay reads a YYYY-MM-DD value as a day in the given location.
func parseDay(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(value), loc)
}

func formatDay(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return t.In(loc).Format("2006-01-02")
}
