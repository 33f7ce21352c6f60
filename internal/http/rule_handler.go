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

type ruleService interface {
	CreateRule(ctx context.Context, input application.RuleInput) (crm.Rule, error)
	UpdateRule(ctx context.Context, id string, input application.RuleInput) (crm.Rule, error)
	GetRule(ctx context.Context, id string) (crm.Rule, error)
	ListRules(ctx context.Context) ([]crm.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	ApplyRuleToCustomer(ctx context.Context, ruleID, customerID string, today time.Time) (crm.Interval, error)
}

type RuleHandler struct {
	service   ruleService
	responder responder
	loc       *time.Location
	logger    *slog.Logger
}

func NewRuleHandler(service ruleService, loc *time.Location, logger *slog.Logger) *RuleHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &RuleHandler{service: service, responder: newResponder(base), loc: loc, logger: base}
}

func (h *RuleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RuleHandler", operation, attrs...)
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create")
	rule, err := h.service.CreateRule(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "rule creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("rule_id", rule.ID).InfoContext(r.Context(), "rule created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, ruleResponse{Rule: toRuleDTO(rule, h.loc)})
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := RuleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(ruleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "rule_id", ruleID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode rule update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Update", "rule_id", ruleID)
	rule, err := h.service.UpdateRule(r.Context(), ruleID, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "rule update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rule updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ruleResponse{Rule: toRuleDTO(rule, h.loc)})
}

func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := RuleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(ruleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return
	}

	rule, err := h.service.GetRule(r.Context(), ruleID)
	if err != nil {
		h.log(r.Context(), "Get", "rule_id", ruleID).ErrorContext(r.Context(), "rule fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, ruleResponse{Rule: toRuleDTO(rule, h.loc)})
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "rule list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rules)).InfoContext(r.Context(), "rules listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRulesResponse{Rules: toRuleDTOs(rules, h.loc)})
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := RuleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(ruleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return
	}

	logger := h.log(r.Context(), "Delete", "rule_id", ruleID)
	if err := h.service.DeleteRule(r.Context(), ruleID); err != nil {
		logger.ErrorContext(r.Context(), "rule delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rule deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Apply handles POST /rules/{id}/applications, materializing the rule onto
// the customer named in the body.
func (h *RuleHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ruleID, ok := RuleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(ruleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRuleID)
		return
	}

	var req applyRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}
	var today time.Time
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := parseDay(req.Date, h.loc)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		today = parsed
	}

	logger := h.log(r.Context(), "Apply", "rule_id", ruleID, "customer_id", req.CustomerID)
	interval, err := h.service.ApplyRuleToCustomer(r.Context(), ruleID, req.CustomerID, today)
	if err != nil {
		logger.ErrorContext(r.Context(), "rule application failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("interval_id", interval.ID).InfoContext(r.Context(), "rule applied")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, applyRuleResponse{Interval: intervalDTO{
		ID:             interval.ID,
		PickupBase:     formatDay(interval.PickupBase, h.loc),
		DeliveryBase:   formatDay(interval.DeliveryBase, h.loc),
		Repeats:        interval.Repeats,
		StepDays:       interval.StepDays,
		MaxOccurrences: interval.MaxOccurrences,
		SourceRuleID:   interval.SourceRuleID,
	}})
}

type ruleRequest struct {
	Name               string `json:"name"`
	WeekdayBased       bool   `json:"weekday_based"`
	PickupWeekday      int    `json:"pickup_weekday"`
	DeliveryWeekday    *int   `json:"delivery_weekday"`
	DeliveryOffsetDays int    `json:"delivery_offset_days"`
	PickupDate         string `json:"pickup_date"`
	DeliveryDate       string `json:"delivery_date"`
	Repeats            bool   `json:"repeats"`
	StepDays           int    `json:"step_days"`
	MaxOccurrences     int    `json:"max_occurrences"`
}

func (r ruleRequest) toInput(loc *time.Location) (application.RuleInput, error) {
	input := application.RuleInput{
		Name:               strings.TrimSpace(r.Name),
		WeekdayBased:       r.WeekdayBased,
		PickupWeekday:      calendar.Weekday(r.PickupWeekday),
		DeliveryWeekday:    toWeekdayPtr(r.DeliveryWeekday),
		DeliveryOffsetDays: r.DeliveryOffsetDays,
		Repeats:            r.Repeats,
		StepDays:           r.StepDays,
		MaxOccurrences:     r.MaxOccurrences,
	}
	if strings.TrimSpace(r.PickupDate) != "" {
		date, err := parseDay(r.PickupDate, loc)
		if err != nil {
			return application.RuleInput{}, errInvalidDate
		}
		input.PickupDate = date
	}
	if strings.TrimSpace(r.DeliveryDate) != "" {
		date, err := parseDay(r.DeliveryDate, loc)
		if err != nil {
			return application.RuleInput{}, errInvalidDate
		}
		input.DeliveryDate = date
	}
	return input, nil
}

type applyRuleRequest struct {
	CustomerID string `json:"customer_id"`
	Date       string `json:"date"`
}

type applyRuleResponse struct {
	Interval intervalDTO `json:"interval"`
}

type ruleResponse struct {
	Rule ruleDTO `json:"rule"`
}

type listRulesResponse struct {
	Rules []ruleDTO `json:"rules"`
}

type ruleDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	WeekdayBased       bool   `json:"weekday_based"`
	PickupWeekday      int    `json:"pickup_weekday"`
	DeliveryWeekday    *int   `json:"delivery_weekday,omitempty"`
	DeliveryOffsetDays int    `json:"delivery_offset_days,omitempty"`
	PickupDate         string `json:"pickup_date,omitempty"`
	DeliveryDate       string `json:"delivery_date,omitempty"`
	Repeats            bool   `json:"repeats"`
	StepDays           int    `json:"step_days,omitempty"`
	MaxOccurrences     int    `json:"max_occurrences,omitempty"`
	UsageCount         int    `json:"usage_count"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func toRuleDTO(rule crm.Rule, loc *time.Location) ruleDTO {
	return ruleDTO{
		ID:                 rule.ID,
		Name:               rule.Name,
		WeekdayBased:       rule.WeekdayBased,
		PickupWeekday:      int(rule.PickupWeekday),
		DeliveryWeekday:    fromWeekdayPtr(rule.DeliveryWeekday),
		DeliveryOffsetDays: rule.DeliveryOffsetDays,
		PickupDate:         formatDay(rule.PickupDate, loc),
		DeliveryDate:       formatDay(rule.DeliveryDate, loc),
		Repeats:            rule.Repeats,
		StepDays:           rule.StepDays,
		MaxOccurrences:     rule.MaxOccurrences,
		UsageCount:         rule.UsageCount,
		CreatedAt:          rule.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:          rule.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toRuleDTOs(rules []crm.Rule, loc *time.Location) []ruleDTO {
	if len(rules) == 0 {
		return nil
	}
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleDTO(rule, loc))
	}
	return out
}
