package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/route-crm/internal/application"
	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/recurrence"
	"github.com/example/route-crm/internal/tour"
)

// defaultSuggestionHorizon bounds the slot scan when the request does not
// carry an explicit horizon.
const defaultSuggestionHorizon = 14

type tourService interface {
	BuildTour(ctx context.Context, day time.Time) (tour.Snapshot, error)
	SuggestSlots(ctx context.Context, customerID string, startDate time.Time, horizonDays int) ([]tour.Suggestion, error)
	CreateTourSlot(ctx context.Context, input application.TourSlotInput) (crm.TourSlot, error)
	UpdateTourSlot(ctx context.Context, id string, input application.TourSlotInput) (crm.TourSlot, error)
	GetTourSlot(ctx context.Context, id string) (crm.TourSlot, error)
	ListTourSlots(ctx context.Context) ([]crm.TourSlot, error)
	DeleteTourSlot(ctx context.Context, id string) error
}

type TourHandler struct {
	service   tourService
	responder responder
	loc       *time.Location
	logger    *slog.Logger
}

func NewTourHandler(service tourService, loc *time.Location, logger *slog.Logger) *TourHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &TourHandler{service: service, responder: newResponder(base), loc: loc, logger: base}
}

func (h *TourHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TourHandler", operation, attrs...)
}

// Build handles GET /tour?date=YYYY-MM-DD. Without a date the snapshot is
// built for today.
func (h *TourHandler) Build(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var day time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := parseDay(raw, h.loc)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		day = parsed
	}

	logger := h.log(r.Context(), "Build")
	snapshot, err := h.service.BuildTour(r.Context(), day)
	if err != nil {
		logger.ErrorContext(r.Context(), "tour build failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("day", formatDay(snapshot.Day, h.loc)).InfoContext(r.Context(), "tour built")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSnapshotDTO(snapshot, h.loc))
}

// Suggest handles GET /customers/{id}/slot-suggestions?start=&horizon=.
func (h *TourHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	customerID, ok := CustomerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(customerID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCustomerID)
		return
	}

	var start time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		parsed, err := parseDay(raw, h.loc)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		start = parsed
	}
	horizon := defaultSuggestionHorizon
	if raw := strings.TrimSpace(r.URL.Query().Get("horizon")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidHorizonParam)
			return
		}
		horizon = parsed
	}

	logger := h.log(r.Context(), "Suggest", "customer_id", customerID)
	suggestions, err := h.service.SuggestSlots(r.Context(), customerID, start, horizon)
	if err != nil {
		logger.ErrorContext(r.Context(), "slot suggestion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(suggestions)).InfoContext(r.Context(), "slots suggested")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, suggestionsResponse{Suggestions: toSuggestionDTOs(suggestions, h.loc)})
}

func (h *TourHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req tourSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateSlot")
	slot, err := h.service.CreateTourSlot(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "tour slot creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("slot_id", slot.ID).InfoContext(r.Context(), "tour slot created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, tourSlotResponse{Slot: toTourSlotDTO(slot)})
}

func (h *TourHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID, ok := SlotIDFromContext(r.Context())
	if !ok || strings.TrimSpace(slotID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	var req tourSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateSlot", "slot_id", slotID)
	slot, err := h.service.UpdateTourSlot(r.Context(), slotID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "tour slot update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "tour slot updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, tourSlotResponse{Slot: toTourSlotDTO(slot)})
}

func (h *TourHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID, ok := SlotIDFromContext(r.Context())
	if !ok || strings.TrimSpace(slotID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	slot, err := h.service.GetTourSlot(r.Context(), slotID)
	if err != nil {
		h.log(r.Context(), "GetSlot", "slot_id", slotID).ErrorContext(r.Context(), "tour slot fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, tourSlotResponse{Slot: toTourSlotDTO(slot)})
}

func (h *TourHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "ListSlots")
	slots, err := h.service.ListTourSlots(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "tour slot list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(slots)).InfoContext(r.Context(), "tour slots listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTourSlotsResponse{Slots: toTourSlotDTOs(slots)})
}

func (h *TourHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID, ok := SlotIDFromContext(r.Context())
	if !ok || strings.TrimSpace(slotID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	logger := h.log(r.Context(), "DeleteSlot", "slot_id", slotID)
	if err := h.service.DeleteTourSlot(r.Context(), slotID); err != nil {
		logger.ErrorContext(r.Context(), "tour slot delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "tour slot deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type tourSlotRequest struct {
	Weekday     int    `json:"weekday"`
	City        string `json:"city"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
}

func (r tourSlotRequest) toInput() application.TourSlotInput {
	return application.TourSlotInput{
		Weekday: calendar.Weekday(r.Weekday),
		City:    strings.TrimSpace(r.City),
		Window:  crm.TimeWindow{Start: strings.TrimSpace(r.WindowStart), End: strings.TrimSpace(r.WindowEnd)},
	}
}

type tourSlotResponse struct {
	Slot tourSlotDTO `json:"slot"`
}

type listTourSlotsResponse struct {
	Slots []tourSlotDTO `json:"slots"`
}

type tourSlotDTO struct {
	ID          string `json:"id"`
	Weekday     int    `json:"weekday"`
	City        string `json:"city"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
}

func toTourSlotDTO(slot crm.TourSlot) tourSlotDTO {
	return tourSlotDTO{
		ID:          slot.ID,
		Weekday:     int(slot.Weekday),
		City:        slot.City,
		WindowStart: slot.Window.Start,
		WindowEnd:   slot.Window.End,
	}
}

func toTourSlotDTOs(slots []crm.TourSlot) []tourSlotDTO {
	if len(slots) == 0 {
		return nil
	}
	out := make([]tourSlotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toTourSlotDTO(slot))
	}
	return out
}

type suggestionsResponse struct {
	Suggestions []suggestionDTO `json:"suggestions"`
}

type suggestionDTO struct {
	CustomerID   string      `json:"customer_id"`
	CustomerName string      `json:"customer_name"`
	Date         string      `json:"date"`
	Slot         tourSlotDTO `json:"slot"`
}

func toSuggestionDTOs(suggestions []tour.Suggestion, loc *time.Location) []suggestionDTO {
	if len(suggestions) == 0 {
		return nil
	}
	out := make([]suggestionDTO, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, suggestionDTO{
			CustomerID:   s.CustomerID,
			CustomerName: s.CustomerName,
			Date:         formatDay(s.Date, loc),
			Slot:         toTourSlotDTO(s.Slot),
		})
	}
	return out
}

type snapshotDTO struct {
	Day      string         `json:"day"`
	Overdue  []tourEntryDTO `json:"overdue,omitempty"`
	DueToday []tourEntryDTO `json:"due_today,omitempty"`
	Upcoming []tourEntryDTO `json:"upcoming,omitempty"`
	Done     []tourEntryDTO `json:"done,omitempty"`
	Stats    tourStatsDTO   `json:"stats"`
}

type tourEntryDTO struct {
	Customer     customerDTO   `json:"customer"`
	Pickup       assessmentDTO `json:"pickup"`
	Delivery     assessmentDTO `json:"delivery"`
	OverallState string        `json:"overall_state"`
}

type assessmentDTO struct {
	State    string `json:"state"`
	NextDate string `json:"next_date,omitempty"`
}

type tourStatsDTO struct {
	Overdue   int `json:"overdue"`
	DueToday  int `json:"due_today"`
	Upcoming  int `json:"upcoming"`
	Done      int `json:"done"`
	FullyDone int `json:"fully_done"`
}

func toSnapshotDTO(snapshot tour.Snapshot, loc *time.Location) snapshotDTO {
	return snapshotDTO{
		Day:      formatDay(snapshot.Day, loc),
		Overdue:  toTourEntryDTOs(snapshot.Overdue, loc),
		DueToday: toTourEntryDTOs(snapshot.DueToday, loc),
		Upcoming: toTourEntryDTOs(snapshot.Upcoming, loc),
		Done:     toTourEntryDTOs(snapshot.Done, loc),
		Stats: tourStatsDTO{
			Overdue:   snapshot.Stats.Overdue,
			DueToday:  snapshot.Stats.DueToday,
			Upcoming:  snapshot.Stats.Upcoming,
			Done:      snapshot.Stats.Done,
			FullyDone: snapshot.Stats.FullyDone,
		},
	}
}

func toTourEntryDTOs(entries []tour.Entry, loc *time.Location) []tourEntryDTO {
	if len(entries) == 0 {
		return nil
	}
	out := make([]tourEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, tourEntryDTO{
			Customer:     toCustomerDTO(entry.Customer, loc),
			Pickup:       toAssessmentDTO(entry.Pickup, loc),
			Delivery:     toAssessmentDTO(entry.Delivery, loc),
			OverallState: string(entry.OverallState()),
		})
	}
	return out
}

func toAssessmentDTO(assessment recurrence.Assessment, loc *time.Location) assessmentDTO {
	dto := assessmentDTO{State: string(assessment.State)}
	if assessment.NextDate != nil {
		dto.NextDate = formatDay(*assessment.NextDate, loc)
	}
	return dto
}
