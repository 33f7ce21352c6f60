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

type listService interface {
	CreateList(ctx context.Context, input application.ListInput) (crm.CustomerList, error)
	UpdateList(ctx context.Context, id string, input application.ListInput) (crm.CustomerList, error)
	GetList(ctx context.Context, id string) (crm.CustomerList, error)
	ListLists(ctx context.Context) ([]crm.CustomerList, error)
	DeleteList(ctx context.Context, id string) error
	GenerateNextTerms(ctx context.Context, id string, fromDay time.Time) (crm.CustomerList, error)
}

type ListHandler struct {
	service   listService
	responder responder
	loc       *time.Location
	logger    *slog.Logger
}

func NewListHandler(service listService, loc *time.Location, logger *slog.Logger) *ListHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &ListHandler{service: service, responder: newResponder(base), loc: loc, logger: base}
}

func (h *ListHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ListHandler", operation, attrs...)
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode list request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create")
	list, err := h.service.CreateList(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "list creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("list_id", list.ID).InfoContext(r.Context(), "list created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listResponse{List: toListDTO(list, h.loc)})
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	listID, ok := ListIDFromContext(r.Context())
	if !ok || strings.TrimSpace(listID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidListID)
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "list_id", listID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode list update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput(h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Update", "list_id", listID)
	list, err := h.service.UpdateList(r.Context(), listID, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "list update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "list updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse{List: toListDTO(list, h.loc)})
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	listID, ok := ListIDFromContext(r.Context())
	if !ok || strings.TrimSpace(listID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidListID)
		return
	}

	list, err := h.service.GetList(r.Context(), listID)
	if err != nil {
		h.log(r.Context(), "Get", "list_id", listID).ErrorContext(r.Context(), "list fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse{List: toListDTO(list, h.loc)})
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	lists, err := h.service.ListLists(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "list listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(lists)).InfoContext(r.Context(), "lists listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listListsResponse{Lists: toListDTOs(lists, h.loc)})
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	listID, ok := ListIDFromContext(r.Context())
	if !ok || strings.TrimSpace(listID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidListID)
		return
	}

	logger := h.log(r.Context(), "Delete", "list_id", listID)
	if err := h.service.DeleteList(r.Context(), listID); err != nil {
		logger.ErrorContext(r.Context(), "list delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "list deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// GenerateTerms handles POST /lists/{id}/terms. The optional from field
// defaults to today on the service side.
func (h *ListHandler) GenerateTerms(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	listID, ok := ListIDFromContext(r.Context())
	if !ok || strings.TrimSpace(listID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidListID)
		return
	}

	var req generateTermsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	var fromDay time.Time
	if strings.TrimSpace(req.From) != "" {
		parsed, err := parseDay(req.From, h.loc)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		fromDay = parsed
	} else {
		fromDay = time.Now()
	}

	logger := h.log(r.Context(), "GenerateTerms", "list_id", listID)
	list, err := h.service.GenerateNextTerms(r.Context(), listID, fromDay)
	if err != nil {
		logger.ErrorContext(r.Context(), "term generation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "term pair generated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse{List: toListDTO(list, h.loc)})
}

type listRequest struct {
	Name                 string        `json:"name"`
	Weekday              int           `json:"weekday"`
	Terms                []termRequest `json:"terms"`
	WeekdayForPickup     *int          `json:"weekday_for_pickup"`
	DaysPickupToDelivery int           `json:"days_pickup_to_delivery"`
}

func (r listRequest) toInput(loc *time.Location) (application.ListInput, error) {
	terms, err := toListTerms(r.Terms, loc)
	if err != nil {
		return application.ListInput{}, err
	}
	return application.ListInput{
		Name:                 strings.TrimSpace(r.Name),
		Weekday:              calendar.Weekday(r.Weekday),
		Terms:                terms,
		WeekdayForPickup:     toWeekdayPtr(r.WeekdayForPickup),
		DaysPickupToDelivery: r.DaysPickupToDelivery,
	}, nil
}

type generateTermsRequest struct {
	From string `json:"from"`
}

type listResponse struct {
	List listDTO `json:"list"`
}

type listListsResponse struct {
	Lists []listDTO `json:"lists"`
}

type listDTO struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Weekday              int       `json:"weekday"`
	Terms                []termDTO `json:"terms,omitempty"`
	WeekdayForPickup     *int      `json:"weekday_for_pickup,omitempty"`
	DaysPickupToDelivery int       `json:"days_pickup_to_delivery,omitempty"`
	CreatedAt            string    `json:"created_at"`
	UpdatedAt            string    `json:"updated_at"`
}

func toListDTO(list crm.CustomerList, loc *time.Location) listDTO {
	return listDTO{
		ID:                   list.ID,
		Name:                 list.Name,
		Weekday:              int(list.Weekday),
		Terms:                toTermDTOs(list.Terms, loc),
		WeekdayForPickup:     fromWeekdayPtr(list.WeekdayForPickup),
		DaysPickupToDelivery: list.DaysPickupToDelivery,
		CreatedAt:            list.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:            list.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toListDTOs(lists []crm.CustomerList, loc *time.Location) []listDTO {
	if len(lists) == 0 {
		return nil
	}
	out := make([]listDTO, 0, len(lists))
	for _, list := range lists {
		out = append(out, toListDTO(list, loc))
	}
	return out
}
