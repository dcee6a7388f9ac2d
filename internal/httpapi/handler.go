package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"qvuew/internal/breaks"
	"qvuew/internal/models"
	"qvuew/internal/queue"
	"qvuew/internal/session"
	"qvuew/internal/store"

	"github.com/google/uuid"
)

const defaultCurrency = "USD"

type Handler struct {
	sessions *session.Manager
	history  store.HistoryRepository
	rates    store.RateCard
}

type addCustomerRequest struct {
	RequestID  string `json:"request_id"`
	BusinessID string `json:"business_id"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Gender     string `json:"gender"`
	Service    string `json:"service"`
	WaitTime   int    `json:"wait_time"`
	Notes      string `json:"notes"`
}

type businessRequest struct {
	RequestID  string `json:"request_id"`
	BusinessID string `json:"business_id"`
}

type undoRequest struct {
	RequestID  string `json:"request_id"`
	BusinessID string `json:"business_id"`
	EntryIndex *int   `json:"entry_index"`
}

type adjustTimeRequest struct {
	RequestID    string `json:"request_id"`
	BusinessID   string `json:"business_id"`
	DeltaMinutes int    `json:"delta_minutes"`
}

type startBreakRequest struct {
	RequestID       string          `json:"request_id"`
	BusinessID      string          `json:"business_id"`
	Reason          string          `json:"reason"`
	DurationMinutes json.RawMessage `json:"duration_minutes"`
}

type rateRequest struct {
	RequestID  string `json:"request_id"`
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Rate       int64  `json:"rate"`
	Currency   string `json:"currency"`
}

type customerActionResponse struct {
	Customer models.Customer  `json:"customer"`
	Moved    *bool            `json:"moved,omitempty"`
	Queue    session.Snapshot `json:"queue"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []models.FieldError `json:"fields,omitempty"`
}

func NewHandler(sessions *session.Manager, history store.HistoryRepository, rates store.RateCard) *Handler {
	return &Handler{
		sessions: sessions,
		history:  history,
		rates:    rates,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/queue/customers", h.handleAddCustomer)
	mux.HandleFunc("/api/queue/customers/", h.handleCustomerActions)
	mux.HandleFunc("/api/queue/actions/advance", h.handleAdvance)
	mux.HandleFunc("/api/queue/actions/undo", h.handleUndo)
	mux.HandleFunc("/api/break/start", h.handleStartBreak)
	mux.HandleFunc("/api/break/resume", h.handleResumeBreak)
	mux.HandleFunc("/api/break/presets", h.handleBreakPresets)
	mux.HandleFunc("/api/inactivity/dismiss", h.handleDismissReminder)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/history/stats", h.handleHistoryStats)
	mux.HandleFunc("/api/rates", h.handleRates)
	mux.HandleFunc("/api/rates/", h.handleRateByName)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	businessID, ok := businessIDFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Snapshot(businessID))
}

func (h *Handler) handleAddCustomer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req addCustomerRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	if !validBusiness(w, req.RequestID, req.BusinessID) {
		return
	}

	s := h.sessions.Session(req.BusinessID)
	customer, err := s.Add(r.Context(), queue.AddCustomerInput{
		ID:       req.ID,
		Name:     req.Name,
		Phone:    req.Phone,
		Gender:   req.Gender,
		Service:  req.Service,
		WaitTime: req.WaitTime,
		Notes:    req.Notes,
	})
	if err != nil {
		writeMappedError(w, req.RequestID, err)
		return
	}
	writeJSON(w, http.StatusCreated, customerActionResponse{Customer: customer, Queue: s.Snapshot()})
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req businessRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validBusiness(w, req.RequestID, req.BusinessID) {
		return
	}
	s := h.sessions.Session(req.BusinessID)
	served, err := s.Advance(r.Context())
	if err != nil {
		writeMappedError(w, req.RequestID, err)
		return
	}
	writeJSON(w, http.StatusOK, customerActionResponse{Customer: served, Queue: s.Snapshot()})
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req undoRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validBusiness(w, req.RequestID, req.BusinessID) {
		return
	}
	index := 0
	if req.EntryIndex != nil {
		index = *req.EntryIndex
	}
	s := h.sessions.Session(req.BusinessID)
	entry, err := s.Undo(r.Context(), index)
	if err != nil {
		writeMappedError(w, req.RequestID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"undone": entry,
		"queue":  s.Snapshot(),
	})
}

func (h *Handler) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/queue/customers/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[1] != "actions" || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	customerID, err := url.PathUnescape(parts[0])
	if err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "invalid customer id")
		return
	}

	switch parts[2] {
	case "skip", "hold", "unhold", "remove":
		h.handleSimpleAction(w, r, customerID, parts[2])
	case "adjust-time":
		h.handleAdjustTime(w, r, customerID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSimpleAction(w http.ResponseWriter, r *http.Request, customerID, action string) {
	var req businessRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validBusiness(w, req.RequestID, req.BusinessID) {
		return
	}
	s := h.sessions.Session(req.BusinessID)

	var (
		customer models.Customer
		moved    *bool
		err      error
	)
	switch action {
	case "skip":
		var m bool
		customer, m, err = s.Skip(r.Context(), customerID)
		moved = &m
	case "hold":
		customer, err = s.Hold(r.Context(), customerID)
	case "unhold":
		customer, err = s.Unhold(r.Context(), customerID)
	case "remove":
		customer, err = s.Remove(r.Context(), customerID)
	}
	if err != nil {
		writeMappedError(w, req.RequestID, err)
		return
	}
	writeJSON(w, http.StatusOK, customerActionResponse{Customer: customer, Moved: moved, Queue: s.Snapshot()})
}

func (h *Handler) handleAdjustTime(w http.ResponseWriter, r *http.Request, customerID string) {
	var req adjustTimeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validBusiness(w, req.RequestID, req.BusinessID) {
		return
	}
	if req.DeltaMinutes == 0 {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "delta_minutes must be non-zero")
		return
	}
	s := h.sessions.Session(req.BusinessID)
	customer, err := s.AdjustTime(r.Context(), customerID, req.DeltaMinutes)
	if err != nil {
		writeMappedError(w, req.RequestID, err)
		return
	}
	writeJSON(w, http.StatusOK, customerActionResponse{Customer: customer, Queue: s.Snapshot()})
}

func (h *Handler) handleStartBreak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req startBreakRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validBusiness(w, req.RequestID, req.BusinessID) {
		return
	}
	verr := &models.ValidationError{}
	if strings.TrimSpace(req.Reason) == "" {
		verr.Add("reason", "reason is required")
	}
	minutes, err := breaks.ParseMinutes(strings.Trim(string(req.DurationMinutes), `"`))
	var durationErr *models.ValidationError
	if errors.As(err, &durationErr) {
		verr.Fields = append(verr.Fields, durationErr.Fields...)
	}
	if err := verr.OrNil(); err != nil {
		writeMappedError(w, req.RequestID, err)
		return
	}
	state, err := h.sessions.Session(req.BusinessID).StartBreak(req.Reason, minutes)
	if err != nil {
		writeMappedError(w, req.RequestID, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleResumeBreak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req businessRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validBusiness(w, req.RequestID, req.BusinessID) {
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Session(req.BusinessID).ResumeBreak())
}

func (h *Handler) handleBreakPresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": breaks.Presets})
}

func (h *Handler) handleDismissReminder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req businessRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if !validBusiness(w, req.RequestID, req.BusinessID) {
		return
	}
	last := h.sessions.Session(req.BusinessID).DismissReminder()
	writeJSON(w, http.StatusOK, map[string]interface{}{"last_action_at": last})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter, ok := historyFilterFromQuery(w, r)
	if !ok {
		return
	}
	entries, err := h.history.Query(r.Context(), filter)
	if err != nil {
		writeMappedError(w, "", err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	filter, ok := historyFilterFromQuery(w, r)
	if !ok {
		return
	}
	filter.Limit = 0
	entries, err := h.history.Query(r.Context(), filter)
	if err != nil {
		writeMappedError(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, store.Stats(entries))
}

func (h *Handler) handleRates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		businessID, ok := businessIDFromQuery(w, r)
		if !ok {
			return
		}
		items, err := h.rates.ListRates(r.Context(), businessID)
		if err != nil {
			writeMappedError(w, "", err)
			return
		}
		if items == nil {
			items = []models.RateCardItem{}
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req rateRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if !validBusiness(w, req.RequestID, req.BusinessID) {
			return
		}
		verr := &models.ValidationError{}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			verr.Add("name", "name is required")
		}
		if req.Rate < 0 {
			verr.Add("rate", "rate must not be negative")
		}
		req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
		if req.Currency == "" {
			req.Currency = defaultCurrency
		}
		if len(req.Currency) != 3 {
			verr.Add("currency", "currency must be a 3 letter code")
		}
		if err := verr.OrNil(); err != nil {
			writeMappedError(w, req.RequestID, err)
			return
		}
		item, err := h.rates.UpsertRate(r.Context(), models.RateCardItem{
			BusinessID: req.BusinessID,
			Name:       req.Name,
			Rate:       req.Rate,
			Currency:   req.Currency,
			UpdatedAt:  time.Now().UTC(),
		})
		if err != nil {
			writeMappedError(w, req.RequestID, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleRateByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name, err := url.PathUnescape(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/rates/"), "/"))
	if err != nil || name == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	businessID, ok := businessIDFromQuery(w, r)
	if !ok {
		return
	}
	if err := h.rates.DeleteRate(r.Context(), businessID, name); err != nil {
		writeMappedError(w, "", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func historyFilterFromQuery(w http.ResponseWriter, r *http.Request) (store.HistoryFilter, bool) {
	businessID, ok := businessIDFromQuery(w, r)
	if !ok {
		return store.HistoryFilter{}, false
	}
	query := r.URL.Query()
	filter := store.HistoryFilter{BusinessID: businessID}

	status := strings.TrimSpace(query.Get("status"))
	if status != "" && status != models.HistoryServed && status != models.HistorySkipped {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "status must be served or skipped")
		return store.HistoryFilter{}, false
	}
	filter.Status = status

	for _, bound := range []struct {
		key    string
		target *time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := strings.TrimSpace(query.Get(bound.key))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_request", bound.key+" must be RFC3339 timestamp")
			return store.HistoryFilter{}, false
		}
		*bound.target = parsed
	}

	if limitRaw := strings.TrimSpace(query.Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return store.HistoryFilter{}, false
		}
		filter.Limit = parsed
	}
	return filter, true
}

func businessIDFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if !validBusiness(w, "", businessID) {
		return "", false
	}
	return businessID, true
}

func validBusiness(w http.ResponseWriter, requestID, businessID string) bool {
	if businessID == "" {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "business_id is required")
		return false
	}
	if !isValidUUID(businessID) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "business_id must be a UUID")
		return false
	}
	return true
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, session.ErrOnBreak):
		return http.StatusConflict, "on_break", "queue is paused for a break"
	case errors.Is(err, breaks.ErrBreakActive):
		return http.StatusConflict, "break_active", "a break is already running"
	case errors.Is(err, queue.ErrQueueEmpty):
		return http.StatusConflict, "queue_empty", "no customers waiting"
	case errors.Is(err, queue.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found", "customer not found"
	case errors.Is(err, queue.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "customer state does not allow this action"
	case errors.Is(err, queue.ErrNothingToUndo):
		return http.StatusConflict, "undo_exhausted", "no more undo available"
	case errors.Is(err, queue.ErrUndoEntryNotFound):
		return http.StatusNotFound, "undo_entry_not_found", "undo entry not found"
	case errors.Is(err, store.ErrRateNotFound):
		return http.StatusNotFound, "rate_not_found", "rate not found"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeMappedError(w http.ResponseWriter, requestID string, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			RequestID: requestID,
			Error: responseError{
				Code:    "invalid_request",
				Message: "validation failed",
				Fields:  verr.Fields,
			},
		})
		return
	}
	status, code, msg := mapError(err)
	writeError(w, requestID, status, code, msg)
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
