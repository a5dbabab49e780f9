package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"loyalty/internal/model"
	"loyalty/internal/service"
	"loyalty/internal/transport/websocket"
)

type Handler struct {
	svc     service.RewardsService
	hub     *websocket.Hub
	started time.Time
}

func NewHandler(svc service.RewardsService, hub *websocket.Hub) *Handler {
	return &Handler{svc: svc, hub: hub, started: time.Now()}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/rewards", func(r chi.Router) {
		r.Get("/points", h.GetPoints)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/options", h.RewardOptions)
		r.Post("/redeem", h.Redeem)
		r.Post("/transaction", h.RecordTransaction)
		r.Post("/accounts", h.CreateAccount)
	})

	if h.hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(h.hub))
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status, code, message := "ok", http.StatusOK, "rewards service is healthy"
	if err := h.svc.Ping(r.Context()); err != nil {
		status, code, message = "error", http.StatusServiceUnavailable, err.Error()
	}
	h.respondJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.started).Seconds(),
		"message":   message,
	})
}

func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBalance(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"userId":      b.UserID,
		"totalPoints": b.TotalPoints,
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), service.DefaultPage)
	if err != nil {
		h.respondStatus(w, r, http.StatusBadRequest, "page must be an integer")
		return
	}
	limit, err := intParam(q.Get("limit"), service.DefaultLimit)
	if err != nil {
		h.respondStatus(w, r, http.StatusBadRequest, "limit must be an integer")
		return
	}

	res, err := h.svc.ListTransactions(r.Context(), q.Get("userId"), page, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) RewardOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.RewardCatalog(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, opts)
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req model.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondStatus(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := h.svc.Redeem(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req model.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondStatus(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	tx, err := h.svc.RecordTransaction(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, tx)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string `json:"userId"`
		InitialPoints int64  `json:"initialPoints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondStatus(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	b, err := h.svc.CreateBalance(r.Context(), req.UserID, req.InitialPoints)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, b)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	h.respondStatus(w, r, statusFor(err), err.Error())
}

func (h *Handler) respondStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, status, errorBody{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
		Timestamp:  time.Now().UTC(),
		Path:       r.URL.Path,
	})
}

type errorBody struct {
	StatusCode int       `json:"statusCode"`
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Path       string    `json:"path"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
