package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/models"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/services"
)

const qrImageSize = 256

// CounterStore is the provisioning side of the ledger.
type CounterStore interface {
	CreateCounter(ctx context.Context, groupID, topicID int64, title string) (*models.Counter, error)
	GetCounter(ctx context.Context, counterID int64) (*models.Counter, error)
	ListCounters(ctx context.Context) ([]models.Counter, error)
	RenameCounter(ctx context.Context, counterID int64, title string) error
	TotalAndTitle(ctx context.Context, counterID int64) (int64, string, error)
	CounterLeaderboard(ctx context.Context, counterID int64) (*models.Leaderboard, error)
}

// NameLookup resolves user ids to display names.
type NameLookup interface {
	Names(ctx context.Context, userIDs []int64) map[int64]string
}

type CounterHandler struct {
	store     CounterStore
	names     NameLookup
	validator *services.ValidationHelper
}

// CreateCounterRequest represents a counter provisioning request
// @Description Counter provisioning request
type CreateCounterRequest struct {
	GroupID int64  `json:"group_id" validate:"required" example:"-1001234567890"`
	TopicID int64  `json:"topic_id" validate:"required,gt=0,lte=2147483647" example:"42"`
	Title   string `json:"title" validate:"required,max=255" example:"Morning Salawat"`
}

// RenameCounterRequest represents a counter rename request
// @Description Counter rename request
type RenameCounterRequest struct {
	Title string `json:"title" validate:"required,max=255" example:"Evening Salawat"`
}

func NewCounterHandler(store CounterStore, names NameLookup) *CounterHandler {
	return &CounterHandler{
		store:     store,
		names:     names,
		validator: services.NewValidationHelper(),
	}
}

// Routes mounts the counter endpoints on r.
func (h *CounterHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateCounter)
	r.Get("/", h.ListCounters)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetCounter)
		r.Put("/", h.RenameCounter)
		r.Get("/leaderboard", h.Leaderboard)
		r.Get("/qr", h.QRCode)
	})
}

// CreateCounter provisions a counter for a group topic
// @Summary Create counter
// @Description Bind a new counter to a group topic. One counter per (group, topic).
// @Tags counters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCounterRequest true "Counter"
// @Success 201 {object} models.Counter
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /counters [post]
func (h *CounterHandler) CreateCounter(w http.ResponseWriter, r *http.Request) {
	var req CreateCounterRequest
	if !services.DecodeJSONBody(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	counter, err := h.store.CreateCounter(r.Context(), req.GroupID, req.TopicID, req.Title)
	if errors.Is(err, services.ErrCounterExists) {
		services.SendErrorResponse(w, "A counter already exists for this topic", http.StatusConflict, nil)
		return
	}
	if err != nil {
		log.Printf("[ADMIN] Failed to create counter: %v", err)
		services.SendErrorResponse(w, "Failed to create counter", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[ADMIN] Counter %d created for group %d topic %d", counter.ID, counter.GroupID, counter.TopicID)
	services.WriteJSON(w, http.StatusCreated, counter)
}

// ListCounters lists all counters
// @Summary List counters
// @Tags counters
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Counter
// @Router /counters [get]
func (h *CounterHandler) ListCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := h.store.ListCounters(r.Context())
	if err != nil {
		log.Printf("[ADMIN] Failed to list counters: %v", err)
		services.SendErrorResponse(w, "Failed to list counters", http.StatusInternalServerError, nil)
		return
	}
	services.WriteJSON(w, http.StatusOK, counters)
}

// GetCounter returns a counter with its running total
// @Summary Get counter
// @Tags counters
// @Produce json
// @Security BearerAuth
// @Param id path int true "Counter ID"
// @Success 200 {object} models.CounterSummary
// @Failure 404 {object} services.ErrorResponse
// @Router /counters/{id} [get]
func (h *CounterHandler) GetCounter(w http.ResponseWriter, r *http.Request) {
	id, ok := counterID(w, r)
	if !ok {
		return
	}

	counter, err := h.store.GetCounter(r.Context(), id)
	if err != nil {
		h.storeError(w, "get counter", err)
		return
	}

	total, _, err := h.store.TotalAndTitle(r.Context(), id)
	if err != nil {
		h.storeError(w, "total counter", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, models.CounterSummary{Counter: *counter, Total: total})
}

// RenameCounter changes a counter title
// @Summary Rename counter
// @Tags counters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Counter ID"
// @Param request body RenameCounterRequest true "New title"
// @Success 200 {object} models.Counter
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /counters/{id} [put]
func (h *CounterHandler) RenameCounter(w http.ResponseWriter, r *http.Request) {
	id, ok := counterID(w, r)
	if !ok {
		return
	}

	var req RenameCounterRequest
	if !services.DecodeJSONBody(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.store.RenameCounter(r.Context(), id, req.Title); err != nil {
		h.storeError(w, "rename counter", err)
		return
	}

	counter, err := h.store.GetCounter(r.Context(), id)
	if err != nil {
		h.storeError(w, "get counter", err)
		return
	}
	services.WriteJSON(w, http.StatusOK, counter)
}

// Leaderboard returns ranked contributors of a counter
// @Summary Counter leaderboard
// @Tags counters
// @Produce json
// @Security BearerAuth
// @Param id path int true "Counter ID"
// @Success 200 {object} models.Leaderboard
// @Failure 404 {object} services.ErrorResponse
// @Router /counters/{id}/leaderboard [get]
func (h *CounterHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	id, ok := counterID(w, r)
	if !ok {
		return
	}

	board, err := h.store.CounterLeaderboard(r.Context(), id)
	if err != nil {
		h.storeError(w, "leaderboard", err)
		return
	}

	if h.names != nil && len(board.Contributors) > 0 {
		ids := make([]int64, len(board.Contributors))
		for i, c := range board.Contributors {
			ids[i] = c.UserID
		}
		names := h.names.Names(r.Context(), ids)
		for i := range board.Contributors {
			board.Contributors[i].Name = names[board.Contributors[i].UserID]
		}
	}

	services.WriteJSON(w, http.StatusOK, board)
}

// QRCode renders a QR code linking to the counter's topic
// @Summary Counter topic QR code
// @Tags counters
// @Produce png
// @Security BearerAuth
// @Param id path int true "Counter ID"
// @Success 200 {file} binary
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /counters/{id}/qr [get]
func (h *CounterHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := counterID(w, r)
	if !ok {
		return
	}

	counter, err := h.store.GetCounter(r.Context(), id)
	if err != nil {
		h.storeError(w, "get counter", err)
		return
	}

	png, link, err := services.CounterQRCode(counter, qrImageSize)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Topic-Link", link)
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *CounterHandler) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, services.ErrCounterNotFound) {
		services.SendErrorResponse(w, "Counter not found", http.StatusNotFound, nil)
		return
	}
	log.Printf("[ADMIN] Failed to %s: %v", op, err)
	services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
}

func counterID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid counter id", http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}
