package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pyquiz-service/internal/app"
	"pyquiz-service/internal/domain"
)

// Leaderboard ranks reported sessions. It is optional; without it
// GET /leaderboard answers 404.
type Leaderboard interface {
	Leaderboard(ctx context.Context, categoryID string, limit int) ([]domain.LeaderboardEntry, error)
}

type RESTHandler struct {
	service     *app.QuizService
	leaderboard Leaderboard
	log         *zap.Logger
	now         func() time.Time
}

func NewRESTHandler(service *app.QuizService, leaderboard Leaderboard, log *zap.Logger) *RESTHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RESTHandler{service: service, leaderboard: leaderboard, log: log, now: time.Now}
}

// Register mounts the read-only endpoints on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /categories", h.handleCategories)
	mux.HandleFunc("GET /players/{id}/history", h.handleHistory)
	mux.HandleFunc("GET /players/{id}/best/{category}", h.handleBest)
	mux.HandleFunc("GET /sessions/{id}/export", h.handleExport)
	mux.HandleFunc("GET /leaderboard", h.handleLeaderboard)
}

type bestResponse struct {
	PlayerID   string `json:"playerId"`
	CategoryID string `json:"categoryId"`
	Best       int    `json:"best"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *RESTHandler) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		h.log.Warn("list categories", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *RESTHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.History(r.Context(), r.PathValue("id")))
}

func (h *RESTHandler) handleBest(w http.ResponseWriter, r *http.Request) {
	playerID, categoryID := r.PathValue("id"), r.PathValue("category")
	writeJSON(w, http.StatusOK, bestResponse{
		PlayerID:   playerID,
		CategoryID: categoryID,
		Best:       h.service.Best(r.Context(), playerID, categoryID),
	})
}

func (h *RESTHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.service.Export(r.PathValue("id"))
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrSessionNotComplete):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	filename := fmt.Sprintf("pyquiz-results-%d.json", h.now().UnixMilli())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	writeJSON(w, http.StatusOK, export)
}

func (h *RESTHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.leaderboard == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "leaderboard not configured"})
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, 100)
	}
	entries, err := h.leaderboard.Leaderboard(r.Context(), r.URL.Query().Get("category_id"), limit)
	if err != nil {
		h.log.Warn("load leaderboard", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
