package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/gauntlet/internal/identity"
	"github.com/ashureev/gauntlet/internal/store"
)

// GameHandler handles game state endpoints.
type GameHandler struct {
	*Handler
	adminToken string
}

// NewGameHandler creates a new game handler.
func NewGameHandler(base *Handler, adminToken string) *GameHandler {
	return &GameHandler{Handler: base, adminToken: adminToken}
}

// RegisterRoutes registers game routes.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/stats", h.GetStats)
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Post("/admin/reset/{identity}", h.ResetSession)
	})
}

// GetMe returns the calling identity's progress.
func (h *GameHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess, err := h.store.Load(r.Context(), id)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "identity", id)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if sess == nil {
		JSON(w, http.StatusOK, map[string]interface{}{
			"identity": id,
			"started":  false,
		})
		return
	}

	lvl := h.levels.Lookup(sess.Level)
	JSON(w, http.StatusOK, map[string]interface{}{
		"identity":  id,
		"started":   true,
		"level":     sess.Level,
		"bot_name":  lvl.BotName,
		"attempts":  sess.Attempts,
		"won":       sess.Won,
		"max_level": h.levels.Max(),
	})
}

// GetStats returns aggregate game counters.
func (h *GameHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		slog.Error("Failed to load stats", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	JSON(w, http.StatusOK, stats)
}

// GetLeaderboard returns winners ordered by rank. Identities are
// masked so the board can be shown publicly.
func (h *GameHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	winners, err := h.store.Winners(r.Context())
	if err != nil {
		slog.Error("Failed to load winners", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	type entry struct {
		Rank           int    `json:"rank"`
		Identity       string `json:"identity"`
		TotalAttempts  int    `json:"total_attempts"`
		ElapsedSeconds int    `json:"elapsed_seconds"`
		CompletedAt    string `json:"completed_at"`
	}
	board := make([]entry, 0, len(winners))
	for _, wn := range winners {
		board = append(board, entry{
			Rank:           wn.Rank,
			Identity:       maskIdentity(wn.Identity),
			TotalAttempts:  wn.TotalAttempts,
			ElapsedSeconds: wn.ElapsedSeconds,
			CompletedAt:    wn.CompletedAt.UTC().Format(time.RFC3339),
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"winners": board})
}

// ResetSession wipes one identity's session, messages and winner row.
func (h *GameHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "identity")
	if id == "" {
		Error(w, http.StatusBadRequest, "identity is required")
		return
	}

	if err := h.store.ResetAll(r.Context(), id); err != nil {
		slog.Error("Failed to reset session", "error", err, "identity", id)
		Error(w, http.StatusInternalServerError, "failed to reset session")
		return
	}

	slog.Info("Session reset", "identity", id)
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *GameHandler) authorized(r *http.Request) bool {
	if h.adminToken == "" {
		// No token configured: admin endpoints only work in development.
		return h.isDevelopment()
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) == 1
}

func maskIdentity(id string) string {
	if len(id) <= 9 {
		return id
	}
	return id[:9] + "***"
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store store.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(st store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
