package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

const healthCheckTimeout = 2 * time.Second

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
	DurationMs int64          `json:"duration_ms"`
}

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

func DatabaseCheck(db *sql.DB) CheckFunc {
	return db.PingContext
}

func RedisCheck(client redis.UniversalClient) CheckFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

type HealthHandler struct {
	checks map[string]CheckFunc
}

// NewHealthHandler reports on each named check. Nil checks are skipped so callers
// can pass optional dependencies directly.
func NewHealthHandler(checks map[string]CheckFunc) *HealthHandler {
	h := &HealthHandler{checks: make(map[string]CheckFunc, len(checks))}
	for name, c := range checks {
		if c != nil {
			h.checks[name] = c
		}
	}
	return h
}

// Ping handles GET /ping: the process is up.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Health handles GET /health: every dependency answers within the timeout.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:     HealthHealthy,
		Components: make(map[string]CheckEntry, len(h.checks)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for name, check := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := check(ctx)
			entry := CheckEntry{
				Status:     HealthHealthy,
				CheckedAt:  time.Now(),
				DurationMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				entry.Status = HealthUnhealthy
				entry.Message = err.Error()
			}

			mu.Lock()
			resp.Components[name] = entry
			if entry.Status == HealthUnhealthy {
				resp.Status = HealthUnhealthy
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	resp.CheckedAt = time.Now()

	statusCode := http.StatusOK
	if resp.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, statusCode, resp)
}

func writeHealthJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
