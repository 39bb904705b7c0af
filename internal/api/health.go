package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var startedAt = time.Now()

// HealthHandler serves GET /health with database reachability and uptime.
func HealthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		health := "healthy"
		dbStatus := "connected"
		status := http.StatusOK
		if err := pool.Ping(ctx); err != nil {
			health = "unhealthy"
			dbStatus = "disconnected"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]any{
			"status":    health,
			"database":  dbStatus,
			"uptime":    time.Since(startedAt).String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
