package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/linkboard/linkboard/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Redis string `json:"redis,omitempty"`
	DB    string `json:"db,omitempty"`
}

// Readyz pings both backing stores. Redis being down does not unready
// the service: the channel log is transient and the unified read is the
// correctness backstop.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := readyzResponse{Ready: true}

		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				resp.Ready = false
				resp.DB = err.Error()
			} else {
				resp.DB = "ok"
			}
		}
		if d.RedisClient != nil {
			if err := d.RedisClient.Ping(ctx).Err(); err != nil {
				resp.Redis = err.Error()
			} else {
				resp.Redis = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !resp.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
