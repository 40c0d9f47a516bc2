package http

import (
	"context"
	"encoding/json"
	"net/http"

	"studytec-client/internal/app"
)

type liveCounter interface {
	LiveCount(ctx context.Context) (int, error)
}

type healthPayload struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Live     *int   `json:"live,omitempty"`
}

// NewMux routes the hub endpoints.
func NewMux(ws *WSHandler, registry app.SessionRegistry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		payload := healthPayload{Status: "ok", Sessions: registry.Len()}
		if lc, ok := registry.(liveCounter); ok {
			if n, err := lc.LiveCount(r.Context()); err == nil {
				payload.Live = &n
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	return mux
}
