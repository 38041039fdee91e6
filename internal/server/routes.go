package server

import (
	"net/http"
)

func NewMux(api *Handler, ws *WSHandler) http.Handler {
	mux := http.NewServeMux()

	// Run control
	mux.HandleFunc("/api/execute", api.HandleExecute)
	mux.HandleFunc("/api/stop", api.HandleStop)
	mux.HandleFunc("/api/status", api.HandleStatus)

	// Reports
	mux.HandleFunc("/api/results", api.HandleResults)
	mux.HandleFunc("/api/reports/", api.HandleReport)

	// Client convenience
	mux.HandleFunc("/api/config/last", api.HandleLastRequest)

	// Live progress
	mux.HandleFunc("/ws/progress", ws.HandleProgressWS)

	// Middleware
	return CORS(mux)
}
