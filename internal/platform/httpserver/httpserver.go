package httpserver

import (
	"net/http"
	"time"
)

// New builds the engine's HTTP server. ReadHeaderTimeout guards against
// slowloris clients; per-request deadlines live in the router's timeout
// middleware.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
