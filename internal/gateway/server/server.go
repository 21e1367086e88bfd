package server

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// New builds the HTTP server with h2c enabled so gRPC-web style clients and
// plain HTTP/1.1 both work on one cleartext port.
func New(addr string, handler http.Handler) *http.Server {
	h2s := &http2.Server{}
	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, h2s),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Shutdown drains the server with a bounded grace period.
func Shutdown(srv *http.Server, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(ctx)
}
