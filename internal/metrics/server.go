package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server serves /metrics and /healthz.
type Server struct {
	srv *http.Server
}

// NewServer builds the metrics HTTP server for addr.
func NewServer(addr string, rec *Recorder) *Server {
	router := mux.NewRouter()
	router.Handle("/metrics", rec.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Start serves in the background. Errors after startup are reported on
// the returned channel; the shim treats them as diagnostics, never fatal.
func (s *Server) Start() <-chan error {
	errs := make(chan error, 1)
	go func() {
		errs <- s.ListenAndServe()
	}()
	return errs
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
