package httpapi

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// StatusSource provides the latest locker snapshot.
type StatusSource interface {
	Current() types.StatusResponse
}

type Dependencies struct {
	Logger *log.Logger
	Addr   string
	Status StatusSource

	// RateLimit is the sustained requests per second across all clients.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server exposes read-only locker status. No route changes locker state.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	status     StatusSource
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
		status: d.Status,
	}

	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)

	var handler http.Handler = mux
	if d.RateLimit > 0 {
		burst := d.RateBurst
		if burst <= 0 {
			burst = 1
		}
		handler = rateLimitMiddleware(rate.NewLimiter(rate.Limit(d.RateLimit), burst), handler)
	}
	handler = loggingMiddleware(logger, handler)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.status.Current()

	if wantsProtobuf(r) {
		msg, err := statusToProto(st)
		if err != nil {
			s.logger.Printf("status proto error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, http.StatusOK, msg)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// handleHealthz reports healthy once the scheduler has completed a tick.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.status.Current()
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"ok":      st.OK,
		"boot_id": st.BootID,
		"tick":    st.Tick,
	})
}
