package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"fitgrid/internal/availability"
	"fitgrid/internal/interval"
	"fitgrid/internal/model"
	"fitgrid/internal/schedule"
	"fitgrid/internal/service"
	"fitgrid/internal/timeutil"
)

// HTTPServer exposes the scheduling engine over JSON.
type HTTPServer struct {
	server   *http.Server
	resolver *availability.Resolver
	checker  *schedule.Checker
	finder   *schedule.Finder
	bookings *service.PersonalBookingService
	validate *validator.Validate
	log      *zerolog.Logger
}

// Options configures the HTTP server.
type Options struct {
	Port              int
	RequestsPerSecond float64
	Burst             int
}

// NewHTTPServer wires routes and middleware.
func NewHTTPServer(
	opts Options,
	resolver *availability.Resolver,
	checker *schedule.Checker,
	finder *schedule.Finder,
	bookings *service.PersonalBookingService,
	log *zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		resolver: resolver,
		checker:  checker,
		finder:   finder,
		bookings: bookings,
		validate: validator.New(),
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/availability/resolve", s.handleResolveAvailability)
	mux.HandleFunc("/api/conflicts/check", s.handleCheckConflicts)
	mux.HandleFunc("/api/conflicts/repeat", s.handleRepeatedConflicts)
	mux.HandleFunc("/api/slots", s.handleAvailableSlots)
	mux.HandleFunc("/api/boundary/next", s.handleNextBoundary)
	mux.HandleFunc("/api/personal-bookings", s.handleCreatePersonalBooking)
	mux.HandleFunc("/api/personal-bookings/", s.handleUpdatePersonalBooking)

	handler := s.withRequestID(s.withRateLimit(opts.RequestsPerSecond, opts.Burst, mux))
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the configured root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps engine errors onto status codes: validation failures
// are 400, everything else is a failed data read and must not be reported as
// "no conflict" or "available".
func (s *HTTPServer) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interval.ErrInvalidInterval),
		errors.Is(err, timeutil.ErrInvalidInstant),
		errors.Is(err, model.ErrMissingIdentifier):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("engine request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes and validates a JSON request body.
func (s *HTTPServer) decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid request: %v", err)
	}
	return nil
}
