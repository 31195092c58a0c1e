package api

import (
	"errors"
	"net/http"
	"strconv"

	"fitgrid/internal/metrics"
	"fitgrid/internal/model"
	"fitgrid/internal/service"
	"fitgrid/internal/timeutil"
)

// PersonalBookingRequest is the request body for creating or updating a
// personal booking (meeting, internal block).
type PersonalBookingRequest struct {
	PrimaryUserID int64   `json:"primary_user_id" validate:"required,gt=0"`
	UserIDs       []int64 `json:"user_ids" validate:"dive,gt=0"`
	Title         string  `json:"title"`
	StartsAt      string  `json:"starts_at" validate:"required"` // instant, RFC3339 or naive-UTC
	EndsAt        string  `json:"ends_at" validate:"required"`
}

// PersonalBookingResponse is the write outcome. BusyIDs names the
// participants whose existing bookings blocked the write.
type PersonalBookingResponse struct {
	Success   bool    `json:"success"`
	BookingID int64   `json:"booking_id,omitempty"`
	BusyIDs   []int64 `json:"busy_ids,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// handleCreatePersonalBooking guards and persists a new personal booking.
// POST /api/personal-bookings — 409 with the busy ids on conflict.
func (s *HTTPServer) handleCreatePersonalBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("personal_booking_create")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	booking, ok := s.decodeBookingRequest(w, r)
	if !ok {
		return
	}
	s.writeBookingResult(w, booking, s.bookings.Create(r.Context(), booking))
}

// handleUpdatePersonalBooking re-checks and rewrites an existing booking,
// excluding its own busy contribution.
// PUT /api/personal-bookings/{id}
func (s *HTTPServer) handleUpdatePersonalBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("personal_booking_update")
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use PUT")
		return
	}

	const prefix = "/api/personal-bookings/"
	id, err := strconv.ParseInt(r.URL.Path[len(prefix):], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, ok := s.decodeBookingRequest(w, r)
	if !ok {
		return
	}
	booking.ID = id
	s.writeBookingResult(w, booking, s.bookings.Update(r.Context(), booking))
}

func (s *HTTPServer) decodeBookingRequest(w http.ResponseWriter, r *http.Request) (*model.PersonalBooking, bool) {
	var req PersonalBookingRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, PersonalBookingResponse{Error: err.Error()})
		return nil, false
	}

	startsAt, err := timeutil.ParseInstant(req.StartsAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, PersonalBookingResponse{Error: "invalid starts_at timestamp"})
		return nil, false
	}
	endsAt, err := timeutil.ParseInstant(req.EndsAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, PersonalBookingResponse{Error: "invalid ends_at timestamp"})
		return nil, false
	}

	return &model.PersonalBooking{
		PrimaryUserID: req.PrimaryUserID,
		UserIDs:       req.UserIDs,
		Title:         req.Title,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
	}, true
}

func (s *HTTPServer) writeBookingResult(w http.ResponseWriter, booking *model.PersonalBooking, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, PersonalBookingResponse{Success: true, BookingID: booking.ID})
		return
	}

	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, PersonalBookingResponse{
			BusyIDs: conflict.PersonIDs,
			Error:   "participants unavailable",
		})
		return
	}
	s.writeEngineError(w, err)
}
