package api

import (
	"net/http"
	"sort"

	"fitgrid/internal/interval"
	"fitgrid/internal/metrics"
	"fitgrid/internal/schedule"
	"fitgrid/internal/timeutil"
)

// CheckConflictsRequest is the request body for POST /api/conflicts/check.
type CheckConflictsRequest struct {
	Date                     string  `json:"date" validate:"required"`       // Format: YYYY-MM-DD
	Start                    string  `json:"start" validate:"required"`      // Format: HH:MM
	End                      string  `json:"end" validate:"required"`        // Format: HH:MM
	ParticipantIDs           []int64 `json:"participant_ids" validate:"required,min=1,dive,gt=0"`
	ExcludePersonalBookingID int64   `json:"exclude_personal_booking_id,omitempty"`
}

// CheckConflictsResponse reports the busy subset of the requested
// participants.
type CheckConflictsResponse struct {
	Conflict       bool    `json:"conflict"`
	ParticipantIDs []int64 `json:"participant_ids,omitempty"`
}

// handleCheckConflicts runs the single-interval conflict check.
// POST /api/conflicts/check — 409 when any participant is busy.
func (s *HTTPServer) handleCheckConflicts(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("conflicts_check")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CheckConflictsRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	win, err := interval.FromClockRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	busy, err := s.checker.ConflictingParticipants(r.Context(), date, win, req.ParticipantIDs, req.ExcludePersonalBookingID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	resp := CheckConflictsResponse{Conflict: len(busy) > 0}
	if resp.Conflict {
		for id := range busy {
			resp.ParticipantIDs = append(resp.ParticipantIDs, id)
		}
		sort.Slice(resp.ParticipantIDs, func(i, j int) bool { return resp.ParticipantIDs[i] < resp.ParticipantIDs[j] })
		metrics.IncConflictCheck("conflict")
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	metrics.IncConflictCheck("clear")
	writeJSON(w, http.StatusOK, resp)
}

// RepeatedConflictsRequest is the request body for POST /api/conflicts/repeat.
type RepeatedConflictsRequest struct {
	Date           string  `json:"date" validate:"required"`
	Start          string  `json:"start" validate:"required"`
	End            string  `json:"end" validate:"required"`
	ParticipantIDs []int64 `json:"participant_ids" validate:"required,min=1,dive,gt=0"`
	Weeks          int     `json:"weeks" validate:"required,gte=1,lte=52"`
}

// RepeatedConflictsResponse carries the per-week results.
type RepeatedConflictsResponse struct {
	Weeks []schedule.WeekResult `json:"weeks"`
}

// handleRepeatedConflicts projects the conflict check across N weekly
// occurrences, with alternate-time suggestions for conflicting weeks.
// POST /api/conflicts/repeat
func (s *HTTPServer) handleRepeatedConflicts(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("conflicts_repeat")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req RepeatedConflictsRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	win, err := interval.FromClockRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.checker.CheckRepeatedWeeks(r.Context(), date, win, req.ParticipantIDs, req.Weeks)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RepeatedConflictsResponse{Weeks: results})
}
