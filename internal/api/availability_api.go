package api

import (
	"net/http"

	"fitgrid/internal/interval"
	"fitgrid/internal/metrics"
	"fitgrid/internal/timeutil"
)

// ResolveAvailabilityRequest is the request body for
// POST /api/availability/resolve.
type ResolveAvailabilityRequest struct {
	PersonID int64  `json:"person_id" validate:"required,gt=0"`
	Date     string `json:"date" validate:"required"` // Format: YYYY-MM-DD
}

// WindowResponse is one available window in "HH:MM" form.
type WindowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ResolveAvailabilityResponse is the resolved day for one person.
type ResolveAvailabilityResponse struct {
	PersonID  int64            `json:"person_id"`
	Date      string           `json:"date"`
	Available bool             `json:"available"`
	Windows   []WindowResponse `json:"windows,omitempty"`
}

// handleResolveAvailability resolves the availability windows of one person
// on one calendar date.
// POST /api/availability/resolve
func (s *HTTPServer) handleResolveAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_resolve")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req ResolveAvailabilityRequest
	if err := s.decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	windows, err := s.resolver.ResolveDay(r.Context(), req.PersonID, date)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	resp := ResolveAvailabilityResponse{
		PersonID:  req.PersonID,
		Date:      req.Date,
		Available: len(windows) > 0,
	}
	for _, win := range windows {
		resp.Windows = append(resp.Windows, WindowResponse{
			Start: interval.Clock(win.Start),
			End:   interval.Clock(win.End),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
