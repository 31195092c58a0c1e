package api

import (
	"net/http"
	"strconv"
	"strings"

	"fitgrid/internal/metrics"
	"fitgrid/internal/timeutil"
)

// SlotsResponse lists free slot start labels in "HH:MM" order.
type SlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// handleAvailableSlots enumerates free slots for a trainer/location/room.
// GET /api/slots?date=YYYY-MM-DD&trainer_id=&location_id=&room_id=
func (s *HTTPServer) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := r.URL.Query().Get("date")
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	trainerID := queryID(r, "trainer_id")
	locationID := queryID(r, "location_id")
	roomID := queryID(r, "room_id")

	slots, err := s.finder.AvailableSlots(r.Context(), date, trainerID, locationID, roomID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	metrics.IncSlotQuery()
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Date: dateStr, Slots: slots})
}

// BoundaryResponse reports the next busy-block start at or after a time.
type BoundaryResponse struct {
	Date           string  `json:"date"`
	Next           string  `json:"next,omitempty"`
	HasNext        bool    `json:"has_next"`
	ParticipantIDs []int64 `json:"participant_ids,omitempty"`
}

// handleNextBoundary finds the soonest occupied boundary for participants.
// GET /api/boundary/next?date=&time=HH:MM&participant_ids=1,2&end_time=&exclude_booking_id=
func (s *HTTPServer) handleNextBoundary(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("boundary_next")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := r.URL.Query().Get("date")
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	participantIDs, err := parseIDList(r.URL.Query().Get("participant_ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid participant_ids; expected comma-separated ids")
		return
	}

	boundary, err := s.finder.NextBoundary(
		r.Context(),
		date,
		r.URL.Query().Get("time"),
		participantIDs,
		r.URL.Query().Get("end_time"),
		queryID(r, "exclude_booking_id"),
	)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BoundaryResponse{
		Date:           dateStr,
		Next:           boundary.Next,
		HasNext:        boundary.HasNext,
		ParticipantIDs: boundary.ParticipantIDs,
	})
}

func queryID(r *http.Request, key string) int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func parseIDList(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
