package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fitgrid/internal/availability"
	"fitgrid/internal/events"
	"fitgrid/internal/model"
	"fitgrid/internal/schedule"
	"fitgrid/internal/service"
	"fitgrid/internal/timeutil"
)

// stubStore backs the whole engine in memory: availability rules, bookings
// and the personal-booking write path.
type stubStore struct {
	weekly    []model.WeeklyRule
	overrides []model.DateOverride
	vacations []model.Vacation
	absences  []model.Absence
	rooms     map[int64]*model.Room
	regular   []model.RegularBooking
	personal  []model.PersonalBooking
	nextID    int64
}

func (s *stubStore) AbsencesOverlapping(_ context.Context, personID int64, dayStart, dayEnd time.Time) ([]model.Absence, error) {
	var out []model.Absence
	for _, a := range s.absences {
		if a.PersonID == personID && a.Covers(dayStart, dayEnd) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) VacationsCovering(_ context.Context, personID int64, date string) ([]model.Vacation, error) {
	var out []model.Vacation
	for _, v := range s.vacations {
		if v.PersonID == personID && v.FromDate <= date && v.ToDate >= date {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubStore) OverridesOn(_ context.Context, personID int64, date string) ([]model.DateOverride, error) {
	var out []model.DateOverride
	for _, o := range s.overrides {
		if o.PersonID == personID && o.Date == date {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubStore) WeeklyRuleFor(_ context.Context, personID int64, isoWeekday int) (*model.WeeklyRule, error) {
	for i := range s.weekly {
		r := &s.weekly[i]
		if r.PersonID == personID && r.Weekday == isoWeekday {
			return r, nil
		}
	}
	return nil, nil
}

func (s *stubStore) RegularBookingsOn(_ context.Context, dayStart, dayEnd time.Time, trainerID, roomID, excludeID int64) ([]model.RegularBooking, error) {
	var out []model.RegularBooking
	for _, b := range s.regular {
		if excludeID > 0 && b.ID == excludeID {
			continue
		}
		if trainerID > 0 && b.TrainerID != trainerID {
			continue
		}
		if roomID > 0 && b.RoomID != roomID {
			continue
		}
		end := b.StartsAt.Add(time.Duration(b.SessionMinutes()) * time.Minute)
		if b.StartsAt.Before(dayEnd) && end.After(dayStart) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) PersonalBookingsOn(_ context.Context, dayStart, dayEnd time.Time, personIDs []int64, excludeID int64) ([]model.PersonalBooking, error) {
	var out []model.PersonalBooking
	for _, b := range s.personal {
		if excludeID > 0 && b.ID == excludeID {
			continue
		}
		if !b.Involves(personIDs) {
			continue
		}
		if b.StartsAt.Before(dayEnd) && b.EndsAt.After(dayStart) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) RoomByID(_ context.Context, roomID int64) (*model.Room, error) {
	if room, ok := s.rooms[roomID]; ok {
		return room, nil
	}
	return nil, nil
}

func (s *stubStore) CreatePersonalBooking(_ context.Context, b *model.PersonalBooking) error {
	s.nextID++
	b.ID = s.nextID
	s.personal = append(s.personal, *b)
	return nil
}

func (s *stubStore) UpdatePersonalBooking(_ context.Context, b *model.PersonalBooking) error {
	for i := range s.personal {
		if s.personal[i].ID == b.ID {
			s.personal[i] = *b
			return nil
		}
	}
	return nil
}

func (s *stubStore) PersonalBookingByID(_ context.Context, id int64) (*model.PersonalBooking, error) {
	for i := range s.personal {
		if s.personal[i].ID == id {
			return &s.personal[i], nil
		}
	}
	return nil, nil
}

func stockholm(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, timeutil.Location())
}

// newTestServer wires a server over fixed test data: person 1 works Mondays
// 09:00-17:00, users 7 and 9 share a meeting Monday 2024-06-03 10:00-11:00.
func newTestServer(t *testing.T) (*HTTPServer, *stubStore) {
	t.Helper()
	store := &stubStore{
		weekly: []model.WeeklyRule{
			{ID: 1, PersonID: 1, Weekday: 1, StartTime: "09:00", EndTime: "17:00"},
		},
		rooms: map[int64]*model.Room{
			1: {ID: 1, LocationID: 1, SlotAnchorMinute: 30},
		},
		personal: []model.PersonalBooking{
			{
				ID:            1,
				PrimaryUserID: 7,
				UserIDs:       []int64{9},
				StartsAt:      stockholm(2024, 6, 3, 10, 0),
				EndsAt:        stockholm(2024, 6, 3, 11, 0),
			},
		},
		nextID: 1,
	}

	logger := zerolog.New(io.Discard)
	resolver := availability.NewResolver(store)
	agg := schedule.NewAggregator(store, 15)
	checker := schedule.NewChecker(agg)
	finder := schedule.NewFinder(agg, checker, schedule.DefaultGrid())
	bookings := service.NewPersonalBookingService(store, checker, events.NewBus(), &logger)

	return NewHTTPServer(Options{Port: 0}, resolver, checker, finder, bookings, &logger), store
}

func doJSON(t *testing.T, srv *HTTPServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleResolveAvailability(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name          string
		body          any
		wantStatus    int
		wantAvailable bool
		wantWindows   int
	}{
		{
			name:          "weekly rule monday",
			body:          ResolveAvailabilityRequest{PersonID: 1, Date: "2024-06-03"},
			wantStatus:    http.StatusOK,
			wantAvailable: true,
			wantWindows:   1,
		},
		{
			name:          "no rule sunday",
			body:          ResolveAvailabilityRequest{PersonID: 1, Date: "2024-06-02"},
			wantStatus:    http.StatusOK,
			wantAvailable: false,
		},
		{
			name:       "missing person id",
			body:       map[string]string{"date": "2024-06-03"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date",
			body:       ResolveAvailabilityRequest{PersonID: 1, Date: "03.06.2024"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, http.MethodPost, "/api/availability/resolve", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp ResolveAvailabilityResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if resp.Available != tt.wantAvailable {
				t.Errorf("available = %v, want %v", resp.Available, tt.wantAvailable)
			}
			if len(resp.Windows) != tt.wantWindows {
				t.Errorf("windows = %v, want %d entries", resp.Windows, tt.wantWindows)
			}
			if tt.wantWindows == 1 && (resp.Windows[0].Start != "09:00" || resp.Windows[0].End != "17:00") {
				t.Errorf("unexpected window: %+v", resp.Windows[0])
			}
		})
	}
}

func TestHandleResolveAvailabilityMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/availability/resolve", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleCheckConflicts(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("conflict returns 409 with busy ids", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/conflicts/check", CheckConflictsRequest{
			Date:           "2024-06-03",
			Start:          "10:30",
			End:            "11:30",
			ParticipantIDs: []int64{7, 11},
		})
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusConflict, w.Body.String())
		}

		var resp CheckConflictsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if !resp.Conflict {
			t.Error("expected conflict = true")
		}
		if len(resp.ParticipantIDs) != 1 || resp.ParticipantIDs[0] != 7 {
			t.Errorf("busy ids = %v, want [7]", resp.ParticipantIDs)
		}
	})

	t.Run("clear window returns 200", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/conflicts/check", CheckConflictsRequest{
			Date:           "2024-06-03",
			Start:          "11:00",
			End:            "12:00",
			ParticipantIDs: []int64{7, 9},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var resp CheckConflictsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Conflict {
			t.Errorf("back-to-back window must be clear: %+v", resp)
		}
	})

	t.Run("inverted window is 400", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/conflicts/check", CheckConflictsRequest{
			Date:           "2024-06-03",
			Start:          "12:00",
			End:            "11:00",
			ParticipantIDs: []int64{7},
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("empty participants is 400", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/conflicts/check", map[string]any{
			"date":            "2024-06-03",
			"start":           "10:00",
			"end":             "11:00",
			"participant_ids": []int64{},
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleRepeatedConflicts(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/conflicts/repeat", RepeatedConflictsRequest{
		Date:           "2024-06-03",
		Start:          "10:00",
		End:            "11:00",
		ParticipantIDs: []int64{7},
		Weeks:          3,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp RepeatedConflictsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Weeks) != 3 {
		t.Fatalf("weeks = %d, want 3", len(resp.Weeks))
	}
	if !resp.Weeks[0].Conflict {
		t.Error("week 1 overlaps the existing meeting, must conflict")
	}
	if len(resp.Weeks[0].Suggestions) == 0 {
		t.Error("conflicting week must carry suggestions")
	}
	if resp.Weeks[1].Conflict || resp.Weeks[2].Conflict {
		t.Errorf("later weeks are free: %+v", resp.Weeks)
	}
}

func TestHandleAvailableSlots(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/slots?date=2024-06-03&trainer_id=10&location_id=1&room_id=1", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp SlotsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Date != "2024-06-03" {
		t.Errorf("date = %q, want 2024-06-03", resp.Date)
	}
	if len(resp.Slots) == 0 || resp.Slots[0] != "05:30" {
		t.Errorf("unexpected slots: %v", resp.Slots)
	}
}

func TestHandleAvailableSlotsMissingIDs(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/slots?date=2024-06-03&trainer_id=10", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleNextBoundary(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/boundary/next?date=2024-06-03&time=09:00&participant_ids=7,9", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp BoundaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.HasNext || resp.Next != "10:00" {
		t.Errorf("unexpected boundary: %+v", resp)
	}
}

func TestHandleCreatePersonalBooking(t *testing.T) {
	t.Run("clear window persists", func(t *testing.T) {
		srv, store := newTestServer(t)

		w := doJSON(t, srv, http.MethodPost, "/api/personal-bookings", PersonalBookingRequest{
			PrimaryUserID: 7,
			UserIDs:       []int64{9},
			Title:         "team sync",
			StartsAt:      "2024-06-03T11:00:00+02:00",
			EndsAt:        "2024-06-03T12:00:00+02:00",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var resp PersonalBookingResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if !resp.Success || resp.BookingID == 0 {
			t.Errorf("unexpected write result: %+v", resp)
		}
		if len(store.personal) != 2 {
			t.Errorf("expected 2 stored bookings, got %d", len(store.personal))
		}
	})

	t.Run("overlap is rejected with busy ids", func(t *testing.T) {
		srv, store := newTestServer(t)

		w := doJSON(t, srv, http.MethodPost, "/api/personal-bookings", PersonalBookingRequest{
			PrimaryUserID: 9,
			StartsAt:      "2024-06-03T10:30:00+02:00",
			EndsAt:        "2024-06-03T11:30:00+02:00",
		})
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusConflict, w.Body.String())
		}

		var resp PersonalBookingResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Success {
			t.Error("blocked write must not report success")
		}
		if len(resp.BusyIDs) != 1 || resp.BusyIDs[0] != 9 {
			t.Errorf("busy ids = %v, want [9]", resp.BusyIDs)
		}
		if len(store.personal) != 1 {
			t.Errorf("blocked write must not persist, got %d bookings", len(store.personal))
		}
	})

	t.Run("naive timestamps are read as UTC", func(t *testing.T) {
		srv, _ := newTestServer(t)

		// 08:30 UTC is 10:30 in Stockholm, overlapping the meeting.
		w := doJSON(t, srv, http.MethodPost, "/api/personal-bookings", PersonalBookingRequest{
			PrimaryUserID: 7,
			StartsAt:      "2024-06-03 08:30:00",
			EndsAt:        "2024-06-03 09:30:00",
		})
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d: %s", w.Code, http.StatusConflict, w.Body.String())
		}
	})

	t.Run("bad timestamp is 400", func(t *testing.T) {
		srv, _ := newTestServer(t)

		w := doJSON(t, srv, http.MethodPost, "/api/personal-bookings", PersonalBookingRequest{
			PrimaryUserID: 7,
			StartsAt:      "tomorrow",
			EndsAt:        "2024-06-03T11:00:00Z",
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleUpdatePersonalBooking(t *testing.T) {
	srv, store := newTestServer(t)

	// Moving the existing meeting within its own window must not conflict
	// with itself.
	w := doJSON(t, srv, http.MethodPut, "/api/personal-bookings/1", PersonalBookingRequest{
		PrimaryUserID: 7,
		UserIDs:       []int64{9},
		StartsAt:      "2024-06-03T10:30:00+02:00",
		EndsAt:        "2024-06-03T11:30:00+02:00",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got := store.personal[0].StartsAt; !got.Equal(stockholm(2024, 6, 3, 10, 30)) {
		t.Errorf("stored start = %v, want 10:30", got)
	}
}

func TestHandleUpdatePersonalBookingBadID(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPut, "/api/personal-bookings/zero", PersonalBookingRequest{
		PrimaryUserID: 7,
		StartsAt:      "2024-06-03T11:00:00+02:00",
		EndsAt:        "2024-06-03T12:00:00+02:00",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/slots?date=bad", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected a generated X-Request-Id header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/slots?date=bad", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q, want the caller's id", got)
	}
}
