package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
)

type workDayJSON struct {
	Weekday int    `json:"weekday"`
	Name    string `json:"name"`
	Working bool   `json:"working"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	ws, err := h.schedules.Load(r.Context(), h.cfg.CalendarID)
	if err != nil {
		h.fail(w, r, "failed to load schedule", err)
		return
	}
	days := make([]workDayJSON, 0, 7)
	for _, d := range ws.Days() {
		out := workDayJSON{Weekday: int(d.Weekday), Name: strings.ToLower(d.Weekday.String()), Working: !d.NonWorking}
		if out.Working {
			out.Start, out.End = formatClock(d.Start), formatClock(d.End)
		}
		days = append(days, out)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"calendar_id": h.cfg.CalendarID,
		"time_zone":   h.svc.Location().String(),
		"days":        days,
	})
}

// UpdateSchedule replaces the entry of one weekday.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.allowedCalendar(w, r) {
		return
	}

	var req workDayJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "weekday must be 0 (sunday) to 6 (saturday)", http.StatusBadRequest)
		return
	}
	d := schedule.WorkDay{Weekday: time.Weekday(req.Weekday), NonWorking: !req.Working}
	if req.Working {
		var err error
		if d.Start, err = parseClock(req.Start); err != nil {
			http.Error(w, "start: "+err.Error(), http.StatusBadRequest)
			return
		}
		if d.End, err = parseClock(req.End); err != nil {
			http.Error(w, "end: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	current, err := h.schedules.Load(r.Context(), h.cfg.CalendarID)
	if err != nil {
		h.fail(w, r, "failed to load schedule", err)
		return
	}
	if _, err := current.With(d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.schedules.Upsert(r.Context(), h.cfg.CalendarID, d); err != nil {
		h.fail(w, r, "failed to update schedule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseClock reads "HH:MM"; "24:00" is accepted as end of day.
func parseClock(raw string) (time.Duration, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(strings.TrimSpace(raw), "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	if hh < 0 || mm < 0 || mm > 59 || hh > 24 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
