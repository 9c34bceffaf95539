package handlers

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
)

type periodJSON struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

type slotJSON struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	Status          string `json:"status"`
	OutsideInterval bool   `json:"outside_interval"`
}

func slotsJSON(slots []availability.TimeSlot) []slotJSON {
	out := make([]slotJSON, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotJSON{
			Start:           s.Start.Format(time.RFC3339),
			End:             s.End.Format(time.RFC3339),
			Status:          s.Status.String(),
			OutsideInterval: s.OutsideInterval,
		})
	}
	return out
}

func (h *Handler) FreeTimeSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	from, to, err := h.parseRange(r, "from", "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws, err := h.schedules.Load(r.Context(), h.cfg.CalendarID)
	if err != nil {
		h.fail(w, r, "failed to load schedule", err)
		return
	}

	periods, err := h.svc.FreeTimeSlots(r.Context(), ws, from, to)
	if err != nil {
		h.fail(w, r, "failed to compute free time", err)
		return
	}
	out := make([]periodJSON, 0, len(periods))
	for _, p := range periods {
		out = append(out, periodJSON{
			Start:           p.Start.Format(time.RFC3339),
			End:             p.End.Format(time.RFC3339),
			DurationMinutes: int(p.Duration() / time.Minute),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"time_zone": h.svc.Location().String(),
		"periods":   out,
	})
}

func (h *Handler) BookedOutDays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	from, to, err := h.parseRange(r, "from", "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	minDuration, err := parseMinutes(r, "min_minutes", h.cfg.MinBooking)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws, err := h.schedules.Load(r.Context(), h.cfg.CalendarID)
	if err != nil {
		h.fail(w, r, "failed to load schedule", err)
		return
	}

	days, err := h.svc.BookedOutDays(r.Context(), ws, from, to, minDuration)
	if err != nil {
		h.fail(w, r, "failed to compute booked-out days", err)
		return
	}
	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, d.Format(dateLayout))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"time_zone":   h.svc.Location().String(),
		"min_minutes": int(minDuration / time.Minute),
		"dates":       dates,
	})
}

func (h *Handler) ShiftGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start, end, err := h.parseRange(r, "start", "end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	granularity, err := parseMinutes(r, "interval_minutes", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	grid, err := h.svc.ShiftGrid(r.Context(), start, end, granularity)
	if err != nil {
		h.fail(w, r, "failed to build slot grid", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slotsJSON(grid)})
}

func (h *Handler) AvailableStarts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start, end, err := h.parseRange(r, "start", "end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	duration, err := parseMinutes(r, "duration_minutes", 0)
	if err != nil || duration <= 0 {
		http.Error(w, "duration_minutes must be a positive integer", http.StatusBadRequest)
		return
	}
	granularity, err := parseMinutes(r, "interval_minutes", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	starts, err := h.svc.AvailableStarts(r.Context(), start, end, duration, granularity)
	if err != nil {
		h.fail(w, r, "failed to compute available starts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"duration_minutes": int(duration / time.Minute),
		"starts":           slotsJSON(starts),
	})
}
