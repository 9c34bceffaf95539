package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/outbox"
)

type eventJSON struct {
	ID     string `json:"id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	AllDay bool   `json:"all_day"`
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseRange(r, "from", "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	busy, err := h.svc.Events(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, "failed to list events", err)
		return
	}
	out := make([]eventJSON, 0, len(busy))
	for _, b := range busy {
		e := eventJSON{ID: b.ID, AllDay: b.AllDay, Start: b.Start.Format(time.RFC3339), End: b.End.Format(time.RFC3339)}
		if b.AllDay {
			e.Start, e.End = b.Start.Format(dateLayout), b.End.Format(dateLayout)
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if !h.allowedCalendar(w, r) {
		return
	}

	var req struct {
		Start     time.Time `json:"start"`
		End       time.Time `json:"end"`
		FirstName string    `json:"first_name"`
		LastName  string    `json:"last_name"`
		Email     string    `json:"email"`
		Phone     string    `json:"phone"`
		Services  []string  `json:"services"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		http.Error(w, "start and end required", http.StatusBadRequest)
		return
	}
	booking := availability.Booking{
		Start:     req.Start,
		End:       req.End,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Services:  req.Services,
	}

	id, err := h.svc.CreateEvent(r.Context(), booking)
	if err != nil {
		h.fail(w, r, "failed to create event", err)
		return
	}

	start, end := booking.Start.In(h.svc.Location()), booking.End.In(h.svc.Location())
	h.record(r, outbox.CalendarEventCreated, outbox.CalendarEventPayload{
		CalendarID: h.cfg.CalendarID,
		EventID:    id,
		Start:      &start,
		End:        &end,
		Summary:    booking.Summary(),
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    id,
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
	})
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if !h.allowedCalendar(w, r) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
		h.fail(w, r, "failed to delete event", err)
		return
	}
	h.record(r, outbox.CalendarEventDeleted, outbox.CalendarEventPayload{
		CalendarID: h.cfg.CalendarID,
		EventID:    id,
	})
	w.WriteHeader(http.StatusNoContent)
}

// record writes an outbox event. Failures are logged and not returned to the
// caller.
func (h *Handler) record(r *http.Request, build func(outbox.CalendarEventPayload) (outbox.Event, error), p outbox.CalendarEventPayload) {
	if h.events == nil {
		return
	}
	evt, err := build(p)
	if err == nil {
		err = h.events.Record(r.Context(), evt)
	}
	if err != nil {
		h.logger.Error("outbox write failed", "err", err, "event_id", p.EventID)
	}
}
