package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/freebusy/libs/auth"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
)

const dateLayout = "2006-01-02"

type Schedules interface {
	Load(ctx context.Context, calendarID string) (schedule.WorkSchedule, error)
	Upsert(ctx context.Context, calendarID string, d schedule.WorkDay) error
}

type EventRecorder interface {
	Record(ctx context.Context, evt outbox.Event) error
}

type Config struct {
	CalendarID string
	MinBooking time.Duration
	MaxRange   time.Duration
}

type Handler struct {
	svc       *availability.Service
	schedules Schedules
	events    EventRecorder
	logger    *slog.Logger
	cfg       Config
}

func New(svc *availability.Service, schedules Schedules, events EventRecorder, logger *slog.Logger, cfg Config) *Handler {
	if cfg.MinBooking <= 0 {
		cfg.MinBooking = 30 * time.Minute
	}
	if cfg.MaxRange <= 0 {
		cfg.MaxRange = 366 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, schedules: schedules, events: events, logger: logger, cfg: cfg}
}

// Routes registers the API on mux. protect guards the write endpoints.
func (h *Handler) Routes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("/api/v1/availability/free", h.FreeTimeSlots)
	mux.HandleFunc("/api/v1/availability/booked-out", h.BookedOutDays)
	mux.HandleFunc("/api/v1/availability/grid", h.ShiftGrid)
	mux.HandleFunc("/api/v1/availability/starts", h.AvailableStarts)
	mux.Handle("/api/v1/calendar/events", byMethod(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(h.ListEvents),
		http.MethodPost:   protect(http.HandlerFunc(h.CreateEvent)),
		http.MethodDelete: protect(http.HandlerFunc(h.DeleteEvent)),
	}))
	mux.Handle("/api/v1/schedule", byMethod(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(h.GetSchedule),
		http.MethodPut: protect(http.HandlerFunc(h.UpdateSchedule)),
	}))
}

func byMethod(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next, ok := routes[r.Method]
		if !ok {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// fail maps engine and provider errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var pe *availability.ProviderError
	switch {
	case errors.Is(err, availability.ErrInvalidInterval), errors.Is(err, availability.ErrInvalidSchedule):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, availability.ErrEventNotFound):
		http.Error(w, "event not found", http.StatusNotFound)
	case errors.Is(err, availability.ErrReadOnlyCalendar):
		http.Error(w, "calendar is read-only", http.StatusMethodNotAllowed)
	case errors.As(err, &pe):
		h.logger.Error(msg, "err", err, "path", r.URL.Path)
		http.Error(w, "calendar provider unavailable", http.StatusBadGateway)
	default:
		h.logger.Error(msg, "err", err, "path", r.URL.Path)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// allowedCalendar reports whether the caller's token may write to this calendar.
func (h *Handler) allowedCalendar(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if ok && claims.CalendarID != "" && claims.CalendarID != h.cfg.CalendarID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// parseTime accepts RFC3339 or a bare date, read as local midnight.
func (h *Handler) parseTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", key)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, h.svc.Location()); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s must be RFC3339 or YYYY-MM-DD", key)
}

func (h *Handler) parseRange(r *http.Request, fromKey, toKey string) (time.Time, time.Time, error) {
	from, err := h.parseTime(r, fromKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := h.parseTime(r, toKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Sub(from) > h.cfg.MaxRange {
		return time.Time{}, time.Time{}, fmt.Errorf("range exceeds %d days", int(h.cfg.MaxRange/(24*time.Hour)))
	}
	return from, to, nil
}

// parseMinutes returns fallback when key is absent.
func parseMinutes(r *http.Request, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return time.Duration(n) * time.Minute, nil
}
