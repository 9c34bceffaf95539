package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultSlotInterval = 15 * time.Minute

type Options struct {
	CalendarID      string
	Location        *time.Location
	SlotInterval    time.Duration
	SameDayCutoff   time.Duration
	ApplicationName string
}

// Service answers availability questions for one calendar. Every call does at
// most one provider fetch; nothing is cached between calls.
type Service struct {
	source Source
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(source Source, opts Options, logger *slog.Logger) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: calendar source is required", ErrConfiguration)
	}
	if opts.Location == nil {
		return nil, fmt.Errorf("%w: time zone is required", ErrConfiguration)
	}
	if strings.TrimSpace(opts.CalendarID) == "" {
		return nil, fmt.Errorf("%w: calendar id is required", ErrConfiguration)
	}
	if opts.SlotInterval <= 0 {
		opts.SlotInterval = defaultSlotInterval
	}
	if opts.SameDayCutoff < 0 {
		return nil, fmt.Errorf("%w: same-day cutoff must not be negative", ErrConfiguration)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source: source,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer("availability"),
		now:    time.Now,
	}, nil
}

func (s *Service) Location() *time.Location { return s.opts.Location }

func (s *Service) SlotInterval() time.Duration { return s.opts.SlotInterval }

// Events returns the busy intervals in [timeMin, timeMax), normalized to the
// service time zone.
func (s *Service) Events(ctx context.Context, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	if err := checkRange(s.opts.Location, timeMin, timeMax); err != nil {
		return nil, err
	}
	return s.fetch(ctx, timeMin, timeMax)
}

func (s *Service) FreeTimeSlots(ctx context.Context, ws schedule.WorkSchedule, timeMin, timeMax time.Time) ([]TimePeriod, error) {
	if err := checkRange(s.opts.Location, timeMin, timeMax); err != nil {
		return nil, err
	}
	busy, err := s.fetch(ctx, timeMin, timeMax)
	if err != nil {
		return nil, err
	}
	return FreePeriods(ws, s.opts.Location, timeMin, timeMax, busy)
}

func (s *Service) BookedOutDays(ctx context.Context, ws schedule.WorkSchedule, timeMin, timeMax time.Time, minDuration time.Duration) ([]time.Time, error) {
	if err := checkRange(s.opts.Location, timeMin, timeMax); err != nil {
		return nil, err
	}
	busy, err := s.fetch(ctx, timeMin, timeMax)
	if err != nil {
		return nil, err
	}
	periods, err := FreePeriods(ws, s.opts.Location, timeMin, timeMax, busy)
	if err != nil {
		return nil, err
	}
	return BookedOutDays(ws, s.opts.Location, timeMin, timeMax, minDuration, s.opts.SameDayCutoff, periods)
}

// ShiftGrid builds the slot grid of one shift. A zero granularity uses the
// configured slot interval.
func (s *Service) ShiftGrid(ctx context.Context, shiftStart, shiftEnd time.Time, granularity time.Duration) ([]TimeSlot, error) {
	if granularity == 0 {
		granularity = s.opts.SlotInterval
	}
	shiftStart, shiftEnd = shiftStart.In(s.opts.Location), shiftEnd.In(s.opts.Location)
	if !shiftEnd.After(shiftStart) {
		return BuildGrid(shiftStart, shiftEnd, nil, granularity)
	}
	busy, err := s.fetch(ctx, shiftStart, shiftEnd)
	if err != nil {
		return nil, err
	}
	return BuildGrid(shiftStart, shiftEnd, busy, granularity)
}

// AvailableStarts builds the shift grid and keeps the starts that fit serviceDuration.
func (s *Service) AvailableStarts(ctx context.Context, shiftStart, shiftEnd time.Time, serviceDuration, granularity time.Duration) ([]TimeSlot, error) {
	grid, err := s.ShiftGrid(ctx, shiftStart, shiftEnd, granularity)
	if err != nil {
		return nil, err
	}
	return AvailableStarts(grid, serviceDuration), nil
}

// Booking carries the customer details written onto a calendar event.
type Booking struct {
	Start     time.Time
	End       time.Time
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Services  []string
}

func (b Booking) Summary() string {
	return fmt.Sprintf("%s %s (%s) %s", b.FirstName, b.LastName, b.Phone, strings.Join(b.Services, ", "))
}

func (s *Service) description(b Booking) string {
	bookedAt := s.now().In(s.opts.Location).Format("Monday, 2 January 2006, 15:04:05")
	return fmt.Sprintf("Booked at %s\n%s\n%s\n%s", bookedAt, b.Phone, strings.Join(b.Services, ", "), b.Email)
}

// CreateEvent writes a booking onto the calendar and returns the provider's event id.
func (s *Service) CreateEvent(ctx context.Context, b Booking) (string, error) {
	if !b.End.After(b.Start) {
		return "", invalidInterval(b.Start, b.End)
	}
	interval := BusyInterval{Start: b.Start, End: b.End}.In(s.opts.Location)

	ctx, span := s.tracer.Start(ctx, "calendar.create_event",
		trace.WithAttributes(attribute.String("calendar.id", s.opts.CalendarID)),
	)
	defer span.End()

	id, err := s.source.CreateEvent(ctx, s.opts.CalendarID, interval, b.Summary(), s.description(b))
	if err != nil {
		span.RecordError(err)
		return "", providerError("create", err)
	}
	s.logger.Info("calendar event created", "calendar_id", s.opts.CalendarID, "event_id", id,
		"start", interval.Start.Format(time.RFC3339), "end", interval.End.Format(time.RFC3339))
	return id, nil
}

func (s *Service) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, span := s.tracer.Start(ctx, "calendar.delete_event",
		trace.WithAttributes(attribute.String("calendar.id", s.opts.CalendarID)),
	)
	defer span.End()

	if err := s.source.DeleteEvent(ctx, s.opts.CalendarID, eventID); err != nil {
		span.RecordError(err)
		return providerError("delete", err)
	}
	s.logger.Info("calendar event deleted", "calendar_id", s.opts.CalendarID, "event_id", eventID)
	return nil
}

func (s *Service) fetch(ctx context.Context, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	ctx, span := s.tracer.Start(ctx, "calendar.fetch",
		trace.WithAttributes(
			attribute.String("calendar.id", s.opts.CalendarID),
			attribute.String("calendar.time_min", timeMin.Format(time.RFC3339)),
			attribute.String("calendar.time_max", timeMax.Format(time.RFC3339)),
		),
	)
	defer span.End()

	raw, err := s.source.Fetch(ctx, s.opts.CalendarID, timeMin, timeMax)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("calendar fetch failed", "calendar_id", s.opts.CalendarID, "err", err)
		return nil, providerError("fetch", err)
	}

	busy := make([]BusyInterval, 0, len(raw))
	for _, b := range raw {
		if b.End.Before(b.Start) {
			return nil, fmt.Errorf("event %q: %w", b.ID, invalidInterval(b.Start, b.End))
		}
		busy = append(busy, b.In(s.opts.Location))
	}
	span.SetAttributes(attribute.Int("calendar.events", len(busy)))
	return busy, nil
}
