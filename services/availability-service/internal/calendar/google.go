package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const googleDateLayout = "2006-01-02"

// GoogleSource reads and writes a Google Calendar through the v3 API.
type GoogleSource struct {
	events *gcal.EventsService
}

// NewGoogleSource authenticates with a service account file when one is given,
// and with application default credentials otherwise.
func NewGoogleSource(ctx context.Context, credentialsFile, applicationName string, extra ...option.ClientOption) (*GoogleSource, error) {
	opts := []option.ClientOption{
		option.WithScopes(gcal.CalendarScope),
		option.WithUserAgent(applicationName),
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcal.NewService(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: google calendar client: %v", availability.ErrConfiguration, err)
	}
	return &GoogleSource{events: svc.Events}, nil
}

// Fetch expands recurring events into instances and skips cancelled and
// transparent ("show as available") ones.
func (s *GoogleSource) Fetch(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]availability.BusyInterval, error) {
	call := s.events.List(calendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		MaxResults(250)

	var out []availability.BusyInterval
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			b, ok, err := busyFromGoogle(item)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, googleError(err)
	}
	return out, nil
}

func (s *GoogleSource) CreateEvent(ctx context.Context, calendarID string, interval availability.BusyInterval, summary, description string) (string, error) {
	created, err := s.events.Insert(calendarID, &gcal.Event{
		Summary:     summary,
		Description: description,
		Start:       googleDateTime(interval.Start, interval.AllDay),
		End:         googleDateTime(interval.End, interval.AllDay),
	}).Context(ctx).Do()
	if err != nil {
		return "", googleError(err)
	}
	return created.Id, nil
}

func (s *GoogleSource) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := s.events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return googleError(err)
	}
	return nil
}

func busyFromGoogle(item *gcal.Event) (availability.BusyInterval, bool, error) {
	if item == nil || item.Status == "cancelled" || item.Transparency == "transparent" {
		return availability.BusyInterval{}, false, nil
	}
	if item.Start == nil || item.End == nil {
		return availability.BusyInterval{}, false, fmt.Errorf("google event %q has no start or end", item.Id)
	}

	if item.Start.Date != "" {
		start, err := time.Parse(googleDateLayout, item.Start.Date)
		if err != nil {
			return availability.BusyInterval{}, false, fmt.Errorf("google event %q start: %w", item.Id, err)
		}
		end := start.AddDate(0, 0, 1)
		if item.End.Date != "" {
			if end, err = time.Parse(googleDateLayout, item.End.Date); err != nil {
				return availability.BusyInterval{}, false, fmt.Errorf("google event %q end: %w", item.Id, err)
			}
		}
		return availability.BusyInterval{ID: item.Id, Start: start, End: end, AllDay: true}, true, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return availability.BusyInterval{}, false, fmt.Errorf("google event %q start: %w", item.Id, err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return availability.BusyInterval{}, false, fmt.Errorf("google event %q end: %w", item.Id, err)
	}
	return availability.BusyInterval{ID: item.Id, Start: start, End: end}, true, nil
}

func googleDateTime(t time.Time, allDay bool) *gcal.EventDateTime {
	if allDay {
		return &gcal.EventDateTime{Date: t.Format(googleDateLayout)}
	}
	dt := &gcal.EventDateTime{DateTime: t.Format(time.RFC3339)}
	// Only IANA names are accepted; the RFC3339 offset is enough otherwise.
	if name := t.Location().String(); name == "UTC" || strings.Contains(name, "/") {
		dt.TimeZone = name
	}
	return dt
}

func googleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return fmt.Errorf("%w: %v", availability.ErrEventNotFound, err)
	}
	return err
}
