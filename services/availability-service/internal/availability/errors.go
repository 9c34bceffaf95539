package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/schedule"
)

var (
	ErrInvalidInterval  = errors.New("invalid interval")
	ErrInvalidSchedule  = schedule.ErrInvalidSchedule
	ErrConfiguration    = errors.New("invalid configuration")
	ErrEventNotFound    = errors.New("calendar event not found")
	ErrReadOnlyCalendar = errors.New("calendar is read-only")
)

// ProviderError wraps any failure returned by a Source. The core never retries.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return "calendar provider " + e.Op + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Err: err}
}

// LoadLocation resolves an IANA zone name. Failure is a startup error.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: time zone %q: %v", ErrConfiguration, name, err)
	}
	return loc, nil
}

func invalidInterval(start, end time.Time) error {
	return fmt.Errorf("%w: end %s before start %s", ErrInvalidInterval, end.Format(time.RFC3339), start.Format(time.RFC3339))
}
