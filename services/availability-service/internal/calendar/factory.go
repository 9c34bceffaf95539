package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
)

const (
	ProviderPostgres = "postgres"
	ProviderGoogle   = "google"
	ProviderICS      = "ics"
)

type Config struct {
	Provider        string
	CredentialsFile string
	ApplicationName string
	ICSURL          string
	Location        *time.Location
}

// New builds the Source named by cfg.Provider. store backs the postgres provider.
func New(ctx context.Context, cfg Config, store EventStore) (availability.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderPostgres:
		if store == nil {
			return nil, fmt.Errorf("%w: postgres provider needs an event store", availability.ErrConfiguration)
		}
		return NewPostgresSource(store), nil
	case ProviderGoogle:
		return NewGoogleSource(ctx, cfg.CredentialsFile, cfg.ApplicationName)
	case ProviderICS:
		if strings.TrimSpace(cfg.ICSURL) == "" {
			return nil, fmt.Errorf("%w: ICS_URL is required for the ics provider", availability.ErrConfiguration)
		}
		return NewICSSource(cfg.ICSURL, cfg.Location, nil), nil
	default:
		return nil, fmt.Errorf("%w: unknown calendar provider %q", availability.ErrConfiguration, cfg.Provider)
	}
}
