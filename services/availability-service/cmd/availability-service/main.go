package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/freebusy/libs/auth"
	"github.com/md-rashed-zaman/freebusy/libs/config"
	"github.com/md-rashed-zaman/freebusy/libs/db"
	"github.com/md-rashed-zaman/freebusy/libs/httpx"
	"github.com/md-rashed-zaman/freebusy/libs/kafkax"
	otelx "github.com/md-rashed-zaman/freebusy/libs/otel"
	"github.com/md-rashed-zaman/freebusy/libs/runtime"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/freebusy/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = nil
	}

	loc, err := availability.LoadLocation(config.String("CALENDAR_TIMEZONE", "UTC"))
	if err != nil {
		panic(err)
	}
	slotInterval, err := config.Minutes("WORK_SHIFT_INTERVAL_MINUTES", 15*time.Minute)
	if err != nil {
		panic(err)
	}
	cutoff, err := config.Hours("SAME_DAY_HOUR_OFFSET", 0)
	if err != nil {
		panic(err)
	}
	minBooking, err := config.Minutes("MIN_BOOKING_MINUTES", 30*time.Minute)
	if err != nil {
		panic(err)
	}
	maxRangeDays, err := config.Int("MAX_RANGE_DAYS", 366, 1)
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	calendarID := config.String("CALENDAR_ID", "primary")
	appName := config.String("APPLICATION_NAME", "freebusy")

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}

	schedules := storage.NewScheduleRepository(pool)
	events := storage.NewEventRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	source, err := calendar.New(ctx, calendar.Config{
		Provider:        config.String("CALENDAR_PROVIDER", calendar.ProviderPostgres),
		CredentialsFile: config.String("GOOGLE_CREDENTIALS_FILE", ""),
		ApplicationName: appName,
		ICSURL:          config.String("ICS_URL", ""),
		Location:        loc,
	}, events)
	if err != nil {
		logger.Error("calendar provider setup failed", "err", err)
		panic(err)
	}
	svc, err := availability.NewService(source, availability.Options{
		CalendarID:      calendarID,
		Location:        loc,
		SlotInterval:    slotInterval,
		SameDayCutoff:   cutoff,
		ApplicationName: appName,
	}, logger)
	if err != nil {
		panic(err)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if publisher.Enabled() {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	limitPerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120, 1)
	if err != nil {
		panic(err)
	}
	var rateLimitMW httpx.Middleware
	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0, 0)
		if err != nil {
			panic(err)
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:availability"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
		logger.Info("rate limiting enabled (memory)", "per_minute", limitPerMinute)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	h := handlers.New(svc, schedules, outboxRepo, logger, handlers.Config{
		CalendarID: calendarID,
		MinBooking: minBooking,
		MaxRange:   time.Duration(maxRangeDays) * 24 * time.Hour,
	})
	h.Routes(mux, auth.Protect(jwtSecret, config.List("WRITE_ROLES", "owner,admin,staff")...))

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id"),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		rateLimitMW,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "calendar_id", calendarID, "time_zone", loc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	if err := startGrpcServer(ctx, logger, checks...); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	runtime.Shutdown(logger, 10*time.Second,
		runtime.Closer{Name: "http", Close: srv.Shutdown},
		runtime.Closer{Name: "redis", Close: func(context.Context) error {
			if rdb == nil {
				return nil
			}
			return rdb.Close()
		}},
		runtime.Closer{Name: "db", Close: func(context.Context) error {
			pool.Close()
			return nil
		}},
		runtime.Closer{Name: "otel", Close: otelShutdown},
	)
	logger.Info("http server stopped")
}
