package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/tutoring-scheduler/internal/booking"
	"github.com/iliyamo/tutoring-scheduler/internal/config"
	"github.com/iliyamo/tutoring-scheduler/internal/credit"
	"github.com/iliyamo/tutoring-scheduler/internal/database"
	"github.com/iliyamo/tutoring-scheduler/internal/handler"
	"github.com/iliyamo/tutoring-scheduler/internal/logger"
	"github.com/iliyamo/tutoring-scheduler/internal/queue"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
	"github.com/iliyamo/tutoring-scheduler/internal/repository/memory"
	"github.com/iliyamo/tutoring-scheduler/internal/repository/mongodoc"
	"github.com/iliyamo/tutoring-scheduler/internal/router"
	"github.com/iliyamo/tutoring-scheduler/internal/service"
	"github.com/iliyamo/tutoring-scheduler/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
	}, log)
	defer func() { _ = shutdownTracing(context.Background()) }()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable: response cache off, rate limiting in-process")
	} else {
		defer rdb.Close()
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub, err := service.NewRabbitPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			// Events are best effort; bookings must not depend on the broker.
			log.Warn("rabbitmq unavailable, booking events disabled", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	plans := credit.DefaultCatalog()
	coord := booking.New(st.store,
		booking.WithLedger(credit.NewLedger(plans)),
		booking.WithPublisher(events),
		booking.WithStoreTimeout(cfg.StoreTimeout),
	)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Availability: &handler.AvailabilityHandler{Coord: coord, Catalog: plans},
		Bookings:     &handler.BookingHandler{Coord: coord},
		JWTSecret:    cfg.JWTSecret,
		Redis:        rdb,
		Cache:        config.LoadCacheConfig(),
		RateLimit:    config.LoadRateLimitConfig(),
		Log:          log,
		Ping:         st.ping,
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, handler.HeaderIdempotencyKey},
		ExposedHeaders: []string{"Retry-After", echo.HeaderXRequestID},
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(otelhttp.NewHandler(e, "http.server")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "env", cfg.Env, "store", cfg.StoreDriver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type openedStore struct {
	store repository.Store
	ping  func(context.Context) error
	close func()
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (openedStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(ctx, database.Params{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		})
		if err != nil {
			return openedStore{}, fmt.Errorf("open mysql: %w", err)
		}
		if cfg.DBMigrate {
			if err := database.Migrate(ctx, db, log); err != nil {
				_ = db.Close()
				return openedStore{}, err
			}
		}
		return openedStore{
			store: repository.NewMySQLStore(db),
			ping:  db.PingContext,
			close: func() { _ = db.Close() },
		}, nil

	case config.DriverMongo:
		ms, err := mongodoc.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return openedStore{}, fmt.Errorf("open mongo: %w", err)
		}
		if err := ms.EnsureIndexes(ctx); err != nil {
			_ = ms.Close(context.Background())
			return openedStore{}, err
		}
		return openedStore{
			store: ms,
			ping:  ms.Ping,
			close: func() { _ = ms.Close(context.Background()) },
		}, nil

	default:
		ms := memory.New()
		if cfg.MemoryFixtures != "" {
			f, err := os.Open(cfg.MemoryFixtures)
			if err != nil {
				return openedStore{}, fmt.Errorf("open fixtures: %w", err)
			}
			defer f.Close()
			if err := ms.Load(f); err != nil {
				return openedStore{}, fmt.Errorf("load fixtures: %w", err)
			}
		}
		log.Warn("using in-memory store; data is lost on restart")
		return openedStore{store: ms, close: func() {}}, nil
	}
}
