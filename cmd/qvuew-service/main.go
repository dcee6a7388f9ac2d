package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qvuew/internal/clock"
	"qvuew/internal/config"
	"qvuew/internal/httpapi"
	"qvuew/internal/hub"
	"qvuew/internal/session"
	"qvuew/internal/store"
	"qvuew/internal/store/filestore"
	"qvuew/internal/store/postgres"
	"qvuew/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("qvuew-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var (
		history store.HistoryRepository
		rates   store.RateCard
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		pg := postgres.NewStore(pool)
		history, rates = pg, pg
		log.Printf("history backend=postgres")
	} else {
		fs, err := filestore.Open(cfg.HistoryFile)
		if err != nil {
			log.Fatalf("open history file: %v", err)
		}
		history, rates = fs, fs
		log.Printf("history backend=file path=%q", cfg.HistoryFile)
	}

	realClock := clock.Real{}
	events := hub.New()
	sessions := session.NewManager(history, rates, events, session.Options{
		UndoLimit:         cfg.UndoLimit,
		ServiceOptional:   cfg.ServiceOptional,
		InactivityTimeout: cfg.InactivityTimeout,
		Clock:             realClock,
	})

	handler := httpapi.NewHandler(sessions, history, rates)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:       cfg.RateLimitPerMinute,
		IPBurst:           cfg.RateLimitBurst,
		BusinessPerMinute: cfg.BusinessRateLimitPerMinute,
		BusinessBurst:     cfg.BusinessRateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/realtime/", httpapi.RealtimeHandler("/realtime", events, sessions))
	mux.Handle("/", httpapi.StaffPINMiddleware(cfg.StaffPINHash, handler.Routes()))

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "qvuew-service")
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     otelHandler,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	tickCtx, stopTicks := context.WithCancel(context.Background())
	go clock.Run(tickCtx, cfg.TickInterval, realClock, sessions.Tick)

	go func() {
		log.Printf("qvuew-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopTicks()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
