package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/yochees/cal/internal/availability"
	"github.com/yochees/cal/internal/handlers"
	"github.com/yochees/cal/internal/outbox"
	"github.com/yochees/cal/internal/storage"
	"github.com/yochees/cal/libs/config"
	"github.com/yochees/cal/libs/db"
	"github.com/yochees/cal/libs/httpx"
	"github.com/yochees/cal/libs/kafkax"
	"github.com/yochees/cal/libs/metrics"
	otelx "github.com/yochees/cal/libs/otel"
	"github.com/yochees/cal/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "cal")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	users := storage.NewUserRepository(pool)
	eventTypes := storage.NewEventTypeRepository(pool)
	bookings := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	metrics.Register()

	sessions := handlers.NewSessionManager(jwtSecret, config.Seconds("SESSION_TTL_SECONDS", 24*time.Hour), users, logger)
	authHandler := handlers.NewAuthHandler(pool, users, eventTypes, outboxRepo, sessions, logger)
	availHandler := handlers.NewAvailabilityHandler(users, eventTypes, bookings, logger)
	bookingHandler := handlers.NewBookingHandler(users, eventTypes, bookings, outboxRepo, logger)
	selfURL := config.String("SELF_URL", "http://localhost:"+port)
	pagesHandler := handlers.NewPagesHandler(users, eventTypes, bookings, bookingHandler, availability.NewClient(selfURL), logger)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMux(checks...)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /auth/login", authHandler.LoginPage)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	mux.HandleFunc("GET /api/availability/{user}", availHandler.GetBusy)
	mux.HandleFunc("GET /api/slots", availHandler.GetSlots)
	mux.HandleFunc("POST /api/book", bookingHandler.Book)
	mux.HandleFunc("POST /api/cancel", bookingHandler.Cancel)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/bookings", http.StatusFound)
	})
	mux.HandleFunc("GET /bookings", sessions.RequirePage(pagesHandler.Bookings))
	mux.HandleFunc("GET /{user}/book", pagesHandler.Book)
	mux.HandleFunc("GET /{user}/book/confirm", pagesHandler.Confirm)
	mux.HandleFunc("POST /{user}/book", bookingHandler.Book)
	mux.HandleFunc("GET /bookings/{uid}/reschedule", pagesHandler.Reschedule)
	mux.HandleFunc("GET /bookings/{uid}/cancel", pagesHandler.CancelPage)
	mux.HandleFunc("POST /bookings/{uid}/cancel", pagesHandler.CancelSubmit)
	mux.HandleFunc("GET /bookings/{uid}/success", pagesHandler.Success)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(30 * time.Second),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}),
	}
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT", 120),
			config.Seconds("RATE_LIMIT_WINDOW_SECONDS", time.Minute),
			service)
		middlewares = append(middlewares, limiter.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)))
	} else {
		limiter := httpx.NewRateLimiter(
			config.Int("RATE_LIMIT", 120),
			config.Seconds("RATE_LIMIT_WINDOW_SECONDS", time.Minute))
		middlewares = append(middlewares, limiter.Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
