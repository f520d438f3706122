package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"    // loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/civic-auth/internal/attempt"
	"github.com/iliyamo/civic-auth/internal/auth"
	"github.com/iliyamo/civic-auth/internal/config"
	"github.com/iliyamo/civic-auth/internal/database"
	"github.com/iliyamo/civic-auth/internal/handler"
	"github.com/iliyamo/civic-auth/internal/metrics"
	"github.com/iliyamo/civic-auth/internal/middleware"
	"github.com/iliyamo/civic-auth/internal/queue"
	"github.com/iliyamo/civic-auth/internal/repository"
	"github.com/iliyamo/civic-auth/internal/router"
	"github.com/iliyamo/civic-auth/internal/service"
	"github.com/iliyamo/civic-auth/internal/token"
	"github.com/iliyamo/civic-auth/internal/worker"
)

func main() {
	// .env is a development convenience; in deployment the variables
	// come from the environment and this is a no-op.
	_ = godotenv.Load()

	cfg := config.Load()
	secrets := config.LoadSecrets()
	lockout := config.LoadLockoutConfig()

	// MySQL holds users, refresh_tokens and login_history.
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the attempt tracker and the request limiter.  The
	// limiter degrades gracefully without Redis, the tracker cannot:
	// running without it would disable brute-force protection.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed; attempt tracker requires redis")
	}
	defer rdb.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	sessions := repository.NewSessionRepo(db)

	signer := token.NewSigner(secrets.ActiveKey, secrets.PreviousKeys...)
	tracker := attempt.New(rdb, lockout.Threshold, lockout.Window)
	recorder := metrics.NewRecorder()

	opts := []auth.Option{
		auth.WithMetrics(recorder),
		auth.WithNotifier(service.NewEventPublisher()),
	}
	if gv := service.NewGoogleVerifier(); gv != nil {
		opts = append(opts, auth.WithIdentity(gv))
	} else {
		log.Print("google: GOOGLE_CLIENT_ID not set; google login disabled")
	}

	coord := auth.New(users, tokens, sessions, tracker, signer, auth.Config{
		AccessTTL:  time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		BcryptCost: cfg.BcryptCost,
	}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background work: retention sweep over expired refresh tokens and
	// the audit trail consumer for auth.events.
	go worker.StartTokenCleanup(ctx, tokens, time.Hour)
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit-consumer: stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e, recorder)
	router.RegisterAuth(e, handler.NewAuthHandler(coord),
		handler.NewProfileHandler(users, tokens, sessions, cfg.BcryptCost), coord)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
