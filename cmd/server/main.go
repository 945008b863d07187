package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/avorland/course-registration/internal/allocation" // Waiting-list engine
	"github.com/avorland/course-registration/internal/config"     // Internal config loader
	"github.com/avorland/course-registration/internal/database"   // MySQL connector
	"github.com/avorland/course-registration/internal/handler"    // HTTP handlers
	"github.com/avorland/course-registration/internal/middleware" // Cache and rate-limit middleware
	"github.com/avorland/course-registration/internal/payments"   // Card charge client
	"github.com/avorland/course-registration/internal/queue"      // Broker consumer
	"github.com/avorland/course-registration/internal/repository" // Data access layer
	"github.com/avorland/course-registration/internal/router"     // Route registration
	"github.com/avorland/course-registration/internal/validation" // Conflict validator
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rebalance locks, the rate limiter and the
	// response cache.  All three degrade when the client is nil.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; using in-process locks, no cache, no rate limit")
	}

	// Repositories
	lectures := repository.NewLectureRepo(db)
	courses := repository.NewCourseRepo(db)
	signups := repository.NewSignupRepo(db)
	selections := repository.NewSelectionRepo(db)
	paymentsRepo := repository.NewPaymentRepo(db)
	users := repository.NewUserRepo(db)

	// Core services
	engine := allocation.NewEngine(courses, signups, allocation.NewLocker(rdb))
	valid := validation.NewValidator(courses, repository.Registrations{Signups: signups, Selections: selections}, signups)
	charger := payments.NewStripeCharger(cfg.StripeBaseURL, cfg.StripeSecretKey)
	notifier := handler.NewPromotionNotifier(signups, courses)

	// Handlers
	authH := handler.NewAuthHandler(cfg, users)
	lectureH := handler.NewLectureHandler(lectures)
	courseH := handler.NewCourseHandler(courses, lectures, valid, engine, notifier)
	signupH := handler.NewSignupHandler(signups, courses, valid, engine, notifier)
	selectionH := handler.NewSelectionHandler(selections, courses, valid)
	paymentH := handler.NewPaymentHandler(cfg, paymentsRepo, signups, valid, charger)

	// Background consumer writing promotion events to logs/signups.log
	go func() {
		if err := queue.StartPromotionConsumer(); err != nil {
			log.Printf("promotion consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterCatalogue(e, lectureH, courseH,
		middleware.NewCatalogueCache(config.LoadCatalogueCache(), rdb))
	router.RegisterRegistrations(e, signupH, selectionH, paymentH, cfg.JWTSecret,
		middleware.NewSignupThrottle(config.LoadSignupBurst(), rdb))
	router.RegisterAdmin(e, lectureH, courseH, paymentH, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
