package main // Entry point package

import (
	"log"  // Logging library
	"time" // reservation timeout conversion

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/database"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/reservation"
	"github.com/iliyamo/restaurant-reservation/internal/router"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories
	restaurantRepo := repository.NewRestaurantRepo(db)
	slotRepo := repository.NewSlotTemplateRepo(db)
	bookingRepo := repository.NewBookingRepo(db, slotRepo, cfg.DefaultSlotCapacity)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	// Read-side availability and the reservation engine on top of it
	index := availability.NewIndex(slotRepo, bookingRepo, cfg.BookingHorizonDays, cfg.DefaultSlotCapacity)
	engine := reservation.NewEngine(restaurantRepo, index, bookingRepo, reservation.Config{
		MaxPartySize: cfg.MaxPartySize,
		HorizonDays:  cfg.BookingHorizonDays,
		Timeout:      time.Duration(cfg.ReserveTimeoutSec) * time.Second,
	})

	// Handlers
	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	publicHandler := &handler.PublicHandler{Restaurants: restaurantRepo, Slots: slotRepo, Avail: index}
	bookingHandler := handler.NewBookingHandler(engine, bookingRepo, restaurantRepo)

	e := echo.New()

	// Redis backs the rate limiter and the public catalog response cache.
	// Booking correctness never depends on Redis being up.
	// Both middlewares degrade to pass-through when Redis is unreachable
	// or the feature is disabled.
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	catalogCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, publicHandler, catalogCache)
	router.RegisterBooking(e, bookingHandler, cfg.JWTSecret)

	// Background consumer that appends confirmed bookings to logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
