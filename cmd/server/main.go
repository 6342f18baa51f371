package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/zeorvi/restaurant-reservations/internal/availability"
	"github.com/zeorvi/restaurant-reservations/internal/config"
	"github.com/zeorvi/restaurant-reservations/internal/database"
	"github.com/zeorvi/restaurant-reservations/internal/handler"
	"github.com/zeorvi/restaurant-reservations/internal/middleware"
	"github.com/zeorvi/restaurant-reservations/internal/occupancy"
	"github.com/zeorvi/restaurant-reservations/internal/queue"
	"github.com/zeorvi/restaurant-reservations/internal/repository"
	"github.com/zeorvi/restaurant-reservations/internal/router"
	"github.com/zeorvi/restaurant-reservations/internal/schedule"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env vars directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: middleware degrades to no-ops when it is absent.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response caching disabled")
	}
	inv := middleware.NewCacheInvalidator(config.LoadCacheConfig(), rdb)

	events := queue.NewRabbitPublisher(queue.BrokerURL())
	queue.StartEventConsumers()

	tableRepo := repository.NewTableRepo(db)
	resRepo := repository.NewReservationRepo(db)
	slotRepo := repository.NewTimeSlotRepo(db)

	normalizer := schedule.NewNormalizer(cfg.Engine.Timezone, cfg.Engine.StrictDates)
	turns := schedule.NewTurnService(slotRepo, schedule.TurnConfig{
		MealCutoff:     cfg.Engine.MealCutoff,
		LunchDuration:  cfg.Engine.LunchDuration,
		DinnerDuration: cfg.Engine.DinnerDuration,
	})
	checker := availability.NewChecker(tableRepo, resRepo, turns, events)
	tracker := occupancy.NewTracker(tableRepo, resRepo, events, occupancy.Config{
		MaxOccupation: cfg.Engine.MaxOccupation,
		Grace:         cfg.Engine.ReleaseGrace,
		WarningBuffer: cfg.Engine.WarningBuffer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := occupancy.NewSweeper(tracker, cfg.Engine.SweepInterval)
	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("sweeper stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, router.Handlers{
		Availability: handler.NewAvailabilityHandler(checker, turns, normalizer),
		Reservation:  handler.NewReservationHandler(normalizer, turns, checker, tracker, resRepo, inv),
		Table:        handler.NewTableHandler(tracker, tableRepo, resRepo, turns, normalizer, inv),
	}, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, tz=%s)", addr, cfg.Env, cfg.Engine.Timezone)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()
	if err := e.Start(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
