package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing
	"github.com/redis/go-redis/v9"

	"github.com/zeorvi/restaurant-reservations/internal/config"
	"github.com/zeorvi/restaurant-reservations/internal/handler"
	"github.com/zeorvi/restaurant-reservations/internal/middleware"
)

// Handlers groups everything the router needs to register the API.
type Handlers struct {
	Availability *handler.AvailabilityHandler
	Reservation  *handler.ReservationHandler
	Table        *handler.TableHandler
}

// Register wires all application routes onto the provided Echo
// instance.  The rate limiter applies to the whole /v1 surface; the
// response cache only to the read endpoints, as a short-lived
// read-through optimization; table state in Redis is never
// authoritative.  Both middlewares degrade to no-ops when rdb is nil.
func Register(e *echo.Echo, h Handlers, rdb *redis.Client) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cached := v1.Group("")
	cached.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	cached.GET("/restaurants/:id/availability", h.Availability.Check)
	cached.GET("/restaurants/:id/turns", h.Availability.NearestTurn)

	v1.GET("/restaurants/:id/tables", h.Table.List)
	v1.POST("/restaurants/:id/reservations", h.Reservation.Create)
	v1.DELETE("/reservations/:id", h.Reservation.Cancel)

	v1.POST("/tables/:id/occupy", h.Table.Occupy)
	v1.POST("/tables/:id/release", h.Table.Release)
	v1.POST("/tables/:id/maintenance", h.Table.Maintenance)
	v1.POST("/tables/:id/activate", h.Table.Activate)
}
