package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/lakeview/spot-reservation/internal/config"
    "github.com/lakeview/spot-reservation/internal/handler"    // import the handlers that implement business logic
    "github.com/lakeview/spot-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
    Auth         *handler.AuthHandler
    Reservations *handler.ReservationHandler
    Payments     *handler.PaymentHandler
    Public       *handler.PublicHandler
    Admin        *handler.AdminHandler
}

// Register mounts the whole route tree on the provided Echo instance.
// Guest routes sit behind the Redis token-bucket rate limiter, the
// availability calendar additionally behind the short-TTL response
// cache, and the operator routes behind JWT authentication plus the
// ADMIN role.  rdb may be nil, in which case the rate limiter and cache
// are skipped (tests run without Redis).
func Register(e *echo.Echo, h *Handlers, cfg *config.Config, rdb *redis.Client) {
    // Health check used by load balancers; no middleware at all.
    e.GET("/healthz", handler.Health)

    var guestMW []echo.MiddlewareFunc
    var cacheMW []echo.MiddlewareFunc
    if rdb != nil {
        guestMW = append(guestMW, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
        cacheMW = append(cacheMW, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
    }

    // Guest routes.  Everything here is rate limited per client IP.
    g := e.Group("/v1", guestMW...)
    g.GET("/spots", h.Public.ListSpots, cacheMW...)
    g.GET("/availability", h.Public.Range, cacheMW...)

    g.POST("/reservations", h.Reservations.Create)
    g.GET("/reservations/token/:token", h.Reservations.GetByToken)
    g.GET("/reservations/token/:token/status", h.Reservations.PollStatus)
    g.POST("/reservations/token/:token/cancel", h.Reservations.Cancel)
    g.GET("/reservations/token/:token/can-cancel", h.Reservations.CanCancel)
    g.GET("/reservations/token/:token/can-refund", h.Reservations.CanRefund)

    g.POST("/payment/create", h.Payments.CreatePayment)
    // The gateway's server-to-server callback must never be rate
    // limited, so it lives outside the guest group.
    e.POST("/v1/payment/p24/status", h.Payments.StatusCallback)

    // Operator login.
    e.POST("/v1/auth/login", h.Auth.Login)

    // Operator routes require a valid access token with the ADMIN role.
    admin := e.Group("/v1/admin")
    admin.Use(middleware.JWTAuth(cfg.JWTSecret))
    admin.Use(middleware.RequireRole("ADMIN"))
    admin.POST("/spots", h.Admin.CreateSpot)
    admin.DELETE("/spots/:id", h.Admin.DeleteSpot)
    admin.GET("/spots/:id/reservations", h.Admin.ListSpotReservations)
    admin.GET("/spots/:id/blocks", h.Admin.ListBlocks)
    admin.POST("/spots/:id/blocks", h.Admin.AddBlock)
    admin.DELETE("/spots/:id/blocks/:day", h.Admin.RemoveBlock)
    admin.PATCH("/reservations/:id/status", h.Admin.TransitionReservation)
    admin.POST("/repair-blocks", h.Admin.RepairBlocks)
}
