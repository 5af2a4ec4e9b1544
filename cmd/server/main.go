package main // Entry point package

import (
    "context"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"    // loads .env files in development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/lakeview/spot-reservation/internal/availability"
    "github.com/lakeview/spot-reservation/internal/captcha"
    "github.com/lakeview/spot-reservation/internal/config"
    "github.com/lakeview/spot-reservation/internal/database"
    "github.com/lakeview/spot-reservation/internal/handler"
    "github.com/lakeview/spot-reservation/internal/lifecycle"
    "github.com/lakeview/spot-reservation/internal/payment"
    "github.com/lakeview/spot-reservation/internal/queue"
    "github.com/lakeview/spot-reservation/internal/repository"
    "github.com/lakeview/spot-reservation/internal/router"
    "github.com/lakeview/spot-reservation/internal/scheduler"
)

func main() {
    // Load .env when present; in production the variables come from the
    // environment directly and a missing file is not an error.
    if err := godotenv.Load(); err != nil {
        log.Printf("no .env file loaded: %v", err)
    }
    cfg := config.Load()

    h, err := database.NewHandle(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connect failed: %v", err)
    }
    defer h.Close()

    rdb := config.NewRedisClient()

    reservations := repository.NewReservationRepo(h)
    blocks := repository.NewBlockRepo(h)
    spots := repository.NewSpotRepo(h)

    machine := lifecycle.NewMachine(reservations, blocks, lifecycle.NewQueueNotifier())
    gateway := payment.NewClient(cfg.Gateway)
    reconciler := payment.NewReconciler(gateway, machine)
    engine := availability.NewEngine(blocks, reservations, spots, cfg.PendingTTL)

    var verifier captcha.Verifier = captcha.NewGoogleVerifier(cfg.CaptchaSecret)
    if cfg.Env == "dev" {
        verifier = captcha.Disabled{}
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    // Background workers: the expiry + reconciliation sweeps and the
    // notification consumer.  The consumer runs its own reconnect loop
    // and never returns under normal operation.
    sweeper := scheduler.New(reservations, machine, reconciler, &cfg)
    go sweeper.Run(ctx)
    go func() {
        if err := queue.StartReservationConsumer(); err != nil {
            log.Printf("reservation consumer stopped: %v", err)
        }
    }()

    // One repair pass at startup reconverges the ledger after a crash.
    if result, err := lifecycle.RepairBlocks(ctx, reservations, blocks); err != nil {
        log.Printf("startup ledger repair failed: %v", err)
    } else if result.Inserted > 0 || result.Deleted > 0 {
        log.Printf("startup ledger repair: inserted=%d deleted=%d", result.Inserted, result.Deleted)
    }

    e := echo.New()
    router.Register(e, &router.Handlers{
        Auth:         handler.NewAuthHandler(&cfg),
        Reservations: handler.NewReservationHandler(reservations, spots, machine, engine, reconciler, verifier, &cfg),
        Payments:     handler.NewPaymentHandler(reservations, gateway, reconciler, &cfg),
        Public:       handler.NewPublicHandler(spots, engine),
        Admin:        handler.NewAdminHandler(spots, blocks, reservations, machine),
    }, &cfg, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    go func() {
        if err := e.Start(addr); err != nil {
            log.Printf("http server stopped: %v", err)
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Printf("shutdown: %v", err)
    }
}
