package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dispatchly/fleet-backend/internal/config"
	"github.com/dispatchly/fleet-backend/internal/db"
	"github.com/dispatchly/fleet-backend/internal/fleet"
	"github.com/dispatchly/fleet-backend/internal/middleware"
	"github.com/dispatchly/fleet-backend/internal/observability"
	"github.com/dispatchly/fleet-backend/internal/schengen"
	"github.com/dispatchly/fleet-backend/internal/utils"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv())
	if err != nil {
		log.Fatal("Failed to init tracing: ", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing)

	db.Connect(cfg.DatabaseURL)
	fleet.Init()
	schengen.Init()

	engine, rdb, err := schengen.Bootstrap(cfg, db.DB, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("Failed to initialise Schengen engine: ", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}
	if cfg.AggregateHour >= 0 {
		engine.StartDaily(ctx, cfg.AggregateHour)
	}

	tokens := middleware.StaticTokens{Admin: cfg.AdminToken, Dispatcher: cfg.DispatcherToken}
	sh := schengen.NewHandlers(engine)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Get("/", RootHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenMiddleware(tokens))
		r.Use(middleware.RoleMiddleware(utils.RoleAdmin, utils.RoleDispatcher))
		r.Mount("/drivers", fleet.SetupRoutes(schengen.DriverRoutes(sh)))
	})
	r.Mount("/schengen", schengen.SetupRoutes(sh, tokens))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server listening on port :%s...", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server error: ", err)
	}
}
