package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/internal/engine"
	"github.com/mohammad-safakhou/parley/internal/engine/state"
	"github.com/mohammad-safakhou/parley/internal/engine/state/inmemory"
	"github.com/mohammad-safakhou/parley/internal/engine/state/redisstate"
	"github.com/mohammad-safakhou/parley/internal/intake"
	"github.com/mohammad-safakhou/parley/internal/runtime"
	"github.com/mohammad-safakhou/parley/internal/speech"
	"github.com/mohammad-safakhou/parley/internal/store"
	"github.com/mohammad-safakhou/parley/internal/telemetry"
	"github.com/mohammad-safakhou/parley/provider"
)

// Run wires the whole service and serves HTTP until the process dies.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	registerDocs(e)

	ctx := context.Background()

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	st, err := store.New(ctx, cfg.Storage.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	llm, err := provider.New(cfg.LLM)
	if err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(tele.Registry(), promhttp.HandlerOpts{})))

	// Engine state: process memory by default, redis when replicas
	// must share cooldowns and phrasing windows.
	var states state.Store
	var rdb *redis.Client
	if cfg.Storage.State == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		states = redisstate.New(rdb, 0)
	} else {
		states = inmemory.New()
	}

	var synth *speech.Synthesizer
	if cfg.Speech.Enabled {
		synth, err = speech.New(cfg.Speech, llm)
		if err != nil {
			return err
		}
		e.Static("/audio", synth.CacheDir())
	}

	deps := engine.OrchestratorDeps{
		Provider:  llm,
		Store:     st,
		States:    states,
		Telemetry: tele,
	}
	if synth != nil {
		deps.Speech = synth
	}
	orch, err := engine.NewOrchestrator(cfg.Interview, cfg.Heuristics, deps)
	if err != nil {
		return err
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	sessions := &SessionsHandler{Store: st, Engine: orch}
	sessions.Register(api.Group("/sessions"), secret)

	if cfg.Intake.Enabled {
		ih := &IntakeHandler{Intake: intake.New(cfg.Intake, llm, tele)}
		ih.Register(api.Group("/intake"), secret)
	}

	if cfg.Scheduler.Enabled {
		sched := &Scheduler{
			Cfg:    cfg.Scheduler,
			Store:  st,
			Speech: synth,
			Rdb:    rdb,
			Stop:   make(chan struct{}),
		}
		sched.Start()
	}

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
