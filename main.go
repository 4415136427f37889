package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/padraicbc/rallyapi/config"
	"github.com/padraicbc/rallyapi/db"
	"github.com/padraicbc/rallyapi/handlers"
	"github.com/padraicbc/rallyapi/ingest"
	applog "github.com/padraicbc/rallyapi/logger"
	mw "github.com/padraicbc/rallyapi/middleware"
	"github.com/padraicbc/rallyapi/recalc"
	"github.com/padraicbc/rallyapi/store"
	"github.com/padraicbc/rallyapi/tracing"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	bdb := db.Setup(cfg)
	defer bdb.Close()

	if err := db.CreateTables(context.Background(), bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tp, shutdownTracing, err := tracing.Setup(context.Background(), cfg.TracingEndpoint, cfg.TracingInsecure, "rallyapi")
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	st := store.New(bdb)
	orch := recalc.New(bdb, st, logger.Named("recalc"), recalc.NewMetrics(reg), tp.Tracer("rallyapi/recalc"))
	svc := ingest.NewService(st, orch, logger.Named("ingest"))
	h := handlers.New(cfg.JWTKey(), st, svc, orch, cfg.IsAdminUser, logger.Named("http"))

	e := echo.New()
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"*", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Public
	api := e.Group("/api")
	api.POST("/signin", h.Signin)
	api.GET("/races/:id/results", h.RaceResults)
	api.GET("/championships/:id/standings", h.ChampionshipStandings)
	api.GET("/championships/:id/standings/export", h.StandingsExport)
	api.GET("/championships/:id/clubs", h.ClubStandings)

	// Protected – require valid JWT in Authorization header
	auth := api.Group("", mw.JWT(cfg.JWTKey()))
	auth.PUT("/stages/:stage/results/:rider", h.PutStageResult)
	auth.DELETE("/stages/:stage/results/:rider", h.DeleteStageResult)
	auth.POST("/stage-results/batch", h.BatchStageResults)

	admin := auth.Group("", mw.RequireAdmin())
	admin.POST("/recalculate", h.Recalculate)
	admin.POST("/password-hash", h.PasswordHash)

	if cfg.Debug {
		logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
		if err := e.Start(cfg.Port); err != nil {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	if len(cfg.TLSDomains) == 0 {
		logger.Fatal("TLS_DOMAINS must be set outside debug mode")
	}
	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
	}

	s := &http.Server{
		Addr:         ":443",
		Handler:      e,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	if err := s.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
		logger.Error("tls server exited", zap.Error(err))
		os.Exit(1)
	}
}
