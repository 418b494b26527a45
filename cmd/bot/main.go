package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"dorm-electricity/internal/api/handlers"
	"dorm-electricity/internal/api/middleware"
	"dorm-electricity/internal/bot"
	"dorm-electricity/internal/cache"
	"dorm-electricity/internal/campus"
	"dorm-electricity/internal/config"
	"dorm-electricity/internal/notify"
	"dorm-electricity/internal/ratelimit"
	"dorm-electricity/internal/schedule"
	"dorm-electricity/internal/store"
)

const buildingCacheTTL = 12 * time.Hour

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config")
	flag.Parse()

	log := logrus.New()
	if os.Getenv("LOG_LEVEL") != "" {
		if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
			log.SetLevel(level)
		}
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	ch := cache.New(ctx, cfg.RedisURL, buildingCacheTTL, log)
	defer ch.Close()

	campuses := make([]campus.CampusInfo, len(cfg.CampusAPI.Campuses))
	for i, c := range cfg.CampusAPI.Campuses {
		campuses[i] = campus.CampusInfo{Name: c.Name, ID: c.ID, Area: c.Area}
	}
	client := campus.NewClient(cfg.CampusAPI.BaseURL, campuses, ch, log)
	notifier := notify.NewClient(cfg.Messaging.BaseURL, log)
	limiter := ratelimit.New(cfg.RateLimit.Threshold, cfg.RateLimit.Window())

	svc := bot.NewService(st, client, log)

	// The scheduler and the router refer to each other: the router registers
	// jobs, and each job runs back through the router.
	var router *bot.Router
	jobs := schedule.New(func(ctx context.Context, bindingID string) {
		router.RunScheduled(ctx, bindingID)
	}, loc, log)
	defer jobs.Stop()
	router = bot.NewRouter(svc, st, st, limiter, jobs, notifier, loc, log)

	restored, err := router.RestoreSchedules(ctx)
	if err != nil {
		log.WithError(err).Fatal("restore schedules")
	}
	log.WithField("count", restored).Info("schedules restored")

	if os.Getenv("APP_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.Logger(log))
	engine.Use(middleware.ErrorHandler(log))
	engine.Use(middleware.CORS())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	eventHandler := handlers.NewEventHandler(router, log)
	engine.POST("/event", eventHandler.HandleEvent)

	roomsHandler := handlers.NewRoomsHandler(svc)
	api := engine.Group("/api/v1")
	{
		api.GET("/campuses", roomsHandler.ListCampuses)
		api.GET("/campuses/:campus/buildings", roomsHandler.ListBuildings)
		api.GET("/rooms/:campus/:building/:room/history", roomsHandler.GetHistory)
		api.GET("/rooms/:campus/:building/:room/prediction", roomsHandler.GetPrediction)
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: engine,
	}
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
}
