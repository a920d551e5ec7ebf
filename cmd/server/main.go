package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jack/golang-slug-link-service/internal/config"
	"github.com/jack/golang-slug-link-service/internal/handler"
	"github.com/jack/golang-slug-link-service/internal/middleware"
	"github.com/jack/golang-slug-link-service/internal/repository"
	"github.com/jack/golang-slug-link-service/internal/scheduler"
	"github.com/jack/golang-slug-link-service/internal/service"
)

const (
	PruneInterval = 6 * time.Hour
	RetentionDays = 30
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Admin.Token == "" {
		log.Println("Warning: ADMIN_TOKEN is empty; the admin API will reject every request")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	redisRepo, err := repository.NewRedisRepository(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisRepo.Close()
	log.Println("Connected to Redis")

	var archive *repository.PostgresRepository
	if cfg.Archive.Enabled {
		archive, err = repository.NewPostgresRepository(&cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to connect to click archive: %v", err)
		}
		defer archive.Close()
		log.Println("Connected to click archive")
	}

	var clickArchive service.ClickArchive
	if archive != nil {
		clickArchive = archive
	}

	recorder := service.NewClickRecorder(redisRepo, clickArchive, cfg.Recorder.QueueSize, cfg.Recorder.WriteTimeout)
	recorder.Start()
	defer recorder.Stop()

	pruner := scheduler.NewDailyPruneScheduler(redisRepo, archive, PruneInterval, RetentionDays)
	pruner.Start()
	defer pruner.Stop()

	linkService := service.NewLinkService(redisRepo, recorder)

	h := handler.NewHandler(linkService, cfg.App.StaticDir, cfg.Admin.Token)
	h.RedisHealth = redisRepo.Health
	if archive != nil {
		h.ArchiveHealth = archive.Health
	}

	rateLimiter := middleware.NewRateLimiter(redisRepo.Client(), &cfg.RateLimit)

	router := handler.NewRouter(h, cfg.Admin.Token, rateLimiter.Middleware())
	SetupSwagger(router, &cfg.Auth)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
