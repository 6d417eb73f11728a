package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/config"
	apphttp "taskboard/internal/http"
	"taskboard/internal/repository"
	"taskboard/internal/repository/memory"
	"taskboard/internal/repository/sqlite"
	"taskboard/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		userRepo repository.UserRepository
		taskRepo repository.TaskRepository
	)
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Warnf("open database, falling back to in-memory storage: %v", err)
		store := memory.NewStorage()
		userRepo = store.UserStore()
		taskRepo = store.TaskStore()
	} else {
		defer db.Close()
		userRepo = sqlite.NewUserRepository(db)
		taskRepo = sqlite.NewTaskRepository(db)
	}

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := taskRepo.Init(ctx); err != nil {
		logger.Fatalf("init task repository: %v", err)
	}

	tokenTTL := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	userService := service.NewUserService(userRepo, cfg.Auth.JWTSecret, tokenTTL)
	taskService := service.NewTaskService(taskRepo)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatalf("bootstrap admin: %v", err)
		}
		logger.Infof("administrator account ensured for %s", cfg.Auth.AdminEmail)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, taskService, cfg.Auth.JWTSecret, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}
