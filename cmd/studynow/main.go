package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damins0406/lets-study-now/internal/auth"
	"github.com/damins0406/lets-study-now/internal/chat"
	"github.com/damins0406/lets-study-now/internal/checklist"
	"github.com/damins0406/lets-study-now/internal/cleanup"
	"github.com/damins0406/lets-study-now/internal/config"
	"github.com/damins0406/lets-study-now/internal/groupstudy"
	"github.com/damins0406/lets-study-now/internal/levelup"
	"github.com/damins0406/lets-study-now/internal/member"
	"github.com/damins0406/lets-study-now/internal/openstudy"
	"github.com/damins0406/lets-study-now/internal/server"
	"github.com/damins0406/lets-study-now/internal/session"
	"github.com/damins0406/lets-study-now/internal/storage/postgres"
	"github.com/damins0406/lets-study-now/internal/storage/s3"
	"github.com/damins0406/lets-study-now/internal/timer"
	"github.com/damins0406/lets-study-now/pkg/logger"
)

const dbTimeout = 5 * time.Second

func main() {
	// Initializing and validating config
	cm, err := config.NewConfigManager("internal/config/config.yaml")
	if err != nil {
		fmt.Printf("Error getting config file: %v", err)
		os.Exit(1)
	}
	c := cm.GetConfig()
	if err := c.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// Initializing logger
	appLog, err := logger.New(logger.Config{
		Env:       c.GeneralParams.Env,
		AddSource: false,
	})
	if err != nil {
		fmt.Printf("Error creating logger: %v", err)
		os.Exit(1)
	}
	log := appLog.Logger

	log.Info(
		"Config loaded successfully!",
		"env", c.GeneralParams.Env,
		"http_server_port", c.HttpServerParams.Port,
		"http_server_address", c.HttpServerParams.Address,
		"database", c.MainDBParams.Name,
	)

	// Global context with cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Creating database connection
	pool, err := postgres.CreatePool(ctx, c.MainDBParams.GetDSN())
	if err != nil {
		log.Error(
			"Failed to create postgres pool",
			"error", err,
			"db", c.MainDBParams.Name,
		)
		os.Exit(1)
	}
	defer pool.Close()

	log.Info("Database connection established", "db", c.MainDBParams.Name)

	// Object storage for profile images
	s3Client, err := s3.NewClient(
		c.S3Params.Endpoint,
		c.S3Params.AccessKeyID,
		c.S3Params.SecretAccessKey,
		c.S3Params.UseSSL,
	)
	if err != nil {
		log.Error("Failed to create s3 client", "error", err)
		os.Exit(1)
	}
	if err := s3.EnsureBucket(ctx, s3Client, c.S3Params.BucketName); err != nil {
		log.Error("Failed to ensure s3 bucket", "error", err, "bucket", c.S3Params.BucketName)
		os.Exit(1)
	}
	imageStore := s3.NewProfileImageStore(s3Client, c.S3Params.BucketName)

	// JWT Service initialization
	authService := auth.NewService(
		c.GeneralParams.SecretKey,
		time.Minute*15,
		time.Hour*24*7,
	)

	// Stores
	memberStore := member.NewPostgresStore(pool)
	levelStore := levelup.NewPostgresStore(pool)
	timerStore := timer.NewPostgresStore(pool)
	sessionStore := session.NewPostgresStore(pool)
	openStore := openstudy.NewPostgresStore(pool)
	groupStore := groupstudy.NewPostgresStore(pool)
	checklistStore := checklist.NewPostgresStore(pool)
	chatStore := chat.NewPostgresStore(pool)

	// Services
	levelService := levelup.NewService(levelStore, log)
	timerService := timer.NewService(timerStore, log)
	sessionService := session.NewService(sessionStore, timerService, levelService, log)
	openService := openstudy.NewService(openStore, sessionService, timerService, log)
	groupService := groupstudy.NewService(groupStore, sessionService, timerService, log)

	// Chat hubs
	chatManager := chat.NewManager(chatStore, log)

	// Handlers
	memberHandler := member.NewHandler(memberStore, authService, imageStore, log, dbTimeout)
	levelHandler := levelup.NewHandler(levelService, log, dbTimeout)
	timerHandler := timer.NewHandler(timerService, log, dbTimeout)
	sessionHandler := session.NewHandler(sessionService, log, dbTimeout)
	openHandler := openstudy.NewHandler(openService, log, dbTimeout)
	groupHandler := groupstudy.NewHandler(groupService, log, dbTimeout)
	checklistHandler := checklist.NewHandler(checklistStore, log, dbTimeout)
	chatHandler := chat.NewHandler(chatManager, chatStore, authService, log, dbTimeout)

	// Background room reconciliation
	scheduler := cleanup.NewScheduler(
		openService,
		groupService,
		log,
		c.CleanupParams.Interval,
		c.CleanupParams.InitialDelay,
	)
	go scheduler.Run(ctx)

	router := server.NewRouter(server.RouterConfig{
		MemberHandler:    memberHandler,
		TimerHandler:     timerHandler,
		SessionHandler:   sessionHandler,
		OpenStudyHandler: openHandler,
		GroupHandler:     groupHandler,
		ChecklistHandler: checklistHandler,
		ChatHandler:      chatHandler,
		LevelHandler:     levelHandler,
		AuthService:      authService,
	})

	httpServer := server.New(c.HttpServerParams.GetAddress(), router, log)

	serverErrors := make(chan error, 1)

	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-serverErrors:
		log.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		cancel()
		chatManager.Shutdown()

		log.Info("Shutting down HTTP server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
		}
	}
}
