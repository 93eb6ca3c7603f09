package main // Entry point package

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/eduflow/eduflow-api/internal/config"
	"github.com/eduflow/eduflow-api/internal/database"
	"github.com/eduflow/eduflow-api/internal/handler"
	"github.com/eduflow/eduflow-api/internal/mail"
	"github.com/eduflow/eduflow-api/internal/queue"
	"github.com/eduflow/eduflow-api/internal/repository"
	"github.com/eduflow/eduflow-api/internal/router"
	"github.com/eduflow/eduflow-api/internal/service"
	"github.com/eduflow/eduflow-api/pkg/log"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	logger := log.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	// Revocation entries live in Redis so they survive restarts and are
	// shared across instances.  Without Redis the in-memory store keeps a
	// single-node deployment working.
	var revoked repository.RevocationStore
	if rdb != nil {
		revoked = repository.NewRedisRevocationStore(rdb)
	} else {
		logger.Warn().Msg("redis unavailable, using in-memory revocation store")
		revoked = repository.NewMemoryRevocationStore()
	}

	publisher := queue.NewPublisher(cfg.RabbitURL, cfg.EmailQueue)
	defer publisher.Close()

	var sender mail.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	} else {
		sender = &mail.LogSender{Log: logger}
	}
	go queue.StartEmailConsumer(cfg.RabbitURL, cfg.EmailQueue, sender, logger)

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	auth := service.NewAuthService(cfg, users, roles, revoked, publisher, logger)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, handler.NewAuthHandler(cfg, auth), handler.NewRoleHandler(roles), rdb)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil {
			logger.Info().Err(err).Msg("server stopped")
		}
	}()

	// Block until asked to stop, then drain in-flight requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
