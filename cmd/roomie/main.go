// Package main запускает HTTP-сервер сервиса Roomie.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/roomie/internal/config"
	"github.com/mmeshcher/roomie/internal/handler"
	"github.com/mmeshcher/roomie/internal/mailer"
	"github.com/mmeshcher/roomie/internal/metrics"
	"github.com/mmeshcher/roomie/internal/middleware"
	"github.com/mmeshcher/roomie/internal/repository"
	"github.com/mmeshcher/roomie/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var mail mailer.Sender = mailer.NewLogSender(logger)
	if cfg.MailAPIAddress != "" {
		mail = mailer.NewClient(cfg.MailAPIAddress, cfg.MailAPIKey, cfg.MailFrom)
	} else {
		sugar.Warn("mail API address is not set, invitation emails will only be logged")
	}

	m := metrics.New()

	svc := service.NewService(repo, mail, m, logger, service.Options{
		ClientURL: cfg.ClientURL,
		InviteTTL: cfg.InviteTTL,
	})
	defer svc.Close()

	if cfg.TokenSecret == "" {
		sugar.Warn("token secret is not set, a random key is used and tokens will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.TokenSecret, cfg.TokenTTL)
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})

	h := handler.NewHandler(svc, logger, authMiddleware, handler.Options{
		Metrics:        m,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.Origins(),
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая отметка просроченных приглашений
	g.Go(func() error {
		return svc.RunInvitationSweeper(ctx, cfg.SweepInterval)
	})

	// Очистка неактивных клиентов ограничителя запросов
	g.Go(func() error {
		return limiter.Run(ctx)
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting roomie server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
