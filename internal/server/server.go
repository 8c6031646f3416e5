// Пакет server — HTTP-сервер Portfolio API с graceful shutdown.
//
// Маршруты собираются вручную на chi. Три группы:
//   - служебные (health, metrics) — без аутентификации;
//   - публичная галерея — без аутентификации, тенант определяется
//     по контексту маршрутизации;
//   - личный кабинет — сессия + anti-forgery guard на изменяющих
//     запросах, единая точка проверки для всей группы.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goportfolio/internal/api/handlers"
	"github.com/bigkaa/goportfolio/internal/api/middleware"
	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/config"
)

// Handlers — обработчики, монтируемые в роутер.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Assets  *handlers.AssetHandler
	Gallery *handlers.GalleryHandler
	Tenants *handlers.TenantHandler
	Health  *handlers.HealthHandler
}

// Server — HTTP-сервер Portfolio API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, sessions *auth.SessionManager, csrf *auth.CSRFManager, h Handlers) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Служебные endpoints
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)

	// Вход — без сессии, но с лимитом попыток в сервисном слое
	router.Post("/api/v1/auth/login", h.Auth.Login)

	// Публичная галерея
	router.Get("/api/v1/gallery", h.Gallery.List)
	router.Get("/api/v1/gallery/{slug}", h.Gallery.Get)
	router.Get("/api/v1/files/{id}/{class}", h.Gallery.File)

	// Личный кабинет: сессия обязательна, anti-forgery проверяется
	// на каждом POST/PUT/PATCH/DELETE без исключений.
	router.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(sessions, logger))
		r.Use(middleware.CSRFGuard(csrf, logger))

		r.Post("/api/v1/auth/logout", h.Auth.Logout)
		r.Get("/api/v1/auth/me", h.Auth.Me)
		r.Get("/api/v1/auth/csrf", h.Auth.CSRFToken)
		r.Post("/api/v1/auth/secret", h.Auth.ChangeSecret)

		r.Post("/api/v1/assets", h.Assets.Upload)
		r.Get("/api/v1/assets", h.Assets.List)
		r.Get("/api/v1/assets/{id}", h.Assets.Get)
		r.Patch("/api/v1/assets/{id}", h.Assets.Update)
		r.Post("/api/v1/assets/{id}/transition", h.Assets.Transition)
		r.Delete("/api/v1/assets/{id}", h.Assets.Delete)

		r.Post("/api/v1/tenants", h.Tenants.Register)
		r.Get("/api/v1/tenants", h.Tenants.List)
		r.Put("/api/v1/settings", h.Tenants.UpdateSettings)
		r.Get("/api/v1/usage", h.Tenants.Usage)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// PF_SHUTDOWN_TIMEOUT.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен", slog.String("addr", s.httpServer.Addr))

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
