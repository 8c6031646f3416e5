// Portfolio API — многотенантный сервис фотопортфолио.
//
// Точка входа: загрузка конфигурации, миграции, подключение к PostgreSQL,
// сборка сервисов и запуск HTTP-сервера с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goportfolio/internal/api/handlers"
	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/config"
	"github.com/bigkaa/goportfolio/internal/database"
	"github.com/bigkaa/goportfolio/internal/repository"
	"github.com/bigkaa/goportfolio/internal/server"
	"github.com/bigkaa/goportfolio/internal/service"
	"github.com/bigkaa/goportfolio/internal/storage/filestore"
	"github.com/bigkaa/goportfolio/internal/tenancy"
	"github.com/bigkaa/goportfolio/internal/vision"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", "error", err)
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Запуск Portfolio API",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("environment", cfg.Environment),
	)

	if os.Getenv("PF_DEPHEALTH_GROUP") == "" {
		logger.Warn("PF_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("group", cfg.DephealthGroup))
	}

	ctx := context.Background()

	// 3. Применение миграций БД
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка применения миграций", "error", err)
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к базе данных", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// *sql.DB поверх pgxpool — для pgcheck в режиме connection pool
	pgDB := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := pgDB.Close(); err != nil {
			logger.Warn("Ошибка закрытия sql.DB", "error", err)
		}
	}()

	// 5. Файловое хранилище оригиналов и вариантов
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации файлового хранилища", "error", err)
		os.Exit(1)
	}

	// 6. Репозитории
	tenantRepo := repository.NewTenantRepository(pool)
	assetRepo := repository.NewAssetRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	aiCostRepo := repository.NewAICostRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Сессии, anti-forgery токены и лимитеры
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, !cfg.IsLocal())
	csrf := auth.NewCSRFManager(cfg.CSRFSecret)
	loginLimiter := auth.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	uploadLimiter := auth.NewRateLimiter(cfg.UploadRateLimit, cfg.UploadRateWindow)

	// Периодическая чистка устаревших счётчиков лимитеров
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			loginLimiter.Cleanup()
			uploadLimiter.Cleanup()
		}
	}()

	// 8. Клиент сервиса описаний. При пустом URL клиент возвращает
	// ErrNotConfigured и приём работает с запасными описаниями.
	describer := vision.NewClient(cfg.VisionURL, cfg.VisionAPIKey, cfg.VisionModel, cfg.VisionTimeout)
	if cfg.VisionURL == "" {
		logger.Warn("PF_VISION_URL не задан, описания генерируются из имени файла")
	}

	// 9. Сервисы
	auditService := service.NewAuditService(auditRepo, logger)
	accountService := service.NewAccountService(tenantRepo, auditService, loginLimiter, logger)
	ingestService := service.NewIngestService(
		assetRepo, aiCostRepo, txRunner, store, describer, auditService,
		uploadLimiter, cfg.MaxUploadSize, cfg.StorageTimeout, logger,
	)
	assetService := service.NewAssetService(assetRepo, txRunner, store, auditService, logger)
	galleryService := service.NewGalleryService(assetRepo, store, logger)

	// 10. Начальный администратор (опционально, PF_ADMIN_HANDLE / PF_ADMIN_SECRET)
	if cfg.AdminHandle != "" {
		if err := accountService.EnsureBootstrapAdmin(ctx, cfg.AdminHandle, cfg.AdminSecret); err != nil {
			logger.Error("Ошибка создания начального администратора", "error", err)
			os.Exit(1)
		}
	}

	// 11. Резолвер тенантов для публичной галереи
	resolver := tenancy.NewResolver(tenantRepo)

	// 12. HTTP-обработчики
	authHandler := handlers.NewAuthHandler(accountService, sessions, csrf, logger)
	assetHandler := handlers.NewAssetHandler(ingestService, assetService, accountService, cfg.MaxUploadSize, logger)
	galleryHandler := handlers.NewGalleryHandler(resolver, galleryService, logger)
	tenantHandler := handlers.NewTenantHandler(accountService, ingestService, logger)
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))

	// 13. Мониторинг зависимостей topologymetrics.
	// Ошибка инициализации не фатальна: сервис работает без мониторинга.
	dephealthService, err := service.NewDephealthService(
		cfg.DephealthName, cfg.DephealthGroup,
		pgDB, cfg.DatabaseURL(), cfg.VisionURL,
		cfg.DephealthCheckInterval, logger,
	)
	if err != nil {
		logger.Warn("Ошибка инициализации мониторинга зависимостей, продолжаем без него", "error", err)
	} else {
		if err := dephealthService.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска мониторинга зависимостей, продолжаем без него", "error", err)
		} else {
			defer dephealthService.Stop()
		}
	}

	// 14. HTTP-сервер
	srv := server.New(cfg, logger, sessions, csrf, server.Handlers{
		Auth:    authHandler,
		Assets:  assetHandler,
		Gallery: galleryHandler,
		Tenants: tenantHandler,
		Health:  healthHandler,
	})

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", "error", err)
		os.Exit(1)
	}
}
