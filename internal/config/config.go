// Пакет config — загрузка и валидация конфигурации Portfolio API
// из переменных окружения.
//
// Секреты (PF_SESSION_SECRET, PF_CSRF_SECRET) проверяются на старте:
// в deployed-режиме процесс отказывается запускаться с отсутствующим
// или коротким секретом. Никаких тихих fallback на слабые дефолты.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Минимальная длина секретов в байтах (deployed-режим).
const MinSecretLength = 32

// Config содержит все параметры конфигурации Portfolio API.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Окружение: local или production.
	// В local допускаются короткие секреты и нестрогие cookie.
	Environment string

	// Секрет подписи сессионных токенов (HS256)
	SessionSecret string
	// Отдельный секрет для anti-forgery токенов.
	// Обязан отличаться от SessionSecret.
	CSRFSecret string
	// Время жизни сессии
	SessionTTL time.Duration

	// Параметры PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Путь к директории хранения оригиналов и вариантов
	DataDir string
	// Максимальный размер загружаемого изображения в байтах
	MaxUploadSize int64
	// Таймаут операций записи в хранилище
	StorageTimeout time.Duration

	// Лимит неудачных попыток входа с одного адреса за окно
	LoginRateLimit int
	// Окно подсчёта попыток входа
	LoginRateWindow time.Duration
	// Лимит загрузок на тенанта за окно
	UploadRateLimit int
	// Окно подсчёта загрузок
	UploadRateWindow time.Duration

	// URL сервиса описания изображений (Messages API).
	// Пустое значение — описание пропускается с warning.
	VisionURL string
	// API-ключ сервиса описания
	VisionAPIKey string
	// Модель сервиса описания
	VisionModel string
	// Таймаут вызова сервиса описания
	VisionTimeout time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя вершины графа приложения в topologymetrics
	DephealthName string

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Handle начального администратора. Если задан вместе с секретной
	// фразой и администратор с таким handle отсутствует, он создаётся
	// при старте сервиса.
	AdminHandle string
	// Секретная фраза начального администратора
	AdminSecret string
}

// IsLocal сообщает, запущено ли приложение в локальном режиме разработки.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает подключение к PostgreSQL в форме URL.
// Используется для меток topologymetrics.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// PF_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("PF_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PF_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("PF_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// PF_ENV — окружение (по умолчанию production: безопасный дефолт)
	cfg.Environment = getEnvDefault("PF_ENV", "production")
	if cfg.Environment != "local" && cfg.Environment != "production" {
		return nil, fmt.Errorf("PF_ENV: недопустимое значение %q, допустимые: local, production", cfg.Environment)
	}

	// PF_SESSION_SECRET — обязательный секрет подписи сессий
	cfg.SessionSecret, err = getEnvRequired("PF_SESSION_SECRET")
	if err != nil {
		return nil, err
	}

	// PF_CSRF_SECRET — обязательный, отдельный от сессионного
	cfg.CSRFSecret, err = getEnvRequired("PF_CSRF_SECRET")
	if err != nil {
		return nil, err
	}

	// В deployed-режиме секреты обязаны быть достаточной длины.
	// Переиспользование одного секрета для двух назначений запрещено всегда.
	if !cfg.IsLocal() {
		if len(cfg.SessionSecret) < MinSecretLength {
			return nil, fmt.Errorf(
				"PF_SESSION_SECRET: длина %d байт меньше минимальной %d — процесс не будет запущен",
				len(cfg.SessionSecret), MinSecretLength)
		}
		if len(cfg.CSRFSecret) < MinSecretLength {
			return nil, fmt.Errorf(
				"PF_CSRF_SECRET: длина %d байт меньше минимальной %d — процесс не будет запущен",
				len(cfg.CSRFSecret), MinSecretLength)
		}
	}
	if cfg.CSRFSecret == cfg.SessionSecret {
		return nil, fmt.Errorf("PF_CSRF_SECRET: секрет совпадает с PF_SESSION_SECRET — для каждого назначения нужен независимый секрет")
	}

	// PF_SESSION_TTL — время жизни сессии (по умолчанию 24h)
	cfg.SessionTTL, err = getEnvDuration("PF_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PF_SESSION_TTL: %w", err)
	}

	// PF_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("PF_DB_HOST")
	if err != nil {
		return nil, err
	}

	// PF_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("PF_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("PF_DB_PORT: %w", err)
	}

	// PF_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("PF_DB_NAME")
	if err != nil {
		return nil, err
	}

	// PF_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("PF_DB_USER")
	if err != nil {
		return nil, err
	}

	// PF_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("PF_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PF_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("PF_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PF_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// PF_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("PF_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// PF_MAX_UPLOAD_SIZE — максимальный размер изображения (по умолчанию 20 MB)
	maxUpload, err := getEnvInt64("PF_MAX_UPLOAD_SIZE", 20*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("PF_MAX_UPLOAD_SIZE: %w", err)
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("PF_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}
	cfg.MaxUploadSize = maxUpload

	// PF_STORAGE_TIMEOUT — таймаут записи в хранилище (по умолчанию 5s)
	cfg.StorageTimeout, err = getEnvDuration("PF_STORAGE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PF_STORAGE_TIMEOUT: %w", err)
	}

	// PF_LOGIN_RATE_LIMIT — попыток входа с адреса за окно (по умолчанию 5)
	cfg.LoginRateLimit, err = getEnvInt("PF_LOGIN_RATE_LIMIT", 5)
	if err != nil {
		return nil, fmt.Errorf("PF_LOGIN_RATE_LIMIT: %w", err)
	}
	if cfg.LoginRateLimit <= 0 {
		return nil, fmt.Errorf("PF_LOGIN_RATE_LIMIT: значение должно быть положительным")
	}

	// PF_LOGIN_RATE_WINDOW — окно подсчёта попыток входа (по умолчанию 60s)
	cfg.LoginRateWindow, err = getEnvDuration("PF_LOGIN_RATE_WINDOW", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PF_LOGIN_RATE_WINDOW: %w", err)
	}

	// PF_UPLOAD_RATE_LIMIT — загрузок на тенанта за окно (по умолчанию 20)
	cfg.UploadRateLimit, err = getEnvInt("PF_UPLOAD_RATE_LIMIT", 20)
	if err != nil {
		return nil, fmt.Errorf("PF_UPLOAD_RATE_LIMIT: %w", err)
	}
	if cfg.UploadRateLimit <= 0 {
		return nil, fmt.Errorf("PF_UPLOAD_RATE_LIMIT: значение должно быть положительным")
	}

	// PF_UPLOAD_RATE_WINDOW — окно подсчёта загрузок (по умолчанию 1h)
	cfg.UploadRateWindow, err = getEnvDuration("PF_UPLOAD_RATE_WINDOW", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PF_UPLOAD_RATE_WINDOW: %w", err)
	}

	// PF_VISION_URL — URL сервиса описания (опционально)
	cfg.VisionURL = getEnvDefault("PF_VISION_URL", "")

	// PF_VISION_API_KEY — API-ключ сервиса описания (опционально)
	cfg.VisionAPIKey = getEnvDefault("PF_VISION_API_KEY", "")

	// PF_VISION_MODEL — модель сервиса описания
	cfg.VisionModel = getEnvDefault("PF_VISION_MODEL", "claude-3-opus-20240229")

	// PF_VISION_TIMEOUT — таймаут вызова сервиса описания (по умолчанию 10s)
	cfg.VisionTimeout, err = getEnvDuration("PF_VISION_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PF_VISION_TIMEOUT: %w", err)
	}

	// PF_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PF_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PF_LOG_LEVEL: %w", err)
	}

	// PF_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PF_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PF_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// PF_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("PF_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PF_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// PF_DEPHEALTH_GROUP — имя группы в метриках topologymetrics
	cfg.DephealthGroup = getEnvDefault("PF_DEPHEALTH_GROUP", "portfolio-api")

	// DEPHEALTH_NAME — имя владельца пода для метки name в topologymetrics
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "portfolio-api")

	// PF_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PF_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PF_SHUTDOWN_TIMEOUT: %w", err)
	}

	// PF_ADMIN_HANDLE / PF_ADMIN_SECRET — начальный администратор (опционально).
	// Задаются парой: один без другого — ошибка конфигурации.
	cfg.AdminHandle = getEnvDefault("PF_ADMIN_HANDLE", "")
	cfg.AdminSecret = getEnvDefault("PF_ADMIN_SECRET", "")
	if (cfg.AdminHandle == "") != (cfg.AdminSecret == "") {
		return nil, fmt.Errorf("PF_ADMIN_HANDLE и PF_ADMIN_SECRET задаются вместе")
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
