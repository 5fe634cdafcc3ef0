package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Драйверы хранилища
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config структура конфигурации
type Config struct {
	TelegramBotToken string
	JWTSecret        string
	DatabaseURL      string
	DatabaseConfig   DatabaseConfig
	CloudinaryConfig CloudinaryConfig
	RedisConfig      RedisConfig
	NATSConfig       NATSConfig
	AppEnv           string // окружение приложения
	Port             string
	LogLevel         string

	// StorageDriver postgres или memory
	StorageDriver string
	SeedDemo      bool

	// AutoApproveItems публикует новые вещи без модерации
	AutoApproveItems bool
	AdminUsernames   []string

	SessionTTL     time.Duration
	BrowseCacheTTL time.Duration
	AuthRateLimit  float64
	AuthRateBurst  int
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	Folder       string
}

// Enabled сообщает, заданы ли ключи Cloudinary
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// RedisConfig содержит конфигурацию Redis. Пустой адрес отключает Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig содержит конфигурацию NATS. Пустой URL отключает события.
type NATSConfig struct {
	URL string
}

// LoadConfig загружает переменные из .env и окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env файл не найден, используем переменные окружения")
	}
	return FromEnv(), nil
}

// FromEnv строит конфигурацию из переменных окружения без проверки
func FromEnv() *Config {
	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "rewear_user"),
		Password: getEnv("PGPASSWORD", "rewear_pass"),
		Name:     getEnv("PGDATABASE", "rewear"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	// Формируем строку подключения к базе данных
	dbURL := getEnv("DATABASE_URL", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode))

	cloudinaryConfig := CloudinaryConfig{
		CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
		APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
		UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "rewear_items"),
		Folder:       getEnv("CLOUDINARY_FOLDER", "rewear/items"),
	}

	return &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		DatabaseURL:      dbURL,
		DatabaseConfig:   dbConfig,
		CloudinaryConfig: cloudinaryConfig,
		RedisConfig: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		NATSConfig:       NATSConfig{URL: getEnv("NATS_URL", "")},
		AppEnv:           getEnv("APP_ENV", "production"), // По умолчанию production
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		SeedDemo:         getEnvBool("SEED_DEMO", false),
		AutoApproveItems: getEnvBool("AUTO_APPROVE_ITEMS", false),
		AdminUsernames:   splitList(getEnv("ADMIN_USERNAMES", "")),
		SessionTTL:       getEnvDuration("SESSION_TTL", time.Hour),
		BrowseCacheTTL:   getEnvDuration("BROWSE_CACHE_TTL", 30*time.Second),
		AuthRateLimit:    getEnvFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst:    getEnvInt("AUTH_RATE_BURST", 10),
	}
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("не задан JWT_SECRET"))
	}
	switch c.StorageDriver {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("не задана строка подключения к базе данных"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("неизвестный STORAGE_DRIVER: %q", c.StorageDriver))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL должен быть положительным"))
	}
	return errors.Join(errs...)
}

// IsDevelopment сообщает, что приложение запущено локально
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

// IsAdmin проверяет, входит ли имя пользователя в список администраторов
func (c *Config) IsAdmin(username string) bool {
	if username == "" {
		return false
	}
	for _, name := range c.AdminUsernames {
		if strings.EqualFold(name, username) {
			return true
		}
	}
	return false
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
