package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/rajivgeraev/rewear-api/internal/cache"
	"github.com/rajivgeraev/rewear-api/internal/config"
	"github.com/rajivgeraev/rewear-api/internal/db"
	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/logger"
	"github.com/rajivgeraev/rewear-api/internal/metrics"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/models"
	"github.com/rajivgeraev/rewear-api/internal/ratelimit"
	"github.com/rajivgeraev/rewear-api/internal/services/auth"
	"github.com/rajivgeraev/rewear-api/internal/services/favorite"
	"github.com/rajivgeraev/rewear-api/internal/services/item"
	"github.com/rajivgeraev/rewear-api/internal/services/moderation"
	"github.com/rajivgeraev/rewear-api/internal/services/profile"
	"github.com/rajivgeraev/rewear-api/internal/services/swap"
	"github.com/rajivgeraev/rewear-api/internal/services/upload"
	"github.com/rajivgeraev/rewear-api/internal/session"
	"github.com/rajivgeraev/rewear-api/internal/store"
	"github.com/rajivgeraev/rewear-api/internal/store/memory"
	"github.com/rajivgeraev/rewear-api/internal/store/postgres"
	"github.com/rajivgeraev/rewear-api/internal/utils"
	"github.com/rajivgeraev/rewear-api/internal/validation"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}
	log := logger.Setup(logger.Config{Level: cfg.LogLevel, Environment: cfg.AppEnv})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Неверная конфигурация")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Хранилище
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("Ошибка инициализации хранилища")
	}
	defer st.Close()

	if cfg.SeedDemo {
		if err := store.SeedDemo(ctx, st); err != nil {
			log.Fatal().Err(err).Msg("Ошибка загрузки демо-данных")
		}
		log.Info().Msg("Демо-данные загружены")
	}

	m := metrics.New()
	v := validation.New()

	// Redis: кэш каталога и сессии. Без Redis сессии живут в памяти процесса.
	var (
		browseCache *cache.BrowseCache
		sessions    session.Store = session.NewMemoryStore()
		publishers  events.Fanout
	)
	if cfg.RedisConfig.Addr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisConfig.Addr, cfg.RedisConfig.Password, cfg.RedisConfig.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisConfig.Addr).Msg("Ошибка подключения к Redis")
		}
		defer closeRedis(rdb, log)

		browseCache = cache.NewBrowseCache(rdb, cfg.BrowseCacheTTL, logger.For("cache"), m.CacheCounter())
		sessions = session.NewRedisStore(rdb)
		publishers = append(publishers, browseCache.Invalidator())
	} else {
		log.Warn().Msg("REDIS_ADDR не задан: сессии хранятся в памяти, кэш каталога выключен")
	}

	// NATS: доменные события
	if cfg.NATSConfig.URL != "" {
		nc, err := events.Connect(cfg.NATSConfig.URL, logger.For("events"))
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSConfig.URL).Msg("Ошибка подключения к NATS")
		}
		defer nc.Close()
		publishers = append(publishers, nc)

		if cfg.IsDevelopment() {
			evLog := logger.For("events")
			if _, err := nc.Subscribe(func(e events.Event) {
				evLog.Debug().Str("type", string(e.Type)).Str("entity_id", e.EntityID.String()).Msg("Событие")
			}); err != nil {
				log.Warn().Err(err).Msg("Не удалось подписаться на события")
			}
		}
	}

	manager := session.NewManager(sessions, st, utils.NewJWTService(cfg.JWTSecret), cfg.SessionTTL,
		session.WithLogger(logger.For("session")),
		session.WithCounter(m.SessionCounter()),
		session.WithPublisher(publishers),
	)

	// Загрузка изображений
	var uploader upload.ImageUploader
	if cfg.CloudinaryConfig.Enabled() {
		cu, err := upload.NewCloudinaryUploader(cfg.CloudinaryConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("Ошибка инициализации Cloudinary")
		}
		uploader = cu
	}

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "ReWear API",
		ErrorHandler: middleware.ErrorHandler(logger.For("http")),
		BodyLimit:    (models.MaxImagesPerItem + 1) * upload.MaxFileSize,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// Настраиваем middleware для аутентификации
	authMiddleware := middleware.AuthMiddleware(manager)
	optionalAuth := middleware.OptionalAuth(manager)
	adminOnly := middleware.AdminOnly(cfg)
	authLimiter := ratelimit.New(cfg.AuthRateLimit, cfg.AuthRateBurst)
	defer authLimiter.Stop()

	// Создаём сервисы и регистрируем маршруты
	auth.NewAuthService(cfg, manager, v, logger.For("auth")).SetupRoutes(app, authLimiter.Middleware())
	item.NewItemService(cfg, st, browseCache, publishers, m, v, logger.For("items")).SetupRoutes(app, authMiddleware, optionalAuth)
	moderation.NewModerationService(st, publishers, m, logger.For("moderation")).SetupRoutes(app, authMiddleware, adminOnly)
	swap.NewSwapService(st, publishers, m, v, logger.For("swaps")).SetupRoutes(app, authMiddleware)
	favorite.NewFavoriteService(st, logger.For("favorites")).SetupRoutes(app, authMiddleware)
	profile.NewProfileService(st, v, logger.For("profile")).SetupRoutes(app, authMiddleware)
	upload.NewUploadService(cfg, uploader, logger.For("upload")).SetupRoutes(app, authMiddleware)

	go func() {
		<-ctx.Done()
		log.Info().Msg("Останавливаем сервер")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки сервера")
		}
	}()

	// Запускаем сервер
	log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("ReWear API запущен")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("Сервер остановлен с ошибкой")
	}
}

// openStore открывает хранилище по STORAGE_DRIVER
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StorageDriver == config.StorageMemory {
		return memory.New(), nil
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return postgres.New(pool), nil
}

func closeRedis(rdb *redis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("Ошибка закрытия Redis")
	}
}
