package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evo-faceit/arena-server/config"
	"github.com/evo-faceit/arena-server/db"
	"github.com/evo-faceit/arena-server/handlers"
	"github.com/evo-faceit/arena-server/lobby"
	"github.com/evo-faceit/arena-server/notify"
	"github.com/evo-faceit/arena-server/repositories"
	api "github.com/evo-faceit/arena-server/routes"
	"github.com/evo-faceit/arena-server/services"
	"github.com/evo-faceit/arena-server/storage"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const (
	dbConnectTimeout = 5 * time.Second
	shutdownTimeout  = 15 * time.Second
	loginTokenTTL    = 10 * time.Minute
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Хранилище скриншотов результатов (Cloudflare R2). Опционально:
	// без него результаты принимаются без картинок.
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewR2Uploader(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage is not configured, result screenshots will not be persisted")
	}
	screenshots := services.NewScreenshotStore(uploader, logger)

	// Внутренняя шина событий матчей
	bus, err := notify.StartEmbeddedBus(logger)
	if err != nil {
		logger.Error("failed to start notification bus", slog.Any("error", err))
		os.Exit(1)
	}
	defer bus.Close()
	logger.Info("notification bus started")

	// Telegram-уведомления вешаются на шину только при заданном токене
	telegramClient := notify.NewTelegramClient(cfg.TelegramBotToken, cfg.TelegramChatID)
	var consumer *notify.TelegramConsumer
	if cfg.EnableTelegram {
		consumer = notify.NewTelegramConsumer(telegramClient, logger)
		if err := consumer.Start(bus); err != nil {
			logger.Error("failed to start telegram consumer", slog.Any("error", err))
			os.Exit(1)
		}
		defer consumer.Stop()
		logger.Info("telegram notifications enabled", slog.String("chat_id", cfg.TelegramChatID))
	} else {
		logger.Info("telegram notifications disabled")
	}

	// WebSocket-хаб лобби
	hub := lobby.NewHub()
	go hub.Run()
	logger.Info("lobby hub started")

	// Репозитории
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	chatRepo := repositories.NewPostgresChatRepository(dbConn)

	// Сервисы
	loginStore := services.NewTelegramLoginStore(loginTokenTTL)
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo)
	statsService := services.NewStatsService(userRepo)
	chatService := services.NewChatService(chatRepo, matchRepo, userRepo, hub)
	matchService := services.NewMatchService(matchRepo, chatRepo, userRepo, bus, hub, screenshots, logger)
	logger.Info("services initialized")

	// Планировщик чистки просроченных login-токенов
	scheduler, err := services.NewScheduler(loginStore, logger)
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Обработчики HTTP
	h := api.Handlers{
		Auth:      handlers.NewAuthHandler(authService, userService, loginStore, cfg.JWTSecretKey, cfg.WebAppBaseURL),
		Match:     handlers.NewMatchHandler(matchService),
		Chat:      handlers.NewChatHandler(chatService),
		User:      handlers.NewUserHandler(userService),
		Stats:     handlers.NewStatsHandler(statsService),
		Telegram:  handlers.NewTelegramHandler(telegramClient, cfg.EnableTelegram),
		WebSocket: handlers.NewWebSocketHandler(hub, matchService),
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, h, cfg.JWTSecretKey, cfg.AllowedOrigins)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// Бот выдачи ссылок для входа: живёт рядом с сервером до сигнала.
	if cfg.EnableTelegram {
		loginBot := notify.NewLoginBot(telegramClient, loginStore, cfg.PublicBaseURL, logger)
		group.Go(func() error {
			loginBot.Run(groupCtx)
			return nil
		})
	}

	group.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			return server.Close()
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}
