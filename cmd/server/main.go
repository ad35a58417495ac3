package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"bondspread/internal/api"
	"bondspread/internal/config"
	"bondspread/internal/export"
	"bondspread/internal/models"
	"bondspread/internal/quant"
	"bondspread/internal/repository"
	"bondspread/internal/service"
	"bondspread/internal/websocket"
	"bondspread/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Логгер поднимается сразу после конфига; до этого момента
	// падаем через стандартный log
	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()),
			zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database",
		zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Инициализация репозиториев
	bondRepo := repository.NewBondRepository(db)
	spreadRepo := repository.NewSpreadRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	backtestRepo := repository.NewBacktestRepository(db)

	// WebSocket hub для real-time рассылки
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Вебхук-доставка сигналов (пустой URL - выключена)
	sender := export.NewWebhookSender(cfg.Export.WebhookURL, cfg.Export.WebhookTimeout, logger)

	// Инициализация сервисов
	bondService := service.NewBondService(bondRepo, logger)
	analyticsService := service.NewAnalyticsService(
		spreadRepo,
		signalRepo,
		hub,
		sender,
		cfg.Analytics,
		logger,
	)
	backtestService := service.NewBacktestService(
		spreadRepo,
		backtestRepo,
		hub,
		logger,
	)

	// Фоновый пересчёт: пары с активными сигналами обновляются
	// каждые RecalcInterval, пока сигналы не истекут
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	go runSignalRefresher(refreshCtx, analyticsService, cfg.Analytics.RecalcInterval, logger)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		BondService:      bondService,
		AnalyticsService: analyticsService,
		BacktestService:  backtestService,
		BacktestDefaults: backtestDefaults(cfg.Backtest),
		Hub:              hub,
		Logger:           logger,
		APITokenHash:     cfg.Security.APITokenHash,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", zap.Error(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopRefresh()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// backtestDefaults переводит конфигурацию окружения в параметры симулятора.
// Окно перцентилей не настраивается извне и берётся из умолчаний
func backtestDefaults(cfg config.BacktestConfig) quant.BacktestConfig {
	defaults := quant.DefaultBacktestConfig()
	defaults.InitialCapital = cfg.InitialCapital
	defaults.PositionSizePct = cfg.PositionSizePct
	defaults.CommissionRate = cfg.CommissionRate
	defaults.SpreadCostBP = cfg.SpreadCostBP
	defaults.MaxHoldingDays = cfg.MaxHoldingDays
	defaults.StopLossBP = cfg.StopLossBP
	defaults.TakeProfitBP = cfg.TakeProfitBP
	defaults.MinHistoryDays = cfg.MinHistoryDays
	return defaults
}

// runSignalRefresher периодически пересчитывает пары с активными сигналами.
//
// Новые пары появляются через POST /signals/{long}/{short}; рефрешер
// лишь поддерживает свежесть уже отслеживаемых, пока их сигналы живы
func runSignalRefresher(ctx context.Context, analytics service.AnalyticsServiceInterface, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			signals, err := analytics.ActiveSignals()
			if err != nil {
				logger.Warn("signal refresh: failed to list active signals", zap.Error(err))
				continue
			}

			// Пара может иметь несколько активных сигналов - пересчитываем один раз
			seen := make(map[string]bool, len(signals))
			for _, signal := range signals {
				if seen[signal.PairName] {
					continue
				}
				seen[signal.PairName] = true

				pair := models.BondPair{BondLong: signal.BondLong, BondShort: signal.BondShort}
				if _, err := analytics.EvaluatePair(pair); err != nil {
					logger.Warn("signal refresh failed",
						zap.String("pair", signal.PairName),
						zap.Error(err))
				}
			}
		}
	}
}
