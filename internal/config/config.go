package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Analytics AnalyticsConfig
	Backtest  BacktestConfig
	Export    ExportConfig
	Logging   LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности API
type SecurityConfig struct {
	// bcrypt-хеш токена для изменяющих запросов; пустой - доступ без токена
	APITokenHash string
}

// AnalyticsConfig - параметры расчёта спредов и сигналов
type AnalyticsConfig struct {
	LookbackDays      int     // окно статистики, торговых дней
	MinObservations   int     // меньше - NO_DATA
	MinConfidence     float64 // порог фильтрации сигналов
	ZScoreThreshold   float64 // порог z-score для сильных сигналов
	SignalExpiryHours int     // время жизни сигнала

	// Порог детектора аномалий в стандартных отклонениях
	AnomalyThresholdStd float64

	RecalcInterval time.Duration // период фонового пересчёта сигналов
}

// BacktestConfig - параметры симуляции
type BacktestConfig struct {
	InitialCapital  float64
	PositionSizePct float64
	CommissionRate  float64
	SpreadCostBP    float64
	MaxHoldingDays  int
	StopLossBP      float64
	TakeProfitBP    float64
	MinHistoryDays  int
}

// ExportConfig - доставка сигналов во внешние системы
type ExportConfig struct {
	WebhookURL     string        // пустой - вебхуки выключены
	WebhookTimeout time.Duration // таймаут HTTP-доставки
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "bondspread"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			APITokenHash: getEnv("API_TOKEN_HASH", ""),
		},
		Analytics: AnalyticsConfig{
			LookbackDays:        getEnvAsInt("LOOKBACK_DAYS", 252),
			MinObservations:     getEnvAsInt("MIN_OBSERVATIONS", 20),
			MinConfidence:       getEnvAsFloat("MIN_CONFIDENCE", 0.3),
			ZScoreThreshold:     getEnvAsFloat("ZSCORE_THRESHOLD", 1.5),
			SignalExpiryHours:   getEnvAsInt("SIGNAL_EXPIRY_HOURS", 4),
			AnomalyThresholdStd: getEnvAsFloat("ANOMALY_THRESHOLD_STD", 2.0),
			RecalcInterval:      getEnvAsDuration("RECALC_INTERVAL", 5*time.Minute),
		},
		Backtest: BacktestConfig{
			InitialCapital:  getEnvAsFloat("BT_INITIAL_CAPITAL", 1_000_000),
			PositionSizePct: getEnvAsFloat("BT_POSITION_SIZE_PCT", 0.25),
			CommissionRate:  getEnvAsFloat("BT_COMMISSION_RATE", 0.0005),
			SpreadCostBP:    getEnvAsFloat("BT_SPREAD_COST_BP", 0.5),
			MaxHoldingDays:  getEnvAsInt("BT_MAX_HOLDING_DAYS", 10),
			StopLossBP:      getEnvAsFloat("BT_STOP_LOSS_BP", 20),
			TakeProfitBP:    getEnvAsFloat("BT_TAKE_PROFIT_BP", 30),
			MinHistoryDays:  getEnvAsInt("BT_MIN_HISTORY_DAYS", 100),
		},
		Export: ExportConfig{
			WebhookURL:     getEnv("WEBHOOK_URL", ""),
			WebhookTimeout: getEnvAsDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Analytics.LookbackDays < 2 {
		return fmt.Errorf("LOOKBACK_DAYS must be at least 2, got %d", c.Analytics.LookbackDays)
	}

	if c.Analytics.MinObservations < 1 {
		return fmt.Errorf("MIN_OBSERVATIONS must be positive, got %d", c.Analytics.MinObservations)
	}

	if c.Analytics.MinConfidence < 0 || c.Analytics.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be in [0, 1], got %v", c.Analytics.MinConfidence)
	}

	if c.Analytics.ZScoreThreshold <= 0 {
		return fmt.Errorf("ZSCORE_THRESHOLD must be positive, got %v", c.Analytics.ZScoreThreshold)
	}

	if c.Analytics.AnomalyThresholdStd <= 0 {
		return fmt.Errorf("ANOMALY_THRESHOLD_STD must be positive, got %v", c.Analytics.AnomalyThresholdStd)
	}

	if c.Analytics.RecalcInterval <= 0 {
		return fmt.Errorf("RECALC_INTERVAL must be positive, got %v", c.Analytics.RecalcInterval)
	}

	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("BT_INITIAL_CAPITAL must be positive, got %v", c.Backtest.InitialCapital)
	}

	if c.Backtest.PositionSizePct <= 0 || c.Backtest.PositionSizePct > 1 {
		return fmt.Errorf("BT_POSITION_SIZE_PCT must be in (0, 1], got %v", c.Backtest.PositionSizePct)
	}

	if c.Backtest.MaxHoldingDays < 1 {
		return fmt.Errorf("BT_MAX_HOLDING_DAYS must be positive, got %d", c.Backtest.MaxHoldingDays)
	}

	if c.Export.WebhookTimeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive, got %v", c.Export.WebhookTimeout)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
