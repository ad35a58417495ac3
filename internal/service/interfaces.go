package service

import (
	"context"
	"time"

	"bondspread/internal/models"
	"bondspread/internal/quant"
	"bondspread/internal/repository"
)

// BondRepositoryInterface определяет интерфейс репозитория облигаций
type BondRepositoryInterface interface {
	Create(bond *models.Bond) error
	GetByISIN(isin string) (*models.Bond, error)
	GetAll() ([]*models.Bond, error)
	GetFavorites() ([]*models.Bond, error)
	GetActive(asOf time.Time) ([]*models.Bond, error)
	UpdateMarketData(isin string, price, ytm, duration float64) error
	SetFavorite(isin string, favorite bool) error
	Delete(isin string) error
	Count() (int, error)
	ExistsByISIN(isin string) (bool, error)
}

// SpreadRepositoryInterface определяет интерфейс репозитория спредов
type SpreadRepositoryInterface interface {
	Insert(obs *models.SpreadObservation) error
	InsertBatch(observations []models.SpreadObservation) error
	GetSeries(pairName string, from, to time.Time) ([]models.SpreadObservation, error)
	GetLatest(pairName string) (*models.SpreadObservation, error)
	GetSpreadValues(pairName string, from, to time.Time) ([]float64, error)
	CountByPair(pairName string) (int, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// SignalRepositoryInterface определяет интерфейс репозитория сигналов
type SignalRepositoryInterface interface {
	Insert(signal *models.TradingSignal) error
	GetLatestByPair(pairName string) (*models.TradingSignal, error)
	GetActive(now time.Time) ([]models.TradingSignal, error)
	GetByPair(pairName string, limit int) ([]models.TradingSignal, error)
	DeleteExpired(before time.Time) (int64, error)
}

// BacktestRepositoryInterface определяет интерфейс репозитория бэктестов
type BacktestRepositoryInterface interface {
	SaveRun(result *models.BacktestResult, startedAt time.Time) (int64, error)
	GetRun(runID int64) (*models.BacktestResult, error)
	GetPositions(runID int64) ([]models.Position, error)
	GetRecentRuns(pairName string, limit int) ([]models.BacktestResult, error)
	DeleteRun(runID int64) error
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ BondRepositoryInterface = (*repository.BondRepository)(nil)
var _ SpreadRepositoryInterface = (*repository.SpreadRepository)(nil)
var _ SignalRepositoryInterface = (*repository.SignalRepository)(nil)
var _ BacktestRepositoryInterface = (*repository.BacktestRepository)(nil)

// ============ Интерфейсы коллабораторов ============

// SignalBroadcaster рассылает события подключенным WebSocket клиентам
type SignalBroadcaster interface {
	BroadcastSignalUpdate(signal *models.TradingSignal)
	BroadcastSpreadUpdate(pairName string, spreadBP float64)
	BroadcastBacktestComplete(runID int64, result *models.BacktestResult)
}

// SignalExporter доставляет сигналы во внешние системы (вебхук)
type SignalExporter interface {
	Enabled() bool
	DeliverSignal(ctx context.Context, signal models.TradingSignal) error
}

// ============ Интерфейсы сервисов для Dependency Injection ============

// AnalyticsServiceInterface определяет интерфейс аналитического сервиса
type AnalyticsServiceInterface interface {
	EvaluatePair(pair models.BondPair) (*models.TradingSignal, error)
	GetSpreadSeries(pairName string, from, to time.Time) ([]models.SpreadObservation, error)
	GetSpreadStats(pairName string, lookback int) (models.SpreadStats, error)
	GetAnomalies(pairName string, thresholdStd float64) ([]models.SpreadObservation, error)
	RecordObservation(pair models.BondPair, ytmLong, ytmShort float64, timestamp time.Time) (*models.SpreadObservation, error)
	ActiveSignals() ([]models.TradingSignal, error)
	RecentSignals(pairName string, limit int) ([]models.TradingSignal, error)
}

// BacktestServiceInterface определяет интерфейс сервиса бэктестов
type BacktestServiceInterface interface {
	RunPair(pairName string, config quant.BacktestConfig) (*BacktestRunResult, error)
	RunMultiPair(pairNames []string, config quant.BacktestConfig) (*MultiPairRunResult, error)
	GetRun(runID int64) (*models.BacktestResult, error)
	RecentRuns(pairName string, limit int) ([]models.BacktestResult, error)
}

// BondServiceInterface определяет интерфейс сервиса облигаций
type BondServiceInterface interface {
	CreateBond(req *CreateBondRequest) (*models.Bond, error)
	GetBond(isin string) (*models.Bond, error)
	ListBonds(favoritesOnly bool) ([]*models.Bond, error)
	SetFavorite(isin string, favorite bool) error
	DeleteBond(isin string) error
	EvaluatePrice(isin string, price float64, settlement time.Time, dirtyPrice bool) (*BondEvaluation, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ AnalyticsServiceInterface = (*AnalyticsService)(nil)
var _ BacktestServiceInterface = (*BacktestService)(nil)
var _ BondServiceInterface = (*BondService)(nil)
