package handlers

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"bondspread/internal/models"
	"bondspread/internal/quant"
	"bondspread/internal/repository"
	"bondspread/internal/service"
)

// ErrMockDatabase имитирует сбой базы данных в тестах
var ErrMockDatabase = errors.New("mock database error")

// ============ MockBondService ============

type MockBondService struct {
	mu     sync.RWMutex
	bonds  map[string]*models.Bond
	errors map[string]error
}

func NewMockBondService() *MockBondService {
	return &MockBondService{
		bonds:  make(map[string]*models.Bond),
		errors: make(map[string]error),
	}
}

// SetError устанавливает ошибку для операции: create, get, list, delete, evaluate
func (m *MockBondService) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[operation] = err
}

func (m *MockBondService) CreateBond(req *service.CreateBondRequest) (*models.Bond, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errors["create"]; err != nil {
		return nil, err
	}

	bond, err := models.NewBond(req.ISIN, req.Name, req.FaceValue, req.CouponRate, req.CouponFrequency, req.MaturityDate)
	if err != nil {
		return nil, err
	}
	if _, exists := m.bonds[bond.ISIN]; exists {
		return nil, fmt.Errorf("%w: %s", service.ErrBondExists, bond.ISIN)
	}

	m.bonds[bond.ISIN] = &bond
	return &bond, nil
}

func (m *MockBondService) GetBond(isin string) (*models.Bond, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["get"]; err != nil {
		return nil, err
	}

	bond, ok := m.bonds[isin]
	if !ok {
		return nil, fmt.Errorf("%w: %s", service.ErrBondNotFound, isin)
	}
	return bond, nil
}

func (m *MockBondService) ListBonds(favoritesOnly bool) ([]*models.Bond, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["list"]; err != nil {
		return nil, err
	}

	bonds := []*models.Bond{}
	for _, bond := range m.bonds {
		if favoritesOnly && !bond.IsFavorite {
			continue
		}
		bonds = append(bonds, bond)
	}
	return bonds, nil
}

func (m *MockBondService) SetFavorite(isin string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bond, ok := m.bonds[isin]
	if !ok {
		return fmt.Errorf("%w: %s", service.ErrBondNotFound, isin)
	}
	bond.IsFavorite = favorite
	return nil
}

func (m *MockBondService) DeleteBond(isin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errors["delete"]; err != nil {
		return err
	}

	if _, ok := m.bonds[isin]; !ok {
		return fmt.Errorf("%w: %s", service.ErrBondNotFound, isin)
	}
	delete(m.bonds, isin)
	return nil
}

func (m *MockBondService) EvaluatePrice(isin string, price float64, settlement time.Time, dirtyPrice bool) (*service.BondEvaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["evaluate"]; err != nil {
		return nil, err
	}

	bond, ok := m.bonds[isin]
	if !ok {
		return nil, fmt.Errorf("%w: %s", service.ErrBondNotFound, isin)
	}

	return &service.BondEvaluation{
		ISIN:             bond.ISIN,
		Price:            price,
		Settlement:       settlement,
		YTM:              17.2,
		Duration:         1.8,
		ModifiedDuration: 1.65,
		Convexity:        4.1,
	}, nil
}

// ============ MockAnalyticsService ============

type MockAnalyticsService struct {
	mu sync.RWMutex

	signal    *models.TradingSignal
	stats     models.SpreadStats
	hasStats  bool
	series    []models.SpreadObservation
	anomalies []models.SpreadObservation
	active    []models.TradingSignal
	recent    []models.TradingSignal

	errors map[string]error
}

func NewMockAnalyticsService() *MockAnalyticsService {
	return &MockAnalyticsService{
		errors: make(map[string]error),
	}
}

// SetError устанавливает ошибку для операции:
// evaluate, record, series, stats, anomalies, active, recent
func (m *MockAnalyticsService) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[operation] = err
}

func (m *MockAnalyticsService) SetSignal(signal *models.TradingSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signal = signal
}

func (m *MockAnalyticsService) SetStats(stats models.SpreadStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
	m.hasStats = true
}

func (m *MockAnalyticsService) SetSeries(series []models.SpreadObservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series = series
}

func (m *MockAnalyticsService) SetAnomalies(anomalies []models.SpreadObservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies = anomalies
}

func (m *MockAnalyticsService) SetActive(signals []models.TradingSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = signals
}

func (m *MockAnalyticsService) SetRecent(signals []models.TradingSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = signals
}

func (m *MockAnalyticsService) EvaluatePair(pair models.BondPair) (*models.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["evaluate"]; err != nil {
		return nil, err
	}
	if m.signal != nil {
		return m.signal, nil
	}

	signal := models.TradingSignal{
		PairName:   pair.Key(),
		BondLong:   pair.BondLong,
		BondShort:  pair.BondShort,
		SignalType: models.SignalNeutral,
		Direction:  models.DirectionFlat,
		Timestamp:  time.Now().UTC(),
	}
	return &signal, nil
}

func (m *MockAnalyticsService) RecordObservation(pair models.BondPair, ytmLong, ytmShort float64, timestamp time.Time) (*models.SpreadObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["record"]; err != nil {
		return nil, err
	}

	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	return &models.SpreadObservation{
		ID:        1,
		PairName:  pair.Key(),
		Timestamp: timestamp,
		YTMLong:   ytmLong,
		YTMShort:  ytmShort,
		SpreadBP:  quant.NewSpreadEngine(quant.DefaultLookback).CalculateSpread(ytmLong, ytmShort),
	}, nil
}

func (m *MockAnalyticsService) GetSpreadSeries(pairName string, from, to time.Time) ([]models.SpreadObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["series"]; err != nil {
		return nil, err
	}
	if m.series == nil {
		return []models.SpreadObservation{}, nil
	}
	return m.series, nil
}

func (m *MockAnalyticsService) GetSpreadStats(pairName string, lookback int) (models.SpreadStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["stats"]; err != nil {
		return models.SpreadStats{}, err
	}
	if !m.hasStats {
		return models.SpreadStats{}, fmt.Errorf("%w: %s", service.ErrNoObservations, pairName)
	}
	return m.stats, nil
}

func (m *MockAnalyticsService) GetAnomalies(pairName string, thresholdStd float64) ([]models.SpreadObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["anomalies"]; err != nil {
		return nil, err
	}
	if m.anomalies == nil {
		return []models.SpreadObservation{}, nil
	}
	return m.anomalies, nil
}

func (m *MockAnalyticsService) ActiveSignals() ([]models.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["active"]; err != nil {
		return nil, err
	}
	if m.active == nil {
		return []models.TradingSignal{}, nil
	}
	return m.active, nil
}

func (m *MockAnalyticsService) RecentSignals(pairName string, limit int) ([]models.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["recent"]; err != nil {
		return nil, err
	}
	if m.recent == nil {
		return []models.TradingSignal{}, nil
	}
	if limit < len(m.recent) {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

// ============ MockBacktestService ============

type MockBacktestService struct {
	mu sync.RWMutex

	runs   map[int64]*models.BacktestResult
	nextID int64

	errors map[string]error
}

func NewMockBacktestService() *MockBacktestService {
	return &MockBacktestService{
		runs:   make(map[int64]*models.BacktestResult),
		nextID: 1,
		errors: make(map[string]error),
	}
}

// SetError устанавливает ошибку для операции: run, multi, get, recent
func (m *MockBacktestService) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[operation] = err
}

// SeedRun подкладывает готовый прогон и возвращает его ID
func (m *MockBacktestService) SeedRun(result models.BacktestResult) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	runID := m.nextID
	m.nextID++
	m.runs[runID] = &result
	return runID
}

func (m *MockBacktestService) RunPair(pairName string, config quant.BacktestConfig) (*service.BacktestRunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errors["run"]; err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	result := models.BacktestResult{
		PairName:    pairName,
		TotalTrades: 3,
		WinRate:     66.7,
		TotalPnlBP:  12.5,
	}

	runID := m.nextID
	m.nextID++
	m.runs[runID] = &result

	return &service.BacktestRunResult{RunID: runID, Result: result}, nil
}

func (m *MockBacktestService) RunMultiPair(pairNames []string, config quant.BacktestConfig) (*service.MultiPairRunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errors["multi"]; err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	results := make(map[string]models.BacktestResult, len(pairNames))
	runIDs := make(map[string]int64, len(pairNames))
	for _, pairName := range pairNames {
		result := models.BacktestResult{PairName: pairName, TotalTrades: 1}
		runID := m.nextID
		m.nextID++
		m.runs[runID] = &result
		results[pairName] = result
		runIDs[pairName] = runID
	}

	return &service.MultiPairRunResult{
		Results: results,
		RunIDs:  runIDs,
		Metrics: models.StrategyMetrics{TotalPairs: len(results)},
	}, nil
}

func (m *MockBacktestService) GetRun(runID int64) (*models.BacktestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["get"]; err != nil {
		return nil, err
	}

	result, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: run %d", repository.ErrBacktestNotFound, runID)
	}
	return result, nil
}

func (m *MockBacktestService) RecentRuns(pairName string, limit int) ([]models.BacktestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.errors["recent"]; err != nil {
		return nil, err
	}

	runs := []models.BacktestResult{}
	for runID := m.nextID - 1; runID >= 1 && len(runs) < limit; runID-- {
		result, ok := m.runs[runID]
		if !ok {
			continue
		}
		if pairName != "" && result.PairName != pairName {
			continue
		}
		runs = append(runs, *result)
	}
	return runs, nil
}

// Проверяем, что mocks реализуют интерфейсы сервисов
var _ service.BondServiceInterface = (*MockBondService)(nil)
var _ service.AnalyticsServiceInterface = (*MockAnalyticsService)(nil)
var _ service.BacktestServiceInterface = (*MockBacktestService)(nil)
