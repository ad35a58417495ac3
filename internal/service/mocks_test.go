package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"bondspread/internal/models"
	"bondspread/internal/repository"
)

var ErrMockDatabase = errors.New("mock database error")

// ============ Mock Bond Repository ============

// MockBondRepository мок для BondRepositoryInterface
type MockBondRepository struct {
	bonds     map[string]*models.Bond
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	mu        sync.RWMutex
}

// NewMockBondRepository создает новый мок репозитория облигаций
func NewMockBondRepository() *MockBondRepository {
	return &MockBondRepository{
		bonds: make(map[string]*models.Bond),
	}
}

func (m *MockBondRepository) Create(bond *models.Bond) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.bonds[bond.ISIN]; exists {
		return repository.ErrBondExists
	}

	stored := *bond
	m.bonds[bond.ISIN] = &stored
	return nil
}

func (m *MockBondRepository) GetByISIN(isin string) (*models.Bond, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	if bond, exists := m.bonds[isin]; exists {
		copied := *bond
		return &copied, nil
	}
	return nil, repository.ErrBondNotFound
}

func (m *MockBondRepository) GetAll() ([]*models.Bond, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	result := make([]*models.Bond, 0, len(m.bonds))
	for _, b := range m.bonds {
		copied := *b
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ISIN < result[j].ISIN })
	return result, nil
}

func (m *MockBondRepository) GetFavorites() ([]*models.Bond, error) {
	all, err := m.GetAll()
	if err != nil {
		return nil, err
	}

	result := make([]*models.Bond, 0, len(all))
	for _, b := range all {
		if b.IsFavorite {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *MockBondRepository) GetActive(asOf time.Time) ([]*models.Bond, error) {
	all, err := m.GetAll()
	if err != nil {
		return nil, err
	}

	result := make([]*models.Bond, 0, len(all))
	for _, b := range all {
		if b.MaturityDate.After(asOf) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *MockBondRepository) UpdateMarketData(isin string, price, ytm, duration float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}

	bond, exists := m.bonds[isin]
	if !exists {
		return repository.ErrBondNotFound
	}
	bond.LastPrice = &price
	bond.LastYTM = &ytm
	bond.DurationYears = &duration
	return nil
}

func (m *MockBondRepository) SetFavorite(isin string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}

	bond, exists := m.bonds[isin]
	if !exists {
		return repository.ErrBondNotFound
	}
	bond.IsFavorite = favorite
	return nil
}

func (m *MockBondRepository) Delete(isin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}

	if _, exists := m.bonds[isin]; !exists {
		return repository.ErrBondNotFound
	}
	delete(m.bonds, isin)
	return nil
}

func (m *MockBondRepository) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bonds), nil
}

func (m *MockBondRepository) ExistsByISIN(isin string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.bonds[isin]
	return exists, nil
}

// SetError устанавливает ошибку для указанной операции
func (m *MockBondRepository) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch operation {
	case "create":
		m.createErr = err
	case "get":
		m.getErr = err
	case "update":
		m.updateErr = err
	case "delete":
		m.deleteErr = err
	}
}

// ============ Mock Spread Repository ============

// MockSpreadRepository мок для SpreadRepositoryInterface
type MockSpreadRepository struct {
	series    map[string][]models.SpreadObservation
	insertErr error
	getErr    error
	nextID    int64
	mu        sync.RWMutex
}

// NewMockSpreadRepository создает новый мок репозитория спредов
func NewMockSpreadRepository() *MockSpreadRepository {
	return &MockSpreadRepository{
		series: make(map[string][]models.SpreadObservation),
		nextID: 1,
	}
}

func (m *MockSpreadRepository) Insert(obs *models.SpreadObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return m.insertErr
	}

	obs.ID = m.nextID
	m.nextID++
	m.series[obs.PairName] = append(m.series[obs.PairName], *obs)
	return nil
}

func (m *MockSpreadRepository) InsertBatch(observations []models.SpreadObservation) error {
	for i := range observations {
		if err := m.Insert(&observations[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockSpreadRepository) GetSeries(pairName string, from, to time.Time) ([]models.SpreadObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	var result []models.SpreadObservation
	for _, obs := range m.series[pairName] {
		if !obs.Timestamp.Before(from) && !obs.Timestamp.After(to) {
			result = append(result, obs)
		}
	}
	return result, nil
}

func (m *MockSpreadRepository) GetLatest(pairName string) (*models.SpreadObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	series := m.series[pairName]
	if len(series) == 0 {
		return nil, repository.ErrObservationNotFound
	}
	last := series[len(series)-1]
	return &last, nil
}

func (m *MockSpreadRepository) GetSpreadValues(pairName string, from, to time.Time) ([]float64, error) {
	series, err := m.GetSeries(pairName, from, to)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(series))
	for i, obs := range series {
		values[i] = obs.SpreadBP
	}
	return values, nil
}

func (m *MockSpreadRepository) CountByPair(pairName string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.series[pairName]), nil
}

func (m *MockSpreadRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for pair, series := range m.series {
		kept := series[:0]
		for _, obs := range series {
			if obs.Timestamp.Before(cutoff) {
				removed++
			} else {
				kept = append(kept, obs)
			}
		}
		m.series[pair] = kept
	}
	return removed, nil
}

// SetError устанавливает ошибку для указанной операции
func (m *MockSpreadRepository) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch operation {
	case "insert":
		m.insertErr = err
	case "get":
		m.getErr = err
	}
}

// SeedSeries заполняет историю пары напрямую (для настройки тестов).
// Наблюдения датируются последовательными днями, заканчивая сегодняшним.
func (m *MockSpreadRepository) SeedSeries(pairName string, spreads []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now().UTC().AddDate(0, 0, -(len(spreads) - 1))
	series := make([]models.SpreadObservation, len(spreads))
	for i, bp := range spreads {
		series[i] = models.SpreadObservation{
			ID:        m.nextID,
			PairName:  pairName,
			Timestamp: start.AddDate(0, 0, i),
			YTMLong:   16.0 + bp/100,
			YTMShort:  16.0,
			SpreadBP:  bp,
		}
		m.nextID++
	}
	m.series[pairName] = series
}

// ============ Mock Signal Repository ============

// MockSignalRepository мок для SignalRepositoryInterface
type MockSignalRepository struct {
	signals   []models.TradingSignal
	insertErr error
	getErr    error
	nextID    int64
	mu        sync.RWMutex
}

// NewMockSignalRepository создает новый мок репозитория сигналов
func NewMockSignalRepository() *MockSignalRepository {
	return &MockSignalRepository{nextID: 1}
}

func (m *MockSignalRepository) Insert(signal *models.TradingSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return m.insertErr
	}

	signal.ID = m.nextID
	m.nextID++
	m.signals = append(m.signals, *signal)
	return nil
}

func (m *MockSignalRepository) GetLatestByPair(pairName string) (*models.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	for i := len(m.signals) - 1; i >= 0; i-- {
		if m.signals[i].PairName == pairName {
			signal := m.signals[i]
			return &signal, nil
		}
	}
	return nil, repository.ErrSignalNotFound
}

func (m *MockSignalRepository) GetActive(now time.Time) ([]models.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	var result []models.TradingSignal
	for _, s := range m.signals {
		if s.IsActive(now) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *MockSignalRepository) GetByPair(pairName string, limit int) ([]models.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	var result []models.TradingSignal
	for i := len(m.signals) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if m.signals[i].PairName == pairName {
			result = append(result, m.signals[i])
		}
	}
	return result, nil
}

func (m *MockSignalRepository) DeleteExpired(before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.signals[:0]
	var removed int64
	for _, s := range m.signals {
		if s.ExpiresAt != nil && s.ExpiresAt.Before(before) {
			removed++
		} else {
			kept = append(kept, s)
		}
	}
	m.signals = kept
	return removed, nil
}

// SetError устанавливает ошибку для указанной операции
func (m *MockSignalRepository) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch operation {
	case "insert":
		m.insertErr = err
	case "get":
		m.getErr = err
	}
}

// Count возвращает число сохранённых сигналов
func (m *MockSignalRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.signals)
}

// ============ Mock Backtest Repository ============

// MockBacktestRepository мок для BacktestRepositoryInterface
type MockBacktestRepository struct {
	runs      map[int64]models.BacktestResult
	positions map[int64][]models.Position
	saveErr   error
	getErr    error
	nextID    int64
	mu        sync.RWMutex
}

// NewMockBacktestRepository создает новый мок репозитория бэктестов
func NewMockBacktestRepository() *MockBacktestRepository {
	return &MockBacktestRepository{
		runs:      make(map[int64]models.BacktestResult),
		positions: make(map[int64][]models.Position),
		nextID:    1,
	}
}

func (m *MockBacktestRepository) SaveRun(result *models.BacktestResult, startedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return 0, m.saveErr
	}

	runID := m.nextID
	m.nextID++
	m.runs[runID] = *result
	m.positions[runID] = append([]models.Position(nil), result.Positions...)
	return runID, nil
}

func (m *MockBacktestRepository) GetRun(runID int64) (*models.BacktestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	run, exists := m.runs[runID]
	if !exists {
		return nil, repository.ErrBacktestNotFound
	}
	run.Positions = nil
	return &run, nil
}

func (m *MockBacktestRepository) GetPositions(runID int64) ([]models.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.positions[runID], nil
}

func (m *MockBacktestRepository) GetRecentRuns(pairName string, limit int) ([]models.BacktestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	var result []models.BacktestResult
	for id := m.nextID - 1; id >= 1 && (limit <= 0 || len(result) < limit); id-- {
		run, exists := m.runs[id]
		if !exists {
			continue
		}
		if pairName == "" || strings.EqualFold(run.PairName, pairName) {
			result = append(result, run)
		}
	}
	return result, nil
}

func (m *MockBacktestRepository) DeleteRun(runID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[runID]; !exists {
		return repository.ErrBacktestNotFound
	}
	delete(m.runs, runID)
	delete(m.positions, runID)
	return nil
}

// SetError устанавливает ошибку для указанной операции
func (m *MockBacktestRepository) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch operation {
	case "save":
		m.saveErr = err
	case "get":
		m.getErr = err
	}
}

// ============ Mock Broadcaster ============

// MockBroadcaster мок для SignalBroadcaster
type MockBroadcaster struct {
	signals   []models.TradingSignal
	spreads   []string
	backtests []int64
	mu        sync.Mutex
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) BroadcastSignalUpdate(signal *models.TradingSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, *signal)
}

func (m *MockBroadcaster) BroadcastSpreadUpdate(pairName string, spreadBP float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spreads = append(m.spreads, pairName)
}

func (m *MockBroadcaster) BroadcastBacktestComplete(runID int64, result *models.BacktestResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backtests = append(m.backtests, runID)
}

func (m *MockBroadcaster) SignalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.signals)
}

func (m *MockBroadcaster) SpreadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.spreads)
}

func (m *MockBroadcaster) BacktestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.backtests)
}

// ============ Mock Exporter ============

// MockExporter мок для SignalExporter.
// Доставленные сигналы отдаются через канал: доставка идёт
// в отдельной горутине, и тестам нужна синхронизация.
type MockExporter struct {
	enabled   bool
	err       error
	Delivered chan models.TradingSignal
}

func NewMockExporter(enabled bool) *MockExporter {
	return &MockExporter{
		enabled:   enabled,
		Delivered: make(chan models.TradingSignal, 16),
	}
}

func (m *MockExporter) Enabled() bool {
	return m.enabled
}

func (m *MockExporter) DeliverSignal(ctx context.Context, signal models.TradingSignal) error {
	if m.err != nil {
		return m.err
	}
	m.Delivered <- signal
	return nil
}

// Проверяем, что моки реализуют интерфейсы
var _ BondRepositoryInterface = (*MockBondRepository)(nil)
var _ SpreadRepositoryInterface = (*MockSpreadRepository)(nil)
var _ SignalRepositoryInterface = (*MockSignalRepository)(nil)
var _ BacktestRepositoryInterface = (*MockBacktestRepository)(nil)
var _ SignalBroadcaster = (*MockBroadcaster)(nil)
var _ SignalExporter = (*MockExporter)(nil)
