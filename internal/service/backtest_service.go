package service

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"bondspread/internal/metrics"
	"bondspread/internal/models"
	"bondspread/internal/quant"
	"bondspread/pkg/utils"
)

// BacktestRunResult - итог одиночного прогона с идентификатором в БД
type BacktestRunResult struct {
	RunID  int64                 `json:"run_id"`
	Result models.BacktestResult `json:"result"`
}

// MultiPairRunResult - итог мультипарного прогона
type MultiPairRunResult struct {
	Results map[string]models.BacktestResult `json:"results"`
	RunIDs  map[string]int64                 `json:"run_ids"`
	Metrics models.StrategyMetrics           `json:"metrics"`
}

// BacktestService - оркестрация прогонов симулятора.
//
// Отвечает за:
// - Загрузку истории спредов из БД
// - Запуск симулятора (по одному экземпляру на пару)
// - Параллельный обсчёт мультипарных прогонов
// - Сохранение результатов и рассылку уведомлений о завершении
type BacktestService struct {
	spreadRepo   SpreadRepositoryInterface
	backtestRepo BacktestRepositoryInterface

	broadcaster SignalBroadcaster
	logger      *zap.Logger
}

// NewBacktestService создает сервис бэктестов.
// broadcaster опционален (nil - уведомления выключены).
func NewBacktestService(
	spreadRepo SpreadRepositoryInterface,
	backtestRepo BacktestRepositoryInterface,
	broadcaster SignalBroadcaster,
	logger *zap.Logger,
) *BacktestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestService{
		spreadRepo:   spreadRepo,
		backtestRepo: backtestRepo,
		broadcaster:  broadcaster,
		logger:       logger,
	}
}

// RunPair прогоняет бэктест по одной паре и сохраняет результат.
//
// Пара без наблюдений - ErrNoObservations. Короткая история не ошибка:
// симулятор вернёт пустой результат, и он тоже сохраняется.
func (s *BacktestService) RunPair(pairName string, config quant.BacktestConfig) (*BacktestRunResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	series, err := s.loadHistory(pairName)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoObservations, pairName)
	}

	startedAt := time.Now().UTC()
	result := quant.NewBacktester(config).Run(series, pairName)

	runID, err := s.backtestRepo.SaveRun(&result, startedAt)
	if err != nil {
		metrics.BacktestRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist backtest run for %s: %w", pairName, err)
	}

	if result.IsEmpty() {
		metrics.BacktestRunsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.BacktestRunsTotal.WithLabelValues("success").Inc()
	}
	metrics.BacktestTradesTotal.Add(float64(result.TotalTrades))

	s.logger.Info("backtest completed",
		zap.String("pair", pairName),
		zap.Int64("run_id", runID),
		zap.Int("trades", result.TotalTrades),
		zap.Float64("total_pnl_bp", result.TotalPnlBP),
		zap.String("elapsed", utils.FormatDuration(time.Since(startedAt))))

	if s.broadcaster != nil {
		s.broadcaster.BroadcastBacktestComplete(runID, &result)
	}

	return &BacktestRunResult{RunID: runID, Result: result}, nil
}

// RunMultiPair прогоняет бэктест по нескольким парам параллельно.
//
// Прогоны независимы (свой симулятор и своё состояние на пару),
// поэтому обсчитываются по горутине на пару. Пары без данных
// пропускаются с предупреждением в логе, остальные сохраняются.
func (s *BacktestService) RunMultiPair(pairNames []string, config quant.BacktestConfig) (*MultiPairRunResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(pairNames) == 0 {
		return nil, fmt.Errorf("%w: no pairs requested", ErrNoObservations)
	}

	startedAt := time.Now().UTC()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]models.BacktestResult, len(pairNames))
	)

	for _, pairName := range pairNames {
		wg.Add(1)
		go func(pairName string) {
			defer wg.Done()

			series, err := s.loadHistory(pairName)
			if err != nil {
				s.logger.Warn("skipping pair: failed to load history",
					zap.String("pair", pairName), zap.Error(err))
				return
			}
			if len(series) == 0 {
				s.logger.Warn("skipping pair: no observations",
					zap.String("pair", pairName))
				return
			}

			result := quant.NewBacktester(config).Run(series, pairName)

			mu.Lock()
			results[pairName] = result
			mu.Unlock()
		}(pairName)
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: none of the requested pairs have data", ErrNoObservations)
	}

	// Сохранение последовательно: пул соединений БД не место для гонок
	// за порядок вставки
	runIDs := make(map[string]int64, len(results))
	for pairName, result := range results {
		result := result
		runID, err := s.backtestRepo.SaveRun(&result, startedAt)
		if err != nil {
			metrics.BacktestRunsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to persist backtest run for %s: %w", pairName, err)
		}
		runIDs[pairName] = runID

		if result.IsEmpty() {
			metrics.BacktestRunsTotal.WithLabelValues("empty").Inc()
		} else {
			metrics.BacktestRunsTotal.WithLabelValues("success").Inc()
		}
		metrics.BacktestTradesTotal.Add(float64(result.TotalTrades))
	}

	strategyMetrics := quant.NewBacktester(config).StrategyMetrics(results)

	s.logger.Info("multi-pair backtest completed",
		zap.Int("pairs", len(results)),
		zap.Int("total_trades", strategyMetrics.TotalTrades),
		zap.Float64("total_pnl_bp", strategyMetrics.TotalPnlBP),
		zap.String("elapsed", utils.FormatDuration(time.Since(startedAt))))

	return &MultiPairRunResult{
		Results: results,
		RunIDs:  runIDs,
		Metrics: strategyMetrics,
	}, nil
}

// GetRun возвращает сохранённый прогон вместе с позициями
func (s *BacktestService) GetRun(runID int64) (*models.BacktestResult, error) {
	result, err := s.backtestRepo.GetRun(runID)
	if err != nil {
		return nil, err
	}

	positions, err := s.backtestRepo.GetPositions(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions for run %d: %w", runID, err)
	}
	result.Positions = positions

	return result, nil
}

// RecentRuns возвращает последние прогоны (пустое имя пары - по всем)
func (s *BacktestService) RecentRuns(pairName string, limit int) ([]models.BacktestResult, error) {
	runs, err := s.backtestRepo.GetRecentRuns(pairName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent runs: %w", err)
	}

	if runs == nil {
		runs = []models.BacktestResult{}
	}
	return runs, nil
}

// loadHistory загружает всю сохранённую историю пары по возрастанию времени
func (s *BacktestService) loadHistory(pairName string) ([]models.SpreadObservation, error) {
	series, err := s.spreadRepo.GetSeries(pairName, time.Time{}, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load spread history for %s: %w", pairName, err)
	}
	return series, nil
}
