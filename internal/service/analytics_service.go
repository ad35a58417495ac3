package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bondspread/internal/config"
	"bondspread/internal/metrics"
	"bondspread/internal/models"
	"bondspread/internal/quant"
	"bondspread/pkg/utils"
)

// Ошибки аналитического сервиса
var (
	ErrNoObservations = errors.New("no spread observations for pair")
)

// AnalyticsService - оркестрация расчёта спредов и сигналов.
//
// Отвечает за:
// - Загрузку истории наблюдений пары из БД
// - Расчёт статистики спреда и классификацию в сигнал
// - Сохранение сигнала и рассылку его по WebSocket и вебхуку
// - Приём новых наблюдений спреда (доходности ног -> спред в бп)
//
// Ядро расчётов (internal/quant) само не логирует и не ходит в БД;
// весь ввод-вывод сосредоточен здесь.
type AnalyticsService struct {
	spreadRepo SpreadRepositoryInterface
	signalRepo SignalRepositoryInterface

	engine    *quant.SpreadEngine
	generator *quant.SignalGenerator

	broadcaster SignalBroadcaster
	exporter    SignalExporter

	cfg    config.AnalyticsConfig
	logger *zap.Logger
}

// NewAnalyticsService создает аналитический сервис.
// broadcaster и exporter опциональны (nil - функция выключена).
func NewAnalyticsService(
	spreadRepo SpreadRepositoryInterface,
	signalRepo SignalRepositoryInterface,
	broadcaster SignalBroadcaster,
	exporter SignalExporter,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}

	signalCfg := quant.SignalConfig{
		LookbackDays:      cfg.LookbackDays,
		MinObservations:   cfg.MinObservations,
		MinConfidence:     cfg.MinConfidence,
		ZScoreThreshold:   cfg.ZScoreThreshold,
		SignalExpiryHours: cfg.SignalExpiryHours,
	}

	return &AnalyticsService{
		spreadRepo:  spreadRepo,
		signalRepo:  signalRepo,
		engine:      quant.NewSpreadEngine(cfg.LookbackDays),
		generator:   quant.NewSignalGenerator(signalCfg),
		broadcaster: broadcaster,
		exporter:    exporter,
		cfg:         cfg,
		logger:      logger,
	}
}

// EvaluatePair пересчитывает сигнал по паре: загружает историю спредов
// за окно lookback, классифицирует, сохраняет и рассылает.
//
// Короткая история не ошибка: классификатор вернёт NO_DATA, и такой
// сигнал тоже сохраняется - потребители видят, что данных мало.
func (s *AnalyticsService) EvaluatePair(pair models.BondPair) (*models.TradingSignal, error) {
	window := utils.GetLastNDays(utils.TradingDaysToCalendar(s.cfg.LookbackDays))

	values, err := s.spreadRepo.GetSpreadValues(pair.Key(), window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load spread history for %s: %w", pair.Key(), err)
	}

	signal := s.generator.Generate(values, pair, time.Now().UTC())

	if err := s.signalRepo.Insert(&signal); err != nil {
		return nil, fmt.Errorf("failed to persist signal for %s: %w", pair.Key(), err)
	}

	metrics.SignalsGenerated.WithLabelValues(signal.SignalType).Inc()

	s.logger.Info("signal generated",
		zap.String("pair", signal.PairName),
		zap.String("signal_type", signal.SignalType),
		zap.Float64("confidence", signal.Confidence),
		zap.Float64("spread_bp", signal.SpreadBP))

	if s.broadcaster != nil {
		s.broadcaster.BroadcastSignalUpdate(&signal)
	}

	// Вебхук fire-and-forget: уходят только сигналы, прошедшие фильтр
	// по уверенности (порог MinConfidence, NEUTRAL и NO_DATA отброшены).
	// Ошибка доставки логируется и не влияет на результат пересчёта
	if s.exporter != nil && s.exporter.Enabled() {
		if passed := s.generator.Filter([]models.TradingSignal{signal}, 0, true); len(passed) == 1 {
			go s.deliverSignal(signal)
		}
	}

	return &signal, nil
}

func (s *AnalyticsService) deliverSignal(signal models.TradingSignal) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.exporter.DeliverSignal(ctx, signal); err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		s.logger.Warn("webhook delivery failed",
			zap.String("pair", signal.PairName),
			zap.Error(err))
		return
	}
	metrics.WebhookDeliveries.WithLabelValues("success").Inc()
}

// RecordObservation принимает свежие доходности ног, считает спред
// и сохраняет наблюдение.
func (s *AnalyticsService) RecordObservation(pair models.BondPair, ytmLong, ytmShort float64, timestamp time.Time) (*models.SpreadObservation, error) {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	obs := models.SpreadObservation{
		PairName:  pair.Key(),
		Timestamp: timestamp,
		YTMLong:   ytmLong,
		YTMShort:  ytmShort,
		SpreadBP:  s.engine.CalculateSpread(ytmLong, ytmShort),
	}

	if err := s.spreadRepo.Insert(&obs); err != nil {
		return nil, fmt.Errorf("failed to persist spread observation for %s: %w", pair.Key(), err)
	}

	metrics.SpreadObservationsTotal.Inc()

	if s.broadcaster != nil {
		s.broadcaster.BroadcastSpreadUpdate(obs.PairName, obs.SpreadBP)
	}

	return &obs, nil
}

// GetSpreadSeries возвращает наблюдения пары за интервал.
// Нулевые границы заменяются окном lookback из конфига.
func (s *AnalyticsService) GetSpreadSeries(pairName string, from, to time.Time) ([]models.SpreadObservation, error) {
	if from.IsZero() || to.IsZero() {
		window := utils.GetLastNDays(utils.TradingDaysToCalendar(s.cfg.LookbackDays))
		if from.IsZero() {
			from = window.Start
		}
		if to.IsZero() {
			to = window.End
		}
	}

	series, err := s.spreadRepo.GetSeries(pairName, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load spread series for %s: %w", pairName, err)
	}

	if series == nil {
		series = []models.SpreadObservation{}
	}
	return series, nil
}

// GetSpreadStats возвращает статистику спреда по хвостовому окну.
// lookback <= 0 берёт окно из конфига. Пустая история - ErrNoObservations.
func (s *AnalyticsService) GetSpreadStats(pairName string, lookback int) (models.SpreadStats, error) {
	if lookback <= 0 {
		lookback = s.cfg.LookbackDays
	}

	window := utils.GetLastNDays(utils.TradingDaysToCalendar(lookback))
	values, err := s.spreadRepo.GetSpreadValues(pairName, window.Start, window.End)
	if err != nil {
		return models.SpreadStats{}, fmt.Errorf("failed to load spread history for %s: %w", pairName, err)
	}

	stats, err := s.engine.CalculateSpreadStats(values, lookback)
	if err != nil {
		if errors.Is(err, quant.ErrEmptySeries) {
			return models.SpreadStats{}, fmt.Errorf("%w: %s", ErrNoObservations, pairName)
		}
		return models.SpreadStats{}, err
	}

	metrics.SpreadStatsComputed.Inc()
	return stats, nil
}

// GetAnomalies возвращает наблюдения, помеченные детектором аномалий.
// thresholdStd <= 0 берёт порог из конфига.
func (s *AnalyticsService) GetAnomalies(pairName string, thresholdStd float64) ([]models.SpreadObservation, error) {
	if thresholdStd <= 0 {
		thresholdStd = s.cfg.AnomalyThresholdStd
	}

	window := utils.GetLastNDays(utils.TradingDaysToCalendar(s.cfg.LookbackDays))
	series, err := s.spreadRepo.GetSeries(pairName, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load spread series for %s: %w", pairName, err)
	}

	values := make([]float64, len(series))
	for i, obs := range series {
		values[i] = obs.SpreadBP
	}

	flags := s.engine.DetectAnomalies(values, thresholdStd)

	anomalies := []models.SpreadObservation{}
	for i, flagged := range flags {
		if flagged {
			anomalies = append(anomalies, series[i])
		}
	}
	return anomalies, nil
}

// ActiveSignals возвращает сигналы, не истёкшие на текущий момент
func (s *AnalyticsService) ActiveSignals() ([]models.TradingSignal, error) {
	signals, err := s.signalRepo.GetActive(time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load active signals: %w", err)
	}

	if signals == nil {
		signals = []models.TradingSignal{}
	}
	return signals, nil
}

// RecentSignals возвращает последние сигналы пары
func (s *AnalyticsService) RecentSignals(pairName string, limit int) ([]models.TradingSignal, error) {
	signals, err := s.signalRepo.GetByPair(pairName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent signals for %s: %w", pairName, err)
	}

	if signals == nil {
		signals = []models.TradingSignal{}
	}
	return signals, nil
}
