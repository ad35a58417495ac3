package quant

import (
	"errors"
	"fmt"
	"sort"

	"bondspread/internal/models"
)

// ErrInvalidBacktestConfig возвращается Validate при параметрах,
// нарушающих инварианты симуляции (класс ошибок программиста)
var ErrInvalidBacktestConfig = errors.New("invalid backtest config")

// BacktestConfig - конфигурация симуляции.
//
// Создаётся явно и передаётся в NewBacktester; модульных
// экземпляров по умолчанию нет.
type BacktestConfig struct {
	InitialCapital  float64 // стартовый капитал в рублях
	PositionSizePct float64 // доля капитала на позицию
	CommissionRate  float64 // комиссия за сделку (0.0005 = 0.05%)
	SpreadCostBP    float64 // затраты на пересечение спреда, б.п.

	MaxHoldingDays int     // максимум календарных дней удержания
	StopLossBP     float64 // стоп-лосс, б.п.
	TakeProfitBP   float64 // тейк-профит, б.п.

	MinHistoryDays int // короче - пустой результат без ошибки

	PercentileWindow     int // окно скользящих перцентилей
	MinPercentilePeriods int // минимум наблюдений в окне
}

// DefaultBacktestConfig возвращает параметры по умолчанию
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital:       1_000_000,
		PositionSizePct:      0.25,
		CommissionRate:       0.0005,
		SpreadCostBP:         0.5,
		MaxHoldingDays:       10,
		StopLossBP:           20.0,
		TakeProfitBP:         30.0,
		MinHistoryDays:       100,
		PercentileWindow:     252,
		MinPercentilePeriods: 20,
	}
}

// Validate проверяет инварианты конфигурации
func (c BacktestConfig) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital %.2f", ErrInvalidBacktestConfig, c.InitialCapital)
	}
	if c.PositionSizePct <= 0 || c.PositionSizePct > 1 {
		return fmt.Errorf("%w: position size pct %.4f out of (0,1]", ErrInvalidBacktestConfig, c.PositionSizePct)
	}
	if c.CommissionRate < 0 {
		return fmt.Errorf("%w: negative commission rate", ErrInvalidBacktestConfig)
	}
	if c.StopLossBP < 0 || c.TakeProfitBP < 0 {
		return fmt.Errorf("%w: negative stop/take levels", ErrInvalidBacktestConfig)
	}
	if c.MaxHoldingDays <= 0 {
		return fmt.Errorf("%w: max holding days %d", ErrInvalidBacktestConfig, c.MaxHoldingDays)
	}
	if c.PercentileWindow < 2 || c.MinPercentilePeriods < 2 {
		return fmt.Errorf("%w: percentile window too small", ErrInvalidBacktestConfig)
	}
	return nil
}

// Backtester - симулятор стратегии возврата спреда к среднему.
//
// Состояния: неявный FLAT → OPEN → {CLOSED, STOPPED, TAKEN}.
// Одна открытая позиция на пару, без пирамидинга. Каждый прогон
// владеет собственным состоянием (капитал, позиция, кривая капитала),
// поэтому независимые прогоны по разным парам можно запускать
// параллельно - по одному экземпляру на пару.
type Backtester struct {
	config BacktestConfig
}

// NewBacktester создаёт симулятор с явной конфигурацией
func NewBacktester(config BacktestConfig) *Backtester {
	return &Backtester{config: config}
}

// stepPercentiles - скользящие перцентили одного шага
type stepPercentiles struct {
	p10, p25, p50, p75, p90 float64
	ok                      bool // false = в окне меньше MinPercentilePeriods
}

// Run прогоняет историю спредов одной пары через симулятор.
//
// История короче MinHistoryDays даёт пустой результат с нулевыми
// метриками - это ожидаемое условие, не ошибка. Шаги без достаточной
// истории перцентилей пропускаются целиком.
func (b *Backtester) Run(series []models.SpreadObservation, pairName string) models.BacktestResult {
	if len(series) < b.config.MinHistoryDays {
		return models.BacktestResult{PairName: pairName}
	}

	percentiles := b.rollingPercentiles(series)

	capital := b.config.InitialCapital
	var open *models.Position
	var closed []models.Position
	var equity []models.EquityPoint

	for i, obs := range series {
		pct := percentiles[i]
		if !pct.ok {
			continue
		}

		// Управление открытой позицией
		if open != nil {
			if done := b.managePosition(open, obs, pct); done {
				capital += open.PnlRub
				closed = append(closed, *open)
				equity = append(equity, models.EquityPoint{Date: obs.Timestamp, Capital: capital})
				open = nil
			}
		}

		// Вход: только когда позиции нет, в том числе сразу после
		// закрытия на этом же шаге
		if open == nil {
			if direction := b.entrySignal(obs.SpreadBP, pct); direction != "" {
				open = &models.Position{
					PairName:      pairName,
					Direction:     direction,
					EntryDate:     obs.Timestamp,
					EntrySpread:   obs.SpreadBP,
					EntryYTMLong:  obs.YTMLong,
					EntryYTMShort: obs.YTMShort,
					Size:          capital * b.config.PositionSizePct,
					State:         models.PositionOpen,
				}
			}
		}
	}

	// Позиция, оставшаяся открытой к концу истории, в результат не входит

	result := b.aggregate(closed, pairName)
	result.EquityCurve = equity
	return result
}

// RunMultiPair прогоняет бэктест по нескольким парам.
// Пары без данных пропускаются, остальные обсчитываются.
func (b *Backtester) RunMultiPair(histories map[string][]models.SpreadObservation) map[string]models.BacktestResult {
	results := make(map[string]models.BacktestResult, len(histories))
	for pairName, series := range histories {
		if len(series) == 0 {
			continue
		}
		results[pairName] = b.Run(series, pairName)
	}
	return results
}

// StrategyMetrics агрегирует результаты по парам в метрики стратегии
func (b *Backtester) StrategyMetrics(results map[string]models.BacktestResult) models.StrategyMetrics {
	if len(results) == 0 {
		return models.StrategyMetrics{}
	}

	m := models.StrategyMetrics{TotalPairs: len(results)}

	// Детеминированный порядок обхода для best/worst при равных pnl
	pairs := make([]string, 0, len(results))
	for pairName := range results {
		pairs = append(pairs, pairName)
	}
	sort.Strings(pairs)

	first := true
	for _, pairName := range pairs {
		r := results[pairName]
		m.TotalTrades += r.TotalTrades
		m.TotalWinning += r.WinningTrades
		m.TotalPnlBP += r.TotalPnlBP
		m.TotalPnlRub += r.TotalPnlRub
		if r.TotalPnlBP > 0 {
			m.ProfitablePairs++
		}

		if first || r.TotalPnlBP > m.BestPairPnlBP {
			m.BestPair, m.BestPairPnlBP = pairName, r.TotalPnlBP
		}
		if first || r.TotalPnlBP < m.WorstPairPnlBP {
			m.WorstPair, m.WorstPairPnlBP = pairName, r.TotalPnlBP
		}
		first = false
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.TotalWinning) / float64(m.TotalTrades) * 100
	}
	m.AvgPnlPerPair = m.TotalPnlBP / float64(len(results))

	return m
}

// rollingPercentiles считает скользящие перцентили спреда для каждого
// шага: окно PercentileWindow с минимумом MinPercentilePeriods
func (b *Backtester) rollingPercentiles(series []models.SpreadObservation) []stepPercentiles {
	window := b.config.PercentileWindow
	out := make([]stepPercentiles, len(series))
	buf := make([]float64, 0, window)

	for i := range series {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		if i-lo+1 < b.config.MinPercentilePeriods {
			continue
		}

		buf = buf[:0]
		for j := lo; j <= i; j++ {
			buf = append(buf, series[j].SpreadBP)
		}
		sort.Float64s(buf)

		out[i] = stepPercentiles{
			p10: percentile(buf, 10),
			p25: percentile(buf, 25),
			p50: percentile(buf, 50),
			p75: percentile(buf, 75),
			p90: percentile(buf, 90),
			ok:  true,
		}
	}

	return out
}

// entrySignal проверяет условия входа. Пустая строка - входа нет.
func (b *Backtester) entrySignal(spread float64, pct stepPercentiles) string {
	// Спред ниже P10 - покупаем спред, ждём расширения
	if spread <= pct.p10 {
		return models.DirectionLongShort
	}
	// Спред выше P90 - продаём спред, ждём сужения
	if spread >= pct.p90 {
		return models.DirectionShortLong
	}
	return ""
}

// managePosition обновляет открытую позицию на очередном шаге.
//
// Приоритет выходов, срабатывает первый подходящий:
//  1. стоп-лосс:          pnl_bp <= -StopLossBP          → STOPPED
//  2. тейк-профит:        pnl_bp >= TakeProfitBP         → TAKEN
//  3. возврат к среднему: пересечение P50                → CLOSED (MEAN_REVERSION)
//  4. лимит удержания:    holding_days >= MaxHoldingDays → CLOSED (MAX_HOLDING)
//
// Возвращает true, если позиция закрыта на этом шаге.
func (b *Backtester) managePosition(pos *models.Position, obs models.SpreadObservation, pct stepPercentiles) bool {
	spreadChange := obs.SpreadBP - pos.EntrySpread

	pnlBP := spreadChange
	if pos.Direction == models.DirectionShortLong {
		pnlBP = -spreadChange
	}

	pos.HoldingDays = daysBetween(pos.EntryDate, obs.Timestamp)

	switch {
	case pnlBP <= -b.config.StopLossBP:
		b.closePosition(pos, obs, pnlBP, models.PositionStopped, models.ExitStopLoss)
		return true

	case pnlBP >= b.config.TakeProfitBP:
		b.closePosition(pos, obs, pnlBP, models.PositionTaken, models.ExitTakeProfit)
		return true

	case pos.Direction == models.DirectionLongShort && obs.SpreadBP >= pct.p50,
		pos.Direction == models.DirectionShortLong && obs.SpreadBP <= pct.p50:
		b.closePosition(pos, obs, pnlBP, models.PositionClosed, models.ExitMeanReversion)
		return true

	case pos.HoldingDays >= b.config.MaxHoldingDays:
		b.closePosition(pos, obs, pnlBP, models.PositionClosed, models.ExitMaxHolding)
		return true
	}

	return false
}

// closePosition переводит позицию в терминальное состояние и считает P&L.
//
// pnl_bp уменьшается на затраты пересечения спреда; pnl_rub - это
// pnl_bp × size / 10000 минус комиссия за вход и выход.
func (b *Backtester) closePosition(pos *models.Position, obs models.SpreadObservation, pnlBP float64, state, reason string) {
	exitDate := obs.Timestamp
	exitSpread := obs.SpreadBP
	exitLong := obs.YTMLong
	exitShort := obs.YTMShort

	pos.State = state
	pos.ExitReason = reason
	pos.ExitDate = &exitDate
	pos.ExitSpread = &exitSpread
	pos.ExitYTMLong = &exitLong
	pos.ExitYTMShort = &exitShort

	pos.PnlBP = pnlBP - b.config.SpreadCostBP

	commission := pos.Size * b.config.CommissionRate * 2 // вход + выход
	pos.PnlRub = pos.PnlBP*pos.Size/10000 - commission
}

// aggregate считает итоговые метрики по закрытым позициям
func (b *Backtester) aggregate(positions []models.Position, pairName string) models.BacktestResult {
	result := models.BacktestResult{PairName: pairName}
	if len(positions) == 0 {
		return result
	}

	result.Positions = positions
	result.TotalTrades = len(positions)

	grossProfit := 0.0
	grossLoss := 0.0
	sumWin := 0.0
	sumLoss := 0.0
	sumHolding := 0

	for _, pos := range positions {
		result.TotalPnlBP += pos.PnlBP
		result.TotalPnlRub += pos.PnlRub
		sumHolding += pos.HoldingDays

		if pos.PnlBP > 0 {
			result.WinningTrades++
			grossProfit += pos.PnlBP
			sumWin += pos.PnlBP
		} else {
			result.LosingTrades++
			grossLoss += -pos.PnlBP
			sumLoss += pos.PnlBP
		}
	}

	result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades) * 100
	result.AvgPnlBP = result.TotalPnlBP / float64(result.TotalTrades)
	result.AvgHoldingDays = float64(sumHolding) / float64(result.TotalTrades)

	if result.WinningTrades > 0 {
		result.AvgWinningBP = sumWin / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AvgLosingBP = sumLoss / float64(result.LosingTrades)
	}
	if grossLoss > 0 {
		result.ProfitFactor = grossProfit / grossLoss
	}

	result.TotalPnlPercent = result.TotalPnlRub / b.config.InitialCapital * 100

	// Максимальная просадка по кумулятивному pnl_bp в порядке сделок
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0
	for _, pos := range positions {
		cumulative += pos.PnlBP
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	result.MaxDrawdownBP = maxDrawdown

	return result
}
