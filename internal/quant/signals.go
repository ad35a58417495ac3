package quant

import (
	"math"
	"time"

	"bondspread/internal/models"
	"bondspread/pkg/utils"
)

// SignalConfig - конфигурация генерации сигналов.
//
// Передаётся явно при создании генератора; глобальных экземпляров
// по умолчанию нет.
type SignalConfig struct {
	LookbackDays      int     // окно перцентилей, торговых дней
	MinObservations   int     // меньше - сигнал NO_DATA
	MinConfidence     float64 // порог для фильтрации сигналов
	ZScoreThreshold   float64 // хранится в конфиге, классификатор работает от перцентилей
	SignalExpiryHours int     // время жизни сигнала
}

// DefaultSignalConfig возвращает параметры по умолчанию
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		LookbackDays:      252,
		MinObservations:   20,
		MinConfidence:     0.3,
		ZScoreThreshold:   1.5,
		SignalExpiryHours: 4,
	}
}

// SignalGenerator - классификация спреда в торговый сигнал.
//
// Классификация - чистая функция от (current, P10, P25, P75, P90, zscore),
// состояние между вызовами не хранится.
type SignalGenerator struct {
	config SignalConfig
	engine *SpreadEngine
}

// NewSignalGenerator создаёт генератор с явной конфигурацией
func NewSignalGenerator(config SignalConfig) *SignalGenerator {
	if config.MinObservations <= 0 {
		config.MinObservations = 20
	}
	return &SignalGenerator{
		config: config,
		engine: NewSpreadEngine(config.LookbackDays),
	}
}

// Generate строит торговый сигнал по истории спредов пары.
//
// Ряды короче MinObservations дают NO_DATA с нулевой уверенностью.
// ErrEmptySeries из расчёта статистики здесь же превращается в NO_DATA -
// это тот самый слой, который по контракту ловит ошибку пустого окна.
func (g *SignalGenerator) Generate(series []float64, pair models.BondPair, now time.Time) models.TradingSignal {
	clean := tailWindow(series, len(series)) // отбрасываем NaN

	if len(clean) < g.config.MinObservations {
		return g.noDataSignal(pair, now)
	}

	stats, err := g.engine.CalculateSpreadStats(clean, 0)
	if err != nil {
		return g.noDataSignal(pair, now)
	}

	rank := g.engine.PercentileRank(stats.Current, clean, 0)

	signalType, direction, confidence := classify(
		stats.Current,
		stats.Percentile10,
		stats.Percentile25,
		stats.Percentile75,
		stats.Percentile90,
		stats.ZScore,
	)

	expires := now.Add(time.Duration(g.config.SignalExpiryHours) * time.Hour)

	return models.TradingSignal{
		PairName:         pair.Key(),
		BondLong:         pair.BondLong,
		BondShort:        pair.BondShort,
		SignalType:       signalType,
		Direction:        direction,
		Confidence:       confidence,
		SpreadBP:         stats.Current,
		SpreadMean:       stats.Mean,
		SpreadZScore:     stats.ZScore,
		PercentileRank:   rank,
		ExpectedReturnBP: expectedReturn(stats.Current, stats.Mean, direction),
		Timestamp:        now,
		ExpiresAt:        &expires,
	}
}

// Filter отбрасывает NO_DATA, нейтральные (опционально) и сигналы
// с уверенностью ниже порога. minConfidence <= 0 берёт порог конфига.
func (g *SignalGenerator) Filter(signals []models.TradingSignal, minConfidence float64, excludeNeutral bool) []models.TradingSignal {
	if minConfidence <= 0 {
		minConfidence = g.config.MinConfidence
	}

	filtered := make([]models.TradingSignal, 0, len(signals))
	for _, s := range signals {
		if s.SignalType == models.SignalNoData {
			continue
		}
		if excludeNeutral && !s.IsActionable() {
			continue
		}
		if s.Confidence < minConfidence {
			continue
		}
		filtered = append(filtered, s)
	}

	return filtered
}

// Active возвращает не истёкшие на момент now сигналы
func (g *SignalGenerator) Active(signals []models.TradingSignal, now time.Time) []models.TradingSignal {
	active := make([]models.TradingSignal, 0, len(signals))
	for _, s := range signals {
		if s.IsActive(now) {
			active = append(active, s)
		}
	}
	return active
}

// classify определяет тип сигнала по положению спреда в распределении.
//
// Проверки взаимоисключающие, срабатывает первая подходящая:
//  1. current <= P10  → STRONG_BUY  (спред слишком узкий, ждём расширения)
//  2. current <= P25  → BUY
//  3. current >= P75  → SELL        (спред слишком широкий, ждём сужения)
//  4. current >= P90  → STRONG_SELL
//  5. иначе           → NEUTRAL
//
// ВНИМАНИЕ: ветка 4 недостижима. Поскольку P90 >= P75, любой спред
// >= P90 уже перехватывается веткой 3 и возвращает SELL. На стороне
// покупки порядок корректный (P10 раньше P25). Поведение исходной
// системы сохранено намеренно; TestClassifyBranchOrder фиксирует его.
func classify(current, p10, p25, p75, p90, zscore float64) (string, string, float64) {
	// Спред ниже P10 - сильная покупка
	if current <= p10 {
		confidence := math.Min(1.0, math.Abs(zscore)/3)
		return models.SignalStrongBuy, models.DirectionLongShort, math.Max(0.7, confidence)
	}

	// Спред между P10 и P25 - покупка
	if current <= p25 {
		confidence := 0.4
		if p25 > p10 {
			confidence += 0.3 * (p25 - current) / (p25 - p10)
		}
		return models.SignalBuy, models.DirectionLongShort, confidence
	}

	// Спред выше P75 - продажа (перехватывает и зону выше P90, см. выше)
	if current >= p75 {
		confidence := 0.4
		if p90 > p75 {
			confidence += 0.3 * (current - p75) / (p90 - p75)
		}
		return models.SignalSell, models.DirectionShortLong, confidence
	}

	// Спред выше P90 - сильная продажа (мёртвая ветка, сохранена как есть)
	if current >= p90 {
		confidence := math.Min(1.0, math.Abs(zscore)/3)
		return models.SignalStrongSell, models.DirectionShortLong, math.Max(0.7, confidence)
	}

	return models.SignalNeutral, models.DirectionFlat, 0.2
}

// expectedReturn - ожидаемый возврат к среднему в б.п.
//
// LONG_SHORT зарабатывает на расширении спреда (current < mean),
// SHORT_LONG - на сужении (current > mean).
func expectedReturn(current, mean float64, direction string) float64 {
	if direction == models.DirectionFlat {
		return 0
	}

	move := mean - current
	if direction == models.DirectionLongShort {
		return utils.Round(move, 2)
	}
	return utils.Round(-move, 2)
}

// noDataSignal - сигнал "недостаточно данных": FLAT, нулевая
// уверенность, перцентиль-ранг 50, без срока истечения
func (g *SignalGenerator) noDataSignal(pair models.BondPair, now time.Time) models.TradingSignal {
	return models.TradingSignal{
		PairName:       pair.Key(),
		BondLong:       pair.BondLong,
		BondShort:      pair.BondShort,
		SignalType:     models.SignalNoData,
		Direction:      models.DirectionFlat,
		Confidence:     0,
		PercentileRank: 50.0,
		Timestamp:      now,
	}
}
