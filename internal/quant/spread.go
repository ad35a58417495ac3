package quant

import (
	"errors"
	"math"
	"sort"

	"bondspread/internal/models"
	"bondspread/pkg/utils"
)

// ErrEmptySeries возвращается из CalculateSpreadStats, когда после
// фильтрации окно наблюдений пусто. Это ЕДИНСТВЕННОЕ место, где ядро
// сигнализирует ошибкой, а не сентинелом: вызывающий слой (генерация
// сигналов) ловит её и превращает в сигнал NO_DATA.
//
// PercentileRank при пустом окне, наоборот, возвращает 50.0 -
// асимметрия сохранена намеренно, под контракт существующих вызовов.
var ErrEmptySeries = errors.New("empty spread series")

// Окно по умолчанию: торговый год
const DefaultLookback = 252

// Окно скользящей статистики для поиска аномалий
const anomalyWindow = 20

// SpreadEngine - расчёт спредов доходности и их статистики.
//
// Не хранит состояния между вызовами: каждый расчёт - чистая функция
// от переданного ряда. Отсутствующие значения кодируются NaN и
// отбрасываются при построении окна.
type SpreadEngine struct {
	lookback int
}

// NewSpreadEngine создаёт движок с заданным окном статистики
// (торговых дней). Неположительное значение заменяется на 252.
func NewSpreadEngine(lookback int) *SpreadEngine {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &SpreadEngine{lookback: lookback}
}

// CalculateSpread возвращает спред между двумя YTM в базисных пунктах:
// (ytm_long - ytm_short) × 100, округление до 2 знаков.
func (e *SpreadEngine) CalculateSpread(ytmLong, ytmShort float64) float64 {
	return utils.Round((ytmLong-ytmShort)*100, 2)
}

// CalculateSpreadSeries строит ряд спредов по двум рядам доходности.
//
// Ряды выравниваются inner join-ом по метке времени: наблюдения без
// пары в другом ряду отбрасываются, NaN-значения тоже. Результат
// упорядочен по времени длинного ряда.
func (e *SpreadEngine) CalculateSpreadSeries(long, short []models.YieldPoint) []models.SpreadObservation {
	shortByTS := make(map[int64]float64, len(short))
	for _, p := range short {
		shortByTS[p.Timestamp.UnixNano()] = p.YTM
	}

	observations := make([]models.SpreadObservation, 0, len(long))
	for _, p := range long {
		ytmShort, ok := shortByTS[p.Timestamp.UnixNano()]
		if !ok || math.IsNaN(p.YTM) || math.IsNaN(ytmShort) {
			continue
		}
		observations = append(observations, models.SpreadObservation{
			Timestamp: p.Timestamp,
			YTMLong:   p.YTM,
			YTMShort:  ytmShort,
			SpreadBP:  e.CalculateSpread(p.YTM, ytmShort),
		})
	}

	return observations
}

// CalculateSpreadStats считает статистику спреда по трейлинг-окну.
//
// Окно - последние lookback не-NaN наблюдений (lookback <= 0 берёт
// окно движка). Пустое окно - ErrEmptySeries. Перцентили считаются
// линейной интерполяцией, стандартное отклонение - выборочное (n-1),
// z-score равен нулю при std <= 0.
func (e *SpreadEngine) CalculateSpreadStats(series []float64, lookback int) (models.SpreadStats, error) {
	if lookback <= 0 {
		lookback = e.lookback
	}

	window := tailWindow(series, lookback)
	if len(window) == 0 {
		return models.SpreadStats{}, ErrEmptySeries
	}

	current := window[len(window)-1]
	mean := utils.Mean(window)
	std := utils.SampleStd(window)

	zscore := 0.0
	if std > 0 {
		zscore = (current - mean) / std
	}

	sorted := append([]float64(nil), window...)
	sort.Float64s(sorted)

	return models.SpreadStats{
		Current:      utils.Round(current, 2),
		Mean:         utils.Round(mean, 2),
		Std:          utils.Round(std, 2),
		Min:          utils.Round(sorted[0], 2),
		Max:          utils.Round(sorted[len(sorted)-1], 2),
		Percentile10: utils.Round(percentile(sorted, 10), 2),
		Percentile25: utils.Round(percentile(sorted, 25), 2),
		Percentile50: utils.Round(percentile(sorted, 50), 2),
		Percentile75: utils.Round(percentile(sorted, 75), 2),
		Percentile90: utils.Round(percentile(sorted, 90), 2),
		ZScore:       utils.Round(zscore, 2),
		LookbackDays: len(window),
	}, nil
}

// PercentileRank возвращает перцентиль-ранг текущего спреда: долю окна
// СТРОГО ниже current, × 100, округление до 1 знака. Пустое окно даёт
// 50.0 (см. комментарий к ErrEmptySeries про асимметрию контрактов).
func (e *SpreadEngine) PercentileRank(current float64, series []float64, lookback int) float64 {
	var window []float64
	if lookback > 0 {
		window = tailWindow(series, lookback)
	} else {
		window = tailWindow(series, len(series))
	}

	if len(window) == 0 {
		return 50.0
	}

	below := 0
	for _, v := range window {
		if v < current {
			below++
		}
	}

	return utils.Round(float64(below)/float64(len(window))*100, 1)
}

// DetectAnomalies помечает наблюдения, отклоняющиеся от скользящего
// среднего (окно 20) больше чем на thresholdStd стандартных отклонений.
// NaN-безопасно: любое сравнение с NaN даёт false, поэтому первые 19
// позиций и окна с пропусками аномалиями не считаются.
func (e *SpreadEngine) DetectAnomalies(series []float64, thresholdStd float64) []bool {
	anomalies := make([]bool, len(series))

	for i := anomalyWindow - 1; i < len(series); i++ {
		window := series[i-anomalyWindow+1 : i+1]
		if hasNaN(window) {
			continue
		}
		mean := utils.Mean(window)
		std := utils.SampleStd(window)
		anomalies[i] = math.Abs(series[i]-mean) > thresholdStd*std
	}

	return anomalies
}

// SpreadChange возвращает изменение спреда за periods шагов.
// Первые periods позиций - NaN.
func (e *SpreadEngine) SpreadChange(series []float64, periods int) []float64 {
	if periods < 1 {
		periods = 1
	}

	changes := make([]float64, len(series))
	for i := range changes {
		if i < periods {
			changes[i] = math.NaN()
			continue
		}
		changes[i] = series[i] - series[i-periods]
	}

	return changes
}

// tailWindow возвращает последние n не-NaN значений ряда
func tailWindow(series []float64, n int) []float64 {
	window := make([]float64, 0, n)
	for i := len(series) - 1; i >= 0 && len(window) < n; i-- {
		if math.IsNaN(series[i]) {
			continue
		}
		window = append(window, series[i])
	}

	// Разворачиваем в хронологический порядок
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}

	return window
}

// percentile возвращает p-й перцентиль отсортированного ряда
// линейной интерполяцией между соседними значениями
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
