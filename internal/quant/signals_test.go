package quant

import (
	"math"
	"testing"
	"time"

	"bondspread/internal/models"
)

var testPair = models.BondPair{BondLong: "SU26230RMFS1", BondShort: "SU26212RMFS9"}

// Сценарий: спред ровно в середине распределения
func TestClassifyNeutral(t *testing.T) {
	signalType, direction, confidence := classify(100, 40, 75, 125, 150, 0)

	if signalType != models.SignalNeutral {
		t.Errorf("тип = %s, ожидался NEUTRAL", signalType)
	}
	if direction != models.DirectionFlat {
		t.Errorf("направление = %s, ожидалось FLAT", direction)
	}
	if confidence != 0.2 {
		t.Errorf("уверенность = %v, ожидалось 0.2", confidence)
	}
}

func TestClassifyStrongBuy(t *testing.T) {
	signalType, direction, confidence := classify(30, 40, 75, 125, 150, -2.5)

	if signalType != models.SignalStrongBuy {
		t.Errorf("тип = %s, ожидался STRONG_BUY", signalType)
	}
	if direction != models.DirectionLongShort {
		t.Errorf("направление = %s, ожидалось LONG_SHORT", direction)
	}
	if confidence < 0.7 {
		t.Errorf("уверенность %v ниже минимума 0.7 для сильного сигнала", confidence)
	}
}

func TestClassifyBuy(t *testing.T) {
	signalType, direction, confidence := classify(50, 40, 75, 125, 150, -1.0)

	if signalType != models.SignalBuy {
		t.Errorf("тип = %s, ожидался BUY", signalType)
	}
	if direction != models.DirectionLongShort {
		t.Errorf("направление = %s, ожидалось LONG_SHORT", direction)
	}
	// 0.4 + 0.3 × (75-50)/(75-40) ≈ 0.614
	if math.Abs(confidence-0.614) > 0.01 {
		t.Errorf("уверенность = %v, ожидалось ~0.614", confidence)
	}
}

func TestClassifySell(t *testing.T) {
	signalType, direction, _ := classify(130, 40, 75, 125, 150, 1.2)

	if signalType != models.SignalSell {
		t.Errorf("тип = %s, ожидался SELL", signalType)
	}
	if direction != models.DirectionShortLong {
		t.Errorf("направление = %s, ожидалось SHORT_LONG", direction)
	}
}

// Фиксация порядка веток классификатора: спред выше P90 перехватывается
// проверкой P75 и даёт SELL. STRONG_SELL при текущем порядке веток
// недостижим - тест документирует это поведение, менять его можно
// только сознательно вместе с этим тестом.
func TestClassifyBranchOrder(t *testing.T) {
	signalType, direction, _ := classify(200, 40, 75, 125, 150, 3.0)

	if signalType != models.SignalSell {
		t.Errorf("тип = %s: спред выше P90 должен давать SELL при текущем порядке веток", signalType)
	}
	if signalType == models.SignalStrongSell {
		t.Error("STRONG_SELL недостижим, ветка P75 срабатывает раньше")
	}
	if direction != models.DirectionShortLong {
		t.Errorf("направление = %s, ожидалось SHORT_LONG", direction)
	}
}

// На стороне покупки порядок веток корректный: ниже P10 - STRONG_BUY
func TestClassifyBuySideOrder(t *testing.T) {
	signalType, _, _ := classify(10, 40, 75, 125, 150, -3.0)
	if signalType != models.SignalStrongBuy {
		t.Errorf("тип = %s, ниже P10 ожидался STRONG_BUY", signalType)
	}
}

// Вырожденное распределение: перцентили совпадают, деления на ноль нет
func TestClassifyDegenerateDistribution(t *testing.T) {
	signalType, _, confidence := classify(50, 100, 100, 100, 100, 0)

	if signalType != models.SignalStrongBuy {
		t.Errorf("тип = %s, ожидался STRONG_BUY", signalType)
	}
	if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		t.Errorf("уверенность = %v при вырожденном распределении", confidence)
	}
}

func TestGenerateInsufficientHistory(t *testing.T) {
	g := NewSignalGenerator(DefaultSignalConfig())
	now := time.Date(2025, 2, 27, 12, 0, 0, 0, time.UTC)

	// 19 наблюдений при минимуме 20
	series := make([]float64, 19)
	for i := range series {
		series[i] = 100 + float64(i)
	}

	signal := g.Generate(series, testPair, now)

	if signal.SignalType != models.SignalNoData {
		t.Errorf("тип = %s, ожидался NO_DATA", signal.SignalType)
	}
	if signal.Direction != models.DirectionFlat {
		t.Errorf("направление = %s, ожидалось FLAT", signal.Direction)
	}
	if signal.Confidence != 0 {
		t.Errorf("уверенность = %v, ожидался 0", signal.Confidence)
	}
	if signal.PercentileRank != 50.0 {
		t.Errorf("перцентиль-ранг = %v, ожидалось 50.0", signal.PercentileRank)
	}
	if signal.ExpiresAt != nil {
		t.Error("NO_DATA не должен иметь срока истечения")
	}
}

func TestGenerateEmptySeries(t *testing.T) {
	g := NewSignalGenerator(DefaultSignalConfig())
	now := time.Now()

	signal := g.Generate(nil, testPair, now)
	if signal.SignalType != models.SignalNoData {
		t.Errorf("тип = %s, для пустого ряда ожидался NO_DATA", signal.SignalType)
	}
}

func TestGenerateActionableSignal(t *testing.T) {
	g := NewSignalGenerator(DefaultSignalConfig())
	now := time.Date(2025, 2, 27, 12, 0, 0, 0, time.UTC)

	// 30 наблюдений вокруг 100, последнее - глубокий провал
	series := make([]float64, 30)
	for i := range series {
		series[i] = 100 + float64(i%5)
	}
	series[29] = 40

	signal := g.Generate(series, testPair, now)

	if signal.SignalType != models.SignalStrongBuy {
		t.Errorf("тип = %s, для провала ниже P10 ожидался STRONG_BUY", signal.SignalType)
	}
	if !signal.IsActionable() {
		t.Error("сигнал должен требовать действия")
	}
	if signal.PairName != testPair.Key() {
		t.Errorf("пара = %s, ожидалось %s", signal.PairName, testPair.Key())
	}
	if signal.ExpiresAt == nil {
		t.Fatal("торговый сигнал должен иметь срок истечения")
	}
	expected := now.Add(4 * time.Hour)
	if !signal.ExpiresAt.Equal(expected) {
		t.Errorf("срок истечения %v, ожидалось %v", signal.ExpiresAt, expected)
	}
	// Спред ниже среднего: ожидаемый доход на расширении положительный
	if signal.ExpectedReturnBP <= 0 {
		t.Errorf("ожидаемый доход %v должен быть положительным", signal.ExpectedReturnBP)
	}
}

func TestFilterSignals(t *testing.T) {
	g := NewSignalGenerator(DefaultSignalConfig())

	signals := []models.TradingSignal{
		{SignalType: models.SignalStrongBuy, Confidence: 0.9},
		{SignalType: models.SignalBuy, Confidence: 0.2}, // ниже порога
		{SignalType: models.SignalNeutral, Confidence: 0.2},
		{SignalType: models.SignalNoData},
		{SignalType: models.SignalSell, Confidence: 0.5},
	}

	filtered := g.Filter(signals, 0.3, true)

	if len(filtered) != 2 {
		t.Fatalf("после фильтра %d сигналов, ожидалось 2", len(filtered))
	}
	if filtered[0].SignalType != models.SignalStrongBuy || filtered[1].SignalType != models.SignalSell {
		t.Errorf("неожиданный состав: %+v", filtered)
	}

	// excludeNeutral=false оставляет нейтральные с достаточной уверенностью
	withNeutral := g.Filter([]models.TradingSignal{
		{SignalType: models.SignalNeutral, Confidence: 0.5},
	}, 0.3, false)
	if len(withNeutral) != 1 {
		t.Errorf("нейтральный сигнал с уверенностью 0.5 должен пройти фильтр")
	}
}

func TestActiveSignals(t *testing.T) {
	g := NewSignalGenerator(DefaultSignalConfig())
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	signals := []models.TradingSignal{
		{PairName: "expired", ExpiresAt: &past},
		{PairName: "alive", ExpiresAt: &future},
		{PairName: "eternal"},
	}

	active := g.Active(signals, now)
	if len(active) != 2 {
		t.Fatalf("активных %d, ожидалось 2", len(active))
	}
}

func TestExpectedReturn(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		mean      float64
		direction string
		expected  float64
	}{
		{"расширение к среднему", 40, 100, models.DirectionLongShort, 60},
		{"сужение к среднему", 160, 100, models.DirectionShortLong, 60},
		{"вне позиции", 100, 100, models.DirectionFlat, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expectedReturn(tt.current, tt.mean, tt.direction); got != tt.expected {
				t.Errorf("expectedReturn = %v, ожидалось %v", got, tt.expected)
			}
		})
	}
}
