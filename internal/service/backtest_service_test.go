package service

import (
	"errors"
	"testing"

	"bondspread/internal/quant"
	"bondspread/internal/repository"
)

const backtestPair = "SU26207RMFS9_SU26212RMFS9"

// Плоский ряд: спред всегда равен всем перцентилям, поэтому симулятор
// входит и закрывается по возврату к среднему на каждом шаге - удобный
// способ получить предсказуемое число сделок
func flatSpreads(n int) []float64 {
	spreads := make([]float64, n)
	for i := range spreads {
		spreads[i] = 100
	}
	return spreads
}

func TestRunPairPersistsResult(t *testing.T) {
	spreadRepo := NewMockSpreadRepository()
	backtestRepo := NewMockBacktestRepository()
	broadcaster := NewMockBroadcaster()

	spreadRepo.SeedSeries(backtestPair, flatSpreads(120))

	svc := NewBacktestService(spreadRepo, backtestRepo, broadcaster, nil)

	run, err := svc.RunPair(backtestPair, quant.DefaultBacktestConfig())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if run.RunID != 1 {
		t.Errorf("RunID = %d, ожидался 1", run.RunID)
	}
	if run.Result.PairName != backtestPair {
		t.Errorf("PairName = %s", run.Result.PairName)
	}
	if run.Result.TotalTrades == 0 {
		t.Error("плоский ряд должен давать сделки на каждом шаге")
	}
	if broadcaster.BacktestCount() != 1 {
		t.Errorf("backtest_complete разослан %d раз, ожидался 1", broadcaster.BacktestCount())
	}

	// Прогон читается обратно вместе с позициями
	saved, err := svc.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if saved.PairName != backtestPair {
		t.Errorf("сохранённый PairName = %s", saved.PairName)
	}
	if len(saved.Positions) != saved.TotalTrades {
		t.Errorf("позиций %d, сделок %d", len(saved.Positions), saved.TotalTrades)
	}
}

func TestRunPairNoData(t *testing.T) {
	svc := NewBacktestService(NewMockSpreadRepository(), NewMockBacktestRepository(), nil, nil)

	if _, err := svc.RunPair(backtestPair, quant.DefaultBacktestConfig()); !errors.Is(err, ErrNoObservations) {
		t.Errorf("ожидалась ErrNoObservations, получено %v", err)
	}
}

func TestRunPairInvalidConfig(t *testing.T) {
	svc := NewBacktestService(NewMockSpreadRepository(), NewMockBacktestRepository(), nil, nil)

	config := quant.DefaultBacktestConfig()
	config.InitialCapital = -1

	if _, err := svc.RunPair(backtestPair, config); !errors.Is(err, quant.ErrInvalidBacktestConfig) {
		t.Errorf("ожидалась ErrInvalidBacktestConfig, получено %v", err)
	}
}

func TestRunPairSaveError(t *testing.T) {
	spreadRepo := NewMockSpreadRepository()
	backtestRepo := NewMockBacktestRepository()
	backtestRepo.SetError("save", ErrMockDatabase)

	spreadRepo.SeedSeries(backtestPair, flatSpreads(120))

	svc := NewBacktestService(spreadRepo, backtestRepo, nil, nil)

	if _, err := svc.RunPair(backtestPair, quant.DefaultBacktestConfig()); !errors.Is(err, ErrMockDatabase) {
		t.Errorf("ожидалась ошибка сохранения, получено %v", err)
	}
}

func TestRunMultiPairSkipsEmpty(t *testing.T) {
	spreadRepo := NewMockSpreadRepository()
	backtestRepo := NewMockBacktestRepository()

	pairWithData := backtestPair
	pairWithoutData := "SU26212RMFS9_SU26218RMFS6"
	spreadRepo.SeedSeries(pairWithData, flatSpreads(120))

	svc := NewBacktestService(spreadRepo, backtestRepo, nil, nil)

	run, err := svc.RunMultiPair([]string{pairWithData, pairWithoutData}, quant.DefaultBacktestConfig())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if len(run.Results) != 1 {
		t.Fatalf("обсчитано %d пар, ожидалась 1", len(run.Results))
	}
	if _, ok := run.Results[pairWithData]; !ok {
		t.Errorf("нет результата для %s", pairWithData)
	}
	if _, ok := run.RunIDs[pairWithData]; !ok {
		t.Error("прогон пары с данными не сохранён")
	}
	if run.Metrics.TotalPairs != 1 {
		t.Errorf("TotalPairs = %d", run.Metrics.TotalPairs)
	}
	if run.Metrics.BestPair != pairWithData {
		t.Errorf("BestPair = %s", run.Metrics.BestPair)
	}
}

func TestRunMultiPairAllEmpty(t *testing.T) {
	svc := NewBacktestService(NewMockSpreadRepository(), NewMockBacktestRepository(), nil, nil)

	_, err := svc.RunMultiPair([]string{"A_B", "C_D"}, quant.DefaultBacktestConfig())
	if !errors.Is(err, ErrNoObservations) {
		t.Errorf("ожидалась ErrNoObservations, получено %v", err)
	}
}

func TestRunMultiPairNoPairs(t *testing.T) {
	svc := NewBacktestService(NewMockSpreadRepository(), NewMockBacktestRepository(), nil, nil)

	if _, err := svc.RunMultiPair(nil, quant.DefaultBacktestConfig()); err == nil {
		t.Error("пустой список пар должен давать ошибку")
	}
}

func TestGetRunNotFound(t *testing.T) {
	svc := NewBacktestService(NewMockSpreadRepository(), NewMockBacktestRepository(), nil, nil)

	if _, err := svc.GetRun(99); !errors.Is(err, repository.ErrBacktestNotFound) {
		t.Errorf("ожидалась ErrBacktestNotFound, получено %v", err)
	}
}

func TestRecentRunsEmpty(t *testing.T) {
	svc := NewBacktestService(NewMockSpreadRepository(), NewMockBacktestRepository(), nil, nil)

	runs, err := svc.RecentRuns("", 10)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if runs == nil {
		t.Error("должен возвращаться пустой срез, а не nil")
	}
}

func TestRecentRunsAfterRuns(t *testing.T) {
	spreadRepo := NewMockSpreadRepository()
	backtestRepo := NewMockBacktestRepository()
	spreadRepo.SeedSeries(backtestPair, flatSpreads(120))

	svc := NewBacktestService(spreadRepo, backtestRepo, nil, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.RunPair(backtestPair, quant.DefaultBacktestConfig()); err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}

	runs, err := svc.RecentRuns(backtestPair, 10)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("len = %d, ожидалось 2", len(runs))
	}
}
