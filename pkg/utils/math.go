package utils

import (
	"math"
)

// math.go - математические утилиты
//
// Чистые функции без побочных эффектов, используются
// аналитическим ядром и сервисами.

// Round округляет значение до указанного числа десятичных знаков.
//
// Примеры:
//   - Round(17.2345, 2) = 17.23
//   - Round(1.5, 0)     = 2
func Round(value float64, places int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// Clamp зажимает значение в диапазон [lo, hi]
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Mean возвращает среднее арифметическое. NaN для пустого среза.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStd возвращает выборочное стандартное отклонение (n-1).
// NaN для срезов короче двух элементов (как и выборочная дисперсия
// по одному наблюдению).
func SampleStd(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
