package quant

import "time"

// daycount.go - календарная арифметика для дисконтирования
//
// Все годовые доли считаются по ACT/365.25 независимо от
// day_count_basis облигации: поле хранится, но в расчётах
// не участвует (поведение исходной системы сохранено).

const daysPerYear = 365.25

// dateOnly отбрасывает время, оставляя полночь UTC
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween возвращает календарные дни от a до b (отрицательно, если b раньше a)
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

// yearFraction возвращает долю года между датами по ACT/365.25
func yearFraction(from, to time.Time) float64 {
	return float64(daysBetween(from, to)) / daysPerYear
}

// subtractCouponPeriod отнимает один купонный период (12/frequency месяцев).
// День зажимается к 28, чтобы не перескакивать через конец месяца
// (31 марта - 6 мес = 28 сентября, а не 1 октября).
func subtractCouponPeriod(d time.Time, frequency int) time.Time {
	months := 12 / frequency
	if months < 1 {
		months = 1
	}

	year := d.Year()
	month := int(d.Month()) - months
	for month <= 0 {
		month += 12
		year--
	}

	day := d.Day()
	if day > 28 {
		day = 28
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
