package quant

import (
	"math"
	"time"

	"bondspread/internal/models"
	"bondspread/pkg/utils"
)

// Границы поиска доходности в процентах годовых.
// Вне этого диапазона YTM ОФЗ не имеет экономического смысла.
const (
	ytmLowerBound = 0.1
	ytmUpperBound = 50.0

	// Стартовая точка метода Ньютона, если Брент не нашёл брекетинг
	newtonInitialGuess = 7.0
)

// YTMSolver - расчёт доходности к погашению и производных метрик.
//
// Решает уравнение Price = Σ CF_i / (1 + YTM)^t_i методом Брента
// на отрезке [0.1, 50] %; при отсутствии смены знака на концах
// отрезка откатывается на метод Ньютона с аналитической производной.
//
// Контракт ошибок: все методы возвращают (0, false) когда инструмент
// нельзя оценить (нет денежных потоков, решатель не сошёлся,
// неположительная цена). Паник и ошибок для некорректных входов нет -
// ядро не логирует и не бросает.
type YTMSolver struct {
	maxIterations int
	tolerance     float64
}

// NewYTMSolver создаёт решатель с точностью по умолчанию (100 итераций, 1e-6)
func NewYTMSolver() *YTMSolver {
	return &YTMSolver{
		maxIterations: 100,
		tolerance:     1e-6,
	}
}

// PriceFromYTM возвращает чистую цену в процентах от номинала для
// заданной доходности. Грязная цена = Σ CF_i / (1+ytm/100)^(t_i),
// t_i по ACT/365.25; чистая = (грязная - НКД) / номинал × 100,
// округление до 4 знаков.
func (s *YTMSolver) PriceFromYTM(ytm float64, bond models.Bond, settlement time.Time) (float64, bool) {
	flows := GenerateCashFlows(bond, settlement)
	if len(flows) == 0 {
		return 0, false
	}

	dirty := npv(ytm, flows, settlement)
	clean := (dirty - pricingAccrued(bond)) / bond.FaceValue * 100

	return utils.Round(clean, 4), true
}

// CalculateYTM решает YTM из цены облигации.
//
// Цена нормализуется: значения <= 100 трактуются как проценты от
// номинала, большие - как абсолютные рубли. К чистой цене добавляется
// НКД (если dirtyPrice=false). Возвращает YTM в процентах годовых,
// округлённый до 3 знаков, либо (0, false) если нет потоков или
// оба метода не сошлись.
func (s *YTMSolver) CalculateYTM(price float64, bond models.Bond, settlement time.Time, dirtyPrice bool) (float64, bool) {
	flows := GenerateCashFlows(bond, settlement)
	if len(flows) == 0 || price <= 0 {
		return 0, false
	}

	// Нормализация цены: % от номинала или абсолютное значение
	absolute := price
	if price <= 100 {
		absolute = price * bond.FaceValue / 100
	}

	dirty := absolute
	if !dirtyPrice {
		dirty += pricingAccrued(bond)
	}

	f := func(y float64) float64 {
		return npv(y, flows, settlement) - dirty
	}

	ytm, ok := s.brent(f, ytmLowerBound, ytmUpperBound)
	if !ok {
		// Нет брекетинга на [0.1, 50] - пробуем Ньютона
		ytm, ok = s.newton(f, flows, settlement, newtonInitialGuess)
	}
	if !ok {
		return 0, false
	}

	return utils.Round(ytm, 3), true
}

// Duration возвращает дюрацию Маколея в годах:
// Σ(PV_i × t_i) / Price. (0, false) если нет потоков или цена <= 0.
func (s *YTMSolver) Duration(ytm float64, bond models.Bond, settlement time.Time) (float64, bool) {
	flows := GenerateCashFlows(bond, settlement)
	if len(flows) == 0 {
		return 0, false
	}

	price := 0.0
	weighted := 0.0
	for _, cf := range flows {
		t := yearFraction(settlement, cf.Date)
		pv := cf.Amount / math.Pow(1+ytm/100, t)
		price += pv
		weighted += pv * t
	}

	if price <= 0 {
		return 0, false
	}

	return utils.Round(weighted/price, 4), true
}

// ModifiedDuration возвращает модифицированную дюрацию: D / (1 + YTM)
func (s *YTMSolver) ModifiedDuration(ytm float64, bond models.Bond, settlement time.Time) (float64, bool) {
	duration, ok := s.Duration(ytm, bond, settlement)
	if !ok {
		return 0, false
	}
	return utils.Round(duration/(1+ytm/100), 4), true
}

// Convexity возвращает выпуклость:
// Σ(PV_i × t_i × (t_i+1)) / (Price × (1+ytm/100)²)
func (s *YTMSolver) Convexity(ytm float64, bond models.Bond, settlement time.Time) (float64, bool) {
	flows := GenerateCashFlows(bond, settlement)
	if len(flows) == 0 {
		return 0, false
	}

	price := 0.0
	weighted := 0.0
	for _, cf := range flows {
		t := yearFraction(settlement, cf.Date)
		pv := cf.Amount / math.Pow(1+ytm/100, t)
		price += pv
		weighted += pv * t * (t + 1)
	}

	if price <= 0 {
		return 0, false
	}

	convexity := weighted / (price * math.Pow(1+ytm/100, 2))
	return utils.Round(convexity, 4), true
}

// AccruedInterest возвращает НКД в рублях.
//
// Если у облигации задан явный AccruedOverride (биржевое значение),
// возвращается он. Иначе НКД аппроксимируется половиной купонного
// периода - это упрощение, а не настоящий day-count учёт от даты
// последнего купона. В ценовых расчётах аппроксимация не участвует:
// там без override НКД считается нулевым (чистая цена = грязной).
func (s *YTMSolver) AccruedInterest(bond models.Bond) float64 {
	if bond.AccruedOverride != nil {
		return *bond.AccruedOverride
	}
	return utils.Round(bond.CouponPerPeriod()/2, 2)
}

// pricingAccrued - НКД, участвующий в переходах цена <-> доходность:
// только явное биржевое значение, без аппроксимации. Обе стороны
// round-trip цена->YTM->цена используют одно и то же значение.
func pricingAccrued(bond models.Bond) float64 {
	if bond.AccruedOverride != nil {
		return *bond.AccruedOverride
	}
	return 0
}

// npv дисконтирует денежные потоки по ставке ytm (% годовых)
func npv(ytm float64, flows []models.CashFlow, settlement time.Time) float64 {
	total := 0.0
	for _, cf := range flows {
		t := yearFraction(settlement, cf.Date)
		total += cf.Amount / math.Pow(1+ytm/100, t)
	}
	return total
}

// brent ищет корень f на [a, b] методом Брента.
// Возвращает (0, false) если на концах отрезка нет смены знака.
func (s *YTMSolver) brent(f func(float64) float64, a, b float64) (float64, bool) {
	fa, fb := f(a), f(b)

	if math.Abs(fa) < s.tolerance {
		return a, true
	}
	if math.Abs(fb) < s.tolerance {
		return b, true
	}
	if fa*fb > 0 {
		return 0, false // корень не забрекечен
	}

	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}

	c, fc := a, fa
	d := b - a
	bisected := true

	for i := 0; i < s.maxIterations; i++ {
		if math.Abs(fb) < s.tolerance || math.Abs(b-a) < 1e-12 {
			return b, true
		}

		var next float64
		if fa != fc && fb != fc {
			// Обратная квадратичная интерполяция
			next = a*fb*fc/((fa-fb)*(fa-fc)) +
				b*fa*fc/((fb-fa)*(fb-fc)) +
				c*fa*fb/((fc-fa)*(fc-fb))
		} else {
			// Секущая
			next = b - fb*(b-a)/(fb-fa)
		}

		lo, hi := (3*a+b)/4, b
		if lo > hi {
			lo, hi = hi, lo
		}

		// Откат к бисекции, если интерполяция ведёт себя плохо
		useBisection := next < lo || next > hi ||
			(bisected && math.Abs(next-b) >= math.Abs(b-c)/2) ||
			(!bisected && math.Abs(next-b) >= math.Abs(c-d)/2) ||
			(bisected && math.Abs(b-c) < 1e-12) ||
			(!bisected && math.Abs(c-d) < 1e-12)

		if useBisection {
			next = (a + b) / 2
			bisected = true
		} else {
			bisected = false
		}

		fNext := f(next)
		d = c
		c, fc = b, fb

		if fa*fNext < 0 {
			b, fb = next, fNext
		} else {
			a, fa = next, fNext
		}

		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}

	if math.Abs(fb) < s.tolerance {
		return b, true
	}
	return 0, false
}

// newton ищет корень f методом Ньютона с аналитической производной NPV.
// Доходность зажимается в [0.1, 50] на каждом шаге.
func (s *YTMSolver) newton(f func(float64) float64, flows []models.CashFlow, settlement time.Time, guess float64) (float64, bool) {
	y := guess

	for i := 0; i < s.maxIterations; i++ {
		fy := f(y)
		if math.Abs(fy) < s.tolerance {
			return y, true
		}

		// d/dy Σ CF (1+y/100)^-t = -Σ t×CF / ((1+y/100)^(t+1) × 100)
		dy := 0.0
		for _, cf := range flows {
			t := yearFraction(settlement, cf.Date)
			disc := math.Pow(1+y/100, t)
			dy -= t * cf.Amount / (disc * (1 + y/100) * 100)
		}

		if math.Abs(dy) < 1e-12 {
			return 0, false
		}

		y -= fy / dy
		y = utils.Clamp(y, ytmLowerBound, ytmUpperBound)
	}

	return 0, false
}
