package quant

import (
	"sort"
	"time"

	"bondspread/internal/models"
)

// GenerateCashFlows строит график денежных потоков облигации
// от даты расчёта до погашения.
//
// Купонные даты генерируются назад от даты погашения с шагом
// в один купонный период; попадают в график только даты строго
// после settlement. Последний поток = финальный купон + номинал.
//
// Возвращает пустой список, если settlement >= даты погашения -
// все зависимые расчёты (цена, YTM, дюрация) трактуют это как
// "инструмент нельзя оценить на эту дату" и возвращают сентинел,
// а не ошибку.
func GenerateCashFlows(bond models.Bond, settlement time.Time) []models.CashFlow {
	maturity := dateOnly(bond.MaturityDate)
	settlement = dateOnly(settlement)

	if !maturity.After(settlement) || bond.CouponFrequency <= 0 {
		return nil
	}

	coupon := bond.CouponPerPeriod()

	// Даты купонов от погашения назад
	var couponDates []time.Time
	for d := maturity; d.After(settlement); d = subtractCouponPeriod(d, bond.CouponFrequency) {
		couponDates = append(couponDates, d)
	}
	sort.Slice(couponDates, func(i, j int) bool { return couponDates[i].Before(couponDates[j]) })

	flows := make([]models.CashFlow, 0, len(couponDates))
	for _, d := range couponDates[:len(couponDates)-1] {
		flows = append(flows, models.CashFlow{Date: d, Amount: coupon})
	}
	// Последний платёж: купон + номинал
	flows = append(flows, models.CashFlow{
		Date:   couponDates[len(couponDates)-1],
		Amount: coupon + bond.FaceValue,
	})

	return flows
}
