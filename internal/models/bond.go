package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidBond возвращается NewBond при нарушении инвариантов
// конструирования облигации
var ErrInvalidBond = errors.New("invalid bond")

// Дефолты рынка ОФЗ: номинал 1000 руб, полугодовой купон, ACT/ACT
const (
	DefaultFaceValue       = 1000.0
	DefaultCouponFrequency = 2
	DefaultDayCountBasis   = "ACT/ACT"
)

// Bond - облигация с фиксированным купоном.
//
// После конструирования не мутируется: расчётные поля (LastPrice,
// LastYTM, DurationYears) заполняются сервисным слоем при обновлении
// котировок и приходят из БД уже готовыми.
type Bond struct {
	ISIN            string    `json:"isin" db:"isin"`
	Name            string    `json:"name" db:"name"`
	ShortName       string    `json:"short_name,omitempty" db:"short_name"`
	FaceValue       float64   `json:"face_value" db:"face_value"`
	CouponRate      float64   `json:"coupon_rate" db:"coupon_rate"`
	CouponFrequency int       `json:"coupon_frequency" db:"coupon_frequency"`
	MaturityDate    time.Time `json:"maturity_date" db:"maturity_date"`
	IssueDate       time.Time `json:"issue_date,omitempty" db:"issue_date"`

	// Метод начисления НКД хранится для справки, расчёты
	// используют ACT/365.25 независимо от него
	DayCountBasis string `json:"day_count_basis" db:"day_count_basis"`

	// Явное значение НКД с биржи; nil - аппроксимация половиной купона
	AccruedOverride *float64 `json:"accrued_override,omitempty" db:"accrued_override"`

	IsFavorite bool `json:"is_favorite" db:"is_favorite"`

	LastPrice     *float64 `json:"last_price,omitempty" db:"last_price"`
	LastYTM       *float64 `json:"last_ytm,omitempty" db:"last_ytm"`
	DurationYears *float64 `json:"duration_years,omitempty" db:"duration_years"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBond создаёт облигацию с валидацией инвариантов.
//
// Нулевые faceValue и couponFrequency заменяются дефолтами ОФЗ,
// ISIN нормализуется к верхнему регистру. Отрицательные параметры,
// пустой ISIN, частота вне [1, 12] и нулевая дата погашения - ошибка
// ErrInvalidBond.
func NewBond(isin, name string, faceValue, couponRate float64, couponFrequency int, maturity time.Time) (Bond, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	if isin == "" {
		return Bond{}, fmt.Errorf("%w: empty isin", ErrInvalidBond)
	}
	if faceValue < 0 {
		return Bond{}, fmt.Errorf("%w: negative face value %.2f", ErrInvalidBond, faceValue)
	}
	if couponRate < 0 {
		return Bond{}, fmt.Errorf("%w: negative coupon rate %.4f", ErrInvalidBond, couponRate)
	}
	if couponFrequency < 0 || couponFrequency > 12 {
		return Bond{}, fmt.Errorf("%w: coupon frequency %d out of [1, 12]", ErrInvalidBond, couponFrequency)
	}
	if maturity.IsZero() {
		return Bond{}, fmt.Errorf("%w: zero maturity date", ErrInvalidBond)
	}

	if faceValue == 0 {
		faceValue = DefaultFaceValue
	}
	if couponFrequency == 0 {
		couponFrequency = DefaultCouponFrequency
	}

	return Bond{
		ISIN:            isin,
		Name:            name,
		FaceValue:       faceValue,
		CouponRate:      couponRate,
		CouponFrequency: couponFrequency,
		MaturityDate:    maturity,
		DayCountBasis:   DefaultDayCountBasis,
	}, nil
}

// DisplayName возвращает имя для отображения: Name, затем ShortName,
// затем ISIN - первое непустое
func (b Bond) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	if b.ShortName != "" {
		return b.ShortName
	}
	return b.ISIN
}

// YearsToMaturity возвращает срок до погашения в годах от asOf
// по базису ACT/365.25. Для погашенных облигаций - 0.
func (b Bond) YearsToMaturity(asOf time.Time) float64 {
	if !b.MaturityDate.After(asOf) {
		return 0
	}
	return b.MaturityDate.Sub(asOf).Hours() / 24 / 365.25
}

// CouponPerPeriod возвращает купонную выплату за один период в рублях
func (b Bond) CouponPerPeriod() float64 {
	if b.CouponFrequency <= 0 {
		return 0
	}
	return b.FaceValue * b.CouponRate / 100 / float64(b.CouponFrequency)
}

// CashFlow - один денежный поток облигации
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// BondPair - пара облигаций для спред-торговли
type BondPair struct {
	BondLong  string `json:"bond_long" db:"bond_long"`
	BondShort string `json:"bond_short" db:"bond_short"`
}

// Key возвращает каноническое имя пары: "<long>_<short>"
func (p BondPair) Key() string {
	return p.BondLong + "_" + p.BondShort
}
