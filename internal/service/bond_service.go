package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bondspread/internal/metrics"
	"bondspread/internal/models"
	"bondspread/internal/quant"
	"bondspread/internal/repository"
	"bondspread/pkg/utils"
)

// Ошибки сервиса облигаций
var (
	ErrBondNotFound = errors.New("bond not found")
	ErrBondExists   = errors.New("bond already exists")
	ErrCannotPrice  = errors.New("cannot price bond")
)

// CreateBondRequest - параметры создания облигации
type CreateBondRequest struct {
	ISIN            string    `json:"isin"`
	Name            string    `json:"name"`
	ShortName       string    `json:"short_name,omitempty"`
	FaceValue       float64   `json:"face_value,omitempty"`
	CouponRate      float64   `json:"coupon_rate"`
	CouponFrequency int       `json:"coupon_frequency,omitempty"`
	MaturityDate    time.Time `json:"maturity_date"`
	IssueDate       time.Time `json:"issue_date,omitempty"`
	AccruedOverride *float64  `json:"accrued_override,omitempty"`
}

// BondEvaluation - результат оценки облигации по котировке
type BondEvaluation struct {
	ISIN             string    `json:"isin"`
	Price            float64   `json:"price"`
	Settlement       time.Time `json:"settlement"`
	YTM              float64   `json:"ytm"`
	Duration         float64   `json:"duration"`
	ModifiedDuration float64   `json:"modified_duration"`
	Convexity        float64   `json:"convexity"`
	AccruedInterest  float64   `json:"accrued_interest"`
}

// BondService - CRUD облигаций плюс оценка котировок через решатель YTM.
//
// Оценка по требованию: handler присылает цену, сервис считает
// доходность, дюрации и выпуклость и обновляет рыночные поля в БД.
type BondService struct {
	bondRepo BondRepositoryInterface
	solver   *quant.YTMSolver
	logger   *zap.Logger
}

// NewBondService создает сервис облигаций
func NewBondService(bondRepo BondRepositoryInterface, logger *zap.Logger) *BondService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BondService{
		bondRepo: bondRepo,
		solver:   quant.NewYTMSolver(),
		logger:   logger,
	}
}

// CreateBond валидирует параметры и сохраняет облигацию
func (s *BondService) CreateBond(req *CreateBondRequest) (*models.Bond, error) {
	if err := utils.ValidateISIN(req.ISIN); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidBond, err)
	}

	bond, err := models.NewBond(req.ISIN, req.Name, req.FaceValue, req.CouponRate, req.CouponFrequency, req.MaturityDate)
	if err != nil {
		return nil, err
	}
	bond.ShortName = req.ShortName
	bond.IssueDate = req.IssueDate
	bond.AccruedOverride = req.AccruedOverride

	if err := s.bondRepo.Create(&bond); err != nil {
		if errors.Is(err, repository.ErrBondExists) {
			return nil, fmt.Errorf("%w: %s", ErrBondExists, bond.ISIN)
		}
		return nil, fmt.Errorf("failed to create bond %s: %w", bond.ISIN, err)
	}

	s.logger.Info("bond created", zap.String("isin", bond.ISIN), zap.String("name", bond.DisplayName()))
	return &bond, nil
}

// normalizeISIN приводит ISIN к канонической форме хранения
func normalizeISIN(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

// GetBond возвращает облигацию по ISIN
func (s *BondService) GetBond(isin string) (*models.Bond, error) {
	if err := utils.ValidateISIN(isin); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidBond, err)
	}
	isin = normalizeISIN(isin)

	bond, err := s.bondRepo.GetByISIN(isin)
	if err != nil {
		if errors.Is(err, repository.ErrBondNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBondNotFound, isin)
		}
		return nil, fmt.Errorf("failed to load bond %s: %w", isin, err)
	}
	return bond, nil
}

// ListBonds возвращает все облигации или только избранные
func (s *BondService) ListBonds(favoritesOnly bool) ([]*models.Bond, error) {
	var (
		bonds []*models.Bond
		err   error
	)
	if favoritesOnly {
		bonds, err = s.bondRepo.GetFavorites()
	} else {
		bonds, err = s.bondRepo.GetAll()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list bonds: %w", err)
	}

	if bonds == nil {
		bonds = []*models.Bond{}
	}
	return bonds, nil
}

// SetFavorite помечает или снимает пометку избранной облигации
func (s *BondService) SetFavorite(isin string, favorite bool) error {
	if err := utils.ValidateISIN(isin); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidBond, err)
	}
	isin = normalizeISIN(isin)

	if err := s.bondRepo.SetFavorite(isin, favorite); err != nil {
		if errors.Is(err, repository.ErrBondNotFound) {
			return fmt.Errorf("%w: %s", ErrBondNotFound, isin)
		}
		return fmt.Errorf("failed to update favorite for %s: %w", isin, err)
	}
	return nil
}

// DeleteBond удаляет облигацию по ISIN
func (s *BondService) DeleteBond(isin string) error {
	if err := utils.ValidateISIN(isin); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidBond, err)
	}
	isin = normalizeISIN(isin)

	if err := s.bondRepo.Delete(isin); err != nil {
		if errors.Is(err, repository.ErrBondNotFound) {
			return fmt.Errorf("%w: %s", ErrBondNotFound, isin)
		}
		return fmt.Errorf("failed to delete bond %s: %w", isin, err)
	}

	s.logger.Info("bond deleted", zap.String("isin", isin))
	return nil
}

// EvaluatePrice считает доходность и риски облигации по котировке
// и обновляет рыночные поля в БД.
//
// Цена <= 100 трактуется как процент номинала, иначе - рубли.
// Решатель, не нашедший корня, даёт ErrCannotPrice, не панику.
func (s *BondService) EvaluatePrice(isin string, price float64, settlement time.Time, dirtyPrice bool) (*BondEvaluation, error) {
	if err := utils.ValidatePrice(price); err != nil {
		return nil, err
	}

	bond, err := s.GetBond(isin)
	if err != nil {
		return nil, err
	}

	if settlement.IsZero() {
		settlement = time.Now().UTC()
	}

	start := time.Now()
	ytm, ok := s.solver.CalculateYTM(price, *bond, settlement, dirtyPrice)
	metrics.YTMSolveDuration.Observe(time.Since(start).Seconds())
	if !ok {
		metrics.YTMSolvesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %s at price %.4f", ErrCannotPrice, bond.ISIN, price)
	}
	metrics.YTMSolvesTotal.WithLabelValues("converged").Inc()

	duration, _ := s.solver.Duration(ytm, *bond, settlement)
	modified, _ := s.solver.ModifiedDuration(ytm, *bond, settlement)
	convexity, _ := s.solver.Convexity(ytm, *bond, settlement)
	accrued := s.solver.AccruedInterest(*bond)

	if err := s.bondRepo.UpdateMarketData(bond.ISIN, price, ytm, duration); err != nil {
		return nil, fmt.Errorf("failed to update market data for %s: %w", bond.ISIN, err)
	}

	s.logger.Debug("bond evaluated",
		zap.String("isin", bond.ISIN),
		zap.Float64("price", price),
		zap.Float64("ytm", ytm))

	return &BondEvaluation{
		ISIN:             bond.ISIN,
		Price:            price,
		Settlement:       settlement,
		YTM:              ytm,
		Duration:         duration,
		ModifiedDuration: modified,
		Convexity:        convexity,
		AccruedInterest:  accrued,
	}, nil
}
