package compliance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/metrics"
)

type complianceRepository interface {
	FindDealerByLicense(ctx context.Context, license string) (*models.Dealer, error)
	Settings(ctx context.Context) (*models.ComplianceSetting, error)
	CountRegulatedSince(ctx context.Context, buyerEmail string, since time.Time) (int64, error)
}

// policy is the effective hold configuration after the settings row overrides
// the env defaults.
type policy struct {
	windowDays        int
	regulatedLimit    int
	enableCountHold   bool
	enableDealerCheck bool
}

// Service evaluates an order for compliance holds before sync.
type Service struct {
	repo    complianceRepository
	cfg     config.ComplianceConfig
	metrics *metrics.SyncMetrics
	logger  *logger.Logger
	now     func() time.Time
}

// NewService builds a compliance service over the repository.
func NewService(repo complianceRepository, cfg config.ComplianceConfig, m *metrics.SyncMetrics, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("compliance repository required")
	}
	return &Service{repo: repo, cfg: cfg, metrics: m, logger: logg, now: time.Now}, nil
}

// Evaluate returns the holds that apply to an order. Orders with no regulated
// lines never hold. Holds are advisory labels on the order; they do not stop
// the sync itself.
func (s *Service) Evaluate(ctx context.Context, order *models.Order) ([]enums.HoldType, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	regulatedQty := int64(0)
	for _, line := range order.Lines {
		if line.Regulated {
			regulatedQty += int64(line.Quantity)
		}
	}
	if regulatedQty == 0 {
		return nil, nil
	}

	pol, err := s.effectivePolicy(ctx)
	if err != nil {
		return nil, err
	}

	var holds []enums.HoldType
	if pol.enableDealerCheck {
		hold, err := s.dealerHold(ctx, order)
		if err != nil {
			return nil, err
		}
		if hold {
			holds = append(holds, enums.HoldTypeDealerNotOnFile)
		}
	}
	if pol.enableCountHold {
		since := s.now().AddDate(0, 0, -pol.windowDays)
		prior, err := s.repo.CountRegulatedSince(ctx, order.BuyerEmail, since)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count regulated purchases")
		}
		if prior+regulatedQty > int64(pol.regulatedLimit) {
			holds = append(holds, enums.HoldTypeRegulatedCount)
		}
	}

	for _, hold := range holds {
		if s.metrics != nil {
			s.metrics.IncHoldApplied(hold.String())
		}
		if s.logger != nil {
			s.logger.Info(ctx, fmt.Sprintf("order %s held: %s", order.SourceOrderID, hold))
		}
	}
	return holds, nil
}

func (s *Service) dealerHold(ctx context.Context, order *models.Order) (bool, error) {
	if order.DealerLicense == nil || strings.TrimSpace(*order.DealerLicense) == "" {
		return true, nil
	}
	dealer, err := s.repo.FindDealerByLicense(ctx, strings.TrimSpace(*order.DealerLicense))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup dealer")
	}
	if !dealer.IsActive {
		return true, nil
	}
	if dealer.ExpiresAt != nil && dealer.ExpiresAt.Before(s.now()) {
		return true, nil
	}
	return false, nil
}

func (s *Service) effectivePolicy(ctx context.Context) (policy, error) {
	pol := policy{
		windowDays:        s.cfg.WindowDays,
		regulatedLimit:    s.cfg.RegulatedLimit,
		enableCountHold:   s.cfg.EnableCountHold,
		enableDealerCheck: s.cfg.EnableDealerCheck,
	}
	row, err := s.repo.Settings(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pol, nil
		}
		return pol, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load compliance settings")
	}
	if row.WindowDays > 0 {
		pol.windowDays = row.WindowDays
	}
	if row.RegulatedLimit > 0 {
		pol.regulatedLimit = row.RegulatedLimit
	}
	pol.enableCountHold = row.EnableCountHold
	pol.enableDealerCheck = row.EnableDealerCheck
	return pol, nil
}
