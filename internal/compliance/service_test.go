package compliance

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	"github.com/rockcreekarms/ordersync-backend/pkg/db/models"
	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
)

type fakeComplianceRepo struct {
	dealers  map[string]*models.Dealer
	settings *models.ComplianceSetting
	prior    int64
	sinceGot time.Time
}

func (f *fakeComplianceRepo) FindDealerByLicense(_ context.Context, license string) (*models.Dealer, error) {
	dealer, ok := f.dealers[license]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return dealer, nil
}

func (f *fakeComplianceRepo) Settings(_ context.Context) (*models.ComplianceSetting, error) {
	if f.settings == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.settings, nil
}

func (f *fakeComplianceRepo) CountRegulatedSince(_ context.Context, _ string, since time.Time) (int64, error) {
	f.sinceGot = since
	return f.prior, nil
}

func defaultConfig() config.ComplianceConfig {
	return config.ComplianceConfig{WindowDays: 30, RegulatedLimit: 5, EnableCountHold: true, EnableDealerCheck: true}
}

func regulatedOrder(license *string, qty int) *models.Order {
	return &models.Order{
		SourceOrderID: "src-1",
		BuyerEmail:    "buyer@example.com",
		DealerLicense: license,
		Lines: []models.OrderLine{
			{Name: "Rifle", Quantity: qty, Regulated: true},
			{Name: "Sling", Quantity: 3, Regulated: false},
		},
	}
}

func newService(t *testing.T, repo complianceRepository, cfg config.ComplianceConfig) *Service {
	t.Helper()
	svc, err := NewService(repo, cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func hasHold(holds []enums.HoldType, want enums.HoldType) bool {
	for _, hold := range holds {
		if hold == want {
			return true
		}
	}
	return false
}

func TestEvaluateUnregulatedOrderNeverHolds(t *testing.T) {
	repo := &fakeComplianceRepo{prior: 100}
	svc := newService(t, repo, defaultConfig())

	order := &models.Order{Lines: []models.OrderLine{{Name: "Sling", Quantity: 2}}}
	holds, err := svc.Evaluate(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holds) != 0 {
		t.Fatalf("expected no holds, got %v", holds)
	}
}

func TestEvaluateMissingDealerLicense(t *testing.T) {
	repo := &fakeComplianceRepo{}
	svc := newService(t, repo, defaultConfig())

	holds, err := svc.Evaluate(context.Background(), regulatedOrder(nil, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasHold(holds, enums.HoldTypeDealerNotOnFile) {
		t.Fatalf("expected dealer hold, got %v", holds)
	}
}

func TestEvaluateDealerVariants(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	cases := []struct {
		name     string
		dealer   *models.Dealer
		wantHold bool
	}{
		{"on file and valid", &models.Dealer{License: "1-23-456", IsActive: true, ExpiresAt: &future}, false},
		{"expired", &models.Dealer{License: "1-23-456", IsActive: true, ExpiresAt: &past}, true},
		{"inactive", &models.Dealer{License: "1-23-456", IsActive: false, ExpiresAt: &future}, true},
		{"not on file", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeComplianceRepo{dealers: map[string]*models.Dealer{}}
			if tc.dealer != nil {
				repo.dealers[tc.dealer.License] = tc.dealer
			}
			svc := newService(t, repo, defaultConfig())

			license := "1-23-456"
			holds, err := svc.Evaluate(context.Background(), regulatedOrder(&license, 1))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if hasHold(holds, enums.HoldTypeDealerNotOnFile) != tc.wantHold {
				t.Fatalf("dealer hold = %v, want %v", !tc.wantHold, tc.wantHold)
			}
		})
	}
}

func TestEvaluateCountHold(t *testing.T) {
	license := "1-23-456"
	future := time.Now().Add(24 * time.Hour)
	repo := &fakeComplianceRepo{
		dealers: map[string]*models.Dealer{license: {License: license, IsActive: true, ExpiresAt: &future}},
		prior:   4,
	}
	svc := newService(t, repo, defaultConfig())
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }

	// 4 prior + 2 now exceeds the limit of 5
	holds, err := svc.Evaluate(context.Background(), regulatedOrder(&license, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasHold(holds, enums.HoldTypeRegulatedCount) {
		t.Fatalf("expected count hold, got %v", holds)
	}
	wantSince := time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)
	if !repo.sinceGot.Equal(wantSince) {
		t.Fatalf("expected window cutoff %v, got %v", wantSince, repo.sinceGot)
	}

	// exactly at the limit passes
	repo.prior = 3
	holds, err = svc.Evaluate(context.Background(), regulatedOrder(&license, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hasHold(holds, enums.HoldTypeRegulatedCount) {
		t.Fatalf("did not expect count hold at the limit, got %v", holds)
	}
}

func TestEvaluateSettingsRowOverridesDefaults(t *testing.T) {
	repo := &fakeComplianceRepo{
		prior: 10,
		settings: &models.ComplianceSetting{
			ID: 1, WindowDays: 7, RegulatedLimit: 50,
			EnableCountHold: true, EnableDealerCheck: false,
		},
	}
	svc := newService(t, repo, defaultConfig())

	holds, err := svc.Evaluate(context.Background(), regulatedOrder(nil, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hasHold(holds, enums.HoldTypeDealerNotOnFile) {
		t.Fatal("dealer check disabled by settings row, hold should not apply")
	}
	if hasHold(holds, enums.HoldTypeRegulatedCount) {
		t.Fatal("limit raised by settings row, count hold should not apply")
	}
}

func TestEvaluateDisabledCountHold(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnableCountHold = false
	repo := &fakeComplianceRepo{prior: 100}
	svc := newService(t, repo, cfg)

	holds, err := svc.Evaluate(context.Background(), regulatedOrder(nil, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hasHold(holds, enums.HoldTypeRegulatedCount) {
		t.Fatalf("count hold disabled, got %v", holds)
	}
}
