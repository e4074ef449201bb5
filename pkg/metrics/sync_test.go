package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetrics(reg)

	metrics.ObserveCRMCall("create_deal", 250*time.Millisecond)
	metrics.IncGroupOutcome("synced")
	metrics.IncGroupOutcome("failed")
	metrics.IncOrdersReceived()
	metrics.IncDedupDemotions()
	metrics.IncHoldApplied("FFL not on file")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "sync_group_outcome", "outcome", "synced"); err != nil {
		t.Fatalf("fetch synced outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected synced=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "sync_group_outcome", "outcome", "failed"); err != nil {
		t.Fatalf("fetch failed outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "compliance_holds_applied", "hold", "FFL not on file"); err != nil {
		t.Fatalf("fetch hold counter: %v", err)
	} else if got != 1 {
		t.Fatalf("expected hold=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "crm_call_duration_seconds", "operation", "create_deal"); err != nil {
		t.Fatalf("fetch crm duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestSyncMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewSyncMetrics(nil)
	metrics.ObserveCRMCall("create_deal", time.Second)
	metrics.IncGroupOutcome("synced")
	metrics.IncOrdersReceived()
	metrics.IncDedupDemotions()
	metrics.IncHoldApplied("Gun Count Rule")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
