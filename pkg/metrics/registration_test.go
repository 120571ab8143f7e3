package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRegistrationMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistrationMetrics(reg)

	m.IncOutcome("submit", "ok")
	m.IncOutcome("submit", "THROTTLED")
	m.IncOutcome("submit", "THROTTLED")
	m.IncSideEffectFailure("notify_user")
	m.ObserveOutbound("dm", nil, 120*time.Millisecond)
	m.ObserveOutbound("dm", errors.New("closed dms"), 80*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "registration_outcomes_total", map[string]string{"op": "submit", "outcome": "THROTTLED"}); err != nil {
		t.Fatalf("fetch outcome: %v", err)
	} else if got != 2 {
		t.Fatalf("expected THROTTLED=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "registration_side_effect_failures_total", map[string]string{"effect": "notify_user"}); err != nil {
		t.Fatalf("fetch side effect: %v", err)
	} else if got != 1 {
		t.Fatalf("expected notify_user=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbound_calls_total", map[string]string{"call": "dm", "result": "error"}); err != nil {
		t.Fatalf("fetch outbound: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dm error=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "outbound_call_duration_seconds", map[string]string{"call": "dm"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilRegistrationMetricsIsNoop(t *testing.T) {
	var m *RegistrationMetrics
	m.IncOutcome("approve", "ok")
	m.IncSideEffectFailure("grant_access")
	m.ObserveOutbound("role_add", nil, time.Second)

	NewRegistrationMetrics(nil).IncOutcome("approve", "ok")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
