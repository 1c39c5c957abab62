package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/islandport/actuator/internal/domain"
)

func TestObserveTickUpdatesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	decision := domain.Prefetch(1, "utility-ranked", []domain.IslandKey{domain.PackKey(1, 1, 0)})
	signals := domain.PressureSignals{CPUPressure: 0.4, NetPressure: 0.2}
	m.ObserveTick(0.002, decision, signals, 3, 2, 40000)

	if v := gaugeValue(t, m.SchedulerQueue); v != 3 {
		t.Fatalf("SchedulerQueue = %v, want 3", v)
	}
	if v := gaugeValue(t, m.InflightCount); v != 2 {
		t.Fatalf("InflightCount = %v, want 2", v)
	}
	if v := gaugeValue(t, m.InflightBytes); v != 40000 {
		t.Fatalf("InflightBytes = %v, want 40000", v)
	}
	if v := gaugeValue(t, m.CPUPressure); v != 0.4 {
		t.Fatalf("CPUPressure = %v, want 0.4", v)
	}

	count := counterVecTotal(t, m.DecisionsByKind, "Prefetch", "utility-ranked")
	if count != 1 {
		t.Fatalf("expected 1 decision recorded, got %v", count)
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterVecTotal(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter: %v", err)
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
