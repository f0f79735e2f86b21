package metrics_test

import (
	"slices"
	"testing"

	"github.com/kilianp07/rakeform/core/factory"
	metrics "github.com/kilianp07/rakeform/core/metrics"
	_ "github.com/kilianp07/rakeform/infra/metrics"
)

/*
TestMetricsFactory_Builtins verifies the sinks registered by infra/metrics.

	Cases:
	- nop, prometheus and influx are available
	- unknown type returns error
*/
func TestMetricsFactory_Builtins(t *testing.T) {
	types := metrics.SinkTypes()
	for _, want := range []string{"nop", "prometheus", "influx"} {
		if !slices.Contains(types, want) {
			t.Errorf("sink %q not registered (have %v)", want, types)
		}
	}
	if _, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

/*
TestNewMetricsSink_Multi validates NewMetricsSink with zero, one and two configs.
*/
func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create single: %v", err)
	}
	if _, ok := s.(*metrics.MultiSink); ok {
		t.Fatal("single config must not be wrapped")
	}

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
}
