package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/rakeform/core/metrics"
)

func TestPromSink_RecordFormation(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	rec := coremetrics.FormationRecord{
		Algorithm: "greedy", TotalCost: 12000, SLACompliance: 50, Score: 0.3,
		Converged: true, Time: time.Now(),
	}
	if err := sink.RecordFormation(rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = sink.RecordFormation(rec)

	if v := testutil.ToFloat64(sink.runs.WithLabelValues("greedy", "true")); v != 2 {
		t.Errorf("runs = %v, want 2", v)
	}
	if v := testutil.ToFloat64(sink.cost.WithLabelValues("greedy")); v != 12000 {
		t.Errorf("cost = %v", v)
	}
	if v := testutil.ToFloat64(sink.sla.WithLabelValues("greedy")); v != 50 {
		t.Errorf("sla = %v", v)
	}
	if v := testutil.ToFloat64(sink.score.WithLabelValues("greedy")); v != 0.3 {
		t.Errorf("score = %v", v)
	}
}

func TestPromSink_OptionalRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	_ = sink.RecordUnassigned([]coremetrics.UnassignedEvent{
		{Algorithm: "genetic", Reason: "InsufficientMaterial"},
		{Algorithm: "genetic", Reason: "InsufficientMaterial"},
		{Algorithm: "genetic", Reason: "NoCompatibleRake"},
	})
	if v := testutil.ToFloat64(sink.unassigned.WithLabelValues("genetic", "InsufficientMaterial")); v != 2 {
		t.Errorf("unassigned = %v, want 2", v)
	}

	_ = sink.RecordRakeLoads([]coremetrics.RakeLoadEvent{
		{RakeID: "R1", Stockyard: "SY1", Load: 3000, Utilization: 0.75},
		{RakeID: "R2", Stockyard: "SY1", Load: 1000, Utilization: 0.25, Partial: true},
	})
	_ = sink.RecordRakeLoads([]coremetrics.RakeLoadEvent{
		{RakeID: "R3", Stockyard: "SY2", Load: 2000, Utilization: 0.5},
	})
	if n := testutil.CollectAndCount(sink.rakeLoad); n != 1 {
		t.Errorf("rake load series = %d, want 1 after reset", n)
	}
	if v := testutil.ToFloat64(sink.rakeUtil.WithLabelValues("R3", "false")); v != 0.5 {
		t.Errorf("utilization = %v", v)
	}

	_ = sink.RecordInconsistency(coremetrics.InconsistencyEvent{RakeID: "R1"})
	if v := testutil.ToFloat64(sink.inconsistency); v != 1 {
		t.Errorf("inconsistencies = %v", v)
	}
	_ = sink.RecordRunFailure(coremetrics.RunFailureEvent{Algorithm: "annealing"})
	if v := testutil.ToFloat64(sink.failures.WithLabelValues("annealing")); v != 1 {
		t.Errorf("failures = %v", v)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	_ = first.RecordFormation(coremetrics.FormationRecord{Algorithm: "greedy", Converged: true})
	if v := testutil.ToFloat64(second.runs.WithLabelValues("greedy", "true")); v != 1 {
		t.Errorf("second sink should share counters, got %v", v)
	}
}

func TestPromHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	_ = sink.RecordFormation(coremetrics.FormationRecord{Algorithm: "greedy", TotalCost: 42})

	srv := httptest.NewServer(PromHandler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `rakeform_plan_cost{algorithm="greedy"} 42`) {
		t.Errorf("cost gauge missing from exposition:\n%s", body)
	}
}
