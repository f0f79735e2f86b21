package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/rakeform/core/metrics"
	"github.com/kilianp07/rakeform/infra/logger"
)

// InfluxSink writes formation runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordFormation writes one formation_run point.
func (s *InfluxSink) RecordFormation(rec coremetrics.FormationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("formation_run").
		AddTag("plan_id", rec.PlanID).
		AddTag("algorithm", rec.Algorithm).
		AddTag("converged", strconv.FormatBool(rec.Converged)).
		AddField("orders", rec.Orders).
		AddField("assigned", rec.Assigned).
		AddField("unassigned", rec.Unassigned).
		AddField("rakes", rec.Rakes).
		AddField("discarded", rec.Discarded).
		AddField("total_cost", round3(rec.TotalCost)).
		AddField("utilization", round3(rec.Utilization)).
		AddField("sla_compliance", round3(rec.SLACompliance)).
		AddField("score", round3(rec.Score)).
		AddField("iterations", rec.Iterations).
		AddField("elapsed_ms", round3(rec.Elapsed.Seconds()*1000)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordUnassigned writes one unassigned_order point per order.
func (s *InfluxSink) RecordUnassigned(evs []coremetrics.UnassignedEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, e := range evs {
		p := write.NewPointWithMeasurement("unassigned_order").
			AddTag("plan_id", e.PlanID).
			AddTag("algorithm", e.Algorithm).
			AddTag("reason", e.Reason).
			AddField("order_id", e.OrderID).
			SetTime(e.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordRakeLoads writes one rake_load point per rake of the plan.
func (s *InfluxSink) RecordRakeLoads(evs []coremetrics.RakeLoadEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, e := range evs {
		p := write.NewPointWithMeasurement("rake_load").
			AddTag("plan_id", e.PlanID).
			AddTag("rake_id", e.RakeID).
			AddTag("stockyard", e.Stockyard).
			AddTag("destination", e.Destination).
			AddTag("partial", strconv.FormatBool(e.Partial)).
			AddField("load_t", round3(e.Load)).
			AddField("utilization", round3(e.Utilization)).
			AddField("cost", round3(e.Cost)).
			SetTime(e.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordInconsistency writes an assignment discarded by verification.
func (s *InfluxSink) RecordInconsistency(ev coremetrics.InconsistencyEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_inconsistency").
		AddTag("run_id", ev.RunID).
		AddTag("rake_id", ev.RakeID).
		AddField("orders", ev.Orders).
		AddField("detail", ev.Detail).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRunFailure writes a run that ended with an error.
func (s *InfluxSink) RecordRunFailure(ev coremetrics.RunFailureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("run_failure").
		AddTag("run_id", ev.RunID).
		AddTag("algorithm", ev.Algorithm).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
