package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rakeform/config"
	"github.com/kilianp07/rakeform/core/model"
)

func request() model.FormationRequest {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return model.FormationRequest{
		Orders: []model.Order{{
			ID: "o1", MaterialID: "coal", Quantity: 3000, Destination: "Pune",
			Priority: model.PriorityHigh, RequiredDate: start.Add(48 * time.Hour), SLAHours: 12,
		}},
		Rakes: []model.RakeResource{{ID: "R1", Capacity: 3500, Location: "Bhilai", CostPerKm: 12}},
		Stockyards: []model.Stockyard{{
			ID: "SY1", Location: "Bhilai",
			Materials: map[string]model.MaterialStock{"coal": {Available: 8000}},
		}},
		Network:       model.Network{DefaultDistanceKm: 900},
		Weights:       model.DefaultWeights(),
		PlanningStart: start,
	}
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.History.Backend = "sqlite"
	cfg.History.Path = filepath.Join(t.TempDir(), "plans.db")
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServiceRunsAndPersists(t *testing.T) {
	ctx := context.Background()
	cfg := newConfig(t)

	svc, err := New(ctx, cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(svc.Handler())

	body, err := json.Marshal(request())
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/formations", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var res model.FormationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"o1"}, res.Plan.Assignments[0].OrderIDs)
	srv.Close()
	require.NoError(t, svc.Close())

	// A new service over the same store sees the stored plan.
	svc, err = New(ctx, cfg)
	require.NoError(t, err)
	defer svc.Close()
	latest, ok := svc.History.Latest()
	require.True(t, ok)
	assert.Equal(t, res.Plan.ID, latest.Plan.ID)
}

func TestServiceRateLimited(t *testing.T) {
	cfg := newConfig(t)
	cfg.Server.RateLimit = 0.001
	cfg.Server.Burst = 1
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	h := svc.Handler()
	codes := make([]int, 2)
	for i := range codes {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/formations", nil))
		codes[i] = rr.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	cfg := newConfig(t)
	cfg.Server.Addr = "127.0.0.1:0"
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestNewRejectsBadStore(t *testing.T) {
	cfg := newConfig(t)
	cfg.History.Backend = "redis"
	cfg.History.URL = "not-a-url"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestServiceRequiresToken(t *testing.T) {
	cfg := newConfig(t)
	cfg.Server.Token = "secret"
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	h := svc.Handler()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/formations", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/formations", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
