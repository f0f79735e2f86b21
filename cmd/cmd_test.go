package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rakeform/core/model"
)

const requestYAML = `orders:
  - {id: o1, materialId: coal, quantity: 2000, destination: Pune, priority: high, requiredDate: 2024-03-03T00:00:00Z, slaHours: 24}
  - {id: o2, materialId: coal, quantity: 1500, destination: Pune, priority: medium, requiredDate: 2024-03-04T00:00:00Z, slaHours: 24}
  - {id: o3, materialId: coal, quantity: 9000, destination: Pune, priority: low, requiredDate: 2024-03-05T00:00:00Z, slaHours: 24}
rakes:
  - {id: R1, capacity: 4000, location: Bhilai, costPerKm: 10}
  - {id: R2, capacity: 4000, location: Bhilai, costPerKm: 15}
stockyards:
  - id: SY1
    location: Bhilai
    materials:
      coal: {available: 6000}
network:
  defaultDistanceKm: 800
objectiveWeights: {minimizeCost: 1, maximizeUtilization: 1, minimizeDelay: 1, meetSLA: 1}
planningStart: 2024-03-01T00:00:00Z
`

type fixture struct {
	dir     string
	config  string
	request string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{dir: dir, config: filepath.Join(dir, "config.yaml"), request: filepath.Join(dir, "request.yaml")}
	cfg := "history:\n  backend: jsonl\n  path: " + filepath.Join(dir, "plans.jsonl") + "\n"
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(f.request, []byte(requestYAML), 0o644))
	return f
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"-c", f.config, "--env-file", filepath.Join(f.dir, ".env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPlanJSON(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "plan", "-r", f.request, "-a", "greedy")
	require.NoError(t, err)

	var res model.FormationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "greedy", res.Plan.Algorithm)
	assert.Equal(t, 2, res.Plan.AssignedCount())
	require.Len(t, res.Plan.Unassigned, 1)
	assert.Equal(t, "o3", res.Plan.Unassigned[0].OrderID)
	assert.Nil(t, res.Diagnostics.Trace)
}

func TestPlanSeedAndBudget(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "plan", "-r", f.request, "-a", "genetic", "--seed", "42", "--iterations", "5")
	require.NoError(t, err)

	var res model.FormationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "genetic", res.Plan.Algorithm)
	assert.Equal(t, int64(42), res.Diagnostics.Seed)
	assert.LessOrEqual(t, res.Diagnostics.IterationsRun, 5)
}

func TestPlanErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "plan")
	assert.Error(t, err, "request flag is required")

	_, err = f.run(t, "plan", "-r", f.request, "-a", "tabu")
	assert.ErrorContains(t, err, "unknown algorithm")

	_, err = f.run(t, "plan", "-r", f.request, "-f", "csv")
	assert.ErrorContains(t, err, "unknown shorthand flag")
}

func TestHistoryLsAndBest(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "plan", "-r", f.request, "-a", "greedy", "--save")
	require.NoError(t, err)
	_, err = f.run(t, "plan", "-r", f.request, "-a", "annealing", "--iterations", "20", "--seed", "3", "--save")
	require.NoError(t, err)

	out, err := f.run(t, "history", "ls")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "greedy")
	assert.Contains(t, lines[2], "annealing")

	out, err = f.run(t, "history", "ls", "-a", "annealing")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	out, err = f.run(t, "history", "best", "--cost", "1")
	require.NoError(t, err)
	var res model.FormationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.Plan.ID)

	_, err = f.run(t, "history", "best", "--cost", "-1")
	assert.Error(t, err)
}

func TestHistoryNeedsPersistentBackend(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.config, []byte("history:\n  backend: memory\n"), 0o644))
	_, err := f.run(t, "history", "ls")
	assert.ErrorContains(t, err, "keeps no plans")
}

func TestDotenvOverrides(t *testing.T) {
	f := newFixture(t)
	t.Cleanup(func() { os.Unsetenv("K_FORMATION__DEFAULT_ALGORITHM") })
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ".env"), []byte("K_FORMATION__DEFAULT_ALGORITHM=annealing\n"), 0o644))
	out, err := f.run(t, "plan", "-r", f.request, "--iterations", "5")
	require.NoError(t, err)
	var res model.FormationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "annealing", res.Plan.Algorithm)
}
