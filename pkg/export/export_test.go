package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rakeform/core/model"
)

func plan() model.FormationPlan {
	return model.FormationPlan{
		ID:        "p1",
		Algorithm: "greedy",
		Assignments: []model.RakeAssignment{{
			RakeID: "R1", OrderIDs: []string{"o1", "o2"}, TotalLoad: 4000, Utilization: 1,
			SourceStockyard: "SY1", Destination: "Delhi", EstimatedCost: 12000, SLACompliance: 1,
		}},
		Unassigned: []model.UnassignedOrder{{OrderID: "o3", Reason: model.InsufficientMaterial}},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	res := model.FormationResult{Plan: plan(), Diagnostics: model.Diagnostics{Algorithm: "greedy", Converged: true}}
	require.NoError(t, WriteJSON(&buf, res))

	var out model.FormationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "p1", out.Plan.ID)
	assert.True(t, out.Diagnostics.Converged)
	assert.Contains(t, buf.String(), "\n  ")
}
