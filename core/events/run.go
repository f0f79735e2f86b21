package events

import (
	"time"

	"github.com/kilianp07/rakeform/core/model"
)

// Stage identifies where in its lifecycle a formation run is.
type Stage string

const (
	StageStarted   Stage = "started"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// RunEvent is published when a formation run starts, completes or fails.
type RunEvent struct {
	RunID     string
	Algorithm string
	Stage     Stage
	Orders    int
	Result    *model.FormationResult
	Err       error
	Time      time.Time
}

// InconsistencyEvent is published when a finished plan breaks an invariant
// and an assignment is discarded.
type InconsistencyEvent struct {
	RunID    string
	RakeID   string
	OrderIDs []string
	Detail   string
}
