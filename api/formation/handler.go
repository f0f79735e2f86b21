package formation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	coreformation "github.com/kilianp07/rakeform/core/formation"
	"github.com/kilianp07/rakeform/core/history"
	"github.com/kilianp07/rakeform/core/model"
	"github.com/kilianp07/rakeform/infra/logger"
)

// maxBody bounds the size of a formation request.
const maxBody = 10 << 20

// Runner runs one formation request.
type Runner interface {
	Run(ctx context.Context, req model.FormationRequest) (model.FormationResult, error)
}

// BestResponse is the body of GET /api/formations/best.
type BestResponse struct {
	Result model.FormationResult `json:"result"`
	Score  float64               `json:"score"`
}

type handler struct {
	runner  Runner
	history *history.PlanHistory
	log     logger.Logger
}

// NewHandler returns the formation API:
//
//	POST   /api/formations       run a request, 400 when it is invalid
//	GET    /api/formations       list stored plans (algorithm, since, until, limit)
//	GET    /api/formations/best  best stored plan under the query weights
//	DELETE /api/formations       clear the history
func NewHandler(runner Runner, hist *history.PlanHistory, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &handler{runner: runner, history: hist, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/formations", h.run)
	mux.HandleFunc("GET /api/formations", h.list)
	mux.HandleFunc("GET /api/formations/best", h.best)
	mux.HandleFunc("DELETE /api/formations", h.clear)
	return mux
}

func (h *handler) run(w http.ResponseWriter, r *http.Request) {
	var req model.FormationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "decode request: "+err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.runner.Run(r.Context(), req)
	switch {
	case errors.Is(err, coreformation.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		h.log.Errorf("formation run failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := q.Apply(h.history.List())
	if out == nil {
		out = []model.FormationResult{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) best(w http.ResponseWriter, r *http.Request) {
	weights, err := parseWeights(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, score, ok := h.history.BestPlan(weights)
	if !ok {
		http.Error(w, "no formation plans recorded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, BestResponse{Result: res, Score: score})
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		h.log.Errorf("clear history: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseQuery(r *http.Request) (history.Query, error) {
	v := r.URL.Query()
	q := history.Query{Algorithm: v.Get("algorithm")}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"since", &q.Since}, {"until", &q.Until}} {
		s := v.Get(p.key)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("invalid " + p.key + ": " + err.Error())
		}
		*p.dst = t
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("invalid limit " + strconv.Quote(s))
		}
		q.Limit = n
	}
	return q, nil
}

// parseWeights reads cost, utilization, delay and sla from the query string.
// Without any of them the default even split is used.
func parseWeights(r *http.Request) (model.ObjectiveWeights, error) {
	v := r.URL.Query()
	var w model.ObjectiveWeights
	given := false
	for _, p := range []struct {
		key string
		dst *float64
	}{
		{"cost", &w.MinimizeCost},
		{"utilization", &w.MaximizeUtilization},
		{"delay", &w.MinimizeDelay},
		{"sla", &w.MeetSLA},
	} {
		s := v.Get(p.key)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return w, errors.New("invalid weight " + p.key + ": " + err.Error())
		}
		*p.dst = f
		given = true
	}
	if !given {
		return model.DefaultWeights(), nil
	}
	return w, w.Validate()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
