package metrics

import "time"

type StepMetrics struct {
	Node       string    `json:"node"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Err        string    `json:"err,omitempty"`
}

type CycleMetrics struct {
	Attempt    int           `json:"attempt"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	Passed     bool          `json:"passed"`
	Steps      []StepMetrics `json:"steps"`
}

type RunMetrics struct {
	RunID      string         `json:"run_id"`
	Target     string         `json:"target"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	DurationMs int64          `json:"duration_ms"`
	Succeeded  bool           `json:"succeeded"`
	Cycles     []CycleMetrics `json:"cycles"`
}

// Compute derived fields for a step.
func (s *StepMetrics) Finalize() {
	s.DurationMs = s.End.Sub(s.Start).Milliseconds()
}

func (c *CycleMetrics) Finalize() {
	c.DurationMs = c.End.Sub(c.Start).Milliseconds()
}

func (r *RunMetrics) Finalize() {
	r.DurationMs = r.End.Sub(r.Start).Milliseconds()
}
