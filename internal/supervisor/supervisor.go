package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parser-agent/internal/logger"
	"parser-agent/internal/metrics"
	"parser-agent/internal/session"
)

var ErrNoAttempts = errors.New("session has no attempts left")

// Node is one step of the loop. It mutates the session it is handed and
// returns an error only when the run cannot go on.
type Node interface {
	Run(ctx context.Context, s *session.Session) error
}

// Event is emitted after every node completes.
type Event struct {
	Node    string          `json:"node"`
	From    State           `json:"from"`
	Next    State           `json:"next_state"`
	Session session.Session `json:"session"`
}

// Controller is the compiled plan → generate → test loop. It holds no
// per-run state and can drive any number of sessions one after another.
type Controller struct {
	nodes map[State]Node
}

func New(planner, generator, tester Node) *Controller {
	return &Controller{nodes: map[State]Node{
		StatePlanning:   planner,
		StateGenerating: generator,
		StateTesting:    tester,
	}}
}

// Run drives s from PLANNING to DONE, calling emit once per transition with a
// copy of the record. Node errors and emit errors stop the run.
func (c *Controller) Run(ctx context.Context, s *session.Session, emit func(Event) error) (*metrics.RunMetrics, error) {
	rm := &metrics.RunMetrics{RunID: s.RunID, Target: s.Target, Start: time.Now()}
	defer func() {
		rm.End = time.Now()
		rm.Finalize()
		rm.Succeeded = s.Passed()
	}()

	if s.AttemptsLeft <= 0 {
		return rm, ErrNoAttempts
	}

	logger.Log.Infow("session started", "run_id", s.RunID, "target", s.Target, "budget", s.AttemptsLeft)

	var cycle *metrics.CycleMetrics
	state := StatePlanning
	for state != StateDone {
		node := c.nodes[state]
		if node == nil {
			return rm, fmt.Errorf("no node registered for state %s", state)
		}

		if state == StatePlanning {
			rm.Cycles = append(rm.Cycles, metrics.CycleMetrics{Attempt: s.Attempt(), Start: time.Now()})
			cycle = &rm.Cycles[len(rm.Cycles)-1]
		}

		before := s.AttemptsLeft
		step := metrics.StepMetrics{Node: nodeName(state), Start: time.Now()}
		err := node.Run(ctx, s)
		step.End = time.Now()
		step.Finalize()
		if err != nil {
			step.Err = err.Error()
		}
		cycle.Steps = append(cycle.Steps, step)

		if err != nil {
			logger.Log.Errorw("node failed", "run_id", s.RunID, "node", step.Node, "error", err)
			return rm, fmt.Errorf("%s: %w", step.Node, err)
		}

		if err := checkBudget(state, before, s.AttemptsLeft); err != nil {
			return rm, err
		}

		next := Next(state, s)
		logger.Log.Infow("transition",
			"run_id", s.RunID,
			"node", step.Node,
			"from", state,
			"next", next,
			"attempts_left", s.AttemptsLeft,
			"duration_ms", step.DurationMs)

		if state == StateTesting {
			cycle.End = time.Now()
			cycle.Passed = s.Passed()
			cycle.Finalize()
		}

		if emit != nil {
			if err := emit(Event{Node: step.Node, From: state, Next: next, Session: s.Snapshot()}); err != nil {
				return rm, fmt.Errorf("emit event: %w", err)
			}
		}
		state = next
	}

	logger.Log.Infow("session finished",
		"run_id", s.RunID,
		"passed", s.Passed(),
		"attempts_used", s.Budget-s.AttemptsLeft)
	return rm, nil
}

// checkBudget enforces that only testing spends attempts, exactly one each.
func checkBudget(st State, before, after int) error {
	want := before
	if st == StateTesting {
		want = before - 1
	}
	if after != want {
		return fmt.Errorf("%s changed attempts left from %d to %d", nodeName(st), before, after)
	}
	return nil
}
