package supervisor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parser-agent/internal/session"
)

type funcNode func(ctx context.Context, s *session.Session) error

func (f funcNode) Run(ctx context.Context, s *session.Session) error { return f(ctx, s) }

// scriptedTester consumes one attempt per call and reports outcomes in order.
type scriptedTester struct {
	outcomes []string
	calls    int
}

func (st *scriptedTester) Run(_ context.Context, s *session.Session) error {
	s.TestResult = st.outcomes[st.calls]
	st.calls++
	s.AttemptsLeft--
	return nil
}

type harness struct {
	plans, generations int
	tester             *scriptedTester
	events             []Event
}

func newHarness(outcomes ...string) (*harness, *Controller) {
	h := &harness{tester: &scriptedTester{outcomes: outcomes}}
	planner := funcNode(func(_ context.Context, s *session.Session) error {
		h.plans++
		s.Plan = fmt.Sprintf("plan %d after %q", h.plans, s.TestResult)
		return nil
	})
	generator := funcNode(func(_ context.Context, s *session.Session) error {
		h.generations++
		s.GeneratedCode = fmt.Sprintf("# candidate %d\n", h.generations)
		return nil
	})
	return h, New(planner, generator, h.tester)
}

func (h *harness) emit(e Event) error {
	h.events = append(h.events, e)
	return nil
}

func newSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New("run", "icici", session.DefaultBudget, session.DefaultLayout())
	require.NoError(t, err)
	return s
}

const mismatch = "Error: DataFrame does not match the expected output.\nExpected:\n...\nActual:\n..."

func TestNext(t *testing.T) {
	s := newSession(t)
	assert.Equal(t, StateGenerating, Next(StatePlanning, s))
	assert.Equal(t, StateTesting, Next(StateGenerating, s))
	assert.Equal(t, StateDone, Next(StateDone, s))

	s.TestResult = mismatch
	s.AttemptsLeft = 1
	assert.Equal(t, StatePlanning, Next(StateTesting, s))

	s.AttemptsLeft = 0
	assert.Equal(t, StateDone, Next(StateTesting, s))

	s.AttemptsLeft = 2
	s.TestResult = session.SuccessMarker
	assert.Equal(t, StateDone, Next(StateTesting, s))
}

func TestRun_SuccessFirstCycle(t *testing.T) {
	h, c := newHarness(session.SuccessMarker)
	s := newSession(t)

	rm, err := c.Run(context.Background(), s, h.emit)
	require.NoError(t, err)

	assert.Equal(t, 2, s.AttemptsLeft, "exactly one attempt consumed")
	assert.True(t, s.Passed())
	require.Len(t, h.events, 3)
	assert.Equal(t, []string{NodePlanner, NodeGenerator, NodeTester}, nodes(h.events))
	assert.Equal(t, StateDone, h.events[2].Next)
	assert.True(t, rm.Succeeded)
	require.Len(t, rm.Cycles, 1)
	assert.Len(t, rm.Cycles[0].Steps, 3)
}

func TestRun_MismatchThenSuccess(t *testing.T) {
	h, c := newHarness(mismatch, session.SuccessMarker)
	s := newSession(t)

	_, err := c.Run(context.Background(), s, h.emit)
	require.NoError(t, err)

	assert.Equal(t, 1, s.AttemptsLeft)
	assert.Equal(t, 2, h.plans)
	require.Len(t, h.events, 6)
	assert.Equal(t, StatePlanning, h.events[2].Next, "failed test loops back to planning")
	assert.Contains(t, h.events[3].Session.Plan, "does not match", "planner saw the previous diagnostic")
}

func TestRun_Exhaustion(t *testing.T) {
	h, c := newHarness(mismatch+" 1", mismatch+" 2", mismatch+" 3")
	s := newSession(t)

	rm, err := c.Run(context.Background(), s, h.emit)
	require.NoError(t, err)

	assert.Equal(t, 0, s.AttemptsLeft)
	assert.Equal(t, 3, h.tester.calls, "never more cycles than the budget")
	assert.Equal(t, mismatch+" 3", s.TestResult, "last diagnostic retained")
	assert.False(t, rm.Succeeded)
	assert.Len(t, rm.Cycles, 3)

	require.Len(t, h.events, 9)
	last := h.events[len(h.events)-1]
	assert.Equal(t, StateDone, last.Next)
	assert.Equal(t, mismatch+" 3", last.Session.TestResult)
}

func TestRun_AttemptsTrackCycles(t *testing.T) {
	h, c := newHarness(mismatch, mismatch, mismatch)
	s := newSession(t)

	_, err := c.Run(context.Background(), s, h.emit)
	require.NoError(t, err)

	cycles := 0
	for _, e := range h.events {
		if e.Node == NodeTester {
			cycles++
		}
		assert.Equal(t, session.DefaultBudget-cycles, e.Session.AttemptsLeft, "after %s", e.Node)
	}
}

func TestRun_EventsAreSnapshots(t *testing.T) {
	h, c := newHarness(mismatch, session.SuccessMarker)
	s := newSession(t)

	_, err := c.Run(context.Background(), s, h.emit)
	require.NoError(t, err)

	assert.Equal(t, "# candidate 1\n", h.events[1].Session.GeneratedCode)
	assert.Equal(t, "# candidate 2\n", h.events[4].Session.GeneratedCode)
	assert.Equal(t, session.NoTestYet, h.events[0].Session.TestResult)
}

func TestRun_NodeErrorIsFatal(t *testing.T) {
	boom := errors.New("model unavailable")
	tester := &scriptedTester{outcomes: []string{mismatch}}
	calls := 0
	planner := funcNode(func(context.Context, *session.Session) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	generator := funcNode(func(context.Context, *session.Session) error { return nil })
	c := New(planner, generator, tester)
	s := newSession(t)

	var events []Event
	_, err := c.Run(context.Background(), s, func(e Event) error {
		events = append(events, e)
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, NodePlanner)
	assert.Len(t, events, 3, "no event for the failed node")
	assert.Equal(t, 2, s.AttemptsLeft)
}

func TestRun_BudgetMisuse(t *testing.T) {
	c := New(
		funcNode(func(_ context.Context, s *session.Session) error { s.AttemptsLeft--; return nil }),
		funcNode(func(context.Context, *session.Session) error { return nil }),
		&scriptedTester{outcomes: []string{mismatch}},
	)
	_, err := c.Run(context.Background(), newSession(t), nil)
	assert.ErrorContains(t, err, "changed attempts left")

	double := New(
		funcNode(func(context.Context, *session.Session) error { return nil }),
		funcNode(func(context.Context, *session.Session) error { return nil }),
		funcNode(func(_ context.Context, s *session.Session) error { s.AttemptsLeft -= 2; return nil }),
	)
	_, err = double.Run(context.Background(), newSession(t), nil)
	assert.ErrorContains(t, err, "changed attempts left")
}

func TestRun_NoAttempts(t *testing.T) {
	_, c := newHarness()
	s := newSession(t)
	s.AttemptsLeft = 0

	_, err := c.Run(context.Background(), s, nil)
	assert.ErrorIs(t, err, ErrNoAttempts)
}

func TestRun_EmitErrorStops(t *testing.T) {
	h, c := newHarness(session.SuccessMarker)
	stop := errors.New("broken pipe")

	_, err := c.Run(context.Background(), newSession(t), func(Event) error { return stop })

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 0, h.generations)
}

func nodes(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Node)
	}
	return out
}
