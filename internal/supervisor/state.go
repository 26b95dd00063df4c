package supervisor

import "parser-agent/internal/session"

type State string

const (
	StatePlanning   State = "PLANNING"
	StateGenerating State = "GENERATING"
	StateTesting    State = "TESTING"
	StateDone       State = "DONE"
)

// Node names as they appear in emitted events.
const (
	NodePlanner   = "planner"
	NodeGenerator = "code_generator"
	NodeTester    = "tester"
)

// Next is the transition function. Only TESTING branches: it ends the run
// on a pass or when the budget is spent, and loops back to planning
// otherwise. DONE is absorbing.
func Next(from State, s *session.Session) State {
	switch from {
	case StatePlanning:
		return StateGenerating
	case StateGenerating:
		return StateTesting
	case StateTesting:
		if s.Passed() || s.AttemptsLeft <= 0 {
			return StateDone
		}
		return StatePlanning
	default:
		return StateDone
	}
}

func nodeName(st State) string {
	switch st {
	case StatePlanning:
		return NodePlanner
	case StateGenerating:
		return NodeGenerator
	case StateTesting:
		return NodeTester
	default:
		return ""
	}
}
