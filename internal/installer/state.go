package installer

import "fmt"

// State is a stage of an install run.
type State string

const (
	StateIdle             State = "idle"
	StateCheckingManifest State = "checkingManifest"
	StateLoadingMetadata  State = "loadingMetadata"
	StateDownloading      State = "downloading"
	StateValidating       State = "validating"
	StateSaving           State = "saving"
	StateDone             State = "done"
	StateFailed           State = "failed"
	StateCancelled        State = "cancelled"
)

var transitions = map[State][]State{
	StateIdle:             {StateCheckingManifest},
	StateCheckingManifest: {StateLoadingMetadata},
	StateLoadingMetadata:  {StateDownloading},
	StateDownloading:      {StateValidating},
	StateValidating:       {StateSaving},
	StateSaving:           {StateDone},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether a run in s may move to next.
// Failed and Cancelled are reachable from every non-terminal state.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed || next == StateCancelled {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type stateMachine struct {
	current State
	history []State
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateIdle, history: []State{StateIdle}}
}

func (m *stateMachine) enter(next State) error {
	if !m.current.CanTransition(next) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, next)
	}
	m.current = next
	m.history = append(m.history, next)
	return nil
}
