package turn

import (
	"sync"
	"time"
)

// State is the conversational turn state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	case StateProcessing:
		return "PROCESSING"
	case StateSpeaking:
		return "SPEAKING"
	default:
		return "UNKNOWN"
	}
}

// StateChange represents one state transition event.
type StateChange struct {
	From      State
	To        State
	Timestamp time.Time
	Reason    string
}

// StateListener observes turn state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// InvalidTransitionError reports a rejected state transition.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}

var validTransitions = map[State][]State{
	StateIdle:       {StateListening},
	StateListening:  {StateProcessing, StateIdle},
	StateProcessing: {StateSpeaking, StateListening, StateIdle},
	StateSpeaking:   {StateListening, StateIdle},
}

// stateMachine validates transitions and fans state changes out to
// listeners.
type stateMachine struct {
	mu        sync.RWMutex
	current   State
	listeners []StateListener
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateIdle}
}

func (sm *stateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

func (sm *stateMachine) AddListener(l StateListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, l)
}

// Transition moves to a new state, notifying listeners outside the lock.
func (sm *stateMachine) Transition(to State, reason string) error {
	sm.mu.Lock()
	from := sm.current
	if !transitionValid(from, to) {
		sm.mu.Unlock()
		return &InvalidTransitionError{From: from, To: to}
	}
	sm.current = to
	listeners := make([]StateListener, len(sm.listeners))
	copy(listeners, sm.listeners)
	sm.mu.Unlock()

	event := StateChange{From: from, To: to, Timestamp: time.Now(), Reason: reason}
	for _, l := range listeners {
		l.OnStateChange(event)
	}
	return nil
}

func transitionValid(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
