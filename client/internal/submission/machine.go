package submission

import (
	"errors"

	"github.com/you-humble/printq/client/internal/intake"
)

type State string

const (
	StateInactive   State = "inactive"
	StateActive     State = "active"
	StateProcessing State = "processing"
	StateReset      State = "reset"
)

var (
	ErrNotActive = errors.New("nothing to submit")
	ErrInFlight  = errors.New("a submission is already in flight")
)

// Observer is told about every state change.
type Observer func(from, to State)

type Machine struct {
	state    State
	observer Observer
}

func NewMachine(obs Observer) *Machine {
	return &Machine{state: StateInactive, observer: obs}
}

func (m *Machine) State() State { return m.state }

// Sync recomputes Inactive or Active from q. It is a no-op while Processing.
func (m *Machine) Sync(q *intake.Queue) {
	if m.state == StateProcessing {
		return
	}
	if q.Len() > 0 && q.TotalPages() > 0 {
		m.set(StateActive)
		return
	}
	m.set(StateInactive)
}

func (m *Machine) Begin() error {
	switch m.state {
	case StateActive:
		m.set(StateProcessing)
		return nil
	case StateProcessing:
		return ErrInFlight
	default:
		return ErrNotActive
	}
}

// Fail returns a failed submission to Active with the queue untouched.
func (m *Machine) Fail() {
	if m.state != StateProcessing {
		return
	}
	m.set(StateActive)
}

// Succeed clears q and settles in Inactive.
func (m *Machine) Succeed(q *intake.Queue) error {
	if m.state != StateProcessing {
		return ErrNotActive
	}
	m.set(StateReset)

	q.Unfreeze()
	if err := q.Reset(); err != nil {
		return err
	}
	m.set(StateInactive)
	return nil
}

func (m *Machine) set(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	if m.observer != nil {
		m.observer(from, to)
	}
}
