package device

import (
	"fmt"
	"sync"
)

// Machine owns one State and applies transitions to it. All methods are safe
// for concurrent use; each runs to completion under a single lock.
type Machine struct {
	mu       sync.Mutex
	state    State
	defaults State
}

// NewMachine returns a machine in the default state.
func NewMachine() *Machine {
	return NewMachineFrom(DefaultState())
}

// NewMachineFrom returns a machine starting at initial. Reset still restores
// DefaultState.
func NewMachineFrom(initial State) *Machine {
	return &Machine{state: initial, defaults: DefaultState()}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Restore replaces the whole state, e.g. from a persisted snapshot.
func (m *Machine) Restore(s State) error {
	if !s.Valid() {
		return fmt.Errorf("%w: state out of range", ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	return nil
}

// Mode returns the current operating mode.
func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Mode
}

// SetMode stores the mode with the given name. Any transition is allowed.
func (m *Machine) SetMode(name string) (Mode, error) {
	mode, ok := ParseMode(name)
	if !ok {
		return m.Mode(), fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Mode = mode
	return mode, nil
}

func (m *Machine) SetIllumination(on bool) Illumination {
	m.mu.Lock()
	defer m.mu.Unlock()
	if on {
		m.state.Illumination = IlluminationOn
	} else {
		m.state.Illumination = IlluminationOff
	}
	return m.state.Illumination
}

func (m *Machine) Illumination() Illumination {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Illumination
}

// IlluminationValue returns the actual, configured or maximum illumination.
func (m *Machine) IlluminationValue(kind IlluminationKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case IlluminationActual:
		return m.state.IlluminationActual, nil
	case IlluminationConfigured:
		return m.state.IlluminationConfigured, nil
	case IlluminationMax:
		return MaxIlluminationValue, nil
	default:
		return 0, fmt.Errorf("%w: unknown illumination value %q", ErrInvalidArgument, string(kind))
	}
}

// IncreaseIlluminationConfigured adds 10% of the maximum to the configured
// value, clamped to the maximum, and returns the new value.
func (m *Machine) IncreaseIlluminationConfigured() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	step := MaxIlluminationValue * illuminationStepPercent / 100
	m.state.IlluminationConfigured += step
	if m.state.IlluminationConfigured > MaxIlluminationValue {
		m.state.IlluminationConfigured = MaxIlluminationValue
	}
	return m.state.IlluminationConfigured
}

// updateTubeHeight advances the simulated tube by one step. Reaching a bound
// stops the tube and returns the microscope to normal mode. Caller holds mu.
func (m *Machine) updateTubeHeight() {
	switch m.state.TubeState {
	case TubeMovingUp:
		m.state.TubeHeight++
		if m.state.TubeHeight >= TubeMaxHeight {
			m.state.TubeHeight = TubeMaxHeight
			m.stopTube()
		}
	case TubeMovingDown:
		m.state.TubeHeight--
		if m.state.TubeHeight <= TubeMinHeight {
			m.state.TubeHeight = TubeMinHeight
			m.stopTube()
		}
	}
}

func (m *Machine) stopTube() {
	m.state.TubeState = TubeHold
	m.state.Mode = ModeNormal
}

// IsTubeAtTop advances the tube one step and reports whether it is at the
// upper bound, along with the current height. Motion only progresses when
// the position is polled.
func (m *Machine) IsTubeAtTop() (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateTubeHeight()
	return m.state.TubeHeight == TubeMaxHeight, m.state.TubeHeight
}

// IsTubeAtBottom is the lower-bound counterpart of IsTubeAtTop.
func (m *Machine) IsTubeAtBottom() (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateTubeHeight()
	return m.state.TubeHeight == TubeMinHeight, m.state.TubeHeight
}

// MoveTubeUp starts moving the tube up. It is not guarded against an
// ongoing move or a busy mode.
func (m *Machine) MoveTubeUp() {
	m.moveTube(TubeMovingUp)
}

// MoveTubeDown starts moving the tube down, unguarded like MoveTubeUp.
func (m *Machine) MoveTubeDown() {
	m.moveTube(TubeMovingDown)
}

func (m *Machine) moveTube(dir TubeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.TubeState = dir
	m.state.Mode = ModeTubeMoving
}

func (m *Machine) TubeMovement() TubeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.TubeState
}

// ChangeObjective turns the turret to the next objective and records the
// previous one. It is refused while the tube is moving.
func (m *Machine) ChangeObjective() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Mode == ModeTubeMoving {
		return m.state.Objective, fmt.Errorf("%w: objective change while tube moving", ErrPermissionDenied)
	}
	previous := m.state.Objective
	// objectives are numbered from 1
	m.state.Objective = previous%MaxObjectives + 1
	m.state.ObjectiveHistory[1] = m.state.ObjectiveHistory[0]
	m.state.ObjectiveHistory[0] = previous
	return m.state.Objective, nil
}

func (m *Machine) Objective() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Objective
}

// ObjectiveHistory returns the two last replaced objectives, most recent
// first; empty slots hold NoObjective.
func (m *Machine) ObjectiveHistory() [2]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ObjectiveHistory
}

// Reset restores the default state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = m.defaults
}
