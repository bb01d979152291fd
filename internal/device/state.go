package device

// Simulation bounds.
const (
	MaxIlluminationValue = 100
	TubeMinHeight        = 0
	TubeMaxHeight        = 10
	MaxObjectives        = 5

	// NoObjective marks an empty slot in the objective history.
	NoObjective = -1

	// illuminationStepPercent is the share of the maximum added per increase.
	illuminationStepPercent = 10
)

// State is the complete simulated status of the microscope.
type State struct {
	Mode                   Mode
	Illumination           Illumination
	TubeState              TubeState
	IlluminationActual     int
	IlluminationConfigured int
	TubeHeight             int
	Objective              int
	// ObjectiveHistory holds the two most recently replaced objectives,
	// most recent first.
	ObjectiveHistory [2]int
}

// DefaultState returns the power-on state.
func DefaultState() State {
	return State{
		Mode:                   ModeNormal,
		Illumination:           IlluminationUnknown,
		TubeState:              TubeHold,
		IlluminationActual:     50,
		IlluminationConfigured: 50,
		TubeHeight:             5,
		Objective:              1,
		ObjectiveHistory:       [2]int{NoObjective, NoObjective},
	}
}

// Valid reports whether s satisfies the range invariants. Used when a state
// comes from outside the machine, e.g. a restored snapshot.
func (s State) Valid() bool {
	if s.TubeHeight < TubeMinHeight || s.TubeHeight > TubeMaxHeight {
		return false
	}
	if s.Objective < 1 || s.Objective > MaxObjectives {
		return false
	}
	for _, v := range [...]int{s.IlluminationActual, s.IlluminationConfigured} {
		if v < 0 || v > MaxIlluminationValue {
			return false
		}
	}
	for _, h := range s.ObjectiveHistory {
		if h != NoObjective && (h < 1 || h > MaxObjectives) {
			return false
		}
	}
	return true
}
