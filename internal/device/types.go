package device

// Mode is the operating mode of the microscope.
type Mode int

const (
	ModeNormal Mode = iota
	ModeHoming
	ModeSamplePrep
	ModeCapture
	ModeTubeMoving
)

// modeNames maps every mode to the name used on the command line.
var modeNames = map[Mode]string{
	ModeNormal:     "normal",
	ModeHoming:     "homing",
	ModeSamplePrep: "sample_prep",
	ModeCapture:    "capture",
	ModeTubeMoving: "tube_moving",
}

// modeOrder fixes the order used in usage lines.
var modeOrder = []Mode{ModeNormal, ModeHoming, ModeSamplePrep, ModeCapture, ModeTubeMoving}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ModeNames returns the accepted mode names in declaration order.
func ModeNames() []string {
	out := make([]string, 0, len(modeOrder))
	for _, m := range modeOrder {
		out = append(out, modeNames[m])
	}
	return out
}

// ParseMode looks up a mode by its exact command-line name.
func ParseMode(name string) (Mode, bool) {
	for m, n := range modeNames {
		if n == name {
			return m, true
		}
	}
	return ModeNormal, false
}

// Illumination is the binary light state. Unknown is only seen before the
// first illumination command.
type Illumination int

const (
	IlluminationUnknown Illumination = iota
	IlluminationOn
	IlluminationOff
)

func (i Illumination) String() string {
	switch i {
	case IlluminationOn:
		return "on"
	case IlluminationOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseIllumination is the inverse of Illumination.String.
func ParseIllumination(s string) (Illumination, bool) {
	switch s {
	case "on":
		return IlluminationOn, true
	case "off":
		return IlluminationOff, true
	case "unknown":
		return IlluminationUnknown, true
	}
	return IlluminationUnknown, false
}

// TubeState is the movement state of the focus tube.
type TubeState int

const (
	TubeHold TubeState = iota
	TubeMovingUp
	TubeMovingDown
)

func (t TubeState) String() string {
	switch t {
	case TubeHold:
		return "hold"
	case TubeMovingUp:
		return "moving_up"
	case TubeMovingDown:
		return "moving_down"
	default:
		return "unknown"
	}
}

// ParseTubeState is the inverse of TubeState.String.
func ParseTubeState(s string) (TubeState, bool) {
	switch s {
	case "hold":
		return TubeHold, true
	case "moving_up":
		return TubeMovingUp, true
	case "moving_down":
		return TubeMovingDown, true
	}
	return TubeHold, false
}

// IlluminationKind selects one of the illumination values.
type IlluminationKind string

const (
	IlluminationActual     IlluminationKind = "actual"
	IlluminationConfigured IlluminationKind = "configured"
	IlluminationMax        IlluminationKind = "max"
)
