package shell

import (
	"fmt"
	"strings"

	"digital_microscope/internal/device"
)

// NewMicroscope returns a shell exposing the microscope command set on m.
func NewMicroscope(m *device.Machine) *Shell {
	h := &handlers{m: m}
	return New(
		&Command{Name: "mode", Help: "Mode management", Subcommands: []*Command{
			{Name: "set", Help: "Set mode", Handler: h.modeSet},
		}},
		&Command{Name: "illumination", Help: "Illumination control", Subcommands: []*Command{
			{Name: "active", Help: "Control illumination state", Subcommands: []*Command{
				{Name: "on", Help: "Turn illumination on", Handler: h.illuminationOn},
				{Name: "off", Help: "Turn illumination off", Handler: h.illuminationOff},
				{Name: "get", Help: "Get illumination state", Handler: h.illuminationGet},
			}},
			{Name: "value", Help: "Get illumination value", Subcommands: []*Command{
				{Name: "get", Help: "Get illumination value", Handler: h.illuminationValueGet},
				{Name: "increase", Help: "Increase illumination value by 10%", Handler: h.illuminationValueIncrease},
			}},
		}},
		&Command{Name: "tube", Help: "Tube control", Subcommands: []*Command{
			{Name: "move", Help: "Move tube", Subcommands: []*Command{
				{Name: "up", Help: "Move tube up", Handler: h.tubeMoveUp},
				{Name: "down", Help: "Move tube down", Handler: h.tubeMoveDown},
				{Name: "get", Help: "Get tube movement", Handler: h.tubeMoveGet},
			}},
			{Name: "position", Help: "Check tube position", Subcommands: []*Command{
				{Name: "is_upper", Help: "Check if tube is in the upper position", Handler: h.tubeIsUpper},
				{Name: "is_bottom", Help: "Check if tube is in the bottom position", Handler: h.tubeIsBottom},
			}},
		}},
		&Command{Name: "objective", Help: "Objective management", Subcommands: []*Command{
			{Name: "change", Help: "Change to the next objective", Handler: h.objectiveChange},
			{Name: "get", Help: "Get the current objective", Handler: h.objectiveGet},
			{Name: "history", Help: "Get the last two objectives", Handler: h.objectiveHistory},
		}},
		&Command{Name: "system", Help: "System commands", Subcommands: []*Command{
			{Name: "reset", Help: "Reset the system to its default state", Handler: h.systemReset},
		}},
	)
}

type handlers struct {
	m *device.Machine
}

func (h *handlers) modeSet(out *Output, args []string) error {
	if len(args) < 1 {
		out.Printf("Usage: mode set <%s>", strings.Join(device.ModeNames(), "|"))
		return fmt.Errorf("%w: missing mode", device.ErrInvalidArgument)
	}
	mode, err := h.m.SetMode(args[0])
	if err != nil {
		out.Printf("Unknown mode: %s", args[0])
		return err
	}
	out.Printf("Mode set to %s", mode)
	return nil
}

func (h *handlers) illuminationOn(out *Output, _ []string) error {
	h.m.SetIllumination(true)
	out.Printf("Illumination turned on")
	return nil
}

func (h *handlers) illuminationOff(out *Output, _ []string) error {
	h.m.SetIllumination(false)
	out.Printf("Illumination turned off")
	return nil
}

func (h *handlers) illuminationGet(out *Output, _ []string) error {
	switch h.m.Illumination() {
	case device.IlluminationOn:
		out.Printf("Illumination is on")
	case device.IlluminationOff:
		out.Printf("Illumination is off")
	default:
		out.Printf("Illumination state is unknown")
	}
	return nil
}

var illuminationValueLabels = map[device.IlluminationKind]string{
	device.IlluminationActual:     "Actual illumination value",
	device.IlluminationConfigured: "Configured illumination value",
	device.IlluminationMax:        "Maximum illumination value",
}

func (h *handlers) illuminationValueGet(out *Output, args []string) error {
	if len(args) < 1 {
		out.Printf("Usage: illumination value get <actual|configured|max>")
		return fmt.Errorf("%w: missing illumination value kind", device.ErrInvalidArgument)
	}
	kind := device.IlluminationKind(args[0])
	v, err := h.m.IlluminationValue(kind)
	if err != nil {
		out.Printf("Unknown parameter: %s", args[0])
		return err
	}
	out.Printf("%s: %d", illuminationValueLabels[kind], v)
	return nil
}

func (h *handlers) illuminationValueIncrease(out *Output, _ []string) error {
	v := h.m.IncreaseIlluminationConfigured()
	out.Printf("Configured illumination value increased by 10%% to: %d", v)
	return nil
}

func (h *handlers) tubeIsUpper(out *Output, _ []string) error {
	if atTop, height := h.m.IsTubeAtTop(); atTop {
		out.Printf("Tube is in the upper position (height: %d)", height)
	} else {
		out.Printf("Tube is not in the upper position (current height: %d)", height)
	}
	return nil
}

func (h *handlers) tubeIsBottom(out *Output, _ []string) error {
	if atBottom, height := h.m.IsTubeAtBottom(); atBottom {
		out.Printf("Tube is in the bottom position (height: %d)", height)
	} else {
		out.Printf("Tube is not in the bottom position (current height: %d)", height)
	}
	return nil
}

func (h *handlers) tubeMoveUp(out *Output, _ []string) error {
	h.m.MoveTubeUp()
	out.Printf("Tube is moving up")
	return nil
}

func (h *handlers) tubeMoveDown(out *Output, _ []string) error {
	h.m.MoveTubeDown()
	out.Printf("Tube is moving down")
	return nil
}

func (h *handlers) tubeMoveGet(out *Output, _ []string) error {
	switch h.m.TubeMovement() {
	case device.TubeMovingUp:
		out.Printf("Tube is moving upwards")
	case device.TubeMovingDown:
		out.Printf("Tube is moving downwards")
	case device.TubeHold:
		out.Printf("Tube is on hold")
	default:
		out.Printf("Tube state is unknown")
	}
	return nil
}

func (h *handlers) objectiveChange(out *Output, _ []string) error {
	obj, err := h.m.ChangeObjective()
	if err != nil {
		out.Printf("Denied: Change of objective is not allowed while tube moving")
		return err
	}
	out.Printf("Objective changed to %d", obj)
	return nil
}

func (h *handlers) objectiveGet(out *Output, _ []string) error {
	out.Printf("Current objective: %d", h.m.Objective())
	return nil
}

func (h *handlers) objectiveHistory(out *Output, _ []string) error {
	hist := h.m.ObjectiveHistory()
	out.Printf("Previous objectives: %d %d", hist[0], hist[1])
	return nil
}

func (h *handlers) systemReset(out *Output, _ []string) error {
	out.Printf("Resetting system...")
	h.m.Reset()
	return nil
}
