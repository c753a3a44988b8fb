package runner

import (
	"fmt"
	"log"
	"strings"

	"github.com/PongKJ/zmc-controller-upper/driver"
	"github.com/PongKJ/zmc-controller-upper/gcode"
	"github.com/PongKJ/zmc-controller-upper/session"
)

func axisIndex(letter byte) int {
	switch letter {
	case 'X':
		return driver.AxisX
	case 'Y':
		return driver.AxisY
	case 'Z':
		return driver.AxisZ
	}
	return -1
}

// interpContext tracks the bookkeeping that persists across commands:
// commanded program-space position, the program→hardware origin offset
// established by G92, and the positioning mode.
type interpContext struct {
	pos      [3]float64
	offset   [3]float64
	relative bool
}

func newInterpContext() *interpContext {
	return &interpContext{}
}

// move commands one axis to a program-space coordinate, translating
// through the G92 offset and the positioning mode.
func (ic *interpContext) move(sess *session.Manager, axis int, value float64) error {
	target := value
	if ic.relative {
		target = ic.pos[axis] + value
	}
	err := sess.MoveAxisAbs(axis, target+ic.offset[axis])
	if err != nil {
		return err
	}
	ic.pos[axis] = target
	return nil
}

// interpret executes one command against the session. Hardware-call
// failures are returned and abort the run; everything else resolves
// to bookkeeping and a descriptive trace.
func interpret(sess *session.Manager, ic *interpContext, cmd *gcode.Command) error {
	var err error
	switch cmd.Kind {
	case 'G':
		err = interpretG(sess, ic, cmd)
	case 'M':
		err = interpretM(sess, cmd)
	default:
		log.Printf("non-movement command: %c%d", cmd.Kind, cmd.Number)
	}
	return err
}

func interpretG(sess *session.Manager, ic *interpContext, cmd *gcode.Command) error {
	switch cmd.Number {
	case 0, 1:
		desc := "Rapid move to"
		if cmd.Number == 1 {
			desc = "Linear move to"
		}
		for _, p := range cmd.Params {
			switch {
			case p.IsAxis():
				err := ic.move(sess, axisIndex(p.Letter), p.Value)
				if err != nil {
					return err
				}
				desc += fmt.Sprintf(" %g in %c direction,", p.Value, p.Letter)
			case p.Letter == 'F':
				for _, axis := range allAxes {
					if err := sess.SetSpeed(axis, p.Value); err != nil {
						return err
					}
				}
				desc += fmt.Sprintf(" at speed %.0f", p.Value)
			default:
				log.Printf("ignoring unsupported parameter: %c", p.Letter)
			}
		}
		log.Println(desc)
	case 2, 3:
		// live arcs are traced only; the controller performs the
		// interpolation itself, the preview resolves it for display
		log.Println(describeArc(cmd))
	case 4:
		ms, _ := cmd.Arg('P')
		log.Printf("Pause/dwell for %.3f milliseconds", ms)
	case 28:
		return home(sess, ic, cmd)
	case 90:
		ic.relative = false
		log.Println("Set absolute positioning mode")
	case 91:
		ic.relative = true
		log.Println("Set relative positioning mode")
	case 92:
		setOrigin(ic, cmd)
		log.Println("Set position (reset origin point)")
	default:
		log.Printf("Unknown G%d command", cmd.Number)
	}
	return nil
}

func interpretM(sess *session.Manager, cmd *gcode.Command) error {
	switch cmd.Number {
	case 0, 1:
		err := sess.StopSpindle()
		if err != nil {
			return err
		}
		log.Println("Converter stopped, program paused")
	case 3, 4:
		reverse := cmd.Number == 4
		err := sess.RunSpindle(reverse)
		if err != nil {
			return err
		}
		desc := "Spindle on clockwise"
		if reverse {
			desc = "Spindle on counterclockwise"
		}
		if s, ok := cmd.Arg('S'); ok {
			if err = sess.SetSpindleFrequency(int(s)); err != nil {
				return err
			}
			desc += fmt.Sprintf(" at speed %.0f", s)
		}
		log.Println(desc)
	case 5:
		err := sess.StopSpindle()
		if err != nil {
			return err
		}
		log.Println("Spindle stop")
	case 84:
		log.Println("Stop idle hold")
	case 104, 109:
		logTemp(cmd, "extruder", cmd.Number == 109)
	case 140, 190:
		logTemp(cmd, "bed", cmd.Number == 190)
	default:
		log.Printf("Other state change: M%d", cmd.Number)
	}
	return nil
}

// logTemp traces temperature codes; this machine class has no heaters,
// they exist only so generic G-code vocabulary passes through cleanly.
func logTemp(cmd *gcode.Command, what string, wait bool) {
	temp, _ := cmd.Arg('S')
	suffix := ""
	if wait {
		suffix = " and wait"
	}
	log.Printf("Set %s temperature to %.0f°C%s (no hardware, ignored)", what, temp, suffix)
}

// home moves the named axes to machine origin, all three when none
// are named.
func home(sess *session.Manager, ic *interpContext, cmd *gcode.Command) error {
	axes := allAxes
	if cmd.HasAxis() {
		axes = nil
		for _, p := range cmd.Params {
			if p.IsAxis() {
				axes = append(axes, axisIndex(p.Letter))
			}
		}
	}
	names := make([]string, 0, len(axes))
	for _, axis := range axes {
		err := sess.MoveAxisAbs(axis, 0)
		if err != nil {
			return err
		}
		ic.pos[axis] = -ic.offset[axis]
		names = append(names, string([]byte{"XYZ"[axis]}))
	}
	log.Printf("Home %s", strings.Join(names, ", "))
	return nil
}

// setOrigin implements G92: the current position becomes the given
// program coordinates (zero for unnamed axes when no axis is given).
func setOrigin(ic *interpContext, cmd *gcode.Command) {
	if !cmd.HasAxis() {
		for axis := range ic.pos {
			ic.offset[axis] += ic.pos[axis]
			ic.pos[axis] = 0
		}
		return
	}
	for _, p := range cmd.Params {
		if !p.IsAxis() {
			continue
		}
		axis := axisIndex(p.Letter)
		ic.offset[axis] += ic.pos[axis] - p.Value
		ic.pos[axis] = p.Value
	}
}

func describeArc(cmd *gcode.Command) string {
	dir := "clockwise"
	if cmd.Number == 3 {
		dir = "counterclockwise"
	}
	desc := "Arc move " + dir + " to"
	var hasIJ bool
	for _, p := range cmd.Params {
		switch p.Letter {
		case 'X', 'Y', 'Z':
			desc += fmt.Sprintf(" %c:%.3f", p.Letter, p.Value)
		case 'I', 'J':
			hasIJ = true
		case 'R':
			desc += fmt.Sprintf(" with radius %.3f", p.Value)
		case 'F':
			desc += fmt.Sprintf(" at speed %.0f", p.Value)
		}
	}
	if hasIJ {
		desc += " using IJK arc definition"
	}
	return desc
}
