package runner

import (
	"github.com/PongKJ/zmc-controller-upper/bitmap"
	"github.com/PongKJ/zmc-controller-upper/coord"
	"github.com/PongKJ/zmc-controller-upper/gcode"
)

// Preview synchronously replays the whole program against the path
// bitmap with a simulated cursor, no hardware involved, and returns
// the encoded image. It may run whether or not a run is active.
func (r *Runner) Preview() (string, error) {
	r.mx.Lock()
	lines := r.lines
	r.mx.Unlock()

	bm := r.sess.Bitmap()
	bm.Clear()

	var cur coord.Point
	for _, line := range lines {
		cmd := gcode.ParseLine(line)
		if cmd == nil {
			continue
		}
		previewCommand(bm, cmd, &cur)
	}

	return bm.DataURL()
}

// previewCommand resolves one command to interpolated samples.
// Only motion is drawn; mode and machine-state commands are inert
// here. Coordinates are treated as absolute, matching the live
// interpreter's default.
func previewCommand(bm *bitmap.Bitmap, cmd *gcode.Command, cur *coord.Point) {
	if cmd.Kind != 'G' {
		return
	}
	switch cmd.Number {
	case 0, 1:
		target := *cur
		var hasMove bool
		for _, p := range cmd.Params {
			switch p.Letter {
			case 'X':
				target.X = p.Value
				hasMove = true
			case 'Y':
				target.Y = p.Value
				hasMove = true
			case 'Z':
				target.Z = p.Value
				hasMove = true
			}
		}
		if hasMove {
			bm.DrawLine(*cur, target)
			*cur = target
		}
	case 2, 3:
		target := *cur
		var offset coord.Point
		var hasMove bool
		for _, p := range cmd.Params {
			switch p.Letter {
			case 'X':
				target.X = p.Value
				hasMove = true
			case 'Y':
				target.Y = p.Value
				hasMove = true
			case 'Z':
				target.Z = p.Value
			case 'I':
				offset.X = p.Value
			case 'J':
				offset.Y = p.Value
			}
		}
		if hasMove {
			bm.DrawArc(*cur, target, offset, cmd.Number == 2)
			*cur = target
		}
	}
}
