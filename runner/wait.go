package runner

import (
	"context"
	"time"

	"github.com/PongKJ/zmc-controller-upper/driver"
)

const idleInterval = 50 * time.Millisecond

var allAxes = []int{driver.AxisX, driver.AxisY, driver.AxisZ}

// waitIdle blocks until every listed axis reports hardware-idle,
// polling at a fixed short interval. There is deliberately no
// timeout; a controller that never settles blocks the run until it
// is stopped.
func (r *Runner) waitIdle(ctx context.Context, axes []int) error {
	t := time.NewTicker(idleInterval)
	defer t.Stop()

	for {
		idleCount := 0
		for _, axis := range axes {
			idle, err := r.sess.Idle(axis)
			if err != nil {
				return err
			}
			if !idle {
				break
			}
			idleCount++
		}
		if idleCount == len(axes) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
