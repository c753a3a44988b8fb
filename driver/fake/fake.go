// Package fake is an in-memory controller used for bench setups and
// tests. Axes move toward their targets at the configured speed in
// simulated real time, so idle polling behaves like real hardware.
package fake

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PongKJ/zmc-controller-upper/driver"
)

const defaultSpeed = 100 // units per second

type axisState struct {
	pos    float64
	target float64
	speed  float64
	jogDir int
}

type Driver struct {
	mx     sync.Mutex
	closed bool
	axes   [3]axisState
	last   time.Time

	inputs   map[int]bool
	inverted map[int]bool

	spindleOn      bool
	spindleReverse bool
	spindleHz      int

	failErr error
}

var _ driver.Driver = &Driver{}

func New() *Driver {
	d := &Driver{
		last:     time.Now(),
		inputs:   make(map[int]bool),
		inverted: make(map[int]bool),
	}
	for i := range d.axes {
		d.axes[i].speed = defaultSpeed
	}
	return d
}

// Fail makes every subsequent motion or spindle command return err.
// Pass nil to clear.
func (d *Driver) Fail(err error) {
	d.mx.Lock()
	d.failErr = err
	d.mx.Unlock()
}

// SetInput sets the raw level of a digital input.
func (d *Driver) SetInput(io int, on bool) {
	d.mx.Lock()
	d.inputs[io] = on
	d.mx.Unlock()
}

// advance moves every axis toward its target based on elapsed time.
// Callers must hold d.mx.
func (d *Driver) advance() {
	now := time.Now()
	dt := now.Sub(d.last).Seconds()
	d.last = now

	for i := range d.axes {
		a := &d.axes[i]
		step := a.speed * dt
		if a.jogDir != 0 {
			a.pos += step * float64(a.jogDir)
			a.target = a.pos
			continue
		}
		switch {
		case a.pos < a.target:
			a.pos += step
			if a.pos > a.target {
				a.pos = a.target
			}
		case a.pos > a.target:
			a.pos -= step
			if a.pos < a.target {
				a.pos = a.target
			}
		}
	}
}

func (d *Driver) checkAxis(axis int) error {
	if axis < 0 || axis >= len(d.axes) {
		return fmt.Errorf("fake: no such axis %d", axis)
	}
	if d.closed {
		return errors.New("fake: driver closed")
	}
	return nil
}

func (d *Driver) Close() error {
	d.mx.Lock()
	d.closed = true
	d.mx.Unlock()
	return nil
}

func (d *Driver) MoveAbsolute(axes []int, positions []float64) error {
	if len(axes) != len(positions) {
		return errors.New("fake: axes/positions length mismatch")
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.advance()
	for i, axis := range axes {
		if err := d.checkAxis(axis); err != nil {
			return err
		}
		d.axes[axis].target = positions[i]
	}
	return nil
}

func (d *Driver) MoveRelative(axes []int, distances []float64) error {
	if len(axes) != len(distances) {
		return errors.New("fake: axes/distances length mismatch")
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.advance()
	for i, axis := range axes {
		if err := d.checkAxis(axis); err != nil {
			return err
		}
		d.axes[axis].target += distances[i]
	}
	return nil
}

func (d *Driver) SetSpeed(axis int, speed float64) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.checkAxis(axis); err != nil {
		return err
	}
	if d.failErr != nil {
		return d.failErr
	}
	d.advance()
	d.axes[axis].speed = speed
	return nil
}

func (d *Driver) Position(axis int) (float64, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.checkAxis(axis); err != nil {
		return 0, err
	}
	d.advance()
	return d.axes[axis].pos, nil
}

func (d *Driver) Speed(axis int) (float64, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.checkAxis(axis); err != nil {
		return 0, err
	}
	d.advance()
	a := d.axes[axis]
	if a.pos != a.target || a.jogDir != 0 {
		return a.speed, nil
	}
	return 0, nil
}

func (d *Driver) Idle(axis int) (bool, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.checkAxis(axis); err != nil {
		return false, err
	}
	d.advance()
	a := d.axes[axis]
	return a.pos == a.target && a.jogDir == 0, nil
}

func (d *Driver) Input(io int) (bool, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.closed {
		return false, errors.New("fake: driver closed")
	}
	return d.inputs[io] != d.inverted[io], nil
}

func (d *Driver) SetInputInvert(io int, inverted bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.closed {
		return errors.New("fake: driver closed")
	}
	d.inverted[io] = inverted
	return nil
}

func (d *Driver) ConfigureAxis(axis int, cfg driver.AxisConfig) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.checkAxis(axis); err != nil {
		return err
	}
	if cfg.Speed > 0 {
		d.axes[axis].speed = cfg.Speed
	}
	return nil
}

func (d *Driver) RunSpindle(reverse bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.spindleOn = true
	d.spindleReverse = reverse
	return nil
}

func (d *Driver) SetSpindleFrequency(hz int) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.spindleHz = hz
	return nil
}

func (d *Driver) StopSpindle() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.spindleOn = false
	return nil
}

// Spindle reports the simulated converter state.
func (d *Driver) Spindle() (running, reverse bool, hz int) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.spindleOn, d.spindleReverse, d.spindleHz
}

func (d *Driver) Jog(axis, direction int) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.checkAxis(axis); err != nil {
		return err
	}
	if d.failErr != nil {
		return d.failErr
	}
	d.advance()
	d.axes[axis].jogDir = direction
	return nil
}

func (d *Driver) CancelJog(axis int) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.checkAxis(axis); err != nil {
		return err
	}
	d.advance()
	d.axes[axis].jogDir = 0
	d.axes[axis].target = d.axes[axis].pos
	return nil
}

func (d *Driver) ZeroAxis(axis int) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.checkAxis(axis); err != nil {
		return err
	}
	d.axes[axis].pos = 0
	d.axes[axis].target = 0
	return nil
}
