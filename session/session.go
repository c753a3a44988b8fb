// Package session owns exclusive access to the controller handle: its
// open/close lifecycle, the machine parameters, and the background
// polling loop that refreshes the status snapshot and feeds the path
// bitmap.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/PongKJ/zmc-controller-upper/bitmap"
	"github.com/PongKJ/zmc-controller-upper/coord"
	"github.com/PongKJ/zmc-controller-upper/driver"
)

var (
	ErrNotOpen     = errors.New("session: controller not open")
	ErrAlreadyOpen = errors.New("session: controller already open")
)

const (
	pollInterval = 50 * time.Millisecond
	// limit switches and the full status publish happen once per
	// heavyEvery ticks to bound expensive-read cost
	heavyEvery = 20
)

// Manager holds at most one open controller handle. The lock is held
// for the duration of each hardware call, serializing device access
// between the poll loop and the execution loop.
type Manager struct {
	dial driver.DialFunc
	bm   *bitmap.Bitmap

	mx     sync.Mutex
	drv    driver.Driver // nil when closed
	params Params
	last   Status

	state  chan Status
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(dial driver.DialFunc, bm *bitmap.Bitmap) *Manager {
	return &Manager{
		dial:   dial,
		bm:     bm,
		params: DefaultParams(),
		state:  make(chan Status, 1),
	}
}

// State delivers a full status snapshot after every heavy poll tick.
// Snapshots are dropped, not queued, when the receiver lags.
func (m *Manager) State() <-chan Status { return m.state }

// Bitmap returns the shared path raster.
func (m *Manager) Bitmap() *bitmap.Bitmap { return m.bm }

// Open dials the controller, applies the machine parameters, and
// starts the polling loop. Opening an already-open session is an
// error; close first.
func (m *Manager) Open(descriptor string) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.drv != nil {
		return ErrAlreadyOpen
	}

	drv, err := m.dial(descriptor)
	if err != nil {
		return err
	}
	err = applyParams(drv, m.params)
	if err != nil {
		drv.Close()
		return err
	}

	m.drv = drv
	m.last = Status{Open: true}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.poll(ctx, m.done)
	return nil
}

// Close stops the polling loop, waits for it to drain, and releases
// the handle. Closing a closed session is a no-op.
func (m *Manager) Close() error {
	m.mx.Lock()
	if m.drv == nil {
		m.mx.Unlock()
		return nil
	}
	cancel, done := m.cancel, m.done
	m.mx.Unlock()

	cancel()
	<-done

	m.mx.Lock()
	defer m.mx.Unlock()
	err := m.drv.Close()
	m.drv = nil
	m.last = Status{}
	return err
}

func (m *Manager) IsOpen() bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.drv != nil
}

// Status returns the last polled snapshot.
func (m *Manager) Status() Status {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.last
}

// ApplyParams stores the parameter set and, when the session is open,
// pushes it to the controller immediately.
func (m *Manager) ApplyParams(p Params) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.params = p
	if m.drv == nil {
		return nil
	}
	return applyParams(m.drv, p)
}

func (m *Manager) withDriver(fn func(driver.Driver) error) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.drv == nil {
		return ErrNotOpen
	}
	return fn(m.drv)
}

func (m *Manager) MoveAxisAbs(axis int, pos float64) error {
	return m.withDriver(func(d driver.Driver) error {
		return d.MoveAbsolute([]int{axis}, []float64{pos})
	})
}

func (m *Manager) SetSpeed(axis int, speed float64) error {
	return m.withDriver(func(d driver.Driver) error {
		return d.SetSpeed(axis, speed)
	})
}

func (m *Manager) Idle(axis int) (idle bool, err error) {
	err = m.withDriver(func(d driver.Driver) error {
		idle, err = d.Idle(axis)
		return err
	})
	return idle, err
}

func (m *Manager) RunSpindle(reverse bool) error {
	return m.withDriver(func(d driver.Driver) error {
		return d.RunSpindle(reverse)
	})
}

func (m *Manager) SetSpindleFrequency(hz int) error {
	return m.withDriver(func(d driver.Driver) error {
		return d.SetSpindleFrequency(hz)
	})
}

func (m *Manager) StopSpindle() error {
	return m.withDriver(func(d driver.Driver) error {
		return d.StopSpindle()
	})
}

func (m *Manager) Jog(axis, direction int) error {
	return m.withDriver(func(d driver.Driver) error {
		return d.Jog(axis, direction)
	})
}

func (m *Manager) CancelJog(axis int) error {
	return m.withDriver(func(d driver.Driver) error {
		return d.CancelJog(axis)
	})
}

// Zero resets the coordinates of all three axes.
func (m *Manager) Zero() error {
	return m.withDriver(func(d driver.Driver) error {
		for axis := driver.AxisX; axis <= driver.AxisZ; axis++ {
			if err := d.ZeroAxis(axis); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearPath resets the raster and publishes the current snapshot so
// clients refresh their view.
func (m *Manager) ClearPath() {
	m.bm.Clear()
	m.publish(m.Status())
}

func (m *Manager) publish(st Status) {
	select {
	case m.state <- st:
	default:
	}
}

func (m *Manager) readAxis(axis int) (st AxisStatus, err error) {
	err = m.withDriver(func(d driver.Driver) error {
		st.Pos, err = d.Position(axis)
		if err != nil {
			return err
		}
		st.Speed, err = d.Speed(axis)
		if err != nil {
			return err
		}
		st.Idle, err = d.Idle(axis)
		return err
	})
	return st, err
}

func (m *Manager) readLimits() (ls LimitStatus, err error) {
	m.mx.Lock()
	p := m.params
	m.mx.Unlock()
	err = m.withDriver(func(d driver.Driver) error {
		read := func(io int) bool {
			if err != nil {
				return false
			}
			var on bool
			on, err = d.Input(io)
			return on
		}
		ls.EmergencyStop = read(p.EmergencyStopIO)
		ls.DoorSwitch = read(p.DoorSwitchIO)
		ls.XPlus = read(p.X.PositiveLimitIO)
		ls.XMinus = read(p.X.NegativeLimitIO)
		ls.YPlus = read(p.Y.PositiveLimitIO)
		ls.YMinus = read(p.Y.NegativeLimitIO)
		ls.ZPlus = read(p.Z.PositiveLimitIO)
		ls.ZMinus = read(p.Z.NegativeLimitIO)
		return err
	})
	return ls, err
}

// poll runs until the session closes. Every tick refreshes axis
// position/speed/idle and plots a path sample while motion is in
// flight; every heavyEvery-th tick also reads the limit inputs and
// publishes the full snapshot.
func (m *Manager) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	t := time.NewTicker(pollInterval)
	defer t.Stop()

	var tick int
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		st := Status{Open: true}
		var err error
		if st.X, err = m.readAxis(driver.AxisX); err == nil {
			if st.Y, err = m.readAxis(driver.AxisY); err == nil {
				st.Z, err = m.readAxis(driver.AxisZ)
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("ERROR: poll axis status: %+v", err)
			}
			continue
		}

		m.mx.Lock()
		st.Limits = m.last.Limits
		m.mx.Unlock()

		heavy := tick%heavyEvery == 0
		tick++
		if heavy {
			limits, err := m.readLimits()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("ERROR: poll limit status: %+v", err)
				}
			} else {
				st.Limits = limits
			}
		}

		m.mx.Lock()
		m.last = st
		m.mx.Unlock()

		// live path: one sample per tick, no interpolation
		if st.Moving() {
			m.bm.SetPixel(coord.Point{X: st.X.Pos, Y: st.Y.Pos, Z: st.Z.Pos})
		}

		if heavy {
			m.publish(st)
		}
	}
}
