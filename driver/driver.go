// Package driver defines the capability set of the physical motion
// controller. Implementations exist for the real ethernet/serial-attached
// controller and for an in-memory fake; the session picks one at open
// time based on the connection descriptor.
package driver

// Axis ids as the controller numbers them.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// AxisConfig carries the per-axis machine parameters applied when a
// session opens.
type AxisConfig struct {
	Speed     float64 // working speed, units/s
	LowSpeed  float64 // initial speed
	Accel     float64
	Decel     float64
	SRamp     float64 // ramp smoothing time, ms
	Units     float64 // pulse equivalent, pulses per unit
	FwdLimit  float64 // software positive limit
	RevLimit  float64 // software negative limit
	FwdInput  int     // hardware positive limit IO
	RevInput  int     // hardware negative limit IO
	DatumIn   int     // home switch IO
	AlarmIn   int     // alarm/emergency IO
}

// Driver is the opaque controller handle. At most one is alive per
// session; all methods may fail with a device error.
type Driver interface {
	Close() error

	MoveAbsolute(axes []int, positions []float64) error
	MoveRelative(axes []int, distances []float64) error
	SetSpeed(axis int, speed float64) error
	Position(axis int) (float64, error)
	Speed(axis int) (float64, error)
	Idle(axis int) (bool, error)

	Input(io int) (bool, error)
	SetInputInvert(io int, inverted bool) error
	ConfigureAxis(axis int, cfg AxisConfig) error

	RunSpindle(reverse bool) error
	SetSpindleFrequency(hz int) error
	StopSpindle() error

	Jog(axis, direction int) error
	CancelJog(axis int) error
	ZeroAxis(axis int) error
}

// DialFunc opens a controller from a connection descriptor such as
// "eth://10.0.0.5:5001", "serial:///dev/ttyUSB0?baud=115200",
// "ws://bridge:8989/ws", or "fake://".
type DialFunc func(descriptor string) (Driver, error)
