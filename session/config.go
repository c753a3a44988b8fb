package session

import (
	"github.com/BurntSushi/toml"

	"github.com/PongKJ/zmc-controller-upper/driver"
)

// AxisParams is the tunable configuration of one axis.
type AxisParams struct {
	PulseEquivalent       float64 `toml:"pulse_equivalent"`
	SoftwarePositiveLimit float64 `toml:"software_positive_limit"`
	SoftwareNegativeLimit float64 `toml:"software_negative_limit"`
	PositiveLimitIO       int     `toml:"positive_limit_io"`
	NegativeLimitIO       int     `toml:"negative_limit_io"`
	ZeroPointIO           int     `toml:"zero_point_io"`
}

type SpeedParams struct {
	ProcessingSpeed float64 `toml:"processing_speed"`
	Acceleration    float64 `toml:"acceleration"`
	Deceleration    float64 `toml:"deceleration"`
}

type InvertedParams struct {
	EmergencyStop bool `toml:"emergency_stop"`
	DoorSwitch    bool `toml:"door_switch"`
	LimitIO       bool `toml:"limit_io"`
}

// Params is the full machine parameter set, applied to the controller
// whenever a session opens.
type Params struct {
	X AxisParams `toml:"x"`
	Y AxisParams `toml:"y"`
	Z AxisParams `toml:"z"`

	Speed SpeedParams `toml:"speed"`

	EmergencyStopIO int            `toml:"emergency_stop_io"`
	DoorSwitchIO    int            `toml:"door_switch_io"`
	Inverted        InvertedParams `toml:"inverted"`
}

func DefaultParams() Params {
	axis := func(fwd, rev, datum int) AxisParams {
		return AxisParams{
			PulseEquivalent:       100,
			SoftwarePositiveLimit: 400,
			SoftwareNegativeLimit: -400,
			PositiveLimitIO:       fwd,
			NegativeLimitIO:       rev,
			ZeroPointIO:           datum,
		}
	}
	return Params{
		X:               axis(2, 3, 10),
		Y:               axis(4, 5, 11),
		Z:               axis(6, 7, 12),
		Speed:           SpeedParams{ProcessingSpeed: 100, Acceleration: 500, Deceleration: 500},
		EmergencyStopIO: 0,
		DoorSwitchIO:    1,
	}
}

// LoadParams reads a TOML parameter file. Missing fields keep their
// defaults.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	_, err := toml.DecodeFile(path, &p)
	return p, err
}

func (p Params) axisConfigs() [3]driver.AxisConfig {
	var cfgs [3]driver.AxisConfig
	for i, a := range [3]AxisParams{p.X, p.Y, p.Z} {
		cfgs[i] = driver.AxisConfig{
			Speed:    p.Speed.ProcessingSpeed,
			LowSpeed: 0,
			Accel:    p.Speed.Acceleration,
			Decel:    p.Speed.Deceleration,
			SRamp:    20,
			Units:    a.PulseEquivalent,
			FwdLimit: a.SoftwarePositiveLimit,
			RevLimit: a.SoftwareNegativeLimit,
			FwdInput: a.PositiveLimitIO,
			RevInput: a.NegativeLimitIO,
			DatumIn:  a.ZeroPointIO,
			AlarmIn:  p.EmergencyStopIO,
		}
	}
	return cfgs
}

func applyParams(d driver.Driver, p Params) error {
	err := d.SetInputInvert(p.EmergencyStopIO, p.Inverted.EmergencyStop)
	if err != nil {
		return err
	}
	err = d.SetInputInvert(p.DoorSwitchIO, p.Inverted.DoorSwitch)
	if err != nil {
		return err
	}
	for _, io := range []int{
		p.X.PositiveLimitIO, p.Y.PositiveLimitIO, p.Z.PositiveLimitIO,
		p.X.NegativeLimitIO, p.Y.NegativeLimitIO, p.Z.NegativeLimitIO,
	} {
		if err = d.SetInputInvert(io, p.Inverted.LimitIO); err != nil {
			return err
		}
	}
	for axis, cfg := range p.axisConfigs() {
		if err = d.ConfigureAxis(axis, cfg); err != nil {
			return err
		}
	}
	return nil
}
