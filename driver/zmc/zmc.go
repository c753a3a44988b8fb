// Package zmc drives the physical motion controller over its text
// command channel. The link may be direct TCP, RS232, or a websocket
// bridge; see Dial.
package zmc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PongKJ/zmc-controller-upper/driver"
)

type Driver struct {
	conn *Conn
}

var _ driver.Driver = &Driver{}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (d *Driver) Close() error { return d.conn.Close() }

func (d *Driver) MoveAbsolute(axes []int, positions []float64) error {
	if len(axes) != len(positions) {
		return errors.New("zmc: axes/positions length mismatch")
	}
	for i, axis := range axes {
		err := d.conn.Exec(fmt.Sprintf("MOVEABS(%d,%s)", axis, num(positions[i])))
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) MoveRelative(axes []int, distances []float64) error {
	if len(axes) != len(distances) {
		return errors.New("zmc: axes/distances length mismatch")
	}
	for i, axis := range axes {
		err := d.conn.Exec(fmt.Sprintf("MOVE(%d,%s)", axis, num(distances[i])))
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) SetSpeed(axis int, speed float64) error {
	return d.conn.Exec(fmt.Sprintf("SPEED(%d)=%s", axis, num(speed)))
}

func (d *Driver) query(cmd string) (float64, error) {
	resp, err := d.conn.Do(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("zmc: bad reply %q to %s: %w", resp, cmd, err)
	}
	return v, nil
}

func (d *Driver) Position(axis int) (float64, error) {
	return d.query(fmt.Sprintf("?DPOS(%d)", axis))
}

func (d *Driver) Speed(axis int) (float64, error) {
	return d.query(fmt.Sprintf("?MSPEED(%d)", axis))
}

func (d *Driver) Idle(axis int) (bool, error) {
	// IDLE reports -1 once motion has fully settled
	v, err := d.query(fmt.Sprintf("?IDLE(%d)", axis))
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (d *Driver) Input(io int) (bool, error) {
	v, err := d.query(fmt.Sprintf("?IN(%d)", io))
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d *Driver) SetInputInvert(io int, inverted bool) error {
	return d.conn.Exec(fmt.Sprintf("INVERT_IN(%d,%s)", io, boolArg(inverted)))
}

func (d *Driver) ConfigureAxis(axis int, cfg driver.AxisConfig) error {
	cmds := []string{
		// pulse+direction servo mode
		fmt.Sprintf("ATYPE(%d)=65", axis),
		fmt.Sprintf("SPEED(%d)=%s", axis, num(cfg.Speed)),
		fmt.Sprintf("LSPEED(%d)=%s", axis, num(cfg.LowSpeed)),
		fmt.Sprintf("ACCEL(%d)=%s", axis, num(cfg.Accel)),
		fmt.Sprintf("DECEL(%d)=%s", axis, num(cfg.Decel)),
		fmt.Sprintf("SRAMP(%d)=%s", axis, num(cfg.SRamp)),
		fmt.Sprintf("UNITS(%d)=%s", axis, num(cfg.Units)),
		fmt.Sprintf("FS_LIMIT(%d)=%s", axis, num(cfg.FwdLimit)),
		fmt.Sprintf("RS_LIMIT(%d)=%s", axis, num(cfg.RevLimit)),
		fmt.Sprintf("FWD_IN(%d)=%d", axis, cfg.FwdInput),
		fmt.Sprintf("REV_IN(%d)=%d", axis, cfg.RevInput),
		fmt.Sprintf("DATUM_IN(%d)=%d", axis, cfg.DatumIn),
		fmt.Sprintf("ALM_IN(%d)=%d", axis, cfg.AlarmIn),
	}
	for _, cmd := range cmds {
		if err := d.conn.Exec(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Spindle control goes through the frequency converter on the modbus
// side of the controller: register 100 latches the frequency, register
// 99 the run command (0 reverse, 1 stop, 2 forward).

func (d *Driver) RunSpindle(reverse bool) error {
	if reverse {
		return d.conn.Exec("MODBUSM_REGSET(99,1,0)")
	}
	return d.conn.Exec("MODBUSM_REGSET(99,1,2)")
}

func (d *Driver) SetSpindleFrequency(hz int) error {
	err := d.conn.Exec(fmt.Sprintf("MODBUS_SET4X(3,1,%d)", hz))
	if err != nil {
		return err
	}
	return d.conn.Exec("MODBUSM_REGSET(100,1,3)")
}

func (d *Driver) StopSpindle() error {
	return d.conn.Exec("MODBUSM_REGSET(99,1,1)")
}

func (d *Driver) Jog(axis, direction int) error {
	return d.conn.Exec(fmt.Sprintf("VMOVE(%d,%d)", axis, direction))
}

func (d *Driver) CancelJog(axis int) error {
	return d.conn.Exec(fmt.Sprintf("CANCEL(%d,2)", axis))
}

func (d *Driver) ZeroAxis(axis int) error {
	err := d.conn.Exec(fmt.Sprintf("MPOS(%d)=0", axis))
	if err != nil {
		return err
	}
	return d.conn.Exec(fmt.Sprintf("DPOS(%d)=0", axis))
}
