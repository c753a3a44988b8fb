package zmc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PongKJ/zmc-controller-upper/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptRW answers every command line with a canned reply, "ok" by
// default, and records what was sent.
type scriptRW struct {
	sent    []string
	replies map[string]string
	buf     bytes.Buffer
}

func (s *scriptRW) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	s.sent = append(s.sent, line)
	reply, ok := s.replies[line]
	if !ok {
		reply = "ok"
	}
	s.buf.WriteString(reply + "\n")
	return len(p), nil
}

func (s *scriptRW) Read(p []byte) (int, error) { return s.buf.Read(p) }

func TestConn_Do(t *testing.T) {
	rw := &scriptRW{replies: map[string]string{
		"?DPOS(0)":     "12.5",
		"MOVEABS(1,3)": "error:axis alarm",
	}}
	c := NewConn(rw)

	resp, err := c.Do("?DPOS(0)")
	require.NoError(t, err)
	assert.Equal(t, "12.5", resp)

	assert.NoError(t, c.Exec("SPEED(0)=100"))

	err = c.Exec("MOVEABS(1,3)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "axis alarm")
}

func TestDriver_Commands(t *testing.T) {
	rw := &scriptRW{replies: map[string]string{
		"?IDLE(2)": "-1",
		"?IN(8)":   "1",
	}}
	d := &Driver{conn: NewConn(rw)}

	require.NoError(t, d.MoveAbsolute([]int{driver.AxisX, driver.AxisZ}, []float64{10.5, -0.2}))
	require.NoError(t, d.SetSpeed(driver.AxisY, 200))
	require.NoError(t, d.RunSpindle(false))
	require.NoError(t, d.SetSpindleFrequency(7500))
	require.NoError(t, d.StopSpindle())
	require.NoError(t, d.Jog(driver.AxisX, -1))
	require.NoError(t, d.CancelJog(driver.AxisX))
	require.NoError(t, d.ZeroAxis(driver.AxisY))

	idle, err := d.Idle(driver.AxisZ)
	require.NoError(t, err)
	assert.True(t, idle)

	on, err := d.Input(8)
	require.NoError(t, err)
	assert.True(t, on)

	assert.Equal(t, []string{
		"MOVEABS(0,10.5)",
		"MOVEABS(2,-0.2)",
		"SPEED(1)=200",
		"MODBUSM_REGSET(99,1,2)",
		"MODBUS_SET4X(3,1,7500)",
		"MODBUSM_REGSET(100,1,3)",
		"MODBUSM_REGSET(99,1,1)",
		"VMOVE(0,-1)",
		"CANCEL(0,2)",
		"MPOS(1)=0",
		"DPOS(1)=0",
		"?IDLE(2)",
		"?IN(8)",
	}, rw.sent)
}

func TestDriver_MismatchedArgs(t *testing.T) {
	d := &Driver{conn: NewConn(&scriptRW{})}
	assert.Error(t, d.MoveAbsolute([]int{0, 1}, []float64{1}))
	assert.Error(t, d.MoveRelative([]int{0}, nil))
}
