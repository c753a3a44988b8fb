package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PongKJ/zmc-controller-upper/bitmap"
	"github.com/PongKJ/zmc-controller-upper/driver"
	"github.com/PongKJ/zmc-controller-upper/driver/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *fake.Driver) {
	t.Helper()
	drv := fake.New()
	m := NewManager(func(string) (driver.Driver, error) {
		return drv, nil
	}, bitmap.New(100, 100, 1))
	t.Cleanup(func() { m.Close() })
	return m, drv
}

func TestManager_OpenClose(t *testing.T) {
	m, _ := newTestManager(t)

	assert.False(t, m.IsOpen())
	assert.Equal(t, ErrNotOpen, m.MoveAxisAbs(driver.AxisX, 1))

	require.NoError(t, m.Open("fake://"))
	assert.True(t, m.IsOpen())

	// only one handle at a time
	assert.Equal(t, ErrAlreadyOpen, m.Open("fake://"))

	require.NoError(t, m.Close())
	assert.False(t, m.IsOpen())

	// re-open after close is allowed
	require.NoError(t, m.Open("fake://"))
	assert.True(t, m.IsOpen())
}

func TestManager_OpenDialError(t *testing.T) {
	boom := errors.New("no route")
	m := NewManager(func(string) (driver.Driver, error) {
		return nil, boom
	}, bitmap.New(10, 10, 1))

	assert.Equal(t, boom, m.Open("eth://nowhere"))
	assert.False(t, m.IsOpen())
}

func TestManager_StatusPoll(t *testing.T) {
	m, drv := newTestManager(t)
	require.NoError(t, m.Open("fake://"))

	drv.SetInput(DefaultParams().X.PositiveLimitIO, true)
	require.NoError(t, m.MoveAxisAbs(driver.AxisX, 2))

	var st Status
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st = m.Status()
		if st.X.Idle && st.X.Pos == 2 && st.Limits.XPlus {
			break
		}
		time.Sleep(pollInterval)
	}
	assert.True(t, st.Open)
	assert.Equal(t, 2.0, st.X.Pos)
	assert.True(t, st.X.Idle)
	assert.True(t, st.Limits.XPlus)
	assert.False(t, st.Limits.EmergencyStop)
}

func TestManager_StatePublish(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Open("fake://"))

	select {
	case st := <-m.State():
		assert.True(t, st.Open)
	case <-time.After(2 * time.Second):
		t.Fatal("no status published")
	}
}

func TestManager_Spindle(t *testing.T) {
	m, drv := newTestManager(t)
	require.NoError(t, m.Open("fake://"))

	require.NoError(t, m.RunSpindle(true))
	require.NoError(t, m.SetSpindleFrequency(5000))
	running, reverse, hz := drv.Spindle()
	assert.True(t, running)
	assert.True(t, reverse)
	assert.Equal(t, 5000, hz)

	require.NoError(t, m.StopSpindle())
	running, _, _ = drv.Spindle()
	assert.False(t, running)
}

func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
emergency_stop_io = 9

[speed]
processing_speed = 250.0

[x]
positive_limit_io = 20

[inverted]
limit_io = true
`), 0644))

	p, err := LoadParams(path)
	require.NoError(t, err)
	assert.Equal(t, 9, p.EmergencyStopIO)
	assert.Equal(t, 250.0, p.Speed.ProcessingSpeed)
	assert.Equal(t, 20, p.X.PositiveLimitIO)
	assert.True(t, p.Inverted.LimitIO)

	// untouched fields keep their defaults
	assert.Equal(t, DefaultParams().Y.PositiveLimitIO, p.Y.PositiveLimitIO)
	assert.Equal(t, DefaultParams().Speed.Acceleration, p.Speed.Acceleration)
}
