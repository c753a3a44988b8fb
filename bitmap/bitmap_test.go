package bitmap

import (
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/PongKJ/zmc-controller-upper/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countSet(b *Bitmap) int {
	var n int
	for i := 3; i < len(b.data); i += 4 {
		if b.data[i] != 0 {
			n++
		}
	}
	return n
}

func isSet(b *Bitmap, p coord.Point) bool {
	px := b.originX + int(p.X*b.scale)
	py := b.originY - int(p.Y*b.scale)
	return b.data[(py*b.width+px)*4+3] != 0
}

func TestBitmap_SetPixel(t *testing.T) {
	b := New(100, 100, 1)

	b.SetPixel(coord.Point{X: 10, Y: 10, Z: -1})
	assert.Equal(t, 1, countSet(b))
	assert.True(t, isSet(b, coord.Point{X: 10, Y: 10}))
}

func TestBitmap_SetPixel_OutOfBounds(t *testing.T) {
	b := New(100, 100, 1)
	before := make([]byte, len(b.data))
	copy(before, b.data)

	b.SetPixel(coord.Point{X: 1000, Y: 0})
	b.SetPixel(coord.Point{X: -1000, Y: 0})
	b.SetPixel(coord.Point{X: 0, Y: 1000})
	b.SetPixel(coord.Point{X: 0, Y: -1000})

	assert.Equal(t, before, b.data)
}

func TestBitmap_ZColor(t *testing.T) {
	// distinct depth bands
	r0, g0, b0, _ := zColor(0)
	r1, g1, b1, _ := zColor(-2)
	assert.NotEqual(t, [3]byte{r0, g0, b0}, [3]byte{r1, g1, b1})

	// clamped below the z range
	r2, g2, b2, _ := zColor(-4)
	r3, g3, b3, _ := zColor(-10)
	assert.Equal(t, [3]byte{r2, g2, b2}, [3]byte{r3, g3, b3})
}

func TestBitmap_DrawLine(t *testing.T) {
	b := New(200, 200, 1)
	b.DrawLine(coord.Point{X: -20, Y: -20}, coord.Point{X: 20, Y: 20, Z: -1})

	assert.NotZero(t, countSet(b))
	assert.True(t, isSet(b, coord.Point{X: -20, Y: -20}))
	assert.True(t, isSet(b, coord.Point{X: 20, Y: 20}))
	assert.True(t, isSet(b, coord.Point{}))
}

func TestBitmap_DrawArc(t *testing.T) {
	p0 := coord.Point{X: 10, Y: 0}
	p1 := coord.Point{X: 0, Y: 10}
	offset := coord.Point{X: -10, Y: 0}

	cw := New(100, 100, 2)
	cw.DrawArc(p0, p1, offset, true)
	ccw := New(100, 100, 2)
	ccw.DrawArc(p0, p1, offset, false)

	assert.NotZero(t, countSet(cw))
	assert.NotZero(t, countSet(ccw))
	assert.NotEqual(t, cw.data, ccw.data)

	// both sweeps land on the chord endpoints
	for _, b := range []*Bitmap{cw, ccw} {
		assert.True(t, isSet(b, p0))
		assert.True(t, isSet(b, p1))
	}

	// the short way misses the far side of the circle, the long way
	// passes through it
	far := coord.Point{X: -10, Y: 0}
	assert.False(t, isSet(ccw, far))
	assert.True(t, isSet(cw, far))
}

func TestBitmap_Clear_DataURL(t *testing.T) {
	b := New(64, 32, 4)
	b.DrawLine(coord.Point{}, coord.Point{X: 5, Y: 2, Z: -1})
	b.Clear()

	url, err := b.DataURL()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(strings.NewReader(string(raw)))
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 64, bounds.Dx())
	assert.Equal(t, 32, bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a != 0 {
				t.Fatalf("pixel (%d,%d) not transparent", x, y)
			}
		}
	}
}
