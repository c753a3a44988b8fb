package bitmap

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"log"
	"math"
	"sync"

	"github.com/PongKJ/zmc-controller-upper/coord"
)

// Bitmap is a fixed-size RGBA raster mapping machine coordinates to
// pixels. The origin sits at the center; machine +Y is screen-up.
// It is safe for concurrent use.
type Bitmap struct {
	mx sync.Mutex

	width, height int
	data          []byte // RGBA, 4 bytes per pixel

	scale            float64 // pixels per machine unit
	originX, originY int
}

func New(width, height int, scale float64) *Bitmap {
	b := &Bitmap{
		width:   width,
		height:  height,
		data:    make([]byte, width*height*4),
		scale:   scale,
		originX: width / 2,
		originY: height / 2,
	}
	b.clearLocked()
	return b
}

func (b *Bitmap) Size() (width, height int) { return b.width, b.height }

// Clear resets every pixel to transparent white.
func (b *Bitmap) Clear() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.clearLocked()
}

func (b *Bitmap) clearLocked() {
	for i := 0; i < len(b.data); i += 4 {
		b.data[i] = 255
		b.data[i+1] = 255
		b.data[i+2] = 255
		b.data[i+3] = 0
	}
}

// zColor maps depth to a color: z from 0 to -4 sweeps hue 0-360°
// with saturation rising from 0.7 to 1.0 at lightness 0.5, so each
// cutting depth lands in a visually distinct band.
func zColor(z float64) (r, g, bb, a byte) {
	n := -z / 4.0
	if n < 0 {
		n = 0
	} else if n > 1 {
		n = 1
	}
	hue := math.Mod(n*360, 360)
	saturation := 0.7 + n*0.3
	lightness := 0.5

	c := (1 - math.Abs(2*lightness-1)) * saturation
	x := c * (1 - math.Abs(math.Mod(hue/60, 2)-1))
	m := lightness - c/2

	var rf, gf, bf float64
	switch {
	case hue < 60:
		rf, gf, bf = c, x, 0
	case hue < 120:
		rf, gf, bf = x, c, 0
	case hue < 180:
		rf, gf, bf = 0, c, x
	case hue < 240:
		rf, gf, bf = 0, x, c
	case hue < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}

	return byte((rf + m) * 255), byte((gf + m) * 255), byte((bf + m) * 255), 255
}

// SetPixel plots one machine-coordinate sample, colored by depth.
// Out-of-range samples are logged and dropped.
func (b *Bitmap) SetPixel(p coord.Point) {
	b.mx.Lock()
	defer b.mx.Unlock()

	px := b.originX + int(p.X*b.scale)
	py := b.originY - int(p.Y*b.scale)
	if px < 0 || px >= b.width || py < 0 || py >= b.height {
		log.Printf("pixel out of bounds: (%d, %d)", px, py)
		return
	}

	r, g, bb, a := zColor(p.Z)
	i := (py*b.width + px) * 4
	b.data[i] = r
	b.data[i+1] = g
	b.data[i+2] = bb
	b.data[i+3] = a
}

// DrawLine plots interpolated samples from p0 to p1. The sample count
// scales with the larger of the X/Y spans; this is an approximation,
// not a true rasterization.
func (b *Bitmap) DrawLine(p0, p1 coord.Point) {
	steps := int(math.Max(math.Max(math.Abs(p1.X-p0.X), math.Abs(p1.Y-p0.Y)), 1) * 4)
	for i := 0; i <= steps; i++ {
		b.SetPixel(p0.Lerp(p1, float64(i)/float64(steps)))
	}
}

// DrawArc plots an arc from p0 to p1 around the center at
// p0+offset (I/J form), sweeping in the requested rotational sense
// with the depth interpolated linearly along the sweep.
func (b *Bitmap) DrawArc(p0, p1, offset coord.Point, clockwise bool) {
	cx := p0.X + offset.X
	cy := p0.Y + offset.Y

	startAngle := math.Atan2(p0.Y-cy, p0.X-cx)
	endAngle := math.Atan2(p1.Y-cy, p1.X-cx)
	radius := p0.DistanceXY(cx, cy)

	sweep := endAngle - startAngle
	if clockwise && sweep > 0 {
		sweep -= 2 * math.Pi
	} else if !clockwise && sweep < 0 {
		sweep += 2 * math.Pi
	}

	steps := int(math.Abs(sweep) / 0.05)
	if steps < 50 {
		steps = 50
	}

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		angle := startAngle + sweep*t
		b.SetPixel(coord.Point{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
			Z: p0.Z + (p1.Z-p0.Z)*t,
		})
	}
}

// DataURL encodes the raster as a PNG data URI for direct embedding.
func (b *Bitmap) DataURL() (string, error) {
	b.mx.Lock()
	pix := make([]byte, len(b.data))
	copy(pix, b.data)
	b.mx.Unlock()

	img := &image.NRGBA{
		Pix:    pix,
		Stride: b.width * 4,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
