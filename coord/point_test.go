package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Add(t *testing.T) {
	a := Point{X: 1, Y: 2, Z: 3}
	b := Point{X: 4, Y: 5, Z: 6}

	assert.Equal(t, Point{X: 5, Y: 7, Z: 9}, a.Add(b))
}

func TestPoint_Lerp(t *testing.T) {
	a := Point{X: 10, Y: 10}
	b := Point{X: 20, Y: 20, Z: -4}

	assert.Equal(t, Point{X: 15, Y: 15, Z: -2}, a.Lerp(b, 0.5))
	assert.Equal(t, a, a.Lerp(b, 0))
	assert.Equal(t, b, a.Lerp(b, 1))
}

func TestPoint_DistanceXY(t *testing.T) {
	dist := Point{X: 1, Y: 2, Z: 3}.DistanceXY(4, 5)
	assert.InEpsilon(t, 4.24264, dist, .01)
}

func TestPoint_Split(t *testing.T) {
	var a Point // zero
	b := Point{X: 10, Y: 10, Z: 10}

	res := a.Split(b, 2)

	assert.Equal(t, []Point{{X: 5, Y: 5, Z: 5}, {X: 10, Y: 10, Z: 10}}, res)
}
