package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	cmd := ParseLine("G1 X10 Y-5.5 F200 ; move")
	if assert.NotNil(t, cmd) {
		assert.Equal(t, byte('G'), cmd.Kind)
		assert.Equal(t, 1, cmd.Number)
		assert.Equal(t, []Param{
			{Letter: 'X', Value: 10},
			{Letter: 'Y', Value: -5.5},
			{Letter: 'F', Value: 200},
		}, cmd.Params)
		assert.Equal(t, "move", cmd.Comment)
	}
}

func TestParseLine_None(t *testing.T) {
	assert.Nil(t, ParseLine(""))
	assert.Nil(t, ParseLine("   "))
	assert.Nil(t, ParseLine("; just a comment"))
	assert.Nil(t, ParseLine("(no leading command)"))
}

func TestParseLine_Whitespace(t *testing.T) {
	a := ParseLine("  G0 Z1.5  ")
	b := ParseLine("G0 Z1.5")
	assert.Equal(t, b, a)
}

func TestParseLine_Idempotent(t *testing.T) {
	lines := []string{
		"G28",
		"M3 S12000",
		"g2 x0 y10 i-10 j0 f150",
		"G92 X0 Y0 Z0 ;re-zero",
	}
	for _, ln := range lines {
		assert.Equal(t, ParseLine(ln), ParseLine(ln), ln)
	}
}

func TestParseLine_LowerCase(t *testing.T) {
	cmd := ParseLine("g1 x3.25 z-0.1")
	if assert.NotNil(t, cmd) {
		assert.Equal(t, byte('G'), cmd.Kind)
		assert.Equal(t, []Param{
			{Letter: 'X', Value: 3.25},
			{Letter: 'Z', Value: -0.1},
		}, cmd.Params)
	}
}

func TestParseLine_DwellAndSpindle(t *testing.T) {
	cmd := ParseLine("G4 P500")
	if assert.NotNil(t, cmd) {
		v, ok := cmd.Arg('P')
		assert.True(t, ok)
		assert.Equal(t, 500.0, v)
	}

	cmd = ParseLine("M4 S7500 ; reverse")
	if assert.NotNil(t, cmd) {
		assert.Equal(t, byte('M'), cmd.Kind)
		assert.Equal(t, 4, cmd.Number)
		v, ok := cmd.Arg('S')
		assert.True(t, ok)
		assert.Equal(t, 7500.0, v)
	}
}

func TestCommand_ArgLastWins(t *testing.T) {
	cmd := ParseLine("G1 X1 X2")
	if assert.NotNil(t, cmd) {
		v, ok := cmd.Arg('X')
		assert.True(t, ok)
		assert.Equal(t, 2.0, v)
	}

	_, ok := cmd.Arg('Y')
	assert.False(t, ok)
}

func TestCommand_String(t *testing.T) {
	cmd := ParseLine("G1 X10.500 Y-5.5 ; move")
	assert.Equal(t, "G1 X10.5 Y-5.5", cmd.String())
}
