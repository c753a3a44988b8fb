package gcode

import (
	"strconv"
	"strings"
)

// Param is a single letter/value argument on a command line.
type Param struct {
	Letter byte
	Value  float64
}

func (p Param) IsAxis() bool {
	switch p.Letter {
	case 'X', 'Y', 'Z': // maybe someday 'A', 'B', 'C', 'U', 'V', 'W':
		return true
	}
	return false
}

func formatFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
	}
	return strings.TrimRight(s, ".")
}

func (p Param) String() string {
	return string(p.Letter) + formatFloat(p.Value, 3)
}

// Command is one parsed program line. Immutable once parsed.
type Command struct {
	Kind    byte // 'G', 'M', 'T', ...
	Number  int
	Params  []Param
	Comment string
}

// Arg returns the value of the last parameter with the given letter.
// Last wins: "G1 X1 X2" reports X=2.
func (c *Command) Arg(letter byte) (float64, bool) {
	for i := len(c.Params) - 1; i >= 0; i-- {
		if c.Params[i].Letter == letter {
			return c.Params[i].Value, true
		}
	}
	return 0, false
}

// HasAxis reports whether any X/Y/Z parameter is present.
func (c *Command) HasAxis() bool {
	for _, p := range c.Params {
		if p.IsAxis() {
			return true
		}
	}
	return false
}

func (c *Command) String() string {
	var b strings.Builder
	b.WriteByte(c.Kind)
	b.WriteString(strconv.Itoa(c.Number))
	for _, p := range c.Params {
		b.WriteByte(' ')
		b.WriteString(p.String())
	}
	return b.String()
}
