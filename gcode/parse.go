package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	rxCommand = regexp.MustCompile(`^([A-Za-z])([0-9]+)`)
	rxParam   = regexp.MustCompile(`([A-Za-z])(-?[0-9]*\.?[0-9]+)`)
)

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// ParseLine parses one raw program line. It returns nil for blank
// lines, full-comment lines, and lines with no leading command token.
// Malformed numbers never fail the line; they coerce to zero.
func ParseLine(line string) *Command {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ";") {
		return nil
	}

	code := line
	var comment string
	if i := strings.IndexByte(line, ';'); i >= 0 {
		code = strings.TrimSpace(line[:i])
		comment = strings.TrimSpace(line[i+1:])
	}

	m := rxCommand.FindStringSubmatch(code)
	if m == nil {
		return nil
	}
	num, err := strconv.Atoi(m[2])
	if err != nil {
		num = 0
	}
	cmd := &Command{Kind: upper(m[1][0]), Number: num, Comment: comment}

	for _, idx := range rxParam.FindAllStringSubmatchIndex(code, -1) {
		if idx[0] == 0 {
			// leading command token, already consumed
			continue
		}
		val, err := strconv.ParseFloat(code[idx[4]:idx[5]], 64)
		if err != nil {
			val = 0
		}
		cmd.Params = append(cmd.Params, Param{Letter: upper(code[idx[2]]), Value: val})
	}

	return cmd
}
