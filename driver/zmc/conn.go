package zmc

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
)

// Conn speaks the controller's line protocol: one command per line,
// one reply per command. Commands answer "ok" or "error:<detail>";
// queries answer with the value itself.
type Conn struct {
	rw   io.ReadWriter
	scan *bufio.Scanner

	mx     sync.Mutex
	closed bool
}

func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		rw:   rw,
		scan: bufio.NewScanner(rw),
	}
}

// Close will close the underlying ReadWriter, if it implements
// io.Closer.
func (c *Conn) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.closed = true
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Do sends one command line and returns the reply line. The lock is
// held for the full round trip; device access is strictly serialized.
func (c *Conn) Do(cmd string) (string, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed {
		return "", io.ErrClosedPipe
	}

	_, err := io.WriteString(c.rw, cmd+"\n")
	if err != nil {
		return "", err
	}

	if !c.scan.Scan() {
		if err := c.scan.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	line := strings.TrimSpace(c.scan.Text())
	if strings.HasPrefix(line, "error:") {
		return "", errors.New(line)
	}
	return line, nil
}

// Exec sends a command that is expected to answer "ok".
func (c *Conn) Exec(cmd string) error {
	resp, err := c.Do(cmd)
	if err != nil {
		return err
	}
	if resp != "ok" {
		return errors.New("unexpected reply: " + resp)
	}
	return nil
}
