package zmc

import (
	"errors"
	"io"
	"net"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/tarm/serial"
)

const defaultBaud = 115200

// Dial connects to a controller using a connection descriptor:
//
//	eth://10.0.0.5:5001            direct TCP
//	serial:///dev/ttyUSB0?baud=N   RS232 link
//	ws://bridge:8989/ws            websocket relay carrying the
//	                               same command stream
func Dial(descriptor string) (*Driver, error) {
	u, err := url.Parse(descriptor)
	if err != nil {
		return nil, err
	}

	var rw io.ReadWriter
	switch u.Scheme {
	case "eth", "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		rw = conn
	case "serial":
		baud := defaultBaud
		if s := u.Query().Get("baud"); s != "" {
			baud, err = strconv.Atoi(s)
			if err != nil {
				return nil, errors.New("zmc: invalid baud: " + s)
			}
		}
		port, err := serial.OpenPort(&serial.Config{Name: u.Path, Baud: baud})
		if err != nil {
			return nil, err
		}
		rw = port
	case "ws", "wss":
		ws, _, err := websocket.DefaultDialer.Dial(descriptor, nil)
		if err != nil {
			return nil, err
		}
		rw = &wsReadWriter{ws: ws}
	default:
		return nil, errors.New("zmc: unknown descriptor scheme: " + u.Scheme)
	}

	return &Driver{conn: NewConn(rw)}, nil
}

// wsReadWriter adapts a websocket connection to the byte-stream
// interface Conn expects. Each write becomes one text frame.
type wsReadWriter struct {
	ws *websocket.Conn
	r  io.Reader
}

func (c *wsReadWriter) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				return 0, err
			}
			c.r = r
		}
		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *wsReadWriter) Write(p []byte) (int, error) {
	err := c.ws.WriteMessage(websocket.TextMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsReadWriter) Close() error { return c.ws.Close() }
