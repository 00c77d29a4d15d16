package transport

import (
	"io"

	"github.com/gorilla/websocket"
)

// wsConn adapts a websocket connection to the io.ReadWriteCloser the STOMP
// codec expects. A STOMP frame may span websocket messages; Read drains the
// current message before pulling the next one.
type wsConn struct {
	conn *websocket.Conn
	r    io.Reader
}

func (w *wsConn) Read(p []byte) (int, error) {
	for {
		if w.r == nil {
			_, r, err := w.conn.NextReader()
			if err != nil {
				return 0, err
			}
			w.r = r
		}

		n, err := w.r.Read(p)
		if err == io.EOF {
			w.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}

		return n, err
	}
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
