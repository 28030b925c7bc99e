package chainclient

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// socket is the minimal transport surface the client needs, letting tests
// substitute a fake without spinning up a real websocket server.
type socket interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// wsSocket wraps gorilla/websocket.Conn (spec §4.6 "websocket-like
// subscription").
type wsSocket struct {
	conn *websocket.Conn
}

func dial(ctx context.Context, endpoint string) (socket, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("chainclient: dial %s: %w", endpoint, err)
	}
	return &wsSocket{conn: conn}, nil
}

func (w *wsSocket) WriteJSON(v interface{}) error {
	return w.conn.WriteJSON(v)
}

func (w *wsSocket) ReadMessage() (int, []byte, error) {
	return w.conn.ReadMessage()
}

func (w *wsSocket) Close() error {
	return w.conn.Close()
}
