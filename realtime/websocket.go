package realtime

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
)

// WebSocketDialer is the default [Dialer], backed by github.com/coder/websocket.
type WebSocketDialer struct {
	HTTPClient *http.Client
	Header     http.Header
}

// Dial opens a websocket connection to url.
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: d.Header,
	})
	if err != nil {
		return nil, err
	}
	return wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}
