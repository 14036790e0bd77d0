package fleet

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// handshakeTimeout bounds the WebSocket upgrade.
	handshakeTimeout = 10 * time.Second

	// writeWait bounds every outbound frame write.
	writeWait = 10 * time.Second
)

// StreamConn is one established upstream connection.
//
// Receive blocks until a frame arrives or the connection fails; Close
// from another goroutine unblocks it.
type StreamConn interface {
	Send(v any) error
	Receive() ([]byte, error)
	ReceiveTimeout(timeout time.Duration) ([]byte, error)
	Close() error
}

// StreamDialer opens upstream connections. Implemented by WSDialer in
// production and by fakes in session tests.
type StreamDialer interface {
	Dial(ctx context.Context, uri string) (StreamConn, error)
}

// WSDialer dials the upstream streaming endpoint over WebSocket.
//
// Established connections run a ping/pong keepalive: the client pings
// every PingInterval and treats a missing pong within PingTimeout as a
// dead connection, surfacing it as a read error.
type WSDialer struct {
	PingInterval       time.Duration
	PingTimeout        time.Duration
	AcceptInvalidCerts bool
}

// Dial establishes a WebSocket connection to the given URI.
func (d *WSDialer) Dial(ctx context.Context, uri string) (StreamConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if d.AcceptInvalidCerts {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed endpoints
	}

	conn, resp, err := dialer.DialContext(ctx, uri, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%w: %w", ErrDialFailed, err)
	}

	return newWSConn(conn, d.PingInterval, d.PingTimeout), nil
}

// wsConn wraps a gorilla connection with keepalive and write locking.
// gorilla permits one concurrent reader and one concurrent writer; the
// mutex serialises application writes against keepalive pings.
type wsConn struct {
	conn     *websocket.Conn
	pongWait time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, pingInterval, pongWait time.Duration) *wsConn {
	c := &wsConn{
		conn:     conn,
		pongWait: pongWait,
		done:     make(chan struct{}),
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.pingLoop(pingInterval)

	return c
}

// pingLoop sends keepalive pings until the connection is closed.
func (c *wsConn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send writes v as a JSON text frame.
func (c *wsConn) Send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Receive blocks until the next frame. The pong handler keeps pushing
// the read deadline forward, so a healthy but quiet stream never times
// out while a dead peer fails within pongWait.
func (c *wsConn) Receive() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamClosed, err)
	}
	return data, nil
}

// ReceiveTimeout reads one frame within the given window. On timeout the
// underlying connection is no longer usable for reads; callers are
// expected to tear the cycle down.
func (c *wsConn) ReceiveTimeout(timeout time.Duration) ([]byte, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := c.conn.ReadMessage()
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close shuts the connection down. Safe to call from any goroutine and
// more than once; concurrent Receive calls return with an error.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}
