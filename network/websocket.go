package network

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const wsDialTimeout = 5 * time.Second

// NewWebSocketHost returns a TCP substrate for environments where UDP is
// blocked. WebSocket delivery is reliable-ordered; unreliable sends are upgraded.
func NewWebSocketHost(log logrus.FieldLogger) *ConnHost {
	h := newConnHost(log, "websocket", dialWebSocket, nil)
	h.listen = listenWebSocket(h.log)
	return h
}

type wsConn struct {
	conn   *websocket.Conn
	remote string
}

func (c *wsConn) ReadPacket() ([]byte, error) {
	for {
		typ, b, err := c.conn.Read(context.Background())
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil, io.EOF
			}
			return nil, err
		}
		if typ == websocket.MessageBinary {
			return b, nil
		}
	}
}

func (c *wsConn) WritePacket(b []byte) error {
	return c.conn.Write(context.Background(), websocket.MessageBinary, b)
}

func (c *wsConn) Close() error       { return c.conn.CloseNow() }
func (c *wsConn) RemoteAddr() string { return c.remote }

func dialWebSocket(address string) (packetConn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), wsDialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+address, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn, remote: address}, nil
}

func listenWebSocket(log logrus.FieldLogger) listener {
	return func(address string, accept func(packetConn)) (io.Closer, net.Addr, error) {
		return serveWebSocket(log, address, accept)
	}
}

func serveWebSocket(log logrus.FieldLogger, address string, accept func(packetConn)) (io.Closer, net.Addr, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{
		ReadHeaderTimeout: wsDialTimeout,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			wc := &wsConn{conn: conn, remote: r.RemoteAddr}
			n := &closeNotifier{packetConn: wc, done: make(chan struct{})}
			accept(n)
			// The handler owns the hijacked connection until the peer closes.
			<-n.done
		}),
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("websocket server stopped")
		}
	}()
	return srv, ln.Addr(), nil
}

// closeNotifier releases the HTTP handler once the connection is closed.
type closeNotifier struct {
	packetConn
	once sync.Once
	done chan struct{}
}

func (c *closeNotifier) Close() error {
	err := c.packetConn.Close()
	c.once.Do(func() { close(c.done) })
	return err
}
