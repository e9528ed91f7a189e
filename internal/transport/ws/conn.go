package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	errSendQueueFull = errors.New("send queue full")
	errConnClosed    = errors.New("connection closed")
)

const sendQueueSize = 64

// wsConn оборачивает gorilla-соединение. Исходящие кадры идут через
// ограниченную очередь: медленный получатель теряет кадры, но не
// задерживает рассылку остальным.
type wsConn struct {
	conn   *websocket.Conn
	userID string

	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newWsConn(c *websocket.Conn, userID string) *wsConn {
	return &wsConn{
		conn:   c,
		userID: userID,
		out:    make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	case c.out <- frame:
		return nil
	default:
		return errSendQueueFull
	}
}

// writeLoop — единственный писатель в соединение: очередь + ping по тикеру.
func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

// closeWith шлёт close-кадр с кодом и роняет transport. Повторные вызовы —
// no-op.
func (c *wsConn) closeWith(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.conn.Close()
	})
}

func (c *wsConn) UserID() string { return c.userID }
