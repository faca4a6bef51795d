package server

import (
	"sync"
	"time"

	"marketstream/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client wraps one subscriber connection. Sends happen from the hub's
// fan-out and the ping loop concurrently, so every write goes through
// writeMu. A write that misses its deadline fails the send and gets the
// client pruned; slow clients are dropped, not throttled.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// Send delivers one payload as a JSON frame.
func (c *Client) Send(u *domain.CandleUpdate) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(u)
}

// ping sends a control ping so intermediaries do not idle out the socket.
func (c *Client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// pingLoop pings the peer at pingPeriod until stop closes or a ping fails.
func (c *Client) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// drain consumes inbound frames until the peer disconnects. Client frames
// carry no application meaning; this loop exists only to detect the
// disconnect.
func (c *Client) drain() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
