package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // SDP with many candidates fits comfortably
)

// Client is one connected socket as seen by the hub.
type Client struct {
	// ID is the socket id other members address signaling to.
	ID string

	hub  *Hub
	conn *websocket.Conn

	// send is drained by WritePump (or a Pipe). Only the hub closes it.
	send chan Envelope

	// Fields below belong to the hub goroutine.
	room     *Room
	member   *Member
	closed   bool
	evicting bool
}

// Attach binds a websocket connection to the client before its pumps start.
func (c *Client) Attach(conn *websocket.Conn) {
	c.conn = conn
}

// submit forwards a decoded message to the hub, resolving the tutor role of
// joins on the caller's goroutine so the hub never waits on a lookup.
func (c *Client) submit(msg ClientMessage) error {
	if join, ok := msg.(*JoinSession); ok {
		resolveJoin(c.hub.roles, join)
	}
	return c.hub.Submit(c, msg)
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		// Unregister doubles as an implicit leave.
		_ = c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "socket", c.ID, "error", err)
			}
			return
		}

		msg, err := DecodeClient(env)
		if err != nil {
			slog.Warn("dropping malformed message", "socket", c.ID, "type", env.Type, "error", err)
			continue
		}

		if err := c.submit(msg); err != nil {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				slog.Warn("websocket write failed", "socket", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
