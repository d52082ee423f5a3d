package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sathwikbalu/Zenith-Study/internal/dns"
)

var ErrConnectionClosed = errors.New("signaling: connection closed")

// RemoteHub is a member's websocket connection to a hub running elsewhere.
type RemoteHub struct {
	conn     *websocket.Conn
	incoming chan HubMessage
	outgoing chan Envelope
	done     chan struct{}
	once     sync.Once
}

// Dial connects to the hub's websocket endpoint. Hostnames go through
// dns.Lookup so a broken system resolver does not prevent joining.
func Dial(ctx context.Context, serverURL string) (*RemoteHub, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ip, err := dns.Lookup(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}
		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	r := &RemoteHub{
		conn:     conn,
		incoming: make(chan HubMessage, 64),
		outgoing: make(chan Envelope, 64),
		done:     make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go r.readPump()
	go r.writePump()
	return r, nil
}

func (r *RemoteHub) readPump() {
	defer func() {
		r.conn.Close()
		close(r.incoming)
	}()

	r.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		var env Envelope
		if err := r.conn.ReadJSON(&env); err != nil {
			return
		}
		msg, err := DecodeHub(env)
		if err != nil {
			slog.Debug("ignoring hub message", "type", env.Type, "error", err)
			continue
		}
		select {
		case r.incoming <- msg:
		case <-r.done:
			return
		}
	}
}

func (r *RemoteHub) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		r.conn.Close()
	}()

	for {
		select {
		case env := <-r.outgoing:
			r.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := r.conn.WriteJSON(env); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			r.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := r.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-r.done:
			r.conn.SetWriteDeadline(time.Now().Add(writeWait))
			r.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (r *RemoteHub) Send(msg ClientMessage) error {
	env, err := Encode(msg)
	if err != nil {
		return err
	}
	select {
	case r.outgoing <- env:
		return nil
	case <-r.done:
		return ErrConnectionClosed
	}
}

// Incoming is closed when the connection drops.
func (r *RemoteHub) Incoming() <-chan HubMessage { return r.incoming }

func (r *RemoteHub) Close() error {
	r.once.Do(func() { close(r.done) })
	return nil
}
