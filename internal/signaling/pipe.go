package signaling

import (
	"log/slog"
	"sync"
)

// Pipe connects a member to a hub in the same process. It goes through the
// same envelope encoding as a websocket connection.
type Pipe struct {
	client   *Client
	incoming chan HubMessage
	once     sync.Once
}

// NewPipe registers a new client with hub and starts delivering its traffic.
func NewPipe(hub *Hub) (*Pipe, error) {
	c := hub.NewClient()
	if err := hub.Register(c); err != nil {
		return nil, err
	}
	p := &Pipe{
		client:   c,
		incoming: make(chan HubMessage, cap(c.send)),
	}
	go p.pump()
	return p, nil
}

func (p *Pipe) pump() {
	defer close(p.incoming)
	for env := range p.client.send {
		msg, err := DecodeHub(env)
		if err != nil {
			slog.Warn("pipe: dropping undecodable message", "socket", p.client.ID, "type", env.Type, "error", err)
			continue
		}
		p.incoming <- msg
	}
}

// ID is the socket id the hub assigned.
func (p *Pipe) ID() string { return p.client.ID }

func (p *Pipe) Send(msg ClientMessage) error {
	env, err := Encode(msg)
	if err != nil {
		return err
	}
	decoded, err := DecodeClient(env)
	if err != nil {
		return err
	}
	return p.client.submit(decoded)
}

// Incoming is closed once the hub drops the client.
func (p *Pipe) Incoming() <-chan HubMessage { return p.incoming }

// Close disconnects from the hub, as a dropped socket would.
func (p *Pipe) Close() error {
	var err error
	p.once.Do(func() {
		err = p.client.hub.Unregister(p.client)
	})
	return err
}
