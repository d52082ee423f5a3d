package signaling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sathwikbalu/Zenith-Study/internal/whiteboard"
)

var (
	ErrHubClosed    = errors.New("signaling: hub is not running")
	ErrTargetAbsent = errors.New("signaling: target is not in the sender's room")
	ErrNotInRoom    = errors.New("signaling: client has not joined a session")
	ErrEmptySession = errors.New("signaling: session id is required")
	ErrEmptyChat    = errors.New("signaling: chat message is empty")
	ErrBadChatType  = errors.New("signaling: unsupported chat message type")
)

const defaultSendQueue = 256

var chatTypes = map[string]bool{"text": true, "emoji": true, "system": true}

type inbound struct {
	client *Client
	msg    ClientMessage
}

// Stats is a point-in-time count of what the hub holds.
type Stats struct {
	Rooms   int            `json:"rooms"`
	Members int            `json:"members"`
	Clients int            `json:"clients"`
	ByRoom  map[string]int `json:"byRoom"`
}

// Hub owns every room and every registered client. All state changes happen
// on the goroutine running Run, one message at a time.
type Hub struct {
	rooms   map[string]*Room
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	stats      chan chan Stats
	done       chan struct{}

	// evicted holds clients whose send buffer overflowed during the current message.
	evicted []*Client

	roles      RoleResolver
	archive    *archiver
	sendBuffer int
}

type Option func(*Hub)

func WithRoleResolver(r RoleResolver) Option {
	return func(h *Hub) { h.roles = r }
}

func WithChatArchive(a ChatArchive) Option {
	return func(h *Hub) { h.archive = newArchiver(a, 1024) }
}

// WithSendBuffer sets how many outbound messages a client may have queued
// before it is disconnected as too slow.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:      make(map[string]*Room),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
		roles:      TrustClaims{},
		sendBuffer: defaultSendQueue,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.archive == nil {
		h.archive = newArchiver(DiscardArchive{}, 1)
	}
	return h
}

// Run processes registrations and messages until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	go h.archive.run(ctx)

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				h.drop(c)
			}
			slog.Info("hub stopped")
			return

		case c := <-h.register:
			h.clients[c.ID] = c
			slog.Debug("client registered", "socket", c.ID)

		case c := <-h.unregister:
			h.drop(c)

		case in := <-h.inbound:
			if in.client.closed {
				continue
			}
			h.handle(in.client, in.msg)

		case reply := <-h.stats:
			reply <- h.snapshot()
		}

		h.flushEvicted()
	}
}

// Register, Unregister and Submit hand work to the Run goroutine. They fail
// with ErrHubClosed once Run has returned.

func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Unregister(c *Client) error {
	select {
	case h.unregister <- c:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Submit(c *Client, msg ClientMessage) error {
	select {
	case h.inbound <- inbound{client: c, msg: msg}:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// NewClient allocates a client bound to this hub with a fresh socket id.
func (h *Hub) NewClient() *Client {
	return &Client{
		ID:   uuid.NewString(),
		hub:  h,
		send: make(chan Envelope, h.sendBuffer),
	}
}

func (h *Hub) handle(c *Client, msg ClientMessage) {
	switch m := msg.(type) {
	case *JoinSession:
		h.join(c, m)
	case *Offer:
		h.relay(c, m.To, &RelayedOffer{From: c.ID, Offer: m.Offer})
	case *Answer:
		h.relay(c, m.To, &RelayedAnswer{From: c.ID, Answer: m.Answer})
	case *ICECandidate:
		h.relay(c, m.To, &RelayedICECandidate{From: c.ID, Candidate: m.Candidate})
	case *Toggle:
		h.toggle(c, m)
	case *LeaveSession:
		h.leave(c)
	case *WhiteboardAction:
		h.whiteboardAction(c, m)
	case *WhiteboardRequestSync:
		h.whiteboardSync(c, m)
	case *ChatMessage:
		h.chat(c, m)
	default:
		slog.Warn("unhandled message", "socket", c.ID, "type", msg.Type())
	}
}

func (h *Hub) join(c *Client, m *JoinSession) {
	if m.SessionID == "" {
		h.fail(c, ErrEmptySession)
		return
	}

	if c.room != nil {
		if c.room.ID == m.SessionID {
			h.deliver(c, c.room.participants(c))
			return
		}
		h.leave(c)
	}

	room, ok := h.rooms[m.SessionID]
	if !ok {
		room = newRoom(m.SessionID)
		h.rooms[room.ID] = room
		slog.Info("room created", "session", room.ID)
	}

	// Snapshot before adding so the joiner never sees itself.
	roster := room.participants(c)

	c.member = &Member{
		SocketID:     c.ID,
		UserID:       m.UserID,
		UserName:     m.UserName,
		IsTutor:      m.IsTutor,
		AudioEnabled: m.AudioEnabled == nil || *m.AudioEnabled,
		VideoEnabled: m.VideoEnabled == nil || *m.VideoEnabled,
		JoinedAt:     time.Now(),
	}
	c.room = room
	room.add(c)

	slog.Info("member joined", "session", room.ID, "socket", c.ID, "user", m.UserID, "tutor", m.IsTutor, "members", room.size())

	h.deliver(c, roster)
	h.broadcast(room, c, &UserJoined{Participant: c.member.participant()})
}

// relay forwards a signaling payload to one socket in the sender's room.
func (h *Hub) relay(c *Client, to string, msg HubMessage) error {
	if c.room == nil {
		slog.Debug("relay from client outside any room dropped", "socket", c.ID, "type", msg.Type())
		return ErrNotInRoom
	}
	target, ok := h.clients[to]
	if !ok || target.room != c.room {
		slog.Debug("relay target absent", "socket", c.ID, "to", to, "type", msg.Type())
		return ErrTargetAbsent
	}
	h.deliver(target, msg)
	return nil
}

func (h *Hub) toggle(c *Client, m *Toggle) {
	if c.room == nil {
		h.fail(c, ErrNotInRoom)
		return
	}
	switch m.Kind {
	case Video:
		c.member.VideoEnabled = m.Enabled
	default:
		c.member.AudioEnabled = m.Enabled
	}
	h.broadcast(c.room, c, &UserToggle{
		Kind:     m.Kind,
		UserID:   c.member.UserID,
		SocketID: c.ID,
		Enabled:  m.Enabled,
	})
}

// leave removes c from its room. Safe to call any number of times.
func (h *Hub) leave(c *Client) {
	room := c.room
	if room == nil {
		return
	}
	room.remove(c)
	member := c.member
	c.room = nil
	c.member = nil

	slog.Info("member left", "session", room.ID, "socket", c.ID, "user", member.UserID, "members", room.size())

	if room.size() == 0 {
		delete(h.rooms, room.ID)
		slog.Info("room deleted", "session", room.ID, "objects", room.Board.Len())
		return
	}
	h.broadcast(room, nil, &UserLeft{
		SocketID: c.ID,
		UserID:   member.UserID,
		UserName: member.UserName,
	})
}

func (h *Hub) whiteboardAction(c *Client, m *WhiteboardAction) {
	if c.room == nil {
		h.fail(c, ErrNotInRoom)
		return
	}
	data, err := c.room.Board.Apply(m.Action, m.Data, c.member.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.broadcast(c.room, c, &WhiteboardUpdate{
		UserID: c.member.UserID,
		Action: m.Action,
		Data:   data,
	})
}

// whiteboardSync answers members from their own room. Other clients name the
// session in the request and get its board, empty if the room does not exist.
func (h *Hub) whiteboardSync(c *Client, m *WhiteboardRequestSync) {
	room := c.room
	if room == nil {
		if m.SessionID == "" {
			h.fail(c, ErrEmptySession)
			return
		}
		room = h.rooms[m.SessionID]
	}
	objects := []whiteboard.Object{}
	if room != nil {
		objects = room.Board.Snapshot()
	}
	h.deliver(c, &WhiteboardSync{Objects: objects})
}

// chat stamps and fans out a message. A client that has not joined may post
// to a session by id; it is not added to the room and receives its own copy.
func (h *Hub) chat(c *Client, m *ChatMessage) {
	if m.Message == "" {
		h.fail(c, ErrEmptyChat)
		return
	}
	kind := m.MessageType
	if kind == "" {
		kind = "text"
	}
	if !chatTypes[kind] {
		h.fail(c, ErrBadChatType)
		return
	}

	room := c.room
	out := ChatBroadcast{
		ID:          uuid.NewString(),
		UserID:      m.UserID,
		UserName:    m.UserName,
		Message:     m.Message,
		MessageType: kind,
		Timestamp:   time.Now().UTC(),
	}
	if room != nil {
		out.SessionID = room.ID
		out.UserID = c.member.UserID
		if out.UserName == "" {
			out.UserName = c.member.UserName
		}
	} else {
		if m.SessionID == "" {
			h.fail(c, ErrEmptySession)
			return
		}
		out.SessionID = m.SessionID
		room = h.rooms[m.SessionID]
		h.deliver(c, &out)
	}

	if room != nil {
		h.broadcast(room, nil, &out)
	}
	h.archive.enqueue(out)
}

// broadcast sends msg to every member of room except skip.
func (h *Hub) broadcast(room *Room, skip *Client, msg HubMessage) {
	env, err := Encode(msg)
	if err != nil {
		slog.Error("encode broadcast", "type", msg.Type(), "error", err)
		return
	}
	for _, m := range room.members {
		if m != skip {
			h.push(m, env)
		}
	}
}

func (h *Hub) deliver(c *Client, msg HubMessage) {
	env, err := Encode(msg)
	if err != nil {
		slog.Error("encode message", "type", msg.Type(), "error", err)
		return
	}
	h.push(c, env)
}

func (h *Hub) fail(c *Client, err error) {
	slog.Debug("rejecting message", "socket", c.ID, "error", err)
	h.deliver(c, &ErrorMessage{Message: err.Error()})
}

// push never blocks the hub. A client whose buffer is full is evicted once
// the current message has been handled.
func (h *Hub) push(c *Client, env Envelope) {
	if c.closed {
		return
	}
	select {
	case c.send <- env:
	default:
		if !c.evicting {
			c.evicting = true
			h.evicted = append(h.evicted, c)
		}
	}
}

func (h *Hub) flushEvicted() {
	for len(h.evicted) > 0 {
		c := h.evicted[0]
		h.evicted = h.evicted[1:]
		slog.Warn("client too slow, disconnecting", "socket", c.ID)
		h.drop(c)
	}
}

// drop is the disconnect path: leave, forget and close the send channel.
func (h *Hub) drop(c *Client) {
	if c.closed {
		return
	}
	h.leave(c)
	delete(h.clients, c.ID)
	c.closed = true
	close(c.send)
	slog.Debug("client unregistered", "socket", c.ID)
}

func (h *Hub) snapshot() Stats {
	s := Stats{
		Rooms:   len(h.rooms),
		Clients: len(h.clients),
		ByRoom:  make(map[string]int, len(h.rooms)),
	}
	for id, r := range h.rooms {
		s.ByRoom[id] = r.size()
		s.Members += r.size()
	}
	return s
}
