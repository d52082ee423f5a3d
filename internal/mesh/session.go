package mesh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	pion "github.com/pion/webrtc/v4"

	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
	"github.com/sathwikbalu/Zenith-Study/internal/whiteboard"
)

const (
	eventBuffer    = 256
	maxOrphans     = 64
	maxChatHistory = 200
)

// Identity is who this member is inside the session.
type Identity struct {
	SessionID string
	UserID    string
	UserName  string
	IsTutor   bool
}

// Transport carries signaling to and from the hub. Both signaling.Pipe and
// signaling.RemoteHub satisfy it.
type Transport interface {
	Send(msg signaling.ClientMessage) error
	Incoming() <-chan signaling.HubMessage
}

// Options configures a Session. Zero fields get defaults: no local media and no retry.
type Options struct {
	Connect ConnectionFactory
	Media   MediaSource
	Retry   RetryPolicy
	// OnChange receives a fresh View after every state change. It runs on the
	// session goroutine and must not block.
	OnChange func(View)
}

// Remote is what this member knows about another member, keyed by socket id.
// Media flags are metadata only; they never touch the link.
type Remote struct {
	SocketID     string
	UserID       string
	UserName     string
	IsTutor      bool
	AudioEnabled bool
	VideoEnabled bool
	Link         State
	Offerer      bool
	Pending      int
	ICE          string
	Tracks       []string
}

// View is a copy of the session state for display and tests.
type View struct {
	Self         Identity
	Joined       bool
	ReceiveOnly  bool
	AudioEnabled bool
	VideoEnabled bool
	Remotes      []Remote
	Board        []whiteboard.Object
	Chat         []signaling.ChatBroadcast
	LastError    string
}

// Links counts remotes with an open link.
func (v View) Links() int {
	n := 0
	for _, r := range v.Remotes {
		if r.Link != StateClosed {
			n++
		}
	}
	return n
}

type command struct {
	fn    func() error
	reply chan error
}

type candidateEvent struct {
	link      *Link
	candidate pion.ICECandidateInit
}

type iceStateEvent struct {
	link  *Link
	state pion.ICEConnectionState
}

type trackEvent struct {
	link *Link
	kind string
	id   string
}

// Session is one member's side of the mesh. Every field is owned by the Run
// goroutine; other goroutines go through commands and events.
type Session struct {
	self      Identity
	transport Transport
	connect   ConnectionFactory
	source    MediaSource
	retry     RetryPolicy
	onChange  func(View)

	media   *LocalMedia
	joined  bool
	left    bool
	links   map[string]*Link
	remotes map[string]*Remote
	order   []string
	orphans map[string][]pion.ICECandidateInit
	board   *whiteboard.Board
	chat    []signaling.ChatBroadcast
	lastErr string

	events   chan any
	commands chan command
	done     chan struct{}
}

func NewSession(self Identity, transport Transport, opts Options) *Session {
	s := &Session{
		self:      self,
		transport: transport,
		connect:   opts.Connect,
		source:    opts.Media,
		retry:     opts.Retry,
		onChange:  opts.OnChange,
		links:     make(map[string]*Link),
		remotes:   make(map[string]*Remote),
		orphans:   make(map[string][]pion.ICECandidateInit),
		board:     whiteboard.NewBoard(),
		events:    make(chan any, eventBuffer),
		commands:  make(chan command),
		done:      make(chan struct{}),
	}
	if s.source == nil {
		s.source = NoMedia{}
	}
	if s.retry == nil {
		s.retry = NoRetry{}
	}
	return s
}

// Run joins the session and processes signaling until ctx ends, the
// transport closes or Leave is called. Every link is closed on return.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.closeAll()

	if s.connect == nil {
		return NewError("start session", errors.New("no connection factory"))
	}

	media, err := s.source.Acquire(ctx)
	switch {
	case errors.Is(err, ErrMediaAcquisitionDenied):
		slog.Warn("joining receive-only", "session", s.self.SessionID, "error", err)
	case err != nil:
		return NewError("acquire media", err)
	}
	s.media = media

	audio, video := s.media.Enabled(signaling.Audio), s.media.Enabled(signaling.Video)
	if err := s.send(&signaling.JoinSession{
		SessionID:    s.self.SessionID,
		UserID:       s.self.UserID,
		UserName:     s.self.UserName,
		IsTutor:      s.self.IsTutor,
		AudioEnabled: &audio,
		VideoEnabled: &video,
	}); err != nil {
		return err
	}
	if err := s.send(&signaling.WhiteboardRequestSync{SessionID: s.self.SessionID}); err != nil {
		return err
	}

	incoming := s.transport.Incoming()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-incoming:
			if !ok {
				return NewError("receive", ErrTransportClosed)
			}
			s.handle(msg)

		case ev := <-s.events:
			s.handleEvent(ev)

		case cmd := <-s.commands:
			cmd.reply <- cmd.fn()
		}

		s.notify()
		if s.left {
			return nil
		}
	}
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns a snapshot of the session.
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.do(ctx, func() error {
		v = s.view()
		return nil
	})
	return v, err
}

// SetMediaEnabled flips a local track and tells the room. No renegotiation happens.
func (s *Session) SetMediaEnabled(ctx context.Context, kind signaling.MediaKind, enabled bool) error {
	return s.do(ctx, func() error {
		t := s.media.track(kind)
		if t == nil {
			return WrapError("toggle "+string(kind), ErrNoLocalTrack, "joined receive-only")
		}
		t.SetEnabled(enabled)
		return s.send(&signaling.Toggle{
			Kind:      kind,
			SessionID: s.self.SessionID,
			UserID:    s.self.UserID,
			Enabled:   enabled,
		})
	})
}

// Leave tells the hub and stops Run. Leaving a session that already ended,
// by an earlier Leave or a lost transport, is a no-op.
func (s *Session) Leave(ctx context.Context) error {
	err := s.do(ctx, func() error {
		if s.left {
			return nil
		}
		s.left = true
		return s.send(&signaling.LeaveSession{SessionID: s.self.SessionID})
	})
	if errors.Is(err, ErrSessionClosed) {
		return nil
	}
	return err
}

func (s *Session) SendChat(ctx context.Context, text, messageType string) error {
	return s.do(ctx, func() error {
		return s.send(&signaling.ChatMessage{
			SessionID:   s.self.SessionID,
			Message:     text,
			UserID:      s.self.UserID,
			UserName:    s.self.UserName,
			MessageType: messageType,
		})
	})
}

// Draw adds obj to the board and publishes it. A missing id is generated.
func (s *Session) Draw(ctx context.Context, obj whiteboard.Object) (whiteboard.Object, error) {
	err := s.do(ctx, func() error {
		if obj.ID == "" {
			obj.ID = whiteboard.NewObjectID(s.self.UserID)
		}
		obj.Origin = s.self.UserID
		if err := s.board.Add(obj); err != nil {
			return err
		}
		return s.publish(whiteboard.ActionAdd, obj)
	})
	return obj, err
}

// Modify merges props into an existing object and publishes the change.
func (s *Session) Modify(ctx context.Context, id string, props map[string]any) error {
	return s.do(ctx, func() error {
		if !s.board.Modify(id, "", props) {
			return fmt.Errorf("modify %s: %w", id, ErrUnknownObject)
		}
		return s.publish(whiteboard.ActionModify, whiteboard.Object{ID: id, Props: props})
	})
}

func (s *Session) ClearBoard(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.board.Clear()
		return s.send(&signaling.WhiteboardAction{
			SessionID: s.self.SessionID,
			UserID:    s.self.UserID,
			Action:    whiteboard.ActionClear,
		})
	})
}

func (s *Session) RequestBoardSync(ctx context.Context) error {
	return s.do(ctx, func() error {
		return s.send(&signaling.WhiteboardRequestSync{SessionID: s.self.SessionID})
	})
}

func (s *Session) publish(action whiteboard.Action, obj whiteboard.Object) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return NewError("encode whiteboard object", err)
	}
	return s.send(&signaling.WhiteboardAction{
		SessionID: s.self.SessionID,
		UserID:    s.self.UserID,
		Action:    action,
		Data:      data,
	})
}

func (s *Session) send(msg signaling.ClientMessage) error {
	if err := s.transport.Send(msg); err != nil {
		return WrapError("send "+msg.Type(), ErrTransportClosed, err.Error())
	}
	return nil
}

func (s *Session) handle(msg signaling.HubMessage) {
	switch m := msg.(type) {
	case *signaling.ExistingParticipants:
		s.joined = true
		// The newcomer offers to everyone already present.
		for _, p := range *m {
			s.upsertRemote(p)
			s.startOffer(p.SocketID)
		}

	case *signaling.UserJoined:
		s.upsertRemote(m.Participant)
		if _, err := s.ensureLink(m.SocketID, false); err != nil {
			s.fail(err)
		}

	case *signaling.RelayedOffer:
		s.acceptOffer(m)

	case *signaling.RelayedAnswer:
		s.acceptAnswer(m)

	case *signaling.RelayedICECandidate:
		s.addCandidate(m)

	case *signaling.UserToggle:
		r, ok := s.remotes[m.SocketID]
		if !ok {
			return
		}
		if m.Kind == signaling.Video {
			r.VideoEnabled = m.Enabled
		} else {
			r.AudioEnabled = m.Enabled
		}

	case *signaling.UserLeft:
		s.dropPeer(m.SocketID)

	case *signaling.WhiteboardUpdate:
		if _, err := s.board.Apply(m.Action, m.Data, m.UserID); err != nil {
			slog.Warn("ignoring whiteboard update", "from", m.UserID, "action", m.Action, "error", err)
		}

	case *signaling.WhiteboardSync:
		s.board.Load(m.Objects)

	case *signaling.ChatBroadcast:
		s.chat = append(s.chat, *m)
		if len(s.chat) > maxChatHistory {
			s.chat = s.chat[len(s.chat)-maxChatHistory:]
		}

	case *signaling.ErrorMessage:
		slog.Warn("hub rejected a message", "error", m.Message)
		s.lastErr = m.Message
	}
}

func (s *Session) upsertRemote(p signaling.Participant) {
	r, ok := s.remotes[p.SocketID]
	if !ok {
		r = &Remote{SocketID: p.SocketID}
		s.remotes[p.SocketID] = r
		s.order = append(s.order, p.SocketID)
	}
	r.UserID = p.UserID
	r.UserName = p.UserName
	r.IsTutor = p.IsTutor
	r.AudioEnabled = p.AudioEnabled
	r.VideoEnabled = p.VideoEnabled
}

// ensureLink returns the link to peer, opening one if needed. Candidates that
// arrived before the peer was known move onto the new link.
func (s *Session) ensureLink(peer string, offerer bool) (*Link, error) {
	if l, ok := s.links[peer]; ok {
		return l, nil
	}

	conn, err := s.connect()
	if err != nil {
		return nil, PeerError("open link", peer, err)
	}
	if err := s.attachMedia(conn); err != nil {
		conn.Close()
		return nil, PeerError("attach media", peer, err)
	}

	l := newLink(peer, conn, offerer)
	s.watch(l)
	s.links[peer] = l

	if _, ok := s.remotes[peer]; !ok {
		s.remotes[peer] = &Remote{SocketID: peer, AudioEnabled: true, VideoEnabled: true}
		s.order = append(s.order, peer)
	}

	for _, c := range s.orphans[peer] {
		if err := l.AddCandidate(c); err != nil {
			slog.Warn("early ICE candidate rejected", "peer", peer, "error", err)
		}
	}
	delete(s.orphans, peer)

	slog.Debug("link opened", "peer", peer, "offerer", offerer)
	return l, nil
}

// attachMedia adds local tracks, or receive-only transceivers for kinds this
// member does not publish.
func (s *Session) attachMedia(conn PeerConnection) error {
	for _, t := range s.media.Tracks() {
		if _, err := conn.AddTrack(t); err != nil {
			return err
		}
	}
	recvOnly := pion.RTPTransceiverInit{Direction: pion.RTPTransceiverDirectionRecvonly}
	if s.media.track(signaling.Audio) == nil {
		if _, err := conn.AddTransceiverFromKind(pion.RTPCodecTypeAudio, recvOnly); err != nil {
			return err
		}
	}
	if s.media.track(signaling.Video) == nil {
		if _, err := conn.AddTransceiverFromKind(pion.RTPCodecTypeVideo, recvOnly); err != nil {
			return err
		}
	}
	return nil
}

// watch forwards pion callbacks into the session loop.
func (s *Session) watch(l *Link) {
	l.conn.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		s.post(candidateEvent{link: l, candidate: c.ToJSON()})
	})
	l.conn.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		s.post(iceStateEvent{link: l, state: state})
	})
	l.conn.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		s.post(trackEvent{link: l, kind: track.Kind().String(), id: track.ID()})
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := track.Read(buf); err != nil {
					return
				}
			}
		}()
	})
}

func (s *Session) post(ev any) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) startOffer(peer string) {
	l, err := s.ensureLink(peer, true)
	if err != nil {
		s.fail(err)
		return
	}
	l.offerer = true
	if err := s.sendOffer(l, nil); err != nil {
		s.fail(err)
	}
}

func (s *Session) sendOffer(l *Link, opts *pion.OfferOptions) error {
	offer, err := l.Offer(opts)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(offer)
	if err != nil {
		return PeerError("encode offer", l.peer, err)
	}
	return s.send(&signaling.Offer{To: l.peer, Offer: raw})
}

func (s *Session) acceptOffer(m *signaling.RelayedOffer) {
	var offer pion.SessionDescription
	if err := json.Unmarshal(m.Offer, &offer); err != nil {
		s.fail(PeerError("decode offer", m.From, err))
		return
	}
	l, err := s.ensureLink(m.From, false)
	if err != nil {
		s.fail(err)
		return
	}
	answer, err := l.AcceptOffer(offer)
	if err != nil {
		s.fail(err)
		return
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		s.fail(PeerError("encode answer", m.From, err))
		return
	}
	if err := s.send(&signaling.Answer{To: m.From, Answer: raw}); err != nil {
		s.fail(err)
	}
}

func (s *Session) acceptAnswer(m *signaling.RelayedAnswer) {
	l, ok := s.links[m.From]
	if !ok {
		s.fail(PeerError("accept answer", m.From, ErrUnknownPeer))
		return
	}
	var answer pion.SessionDescription
	if err := json.Unmarshal(m.Answer, &answer); err != nil {
		s.fail(PeerError("decode answer", m.From, err))
		return
	}
	if err := l.AcceptAnswer(answer); err != nil {
		s.fail(err)
	}
}

func (s *Session) addCandidate(m *signaling.RelayedICECandidate) {
	var c pion.ICECandidateInit
	if err := json.Unmarshal(m.Candidate, &c); err != nil {
		s.fail(PeerError("decode ICE candidate", m.From, err))
		return
	}
	l, ok := s.links[m.From]
	if !ok {
		if len(s.orphans[m.From]) < maxOrphans {
			s.orphans[m.From] = append(s.orphans[m.From], c)
		}
		return
	}
	if err := l.AddCandidate(c); err != nil {
		s.fail(err)
	}
}

func (s *Session) handleEvent(ev any) {
	switch e := ev.(type) {
	case candidateEvent:
		if s.links[e.link.peer] != e.link {
			return
		}
		raw, err := json.Marshal(e.candidate)
		if err != nil {
			s.fail(PeerError("encode ICE candidate", e.link.peer, err))
			return
		}
		if err := s.send(&signaling.ICECandidate{To: e.link.peer, Candidate: raw}); err != nil {
			s.fail(err)
		}

	case iceStateEvent:
		if s.links[e.link.peer] != e.link {
			return
		}
		if r, ok := s.remotes[e.link.peer]; ok {
			r.ICE = e.state.String()
		}
		slog.Debug("ICE state changed", "peer", e.link.peer, "state", e.state.String())
		if e.state == pion.ICEConnectionStateFailed {
			s.linkFailed(e.link)
		}

	case trackEvent:
		if s.links[e.link.peer] != e.link {
			return
		}
		if r, ok := s.remotes[e.link.peer]; ok {
			r.Tracks = append(r.Tracks, e.kind+":"+e.id)
		}
	}
}

func (s *Session) linkFailed(l *Link) {
	l.failures++
	s.fail(PeerError("ice", l.peer, ErrNegotiationFailed))

	if !l.offerer || l.state != StateStable || !s.retry.ShouldRetry(l.peer, l.failures) {
		return
	}
	slog.Info("restarting ICE", "peer", l.peer, "attempt", l.failures)
	if err := s.sendOffer(l, &pion.OfferOptions{ICERestart: true}); err != nil {
		s.fail(err)
	}
}

func (s *Session) dropPeer(peer string) {
	if l, ok := s.links[peer]; ok {
		if err := l.Close(); err != nil {
			slog.Debug("closing link", "peer", peer, "error", err)
		}
		delete(s.links, peer)
	}
	delete(s.remotes, peer)
	delete(s.orphans, peer)
	for i, id := range s.order {
		if id == peer {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Session) closeAll() {
	for _, peer := range append([]string(nil), s.order...) {
		s.dropPeer(peer)
	}
	for peer := range s.links {
		s.dropPeer(peer)
	}
}

func (s *Session) fail(err error) {
	slog.Warn("mesh", "session", s.self.SessionID, "error", err)
	s.lastErr = err.Error()
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.view())
	}
}

func (s *Session) view() View {
	v := View{
		Self:         s.self,
		Joined:       s.joined,
		ReceiveOnly:  s.media == nil,
		AudioEnabled: s.media.Enabled(signaling.Audio),
		VideoEnabled: s.media.Enabled(signaling.Video),
		Board:        s.board.Snapshot(),
		Chat:         append([]signaling.ChatBroadcast(nil), s.chat...),
		LastError:    s.lastErr,
	}
	for _, id := range s.order {
		r := *s.remotes[id]
		r.Tracks = append([]string(nil), r.Tracks...)
		if l, ok := s.links[id]; ok {
			r.Link = l.State()
			r.Offerer = l.Offerer()
			r.Pending = l.Pending()
		} else {
			r.Link = StateClosed
		}
		v.Remotes = append(v.Remotes, r)
	}
	return v
}
