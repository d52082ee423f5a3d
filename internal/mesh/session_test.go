package mesh

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
	"github.com/sathwikbalu/Zenith-Study/internal/whiteboard"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type harness struct {
	t   *testing.T
	ctx context.Context
	hub *signaling.Hub
	net *fakeNetwork
}

func newHarness(t *testing.T) *harness {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := signaling.NewHub()
	go hub.Run(ctx)
	return &harness{t: t, ctx: ctx, hub: hub, net: &fakeNetwork{}}
}

// join starts a member and waits until it has its roster.
func (h *harness) join(user string, media MediaSource) *Session {
	h.t.Helper()
	pipe, err := signaling.NewPipe(h.hub)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { pipe.Close() })

	s := NewSession(Identity{SessionID: "s1", UserID: user, UserName: user}, pipe, Options{
		Connect: h.net.factory(),
		Media:   media,
	})
	go s.Run(h.ctx)

	require.Eventually(h.t, func() bool {
		v, err := s.View(h.ctx)
		return err == nil && v.Joined
	}, waitFor, tick)
	return s
}

func (h *harness) view(s *Session) View {
	h.t.Helper()
	v, err := s.View(h.ctx)
	require.NoError(h.t, err)
	return v
}

func (h *harness) stableLinks(s *Session) int {
	v, err := s.View(h.ctx)
	if err != nil {
		return -1
	}
	n := 0
	for _, r := range v.Remotes {
		if r.Link == StateStable {
			n++
		}
	}
	return n
}

func av() MediaSource { return SampleSource{Audio: true, Video: true} }

func TestFullMeshForms(t *testing.T) {
	h := newHarness(t)
	a := h.join("alice", av())
	b := h.join("bob", av())
	c := h.join("carol", av())

	for _, s := range []*Session{a, b, c} {
		s := s
		require.Eventually(t, func() bool { return h.stableLinks(s) == 2 }, waitFor, tick)
	}

	// The newcomer offers; earlier members answer.
	for _, r := range h.view(a).Remotes {
		assert.False(t, r.Offerer, "alice never offers")
	}
	for _, r := range h.view(c).Remotes {
		assert.True(t, r.Offerer, "carol offers to everyone present")
	}
	bv := h.view(b)
	require.Len(t, bv.Remotes, 2)
	assert.Equal(t, "alice", bv.Remotes[0].UserName)
	assert.True(t, bv.Remotes[0].Offerer)
	assert.Equal(t, "carol", bv.Remotes[1].UserName)
	assert.False(t, bv.Remotes[1].Offerer)

	// Three pairs, one connection per side.
	assert.Len(t, h.net.all(), 6)
	assert.Equal(t, 3, h.net.totalOffers())
}

func TestToggleIsMetadataOnly(t *testing.T) {
	h := newHarness(t)
	a := h.join("alice", av())
	b := h.join("bob", av())
	c := h.join("carol", av())
	for _, s := range []*Session{a, b, c} {
		s := s
		require.Eventually(t, func() bool { return h.stableLinks(s) == 2 }, waitFor, tick)
	}
	offers := h.net.totalOffers()

	require.NoError(t, b.SetMediaEnabled(h.ctx, signaling.Audio, false))

	for _, s := range []*Session{a, c} {
		s := s
		require.Eventually(t, func() bool {
			for _, r := range h.view(s).Remotes {
				if r.UserID == "bob" {
					return !r.AudioEnabled && r.VideoEnabled
				}
			}
			return false
		}, waitFor, tick)
	}

	bv := h.view(b)
	assert.False(t, bv.AudioEnabled)
	assert.True(t, bv.VideoEnabled)
	assert.Equal(t, offers, h.net.totalOffers(), "toggling never renegotiates")
	assert.Equal(t, 2, h.stableLinks(a))
}

func TestReceiveOnlyMember(t *testing.T) {
	h := newHarness(t)
	a := h.join("alice", av())
	b := h.join("bob", NoMedia{})

	require.Eventually(t, func() bool { return h.stableLinks(b) == 1 }, waitFor, tick)
	bv := h.view(b)
	assert.True(t, bv.ReceiveOnly)
	assert.ErrorIs(t, b.SetMediaEnabled(h.ctx, signaling.Video, true), ErrNoLocalTrack)

	require.Eventually(t, func() bool {
		r := h.view(a).Remotes
		return len(r) == 1 && !r[0].AudioEnabled && !r[0].VideoEnabled
	}, waitFor, tick)

	conns := h.net.all()
	require.Len(t, conns, 2)
	publishing, receiving := 0, 0
	for _, c := range conns {
		c.mu.Lock()
		if c.tracks == 2 && c.transceivers == 0 {
			publishing++
		}
		if c.tracks == 0 && c.transceivers == 2 {
			receiving++
		}
		c.mu.Unlock()
	}
	assert.Equal(t, 1, publishing, "alice publishes audio and video")
	assert.Equal(t, 1, receiving, "bob only receives")
}

func TestLeaveClosesPeersLinks(t *testing.T) {
	h := newHarness(t)
	a := h.join("alice", av())
	b := h.join("bob", av())
	require.Eventually(t, func() bool { return h.stableLinks(a) == 1 }, waitFor, tick)

	require.NoError(t, b.Leave(h.ctx))
	<-b.Done()

	require.Eventually(t, func() bool { return h.view(a).Links() == 0 }, waitFor, tick)
	for _, c := range h.net.all() {
		assert.True(t, c.isClosed(), "connection %d leaked", c.id)
	}
	assert.NoError(t, b.Leave(h.ctx), "leaving twice is a no-op")
	_, err := b.View(h.ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestDisconnectBeforeAnswerClosesOffer(t *testing.T) {
	h := newHarness(t)

	// z never answers; it only joins and disappears.
	z, err := signaling.NewPipe(h.hub)
	require.NoError(t, err)
	require.NoError(t, z.Send(&signaling.JoinSession{SessionID: "s1", UserID: "zed"}))
	<-z.Incoming()

	x := h.join("xavier", av())
	require.Eventually(t, func() bool {
		r := h.view(x).Remotes
		return len(r) == 1 && r[0].Link == StateHaveLocalOffer
	}, waitFor, tick)

	require.NoError(t, z.Close())

	require.Eventually(t, func() bool { return h.view(x).Links() == 0 }, waitFor, tick)
	conns := h.net.all()
	require.Len(t, conns, 1)
	assert.True(t, conns[0].isClosed())
}

func TestDisconnectMidNegotiationLeavesOthersIntact(t *testing.T) {
	h := newHarness(t)
	x := h.join("xavier", av())
	y := h.join("yara", av())
	require.Eventually(t, func() bool { return h.stableLinks(x) == 1 && h.stableLinks(y) == 1 }, waitFor, tick)

	// z offers to both and drops before reading any answer.
	z, err := signaling.NewPipe(h.hub)
	require.NoError(t, err)
	require.NoError(t, z.Send(&signaling.JoinSession{SessionID: "s1", UserID: "zed"}))
	roster := (<-z.Incoming()).(*signaling.ExistingParticipants)
	require.Len(t, *roster, 2)
	offer, _ := json.Marshal(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: "z"})
	for _, p := range *roster {
		require.NoError(t, z.Send(&signaling.Offer{To: p.SocketID, Offer: offer}))
	}
	require.NoError(t, z.Close())

	// Both answered z, then both dropped the link when z left.
	require.Eventually(t, func() bool {
		conns := h.net.all()
		open := 0
		for _, c := range conns {
			if !c.isClosed() {
				open++
			}
		}
		return len(conns) == 4 && open == 2
	}, waitFor, tick, "only the x-y pair survives")

	for _, s := range []*Session{x, y} {
		v := h.view(s)
		assert.Equal(t, 1, v.Links())
		assert.Equal(t, 1, h.stableLinks(s))
	}
}

func TestEarlyCandidatesAreBuffered(t *testing.T) {
	h := newHarness(t)

	z, err := signaling.NewPipe(h.hub)
	require.NoError(t, err)
	require.NoError(t, z.Send(&signaling.JoinSession{SessionID: "s1", UserID: "zed"}))
	<-z.Incoming()

	x := h.join("xavier", av())
	joined := (<-z.Incoming()).(*signaling.UserJoined)
	relayed := (<-z.Incoming()).(*signaling.RelayedOffer)
	assert.Equal(t, joined.SocketID, relayed.From)

	cand, _ := json.Marshal(candidate("candidate:1 1 udp 1 10.0.0.1 5000 typ host"))
	require.NoError(t, z.Send(&signaling.ICECandidate{To: joined.SocketID, Candidate: cand}))
	require.Eventually(t, func() bool {
		r := h.view(x).Remotes
		return len(r) == 1 && r[0].Pending == 1
	}, waitFor, tick)

	answer, _ := json.Marshal(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "z"})
	require.NoError(t, z.Send(&signaling.Answer{To: joined.SocketID, Answer: answer}))
	require.Eventually(t, func() bool { return h.stableLinks(x) == 1 }, waitFor, tick)

	assert.Equal(t, 0, h.view(x).Remotes[0].Pending)
	assert.Equal(t, 1, h.net.all()[0].candidateCount())
}

func TestCandidatesFromUnknownPeerWaitForLink(t *testing.T) {
	s := NewSession(Identity{SessionID: "s1", UserID: "me"}, nil, Options{Connect: (&fakeNetwork{}).factory()})

	cand, _ := json.Marshal(candidate("c1"))
	s.handle(&signaling.RelayedICECandidate{From: "ghost", Candidate: cand})
	assert.Len(t, s.orphans["ghost"], 1)
	assert.Empty(t, s.links)

	s.handle(&signaling.UserJoined{Participant: signaling.Participant{SocketID: "ghost", UserID: "g"}})
	require.Contains(t, s.links, "ghost")
	assert.Equal(t, 1, s.links["ghost"].Pending())
	assert.Empty(t, s.orphans)

	s.handle(&signaling.UserLeft{SocketID: "ghost"})
	assert.Empty(t, s.links)
	assert.Empty(t, s.remotes)
}

func TestFailedLinkRetriesOnlyWhenAllowed(t *testing.T) {
	tests := []struct {
		name       string
		retry      RetryPolicy
		wantOffers int
	}{
		{name: "no retry by default", retry: nil, wantOffers: 1},
		{name: "ice restart", retry: RetryUpTo(1), wantOffers: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			network := &fakeNetwork{}
			sent := &recordingTransport{}
			s := NewSession(Identity{SessionID: "s1", UserID: "me"}, sent, Options{
				Connect: network.factory(),
				Retry:   tt.retry,
			})
			s.handle(&signaling.ExistingParticipants{{SocketID: "peer", UserID: "p"}})
			answer, _ := json.Marshal(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "a"})
			s.handle(&signaling.RelayedAnswer{From: "peer", Answer: answer})
			require.Equal(t, StateStable, s.links["peer"].State())

			s.handleEvent(iceStateEvent{link: s.links["peer"], state: pion.ICEConnectionStateFailed})

			assert.Equal(t, tt.wantOffers, network.all()[0].offerCount())
			assert.Equal(t, tt.wantOffers, sent.count(signaling.TypeOffer))
			assert.Contains(t, s.lastErr, ErrNegotiationFailed.Error())
		})
	}
}

func TestStaleEventsAreIgnored(t *testing.T) {
	sent := &recordingTransport{}
	s := NewSession(Identity{SessionID: "s1", UserID: "me"}, sent, Options{Connect: (&fakeNetwork{}).factory()})
	s.handle(&signaling.UserJoined{Participant: signaling.Participant{SocketID: "peer"}})
	old := s.links["peer"]
	s.handle(&signaling.UserLeft{SocketID: "peer"})

	s.handleEvent(candidateEvent{link: old, candidate: candidate("c")})
	assert.Equal(t, 0, sent.count(signaling.TypeICECandidate))
}

func TestWhiteboardReplica(t *testing.T) {
	h := newHarness(t)
	a := h.join("alice", av())

	drawn, err := a.Draw(h.ctx, whiteboard.Object{Type: "path", Props: map[string]any{"path": "M 0 0"}})
	require.NoError(t, err)
	assert.Contains(t, drawn.ID, "alice-")
	_, err = a.Draw(h.ctx, whiteboard.Object{ID: "second", Type: "rect"})
	require.NoError(t, err)
	require.NoError(t, a.Modify(h.ctx, "second", map[string]any{"left": 5.0}))
	assert.ErrorIs(t, a.Modify(h.ctx, "nope", nil), ErrUnknownObject)

	// A late joiner syncs on join and then follows live updates.
	b := h.join("bob", av())
	require.Eventually(t, func() bool { return len(h.view(b).Board) == 2 }, waitFor, tick)
	board := h.view(b).Board
	assert.Equal(t, drawn.ID, board[0].ID)
	assert.Equal(t, "alice", board[0].Origin)
	assert.Equal(t, 5.0, board[1].Props["left"])

	require.NoError(t, a.ClearBoard(h.ctx))
	_, err = a.Draw(h.ctx, whiteboard.Object{ID: "after", Type: "circle"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		board := h.view(b).Board
		return len(board) == 1 && board[0].ID == "after"
	}, waitFor, tick)
}

func TestChatReachesEveryone(t *testing.T) {
	h := newHarness(t)
	a := h.join("alice", av())
	b := h.join("bob", av())

	require.NoError(t, a.SendChat(h.ctx, "hello", ""))

	for _, s := range []*Session{a, b} {
		s := s
		require.Eventually(t, func() bool {
			chat := h.view(s).Chat
			return len(chat) == 1 && chat[0].Message == "hello" && chat[0].UserID == "alice"
		}, waitFor, tick)
	}
}

func TestTransportCloseEndsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := signaling.NewHub()
	go hub.Run(ctx)
	pipe, err := signaling.NewPipe(hub)
	require.NoError(t, err)

	s := NewSession(Identity{SessionID: "s1", UserID: "me"}, pipe, Options{Connect: (&fakeNetwork{}).factory()})
	result := make(chan error, 1)
	go func() { result <- s.Run(ctx) }()

	require.NoError(t, pipe.Close())
	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrTransportClosed)
	case <-time.After(waitFor):
		t.Fatal("session kept running after its transport closed")
	}
	assert.NoError(t, s.Leave(ctx), "leaving after the transport dropped is a no-op")
}

// recordingTransport collects sent messages for sessions driven by hand.
type recordingTransport struct {
	sent []signaling.ClientMessage
}

func (r *recordingTransport) Send(msg signaling.ClientMessage) error {
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingTransport) Incoming() <-chan signaling.HubMessage { return nil }

func (r *recordingTransport) count(typ string) int {
	n := 0
	for _, m := range r.sent {
		if m.Type() == typ {
			n++
		}
	}
	return n
}
