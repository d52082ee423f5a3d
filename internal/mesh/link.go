package mesh

import (
	"log/slog"

	pion "github.com/pion/webrtc/v4"
)

// State is where a link is in the offer/answer exchange.
type State int

const (
	StateIdle State = iota
	StateHaveLocalOffer
	StateHaveRemoteOffer
	StateStable
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHaveLocalOffer:
		return "have-local-offer"
	case StateHaveRemoteOffer:
		return "have-remote-offer"
	case StateStable:
		return "stable"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Link is the connection to one remote member. Candidates that arrive before
// the remote description are held and applied once it is set.
type Link struct {
	peer      string
	conn      PeerConnection
	state     State
	offerer   bool
	remoteSet bool
	pending   []pion.ICECandidateInit
	failures  int
}

func newLink(peer string, conn PeerConnection, offerer bool) *Link {
	return &Link{peer: peer, conn: conn, offerer: offerer}
}

func (l *Link) Peer() string  { return l.peer }
func (l *Link) State() State  { return l.state }
func (l *Link) Offerer() bool { return l.offerer }
func (l *Link) Pending() int  { return len(l.pending) }

// Offer creates and applies a local offer. Allowed from Idle, or from Stable
// to renegotiate or restart ICE.
func (l *Link) Offer(opts *pion.OfferOptions) (pion.SessionDescription, error) {
	if l.state != StateIdle && l.state != StateStable {
		return pion.SessionDescription{}, WrapError("create offer", ErrInvalidState, l.state.String())
	}
	offer, err := l.conn.CreateOffer(opts)
	if err != nil {
		return pion.SessionDescription{}, PeerError("create offer", l.peer, err)
	}
	if err := l.conn.SetLocalDescription(offer); err != nil {
		return pion.SessionDescription{}, PeerError("set local description", l.peer, err)
	}
	l.state = StateHaveLocalOffer
	return describe(l.conn, offer), nil
}

// AcceptOffer applies a remote offer and returns the local answer.
func (l *Link) AcceptOffer(offer pion.SessionDescription) (pion.SessionDescription, error) {
	if l.state != StateIdle && l.state != StateStable {
		return pion.SessionDescription{}, WrapError("accept offer", ErrInvalidState, l.state.String())
	}
	if err := l.conn.SetRemoteDescription(offer); err != nil {
		return pion.SessionDescription{}, PeerError("set remote description", l.peer, err)
	}
	l.state = StateHaveRemoteOffer
	l.remoteSet = true
	l.flush()

	answer, err := l.conn.CreateAnswer(nil)
	if err != nil {
		return pion.SessionDescription{}, PeerError("create answer", l.peer, err)
	}
	if err := l.conn.SetLocalDescription(answer); err != nil {
		return pion.SessionDescription{}, PeerError("set local description", l.peer, err)
	}
	l.state = StateStable
	return describe(l.conn, answer), nil
}

// AcceptAnswer completes an exchange this side started.
func (l *Link) AcceptAnswer(answer pion.SessionDescription) error {
	if l.state != StateHaveLocalOffer {
		return WrapError("accept answer", ErrInvalidState, l.state.String())
	}
	if err := l.conn.SetRemoteDescription(answer); err != nil {
		return PeerError("set remote description", l.peer, err)
	}
	l.state = StateStable
	l.remoteSet = true
	l.flush()
	return nil
}

// AddCandidate applies c, or holds it until a remote description exists.
func (l *Link) AddCandidate(c pion.ICECandidateInit) error {
	if l.state == StateClosed {
		return nil
	}
	if !l.remoteSet {
		l.pending = append(l.pending, c)
		return nil
	}
	if err := l.conn.AddICECandidate(c); err != nil {
		return PeerError("add ICE candidate", l.peer, err)
	}
	return nil
}

func (l *Link) flush() {
	pending := l.pending
	l.pending = nil
	for _, c := range pending {
		if err := l.conn.AddICECandidate(c); err != nil {
			slog.Warn("buffered ICE candidate rejected", "peer", l.peer, "error", err)
		}
	}
}

// Close releases the transport. Further calls are no-ops.
func (l *Link) Close() error {
	if l.state == StateClosed {
		return nil
	}
	l.state = StateClosed
	l.pending = nil
	return l.conn.Close()
}

// describe prefers the description after SetLocalDescription, which may
// carry gathered candidates.
func describe(conn PeerConnection, fallback pion.SessionDescription) pion.SessionDescription {
	if d := conn.LocalDescription(); d != nil {
		return *d
	}
	return fallback
}
