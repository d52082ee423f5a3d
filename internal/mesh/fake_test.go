package mesh

import (
	"errors"
	"fmt"
	"sync"

	pion "github.com/pion/webrtc/v4"
)

// fakeConn stands in for a pion peer connection. It accepts any SDP and only
// enforces the ordering rules the link relies on.
type fakeConn struct {
	mu           sync.Mutex
	id           int
	local        *pion.SessionDescription
	remote       *pion.SessionDescription
	candidates   []pion.ICECandidateInit
	tracks       int
	transceivers int
	offers       int
	closed       bool
	onCandidate  func(*pion.ICECandidate)
	onState      func(pion.ICEConnectionState)
}

func (f *fakeConn) CreateOffer(opts *pion.OfferOptions) (pion.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers++
	sdp := fmt.Sprintf("offer-%d-%d", f.id, f.offers)
	if opts != nil && opts.ICERestart {
		sdp += "-restart"
	}
	return pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}, nil
}

func (f *fakeConn) CreateAnswer(*pion.AnswerOptions) (pion.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == nil {
		return pion.SessionDescription{}, errors.New("no remote offer")
	}
	return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: fmt.Sprintf("answer-%d", f.id)}, nil
}

func (f *fakeConn) SetLocalDescription(desc pion.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = &desc
	return nil
}

func (f *fakeConn) SetRemoteDescription(desc pion.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote = &desc
	return nil
}

func (f *fakeConn) LocalDescription() *pion.SessionDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.local
}

func (f *fakeConn) AddICECandidate(c pion.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == nil {
		return errors.New("remote description not set")
	}
	f.candidates = append(f.candidates, c)
	return nil
}

func (f *fakeConn) AddTrack(pion.TrackLocal) (*pion.RTPSender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks++
	return nil, nil
}

func (f *fakeConn) AddTransceiverFromKind(pion.RTPCodecType, ...pion.RTPTransceiverInit) (*pion.RTPTransceiver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transceivers++
	return nil, nil
}

func (f *fakeConn) OnICECandidate(fn func(*pion.ICECandidate)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCandidate = fn
}

func (f *fakeConn) OnICEConnectionStateChange(fn func(pion.ICEConnectionState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onState = fn
}

func (f *fakeConn) OnTrack(func(*pion.TrackRemote, *pion.RTPReceiver)) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) offerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offers
}

func (f *fakeConn) candidateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.candidates)
}

func (f *fakeConn) fireState(state pion.ICEConnectionState) {
	f.mu.Lock()
	fn := f.onState
	f.mu.Unlock()
	fn(state)
}

// fakeNetwork hands out fakeConns and remembers them.
type fakeNetwork struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (n *fakeNetwork) factory() ConnectionFactory {
	return func() (PeerConnection, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		c := &fakeConn{id: len(n.conns) + 1}
		n.conns = append(n.conns, c)
		return c, nil
	}
}

func (n *fakeNetwork) all() []*fakeConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*fakeConn(nil), n.conns...)
}

func (n *fakeNetwork) totalOffers() int {
	total := 0
	for _, c := range n.all() {
		total += c.offerCount()
	}
	return total
}
