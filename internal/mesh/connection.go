package mesh

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/sathwikbalu/Zenith-Study/internal/config"
)

// PeerConnection is the subset of *webrtc.PeerConnection a link drives.
type PeerConnection interface {
	CreateOffer(options *pion.OfferOptions) (pion.SessionDescription, error)
	CreateAnswer(options *pion.AnswerOptions) (pion.SessionDescription, error)
	SetLocalDescription(desc pion.SessionDescription) error
	SetRemoteDescription(desc pion.SessionDescription) error
	LocalDescription() *pion.SessionDescription
	AddICECandidate(candidate pion.ICECandidateInit) error
	AddTrack(track pion.TrackLocal) (*pion.RTPSender, error)
	AddTransceiverFromKind(kind pion.RTPCodecType, init ...pion.RTPTransceiverInit) (*pion.RTPTransceiver, error)
	OnICECandidate(f func(*pion.ICECandidate))
	OnICEConnectionStateChange(f func(pion.ICEConnectionState))
	OnTrack(f func(*pion.TrackRemote, *pion.RTPReceiver))
	Close() error
}

var _ PeerConnection = (*pion.PeerConnection)(nil)

// ConnectionFactory opens a new transport toward one remote member.
type ConnectionFactory func() (PeerConnection, error)

// ICEConfiguration builds the ICE server list from cfg. Relay-only policy is
// used when forced or when the host looks like it sits behind CGNAT or a VPN,
// and only if a TURN server exists.
func ICEConfiguration(cfg *config.Config) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || config.ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// PionFactory opens real WebRTC peer connections.
func PionFactory(cfg *config.Config) ConnectionFactory {
	iceConfig := ICEConfiguration(cfg)
	return func() (PeerConnection, error) {
		pc, err := pion.NewPeerConnection(iceConfig)
		if err != nil {
			return nil, NewError("create peer connection", err)
		}
		return pc, nil
	}
}
