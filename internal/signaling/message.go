package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sathwikbalu/Zenith-Study/internal/whiteboard"
)

// Event names as they appear in the envelope's "type" field.
const (
	TypeJoinSession           = "join-session"
	TypeExistingParticipants  = "existing-participants"
	TypeUserJoined            = "user-joined"
	TypeOffer                 = "webrtc-offer"
	TypeAnswer                = "webrtc-answer"
	TypeICECandidate          = "webrtc-ice-candidate"
	TypeToggleAudio           = "toggle-audio"
	TypeToggleVideo           = "toggle-video"
	TypeUserAudioToggle       = "user-audio-toggle"
	TypeUserVideoToggle       = "user-video-toggle"
	TypeLeaveSession          = "leave-session"
	TypeUserLeft              = "user-left"
	TypeWhiteboardAction      = "whiteboard-action"
	TypeWhiteboardRequestSync = "whiteboard-request-sync"
	TypeWhiteboardSync        = "whiteboard-sync"
	TypeChatMessage           = "chat-message"
	TypeError                 = "error"
)

var ErrUnknownType = errors.New("signaling: unknown message type")

// Envelope is the frame exchanged over the websocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClientMessage is anything a member may send to the hub.
type ClientMessage interface {
	Type() string
	clientMessage()
}

// HubMessage is anything the hub may send to a member.
type HubMessage interface {
	Type() string
	hubMessage()
}

// MediaKind names one of the two toggleable media flags.
type MediaKind string

const (
	Audio MediaKind = "audio"
	Video MediaKind = "video"
)

// Participant is the public view of a room member.
type Participant struct {
	SocketID     string `json:"socketId"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	IsTutor      bool   `json:"isTutor"`
	AudioEnabled bool   `json:"audioEnabled"`
	VideoEnabled bool   `json:"videoEnabled"`
}

// --- client -> hub ---

type JoinSession struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	IsTutor   bool   `json:"isTutor"`
	// Optional initial media flags; both default to enabled.
	AudioEnabled *bool `json:"audioEnabled,omitempty"`
	VideoEnabled *bool `json:"videoEnabled,omitempty"`
}

// Offer, Answer and ICECandidate carry opaque payloads addressed to one socket.
type Offer struct {
	To    string          `json:"to"`
	Offer json.RawMessage `json:"offer"`
}

type Answer struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

type ICECandidate struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type Toggle struct {
	Kind      MediaKind `json:"-"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Enabled   bool      `json:"enabled"`
}

type LeaveSession struct {
	SessionID string `json:"sessionId"`
}

type WhiteboardAction struct {
	SessionID string            `json:"sessionId"`
	UserID    string            `json:"userId"`
	Action    whiteboard.Action `json:"action"`
	Data      json.RawMessage   `json:"data,omitempty"`
}

type WhiteboardRequestSync struct {
	SessionID string `json:"sessionId"`
}

type ChatMessage struct {
	SessionID   string `json:"sessionId"`
	Message     string `json:"message"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	MessageType string `json:"messageType,omitempty"`
}

func (JoinSession) Type() string           { return TypeJoinSession }
func (Offer) Type() string                 { return TypeOffer }
func (Answer) Type() string                { return TypeAnswer }
func (ICECandidate) Type() string          { return TypeICECandidate }
func (LeaveSession) Type() string          { return TypeLeaveSession }
func (WhiteboardAction) Type() string      { return TypeWhiteboardAction }
func (WhiteboardRequestSync) Type() string { return TypeWhiteboardRequestSync }
func (ChatMessage) Type() string           { return TypeChatMessage }

func (t Toggle) Type() string {
	if t.Kind == Video {
		return TypeToggleVideo
	}
	return TypeToggleAudio
}

func (JoinSession) clientMessage()           {}
func (Offer) clientMessage()                 {}
func (Answer) clientMessage()                {}
func (ICECandidate) clientMessage()          {}
func (Toggle) clientMessage()                {}
func (LeaveSession) clientMessage()          {}
func (WhiteboardAction) clientMessage()      {}
func (WhiteboardRequestSync) clientMessage() {}
func (ChatMessage) clientMessage()           {}

// --- hub -> client ---

// ExistingParticipants is the roster handed to a member on join. It does not
// include the joiner.
type ExistingParticipants []Participant

type UserJoined struct {
	Participant
}

type RelayedOffer struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type RelayedAnswer struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

type RelayedICECandidate struct {
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type UserToggle struct {
	Kind     MediaKind `json:"-"`
	UserID   string    `json:"userId"`
	SocketID string    `json:"socketId"`
	Enabled  bool      `json:"enabled"`
}

type UserLeft struct {
	SocketID string `json:"socketId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type WhiteboardUpdate struct {
	UserID string            `json:"userId"`
	Action whiteboard.Action `json:"action"`
	Data   json.RawMessage   `json:"data,omitempty"`
}

type WhiteboardSync struct {
	Objects []whiteboard.Object `json:"objects"`
}

// ChatBroadcast is a chat message after the hub stamped it.
type ChatBroadcast struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	Message     string    `json:"message"`
	MessageType string    `json:"messageType"`
	Timestamp   time.Time `json:"timestamp"`
}

type ErrorMessage struct {
	Message string `json:"error"`
}

func (ExistingParticipants) Type() string { return TypeExistingParticipants }
func (UserJoined) Type() string           { return TypeUserJoined }
func (RelayedOffer) Type() string         { return TypeOffer }
func (RelayedAnswer) Type() string        { return TypeAnswer }
func (RelayedICECandidate) Type() string  { return TypeICECandidate }
func (UserLeft) Type() string             { return TypeUserLeft }
func (WhiteboardUpdate) Type() string     { return TypeWhiteboardAction }
func (WhiteboardSync) Type() string       { return TypeWhiteboardSync }
func (ChatBroadcast) Type() string        { return TypeChatMessage }
func (ErrorMessage) Type() string         { return TypeError }

func (t UserToggle) Type() string {
	if t.Kind == Video {
		return TypeUserVideoToggle
	}
	return TypeUserAudioToggle
}

func (ExistingParticipants) hubMessage() {}
func (UserJoined) hubMessage()           {}
func (RelayedOffer) hubMessage()         {}
func (RelayedAnswer) hubMessage()        {}
func (RelayedICECandidate) hubMessage()  {}
func (UserToggle) hubMessage()           {}
func (UserLeft) hubMessage()             {}
func (WhiteboardUpdate) hubMessage()     {}
func (WhiteboardSync) hubMessage()       {}
func (ChatBroadcast) hubMessage()        {}
func (ErrorMessage) hubMessage()         {}

// Encode wraps msg in an envelope.
func Encode(msg interface{ Type() string }) (Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	return Envelope{Type: msg.Type(), Payload: payload}, nil
}

// DecodeClient turns an envelope received by the hub into a typed message.
func DecodeClient(env Envelope) (ClientMessage, error) {
	var msg ClientMessage
	switch env.Type {
	case TypeJoinSession:
		msg = &JoinSession{}
	case TypeOffer:
		msg = &Offer{}
	case TypeAnswer:
		msg = &Answer{}
	case TypeICECandidate:
		msg = &ICECandidate{}
	case TypeToggleAudio:
		msg = &Toggle{Kind: Audio}
	case TypeToggleVideo:
		msg = &Toggle{Kind: Video}
	case TypeLeaveSession:
		msg = &LeaveSession{}
	case TypeWhiteboardAction:
		msg = &WhiteboardAction{}
	case TypeWhiteboardRequestSync:
		msg = &WhiteboardRequestSync{}
	case TypeChatMessage:
		msg = &ChatMessage{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := decodePayload(env, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeHub turns an envelope received by a member into a typed message.
func DecodeHub(env Envelope) (HubMessage, error) {
	var msg HubMessage
	switch env.Type {
	case TypeExistingParticipants:
		msg = &ExistingParticipants{}
	case TypeUserJoined:
		msg = &UserJoined{}
	case TypeOffer:
		msg = &RelayedOffer{}
	case TypeAnswer:
		msg = &RelayedAnswer{}
	case TypeICECandidate:
		msg = &RelayedICECandidate{}
	case TypeUserAudioToggle:
		msg = &UserToggle{Kind: Audio}
	case TypeUserVideoToggle:
		msg = &UserToggle{Kind: Video}
	case TypeUserLeft:
		msg = &UserLeft{}
	case TypeWhiteboardAction:
		msg = &WhiteboardUpdate{}
	case TypeWhiteboardSync:
		msg = &WhiteboardSync{}
	case TypeChatMessage:
		msg = &ChatBroadcast{}
	case TypeError:
		msg = &ErrorMessage{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := decodePayload(env, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func decodePayload(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return nil
}
