package signaling

import (
	"time"

	"github.com/sathwikbalu/Zenith-Study/internal/whiteboard"
)

// Member is a client's presence inside a room.
type Member struct {
	SocketID     string
	UserID       string
	UserName     string
	IsTutor      bool
	AudioEnabled bool
	VideoEnabled bool
	JoinedAt     time.Time
}

func (m *Member) participant() Participant {
	return Participant{
		SocketID:     m.SocketID,
		UserID:       m.UserID,
		UserName:     m.UserName,
		IsTutor:      m.IsTutor,
		AudioEnabled: m.AudioEnabled,
		VideoEnabled: m.VideoEnabled,
	}
}

// Room is one study session: its members in join order and its whiteboard.
// Only the hub goroutine touches a Room.
type Room struct {
	ID        string
	CreatedAt time.Time
	Board     *whiteboard.Board

	members []*Client
}

func newRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		Board:     whiteboard.NewBoard(),
	}
}

func (r *Room) add(c *Client) {
	r.members = append(r.members, c)
}

func (r *Room) remove(c *Client) bool {
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) size() int { return len(r.members) }

// others returns every member except c, in join order.
func (r *Room) others(c *Client) []*Client {
	out := make([]*Client, 0, len(r.members))
	for _, m := range r.members {
		if m != c {
			out = append(out, m)
		}
	}
	return out
}

func (r *Room) participants(except *Client) ExistingParticipants {
	out := make(ExistingParticipants, 0, len(r.members))
	for _, m := range r.others(except) {
		out = append(out, m.member.participant())
	}
	return out
}
