package signaling

import (
	"context"
	"log/slog"
	"time"
)

// ChatArchive persists stamped chat messages outside the hub.
type ChatArchive interface {
	Archive(ctx context.Context, msg ChatBroadcast) error
}

// DiscardArchive drops every message.
type DiscardArchive struct{}

func (DiscardArchive) Archive(context.Context, ChatBroadcast) error { return nil }

const archiveTimeout = 3 * time.Second

// archiver drains chat messages to a ChatArchive off the hub goroutine.
type archiver struct {
	sink  ChatArchive
	queue chan ChatBroadcast
}

func newArchiver(sink ChatArchive, size int) *archiver {
	return &archiver{sink: sink, queue: make(chan ChatBroadcast, size)}
}

// enqueue never blocks; a full queue drops the message.
func (a *archiver) enqueue(msg ChatBroadcast) {
	select {
	case a.queue <- msg:
	default:
		slog.Warn("chat archive queue full, dropping message", "session", msg.SessionID, "id", msg.ID)
	}
}

func (a *archiver) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.queue:
			actx, cancel := context.WithTimeout(ctx, archiveTimeout)
			if err := a.sink.Archive(actx, msg); err != nil {
				slog.Error("archive chat message", "session", msg.SessionID, "id", msg.ID, "error", err)
			}
			cancel()
		}
	}
}
