package mesh

import (
	"context"
	"sync/atomic"

	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
)

// Track is one local media track. While disabled it drops samples instead of
// sending them; the track stays negotiated.
type Track struct {
	kind    signaling.MediaKind
	local   *pion.TrackLocalStaticSample
	enabled atomic.Bool
}

func (t *Track) Kind() signaling.MediaKind { return t.kind }
func (t *Track) Enabled() bool             { return t.enabled.Load() }
func (t *Track) SetEnabled(v bool)         { t.enabled.Store(v) }

func (t *Track) WriteSample(s media.Sample) error {
	if !t.enabled.Load() {
		return nil
	}
	return t.local.WriteSample(s)
}

// LocalMedia is what a member publishes to every link.
type LocalMedia struct {
	Audio *Track
	Video *Track
}

func (m *LocalMedia) track(kind signaling.MediaKind) *Track {
	if m == nil {
		return nil
	}
	if kind == signaling.Video {
		return m.Video
	}
	return m.Audio
}

// Tracks returns the pion tracks to add to each new link.
func (m *LocalMedia) Tracks() []pion.TrackLocal {
	if m == nil {
		return nil
	}
	var out []pion.TrackLocal
	for _, t := range []*Track{m.Audio, m.Video} {
		if t != nil {
			out = append(out, t.local)
		}
	}
	return out
}

func (m *LocalMedia) Enabled(kind signaling.MediaKind) bool {
	t := m.track(kind)
	return t != nil && t.Enabled()
}

// MediaSource acquires local media once per session.
type MediaSource interface {
	Acquire(ctx context.Context) (*LocalMedia, error)
}

// SampleSource creates opus and VP8 sample tracks fed by the caller.
type SampleSource struct {
	StreamID string
	Audio    bool
	Video    bool
	// Muted tracks start disabled.
	AudioMuted bool
	VideoMuted bool
}

func (s SampleSource) Acquire(context.Context) (*LocalMedia, error) {
	if !s.Audio && !s.Video {
		return nil, ErrMediaAcquisitionDenied
	}
	streamID := s.StreamID
	if streamID == "" {
		streamID = "studyroom"
	}

	m := &LocalMedia{}
	if s.Audio {
		t, err := newTrack(signaling.Audio, pion.MimeTypeOpus, streamID, !s.AudioMuted)
		if err != nil {
			return nil, err
		}
		m.Audio = t
	}
	if s.Video {
		t, err := newTrack(signaling.Video, pion.MimeTypeVP8, streamID, !s.VideoMuted)
		if err != nil {
			return nil, err
		}
		m.Video = t
	}
	return m, nil
}

func newTrack(kind signaling.MediaKind, mime, streamID string, enabled bool) (*Track, error) {
	local, err := pion.NewTrackLocalStaticSample(pion.RTPCodecCapability{MimeType: mime}, string(kind), streamID)
	if err != nil {
		return nil, NewError("create "+string(kind)+" track", err)
	}
	t := &Track{kind: kind, local: local}
	t.enabled.Store(enabled)
	return t, nil
}

// NoMedia always denies, for receive-only members.
type NoMedia struct{}

func (NoMedia) Acquire(context.Context) (*LocalMedia, error) {
	return nil, ErrMediaAcquisitionDenied
}
