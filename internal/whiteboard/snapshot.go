package whiteboard

import (
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotFile is the on-disk form of a saved board.
type SnapshotFile struct {
	SessionID string    `msgpack:"sessionId"`
	SavedAt   time.Time `msgpack:"savedAt"`
	Objects   []Object  `msgpack:"objects"`
}

func EncodeSnapshot(w io.Writer, snap SnapshotFile) error {
	if err := msgpack.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func DecodeSnapshot(r io.Reader) (SnapshotFile, error) {
	var snap SnapshotFile
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return SnapshotFile{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
