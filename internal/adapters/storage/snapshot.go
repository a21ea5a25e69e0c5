package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// snapshotVersion is bumped whenever Snapshot changes incompatibly.
const snapshotVersion = 1

// Snapshot is the delivery state that survives a restart: payloads still
// waiting for the collector and events traced before a session existed.
type Snapshot struct {
	Version int      `cbor:"1,keyasint"`
	SavedAt int64    `cbor:"2,keyasint"`
	Pending []string `cbor:"3,keyasint,omitempty"`
	// Unlogged holds one CSV line per event.
	Unlogged []string `cbor:"4,keyasint,omitempty"`
}

// IsEmpty reports whether there is nothing to restore.
func (s Snapshot) IsEmpty() bool { return len(s.Pending) == 0 && len(s.Unlogged) == 0 }

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeSnapshot encodes s with deterministic CBOR.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s.Version = snapshotVersion
	if s.SavedAt == 0 {
		s.SavedAt = time.Now().UTC().UnixMilli()
	}
	return encMode.Marshal(s)
}

// DecodeSnapshot decodes data produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("decode snapshot: unsupported version %d", s.Version)
	}
	return s, nil
}

// SaveSnapshot writes s under id.
func SaveSnapshot(ctx context.Context, st Storage, id string, s Snapshot) error {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	return st.Save(ctx, id, data)
}

// LoadSnapshot reads the snapshot under id. A missing snapshot is empty.
func LoadSnapshot(ctx context.Context, st Storage, id string) (Snapshot, error) {
	data, err := st.Load(ctx, id)
	if errors.Is(err, ErrNotFound) || (err == nil && len(data) == 0) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(data)
}
