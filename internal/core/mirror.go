package core

import (
	"bytes"
	"context"
	"fmt"

	"wellscope/internal/blob"
)

const mirrorKey = "snapshots/state.json"

// blobMirror copies each successful snapshot into a blob store. The blob
// Put contract is create-only, so the previous copy is deleted first.
type blobMirror struct {
	store blob.Store
}

// NewBlobMirror wraps a blob store as a snapshot mirror.
func NewBlobMirror(store blob.Store) *blobMirror { return &blobMirror{store: store} }

func (m *blobMirror) MirrorSnapshot(ctx context.Context, payload []byte) error {
	if _, err := m.store.Delete(ctx, mirrorKey); err != nil {
		return fmt.Errorf("drop previous mirror copy: %w", err)
	}
	if _, err := m.store.Put(ctx, mirrorKey, bytes.NewReader(payload), blob.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("store mirror copy: %w", err)
	}
	return nil
}
