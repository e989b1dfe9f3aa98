package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store persists vendor sessions to a local state dir, mirrored to an
// optional blob store so restarts on fresh hosts can reuse a live token.
type Store struct {
	dir  string
	blob BlobStore
}

func NewStore(dir string, blob BlobStore) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("state dir is required")
	}
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("state dir must be absolute")
	}
	return &Store{dir: dir, blob: blob}, nil
}

func (s *Store) statePath(provider string) string {
	return filepath.Join(s.dir, provider+".json")
}

// Load returns the cached session for a provider. The local file wins;
// the blob copy is a fallback that gets mirrored back down.
func (s *Store) Load(ctx context.Context, provider string) (State, error) {
	local, localErr := LoadState(s.statePath(provider))
	if localErr == nil {
		return local, nil
	}
	if !errors.Is(localErr, ErrStateNotFound) {
		return State{}, localErr
	}

	if s.blob == nil {
		return State{}, ErrStateNotFound
	}

	data, blobErr := s.blob.Load(ctx, provider)
	if blobErr != nil {
		if errors.Is(blobErr, ErrBlobNotFound) {
			return State{}, ErrStateNotFound
		}
		return State{}, blobErr
	}

	state, err := DecodeState(data)
	if err != nil {
		return State{}, err
	}
	if err := WriteState(s.statePath(provider), state); err != nil {
		return State{}, err
	}
	return state, nil
}

// Save writes the session locally and mirrors it to the blob store.
// Blob failures degrade to local-only and are reported via metrics.
func (s *Store) Save(ctx context.Context, provider string, state State) error {
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now().UTC()
	}
	if err := WriteState(s.statePath(provider), state); err != nil {
		persistFailure.WithLabelValues(provider).Inc()
		return err
	}
	persistSuccess.WithLabelValues(provider).Inc()

	if s.blob == nil {
		return nil
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := s.blob.Save(ctx, provider, data); err != nil {
		remotePersistOK.WithLabelValues(provider).Set(0)
		return nil
	}
	remotePersistOK.WithLabelValues(provider).Set(1)
	return nil
}

// Clear drops the local cached session after the server rejects it.
func (s *Store) Clear(provider string) error {
	err := os.Remove(s.statePath(provider))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
