package dash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/framedeck-labs/framedeck/internal/frame"
	"github.com/framedeck-labs/framedeck/internal/store"
)

// stateTimeout bounds the store round-trips the manager triggers outside
// any HTTP request.
const stateTimeout = 3 * time.Second

// userState adapts the store's per-user frame-state blob to the
// manager's persistence interface. One user's tabs share the blob, so
// opening a group in one tab survives into the next page load anywhere.
type userState struct {
	store  store.Store
	userID string
}

func (s *userState) Load() (frame.State, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()

	raw, err := s.store.GetFrameState(ctx, s.userID)
	if errors.Is(err, store.ErrNotFound) {
		return frame.State{}, nil
	}
	if err != nil {
		return frame.State{}, err
	}

	var st frame.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return frame.State{}, fmt.Errorf("corrupt frame state for user %s: %w", s.userID, err)
	}
	return st, nil
}

func (s *userState) Save(st frame.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode frame state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()
	return s.store.SaveFrameState(ctx, s.userID, string(raw))
}
