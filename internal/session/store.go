package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Store persists sessions across restarts.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	LoadAll(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id string) error
}
