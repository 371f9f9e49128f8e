// Package session keeps server-side login state.  A session stores only
// identity frames (user id + role); the account itself is re-read on every
// request.  Impersonation pushes a second frame and stopping pops it.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/placement-portal/internal/model"
)

var (
	ErrNotFound            = errors.New("session not found")
	ErrImpersonationActive = errors.New("already impersonating a user; stop first")
	ErrNotImpersonating    = errors.New("not impersonating anyone")
)

// Session is the persisted state behind the session cookie.  Frames[0]
// is the signed-in account; a second frame is the impersonated one.
type Session struct {
	ID     string           `json:"-"`
	Frames []model.Identity `json:"frames"`
}

// New starts a session for id with a random identifier.
func New(id model.Identity) *Session {
	return &Session{ID: uuid.NewString(), Frames: []model.Identity{id}}
}

// Current returns the identity requests act as.
func (s *Session) Current() (model.Identity, bool) {
	if s == nil || len(s.Frames) == 0 {
		return model.Identity{}, false
	}
	return s.Frames[len(s.Frames)-1], true
}

// Original returns the identity that signed in.
func (s *Session) Original() (model.Identity, bool) {
	if s == nil || len(s.Frames) == 0 {
		return model.Identity{}, false
	}
	return s.Frames[0], true
}

// Impersonating reports whether an impersonation frame is active.
func (s *Session) Impersonating() bool { return s != nil && len(s.Frames) > 1 }

// Push starts impersonating id.  Nesting is refused.
func (s *Session) Push(id model.Identity) error {
	if s.Impersonating() {
		return ErrImpersonationActive
	}
	s.Frames = append(s.Frames, id)
	return nil
}

// Pop ends impersonation and returns the restored identity.
func (s *Session) Pop() (model.Identity, error) {
	if !s.Impersonating() {
		return model.Identity{}, ErrNotImpersonating
	}
	s.Frames = s.Frames[:len(s.Frames)-1]
	cur, _ := s.Current()
	return cur, nil
}

// Store persists sessions by id.  Save refreshes the expiry.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
