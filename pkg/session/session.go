// Package session persists a slicing session between command invocations.
//
// A [Session] is the working state of one pair of sheets: the image paths,
// the grid, and every tile name together with its undo and redo history.
// The command line loads the session, applies one operation and saves it
// again, so that "names undo" in one process reverts an edit made by an
// earlier one.
//
// # Usage
//
//	store, err := session.NewFileStore("") // ~/.config/sheetslicer/sessions/
//	sess, err := store.Get(ctx, "default")
//	if sess == nil {
//	    sess = session.New("default")
//	}
//	ns := sess.Names()
//	ns.Set(idx, names.Front, names.Entry{Text: "Roland Banks"})
//	sess.SetNames(ns)
//	store.Set(ctx, sess)
package session

import (
	"context"
	"time"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/names"
)

// DefaultID names the session used when none is given.
const DefaultID = "default"

// HistoryLimit bounds the undo stack kept on disk.
const HistoryLimit = 500

// Session stores the working state of one sheet pair.
type Session struct {
	ID         string      `json:"id"`
	Front      string      `json:"front,omitempty"`
	Back       string      `json:"back,omitempty"`
	SingleBack bool        `json:"single_back,omitempty"`
	Grid       grid.Spec   `json:"grid"`
	State      names.State `json:"names"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// New creates an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Names rebuilds the name store of the session.
func (s *Session) Names() *names.Store {
	ns := names.NewStore(names.WithHistoryLimit(HistoryLimit))
	ns.Restore(s.State)
	return ns
}

// SetNames snapshots ns into the session.
func (s *Session) SetNames(ns *names.Store) {
	s.State = ns.State()
}

// HasBack reports whether the session exports a back side.
func (s *Session) HasBack() bool { return s.Back != "" }

// ValidateID checks that id can name a session file.
func ValidateID(id string) error {
	if id == "" {
		return sserrors.New(sserrors.ErrCodeInvalidInput, "session id is required")
	}
	return sserrors.ValidateFilename(id)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session and stamps UpdatedAt.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every stored session, most recently updated first.
	List(ctx context.Context) ([]*Session, error)
}
