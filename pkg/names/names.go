// Package names holds the tile names of a sheet and their edit history.
//
// A [Store] keeps two independent namespaces, one per [Side], keyed by
// [grid.Index]. Every change goes through [Store.Set], which records an
// [Edit] on the undo stack and clears the redo stack: a linear history
// with no branches. Setting a value equal to the current one records
// nothing.
//
//	s := names.NewStore()
//	s.Set(grid.Index{Row: 0, Col: 0}, names.Front, names.Entry{Text: "Roland Banks"})
//	s.Undo() // back to empty
//	s.Redo() // "Roland Banks" again
//
// The store keeps raw inputs only. Turning an entry into a file name (card
// name over text over position, suffixes, collisions) is the export
// pipeline's job.
//
// A Store is not safe for concurrent use; mutate it from one goroutine.
package names

import (
	"fmt"
	"slices"
	"strings"
	"time"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
)

// Side selects the front or the back sheet.
type Side int

const (
	Front Side = iota
	Back
)

// Sides lists both sides in export order.
var Sides = []Side{Front, Back}

func (s Side) String() string {
	if s == Back {
		return "back"
	}
	return "front"
}

// ParseSide accepts "front"/"back" and the suffix letters "a"/"b", in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front", "a":
		return Front, nil
	case "back", "b":
		return Back, nil
	}
	return Front, sserrors.New(sserrors.ErrCodeInvalidInput, "unknown side %q", s)
}

// MarshalText encodes the side as "front" or "back".
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a side written by MarshalText.
func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Entry is the name of one tile on one side. The zero value means unnamed.
type Entry struct {
	Text     string         `json:"text,omitempty"`
	CardCode string         `json:"card_code,omitempty"`
	Card     *arkhamdb.Card `json:"card,omitempty"`
}

// FromCard builds an entry for a selected card.
func FromCard(card arkhamdb.Card) Entry {
	return Entry{Text: card.Name, CardCode: card.Code, Card: &card}
}

// IsZero reports whether the entry names nothing.
func (e Entry) IsZero() bool {
	return e.Text == "" && e.CardCode == "" && e.Card == nil
}

// Equal compares entries by value, including the attached card.
func (e Entry) Equal(o Entry) bool {
	if e.Text != o.Text || e.CardCode != o.CardCode {
		return false
	}
	if e.Card == nil || o.Card == nil {
		return e.Card == o.Card
	}
	return *e.Card == *o.Card
}

// Edit is one atomic change of one tile on one side.
type Edit struct {
	Index grid.Index `json:"index"`
	Side  Side       `json:"side"`
	Old   Entry      `json:"old"`
	New   Entry      `json:"new"`
	Label string     `json:"label"`
	At    time.Time  `json:"at"`
}

// Named pairs a tile index with its entry.
type Named struct {
	Index grid.Index `json:"index"`
	Entry Entry      `json:"entry"`
}

// Store owns the tile names of both sides and their undo/redo history.
type Store struct {
	names [2]map[grid.Index]Entry
	undo  []Edit
	redo  []Edit
	limit int
	now   func() time.Time
}

// Option configures a [Store].
type Option func(*Store)

// WithHistoryLimit keeps at most n edits on the undo stack, dropping the
// oldest. Zero or less keeps everything.
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.limit = n }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	s.names[Front] = make(map[grid.Index]Entry)
	s.names[Back] = make(map[grid.Index]Entry)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set names the tile at idx on side. An empty entry removes the name.
// It reports whether anything changed; an unchanged value records no edit.
func (s *Store) Set(idx grid.Index, side Side, e Entry) bool {
	old := s.names[side][idx]
	if old.Equal(e) {
		return false
	}
	s.apply(idx, side, e)
	s.push(Edit{
		Index: idx,
		Side:  side,
		Old:   old,
		New:   e,
		Label: label(idx, side, e),
		At:    s.now(),
	})
	s.redo = s.redo[:0]
	return true
}

// Undo reverts the most recent edit. It returns false when there is nothing to undo.
func (s *Store) Undo() bool {
	if len(s.undo) == 0 {
		return false
	}
	ed := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.apply(ed.Index, ed.Side, ed.Old)
	s.redo = append(s.redo, ed)
	return true
}

// Redo reapplies the most recently undone edit. It returns false when there
// is nothing to redo.
func (s *Store) Redo() bool {
	if len(s.redo) == 0 {
		return false
	}
	ed := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.apply(ed.Index, ed.Side, ed.New)
	s.undo = append(s.undo, ed)
	return true
}

// CanUndo reports whether Undo would change anything.
func (s *Store) CanUndo() bool { return len(s.undo) > 0 }

// CanRedo reports whether Redo would change anything.
func (s *Store) CanRedo() bool { return len(s.redo) > 0 }

// UndoLabel describes the edit Undo would revert, or "".
func (s *Store) UndoLabel() string {
	if len(s.undo) == 0 {
		return ""
	}
	return s.undo[len(s.undo)-1].Label
}

// RedoLabel describes the edit Redo would reapply, or "".
func (s *Store) RedoLabel() string {
	if len(s.redo) == 0 {
		return ""
	}
	return s.redo[len(s.redo)-1].Label
}

// History returns a copy of the undo stack, oldest first.
func (s *Store) History() []Edit { return slices.Clone(s.undo) }

// Get returns the name of the tile at idx on side.
func (s *Store) Get(idx grid.Index, side Side) (Entry, bool) {
	e, ok := s.names[side][idx]
	return e, ok
}

// Entries returns the named tiles of side in row-major order.
func (s *Store) Entries(side Side) []Named {
	out := make([]Named, 0, len(s.names[side]))
	for idx, e := range s.names[side] {
		out = append(out, Named{Index: idx, Entry: e})
	}
	slices.SortFunc(out, func(a, b Named) int {
		switch {
		case a.Index.Less(b.Index):
			return -1
		case b.Index.Less(a.Index):
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of named tiles on side.
func (s *Store) Len(side Side) int { return len(s.names[side]) }

// Clear removes every name on both sides, one recorded edit per name, so
// that Clear is undoable. It returns the number of names removed.
func (s *Store) Clear() int {
	n := 0
	for _, side := range Sides {
		for _, named := range s.Entries(side) {
			if s.Set(named.Index, side, Entry{}) {
				n++
			}
		}
	}
	return n
}

// Reset drops all names and all history without recording anything.
func (s *Store) Reset() {
	clear(s.names[Front])
	clear(s.names[Back])
	s.undo = nil
	s.redo = nil
}

func (s *Store) apply(idx grid.Index, side Side, e Entry) {
	if e.IsZero() {
		delete(s.names[side], idx)
		return
	}
	s.names[side][idx] = e
}

func (s *Store) push(ed Edit) {
	s.undo = append(s.undo, ed)
	if s.limit > 0 && len(s.undo) > s.limit {
		s.undo = slices.Delete(s.undo, 0, len(s.undo)-s.limit)
	}
}

func label(idx grid.Index, side Side, e Entry) string {
	if e.IsZero() {
		return fmt.Sprintf("Clear %s %s", side, idx)
	}
	text := e.Text
	if e.Card != nil {
		text = e.Card.Name
	}
	return fmt.Sprintf("Name %s %s %q", side, idx, text)
}

// State is a serializable copy of a store, history included.
type State struct {
	Front []Named `json:"front,omitempty"`
	Back  []Named `json:"back,omitempty"`
	Undo  []Edit  `json:"undo,omitempty"`
	Redo  []Edit  `json:"redo,omitempty"`
}

// State snapshots the names of both sides and both history stacks.
func (s *Store) State() State {
	return State{
		Front: s.Entries(Front),
		Back:  s.Entries(Back),
		Undo:  slices.Clone(s.undo),
		Redo:  slices.Clone(s.redo),
	}
}

// Restore replaces the contents of s with st without recording an edit.
// Entries with a negative index are ignored; the history limit of s is
// applied to the restored undo stack.
func (s *Store) Restore(st State) {
	s.Reset()
	for side, named := range [2][]Named{st.Front, st.Back} {
		for _, n := range named {
			if n.Index.Row < 0 || n.Index.Col < 0 {
				continue
			}
			s.apply(n.Index, Side(side), n.Entry)
		}
	}
	for _, ed := range st.Undo {
		s.push(ed)
	}
	s.redo = slices.Clone(st.Redo)
}
