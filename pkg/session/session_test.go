package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/names"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	sess := New(DefaultID)
	sess.Front = "/sheets/core-front.jpg"
	sess.Grid = grid.Spec{Columns: 10, Rows: 7}
	ns := sess.Names()
	ns.Set(grid.Index{Row: 0, Col: 0}, names.Front, names.Entry{Text: "Roland Banks"})
	ns.Set(grid.Index{Row: 0, Col: 0}, names.Front, names.Entry{Text: "Daisy Walker"})
	ns.Undo()
	sess.SetNames(ns)

	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, err := store.Get(ctx, DefaultID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil, want session")
	}
	if got.Front != sess.Front || got.Grid != sess.Grid {
		t.Errorf("Get() = %+v", got)
	}

	restored := got.Names()
	if e, _ := restored.Get(grid.Index{}, names.Front); e.Text != "Roland Banks" {
		t.Errorf("restored name = %q, want Roland Banks", e.Text)
	}
	if !restored.Redo() {
		t.Error("restored session lost its redo stack")
	}
}

func TestFileStore_Missing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(context.Background(), "nothing")
	if err != nil || got != nil {
		t.Errorf("Get() = %v, %v; want nil, nil", got, err)
	}
	if err := store.Delete(context.Background(), "nothing"); err != nil {
		t.Errorf("Delete() of a missing session: %v", err)
	}
}

func TestFileStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"core", "dunwich"} {
		if err := store.Set(ctx, New(id)); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), "junk.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() = %d sessions, want 2", len(list))
	}
	if list[0].ID != "dunwich" {
		t.Errorf("List()[0] = %q, want most recent first", list[0].ID)
	}

	if err := store.Delete(ctx, "core"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, "core"); got != nil {
		t.Error("session still present after Delete()")
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"default", false},
		{"the-dunwich-legacy", false},
		{"", true},
		{"../escape", true},
		{"a/b", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && sserrors.GetCode(err) == "" {
				t.Errorf("ValidateID(%q) returned an uncoded error", tt.id)
			}
		})
	}
}
