package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/export"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/names"
	"github.com/matzehuels/sheetslicer/pkg/session"
)

// namesCommand creates the tile naming command.
func (c *CLI) namesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Name tiles, undo and redo, import and export CSV",
		Long: `Name the tiles of the session. Tiles are addressed as ROW,COL counted from 1
("3,5") or by their row-major number counted from 1 ("25").

Every change is recorded: "names undo" and "names redo" step through the
history, also across invocations.`,
	}

	cmd.AddCommand(c.namesSetCommand())
	cmd.AddCommand(c.namesClearCommand())
	cmd.AddCommand(c.namesUndoCommand())
	cmd.AddCommand(c.namesRedoCommand())
	cmd.AddCommand(c.namesListCommand())
	cmd.AddCommand(c.namesHistoryCommand())
	cmd.AddCommand(c.namesImportCommand())
	cmd.AddCommand(c.namesExportCommand())

	return cmd
}

// editNames loads the session, applies fn to its names and saves the
// session again when fn succeeds.
func (c *CLI) editNames(ctx context.Context, fn func(*session.Session, *names.Store) error) error {
	store, sess, err := c.loadSession(ctx)
	if err != nil {
		return err
	}
	ns := sess.Names()
	if err := fn(sess, ns); err != nil {
		return err
	}
	sess.SetNames(ns)
	return store.Set(ctx, sess)
}

func (c *CLI) namesSetCommand() *cobra.Command {
	var (
		back    bool
		code    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "set TILE [TEXT...]",
		Short: "Name a tile by hand or by card code",
		Example: `  sheetslicer names set 1,1 Roland Banks
  sheetslicer names set 1,2 --card 01006
  sheetslicer names set 12 --back Guard Dog`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" && code == "" {
				return sserrors.New(sserrors.ErrCodeInvalidInput, "give TEXT or --card; use \"names clear\" to remove a name")
			}

			var entry names.Entry
			if code != "" {
				client, closeFn, err := c.newCardClient(cmd.Context(), noCache)
				if err != nil {
					return err
				}
				defer closeFn()
				card, err := client.Card(cmd.Context(), code)
				if err != nil {
					return err
				}
				entry = names.FromCard(card)
				if text != "" {
					entry.Text = text
				}
			} else {
				entry = names.Entry{Text: text}
			}

			return c.editNames(cmd.Context(), func(sess *session.Session, ns *names.Store) error {
				idx, err := parseTile(args[0], sess.Grid)
				if err != nil {
					return err
				}
				side := sideOf(back)
				if !ns.Set(idx, side, entry) {
					printInfo("%s %s is already %q", side, tileLabel(idx), export.ResolveName(entry, idx))
					return nil
				}
				printSuccess("%s %s %s %s", side, tileLabel(idx), iconArrow, StyleHighlight.Render(export.ResolveName(entry, idx)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&back, "back", false, "name the back side")
	cmd.Flags().StringVar(&code, "card", "", "attach the ArkhamDB card with this code")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")

	return cmd
}

func (c *CLI) namesClearCommand() *cobra.Command {
	var back bool

	cmd := &cobra.Command{
		Use:   "clear [TILE]",
		Short: "Remove one name, or every name on both sides",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editNames(cmd.Context(), func(sess *session.Session, ns *names.Store) error {
				if len(args) == 0 {
					n := ns.Clear()
					printSuccess("Cleared %d names", n)
					return nil
				}
				idx, err := parseTile(args[0], sess.Grid)
				if err != nil {
					return err
				}
				side := sideOf(back)
				if ns.Set(idx, side, names.Entry{}) {
					printSuccess("Cleared %s %s", side, tileLabel(idx))
				} else {
					printInfo("%s %s has no name", side, tileLabel(idx))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&back, "back", false, "clear on the back side")

	return cmd
}

func (c *CLI) namesUndoCommand() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recent name edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editNames(cmd.Context(), func(_ *session.Session, ns *names.Store) error {
				for range max(steps, 1) {
					label := ns.UndoLabel()
					if !ns.Undo() {
						printInfo("Nothing to undo")
						return nil
					}
					printSuccess("Undid %s", label)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of edits to revert")

	return cmd
}

func (c *CLI) namesRedoCommand() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "redo",
		Short: "Reapply undone name edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editNames(cmd.Context(), func(_ *session.Session, ns *names.Store) error {
				for range max(steps, 1) {
					label := ns.RedoLabel()
					if !ns.Redo() {
						printInfo("Nothing to redo")
						return nil
					}
					printSuccess("Redid %s", label)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of edits to reapply")

	return cmd
}

func (c *CLI) namesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the named tiles and their export names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			ns := sess.Names()
			opts, err := c.config().ExportOptions()
			if err != nil {
				return err
			}
			opts.SetDefaults()

			t := newTable("Tile", "Side", "Text", "Card", "File")
			rows := 0
			for _, side := range names.Sides {
				for _, n := range ns.Entries(side) {
					if !sess.Grid.Contains(n.Index) {
						continue
					}
					card := n.Entry.CardCode
					if n.Entry.Card != nil {
						card = n.Entry.Card.Code + " " + n.Entry.Card.DisplayName()
					}
					stem := export.Stem(n.Entry, n.Index, side, opts)
					t.Row(tileLabel(n.Index), side.String(), n.Entry.Text, card, stem+opts.Format.Ext())
					rows++
				}
			}
			if rows == 0 {
				printInfo("No names in session %s", sess.ID)
				return nil
			}
			fmt.Println(t.Render())
			return nil
		},
	}
}

func (c *CLI) namesHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the undo history, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			history := sess.Names().History()
			if len(history) == 0 {
				printInfo("No history")
				return nil
			}
			for _, ed := range history {
				printDetail("%s  %s", ed.At.Format("Jan 2 15:04:05"), ed.Label)
			}
			return nil
		},
	}
}

func (c *CLI) namesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Apply names from a CSV file (tileIndex,side,text,cardCode)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if os.IsNotExist(err) {
				return sserrors.Wrap(sserrors.ErrCodeFileNotFound, err, "open %s", args[0])
			}
			if err != nil {
				return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "open %s", args[0])
			}
			defer f.Close()

			return c.editNames(cmd.Context(), func(sess *session.Session, ns *names.Store) error {
				report, err := ns.ImportCSV(f, sess.Grid)
				if err != nil {
					return err
				}
				printSuccess("Imported %d names (%d unchanged)", report.Applied, report.Unchanged)
				for _, s := range report.Skipped {
					printWarning("line %d skipped: %s", s.Line, s.Reason)
				}
				return nil
			})
		},
	}
}

func (c *CLI) namesExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the names as CSV (stdout when FILE is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			ns := sess.Names()

			var w io.Writer = os.Stdout
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "create %s", args[0])
				}
				defer f.Close()
				w = f
			}
			if err := ns.ExportCSV(w, sess.Grid); err != nil {
				return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "write CSV")
			}
			if len(args) == 1 {
				printSuccess("Wrote %d names", len(ns.Rows(sess.Grid)))
				printFile(args[0])
			}
			return nil
		},
	}
}

// parseTile reads "ROW,COL" or a row-major tile number, both counted from 1.
func parseTile(s string, spec grid.Spec) (grid.Index, error) {
	var idx grid.Index
	if r, col, ok := strings.Cut(s, ","); ok {
		row, err1 := strconv.Atoi(strings.TrimSpace(r))
		c, err2 := strconv.Atoi(strings.TrimSpace(col))
		if err1 != nil || err2 != nil {
			return idx, sserrors.New(sserrors.ErrCodeInvalidInput, "tile %q: want ROW,COL", s)
		}
		idx = grid.Index{Row: row - 1, Col: c - 1}
	} else {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return idx, sserrors.New(sserrors.ErrCodeInvalidInput, "tile %q: want ROW,COL or a tile number", s)
		}
		if n < 1 {
			return idx, sserrors.New(sserrors.ErrCodeInvalidInput, "tile %q is outside the %s grid", s, spec)
		}
		idx = grid.IndexOf(n-1, spec.Columns)
	}
	if !spec.Contains(idx) {
		return idx, sserrors.New(sserrors.ErrCodeInvalidInput, "tile %q is outside the %s grid", s, spec)
	}
	return idx, nil
}

// tileLabel formats idx the way parseTile reads it.
func tileLabel(idx grid.Index) string {
	return fmt.Sprintf("%d,%d", idx.Row+1, idx.Col+1)
}

func sideOf(back bool) names.Side {
	if back {
		return names.Back
	}
	return names.Front
}
