package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
	"github.com/matzehuels/sheetslicer/pkg/names"
	"github.com/matzehuels/sheetslicer/pkg/session"
	"github.com/matzehuels/sheetslicer/pkg/sheet"
)

// sessionCommand creates the session management command.
func (c *CLI) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open sheets and manage sessions",
	}

	cmd.AddCommand(c.sessionOpenCommand())
	cmd.AddCommand(c.sessionShowCommand())
	cmd.AddCommand(c.sessionListCommand())
	cmd.AddCommand(c.sessionDeleteCommand())

	return cmd
}

func (c *CLI) sessionOpenCommand() *cobra.Command {
	var (
		singleBack    bool
		columns, rows int
	)

	cmd := &cobra.Command{
		Use:   "open FRONT [BACK]",
		Short: "Attach front and back sheet images to the session",
		Long: `Attach sheet images to the session. Names are kept, so a rescanned sheet
can replace the old one without renaming every tile.

With --single-back the BACK image is one card back shared by every tile.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("columns") {
				sess.Grid.Columns = columns
			}
			if cmd.Flags().Changed("rows") {
				sess.Grid.Rows = rows
			}
			if err := sess.Grid.Validate(); err != nil {
				return err
			}
			if singleBack && len(args) < 2 {
				return sserrors.New(sserrors.ErrCodeInvalidInput, "--single-back needs a BACK image")
			}

			front, err := openSheet(args[0])
			if err != nil {
				return err
			}
			if _, err := front.Layout(sess.Grid); err != nil {
				return err
			}
			sess.Front = front.Path
			sess.Back = ""
			sess.SingleBack = singleBack
			if len(args) == 2 {
				back, err := openSheet(args[1])
				if err != nil {
					return err
				}
				if !singleBack {
					if _, err := back.Layout(sess.Grid); err != nil {
						return err
					}
				}
				sess.Back = back.Path
			}

			if err := store.Set(cmd.Context(), sess); err != nil {
				return err
			}
			printSuccess("Session %s", StyleHighlight.Render(sess.ID))
			printSession(sess)
			return nil
		},
	}

	cmd.Flags().BoolVar(&singleBack, "single-back", false, "use BACK as the back of every tile")
	cmd.Flags().IntVar(&columns, "columns", 0, "grid columns (default from the session or settings)")
	cmd.Flags().IntVar(&rows, "rows", 0, "grid rows (default from the session or settings)")

	return cmd
}

func (c *CLI) sessionShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			printSession(sess)
			return nil
		},
	}
}

func (c *CLI) sessionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.sessionStore()
			if err != nil {
				return err
			}
			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("No sessions")
				return nil
			}
			t := newTable("Session", "Grid", "Front", "Names", "Updated")
			for _, s := range list {
				t.Row(s.ID, s.Grid.String(), filepath.Base(s.Front),
					fmt.Sprint(len(s.State.Front)+len(s.State.Back)), s.UpdatedAt.Format("Jan 2 15:04"))
			}
			fmt.Println(t.Render())
			return nil
		},
	}
}

func (c *CLI) sessionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [ID]",
		Short: "Delete a session and its names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := c.sessionID
			if len(args) == 1 {
				id = args[0]
			}
			store, err := c.sessionStore()
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			printSuccess("Deleted session %s", id)
			return nil
		},
	}
}

func printSession(s *session.Session) {
	printKeyValue("Session", s.ID)
	printKeyValue("Grid", fmt.Sprintf("%s (%d tiles)", s.Grid, s.Grid.Count()))
	printKeyValue("Front", orNone(s.Front))
	back := orNone(s.Back)
	if s.SingleBack {
		back += " (single)"
	}
	printKeyValue("Back", back)
	printKeyValue("Names", fmt.Sprintf("%d front, %d back", len(s.State.Front), len(s.State.Back)))
	if ns := s.Names(); ns.CanUndo() {
		printKeyValue("Undo", ns.UndoLabel())
	}
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// openSheet loads an image and records its absolute path.
func openSheet(path string) (*sheet.Sheet, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	return sheet.Load(abs)
}

// sessionSheets loads the images of sess and computes their layouts.
// back is nil when the session has no back image.
func sessionSheets(sess *session.Session) (front, back *sideSheet, err error) {
	if sess.Front == "" {
		return nil, nil, sserrors.New(sserrors.ErrCodeInvalidInput,
			"session %q has no sheet; run: %s session open FRONT [BACK]", sess.ID, appName)
	}
	if front, err = loadSide(sess.Front, sess.Grid, names.Front, false); err != nil {
		return nil, nil, err
	}
	if sess.HasBack() {
		if back, err = loadSide(sess.Back, sess.Grid, names.Back, sess.SingleBack); err != nil {
			return nil, nil, err
		}
		if sess.SingleBack {
			back.Layout = front.Layout
		}
	}
	return front, back, nil
}

// sideSheet is a loaded sheet with its tile layout.
type sideSheet struct {
	Sheet  *sheet.Sheet
	Layout grid.Layout
	Side   names.Side
	Single bool
}

func loadSide(path string, spec grid.Spec, side names.Side, single bool) (*sideSheet, error) {
	sh, err := sheet.Load(path)
	if err != nil {
		return nil, err
	}
	s := &sideSheet{Sheet: sh, Side: side, Single: single}
	if single {
		return s, nil
	}
	if s.Layout, err = sh.Layout(spec); err != nil {
		return nil, err
	}
	return s, nil
}
