package cli

import (
	"errors"

	"github.com/spf13/cobra"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/names"
	"github.com/matzehuels/sheetslicer/pkg/session"
)

// templateCommand creates the template command.
func (c *CLI) templateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Save and load grid-plus-names templates",
		Long: `A template is the grid size and every tile name of a session, stored as
JSON. Loading a template onto a sheet of the same product names every tile
at once.`,
	}

	cmd.AddCommand(c.templateSaveCommand())
	cmd.AddCommand(c.templateLoadCommand())

	return cmd
}

func (c *CLI) templateSaveCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save FILE",
		Short: "Save the session's grid and names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			t := sess.Names().SaveTemplate(sess.Grid)
			t.Name = name
			if err := names.ExportTemplate(t, args[0]); err != nil {
				return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "save template")
			}
			printSuccess("Saved %d names on a %s grid", len(t.Entries), t.Grid)
			printFile(args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "template title")

	return cmd
}

func (c *CLI) templateLoadCommand() *cobra.Command {
	var keepGrid bool

	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Replace the session's names with a template",
		Long: `Replace the session's names with those of a template. The session takes
the template's grid unless --keep-grid is given. A template with more tiles
than the grid is applied in part and the names that do not fit are dropped.
The load is undoable with "names undo".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := names.ImportTemplate(args[0])
			if err != nil {
				return err
			}
			return c.editNames(cmd.Context(), func(sess *session.Session, ns *names.Store) error {
				if !keepGrid {
					sess.Grid = t.Grid
				}
				report, err := ns.LoadTemplate(t, sess.Grid)
				var mismatch *sserrors.TemplateMismatchWarning
				switch {
				case errors.As(err, &mismatch):
					printWarning("template has %d tiles, grid has %d: %d names dropped",
						mismatch.TemplateTiles, mismatch.GridTiles, mismatch.Dropped)
				case err != nil:
					return err
				}
				printSuccess("Loaded %d names, removed %d (grid %s)", report.Applied, report.Removed, sess.Grid)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keepGrid, "keep-grid", false, "keep the session's grid instead of the template's")

	return cmd
}
