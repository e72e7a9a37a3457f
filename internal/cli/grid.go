package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/grid"
)

type cutLines struct {
	X []int `json:"x"`
	Y []int `json:"y"`
}

type layoutJSON struct {
	grid.Layout
	Lines cutLines `json:"lines"`
}

// gridCommand creates the grid command.
func (c *CLI) gridCommand() *cobra.Command {
	var (
		columns, rows int
		preview       string
		width         int
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "grid [IMAGE]",
		Short: "Show the tile layout of a sheet",
		Long: `Show the tile layout of IMAGE, or of the session's front sheet.

Tiles are floor(width/columns) by floor(height/rows) pixels; the last column
and the last row absorb the remainder. --preview writes a copy of the sheet
with the cut lines drawn in.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			spec := sess.Grid
			if cmd.Flags().Changed("columns") {
				spec.Columns = columns
			}
			if cmd.Flags().Changed("rows") {
				spec.Rows = rows
			}

			path := sess.Front
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return sserrors.New(sserrors.ErrCodeInvalidInput, "no IMAGE given and the session has no sheet")
			}
			sh, err := openSheet(path)
			if err != nil {
				return err
			}
			layout, err := sh.Layout(spec)
			if err != nil {
				return err
			}
			xs, ys, err := grid.Lines(sh.Width, sh.Height, spec)
			if err != nil {
				return err
			}

			if preview != "" {
				img, err := sh.Preview(spec, width)
				if err != nil {
					return err
				}
				if err := imaging.Save(img, preview); err != nil {
					return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "write preview")
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(layoutJSON{Layout: layout, Lines: cutLines{X: xs, Y: ys}})
			}

			printKeyValue("Image", fmt.Sprintf("%s (%s, %dx%d)", sh.Path, sh.Format, sh.Width, sh.Height))
			printKeyValue("Grid", fmt.Sprintf("%s (%d tiles)", spec, layout.Count()))
			first, _ := layout.At(grid.Index{})
			last, _ := layout.At(grid.Index{Row: spec.Rows - 1, Col: spec.Columns - 1})
			printKeyValue("Tile", fmt.Sprintf("%dx%d", first.Rect.W, first.Rect.H))
			if last.Rect.W != first.Rect.W || last.Rect.H != first.Rect.H {
				printKeyValue("Last tile", fmt.Sprintf("%dx%d", last.Rect.W, last.Rect.H))
			}
			printKeyValue("Cuts x", joinInts(xs))
			printKeyValue("Cuts y", joinInts(ys))
			if preview != "" {
				printFile(preview)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&columns, "columns", 0, "override the session's columns")
	cmd.Flags().IntVar(&rows, "rows", 0, "override the session's rows")
	cmd.Flags().StringVar(&preview, "preview", "", "write a preview image with cut lines")
	cmd.Flags().IntVar(&width, "width", 1200, "maximum preview width (0 keeps the sheet size)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the layout as JSON")

	cmd.AddCommand(c.gridSetCommand())

	return cmd
}

// gridSetCommand creates the "grid set" subcommand.
func (c *CLI) gridSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set COLUMNS ROWS",
		Short: "Change the session's grid",
		Long: `Change the session's grid. Names stay on their row and column; names
outside the new grid are kept but not exported until the grid grows again.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := parseSpec(args[0], args[1])
			if err != nil {
				return err
			}
			store, sess, err := c.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			sess.Grid = spec
			if err := store.Set(cmd.Context(), sess); err != nil {
				return err
			}
			printSuccess("Grid %s (%d tiles)", spec, spec.Count())
			return nil
		},
	}
}

func parseSpec(columns, rows string) (grid.Spec, error) {
	c, err := strconv.Atoi(columns)
	if err != nil {
		return grid.Spec{}, sserrors.InvalidGrid("columns %q is not a number", columns)
	}
	r, err := strconv.Atoi(rows)
	if err != nil {
		return grid.Spec{}, sserrors.InvalidGrid("rows %q is not a number", rows)
	}
	spec := grid.Spec{Columns: c, Rows: r}
	return spec, spec.Validate()
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return "-"
	}
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, " ")
}
