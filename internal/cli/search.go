package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/export"
	"github.com/matzehuels/sheetslicer/pkg/httputil"
	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
	"github.com/matzehuels/sheetslicer/pkg/lookup"
	"github.com/matzehuels/sheetslicer/pkg/names"
	"github.com/matzehuels/sheetslicer/pkg/session"
)

// searchCommand creates the card search command.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		encounter   bool
		limit       int
		retries     int
		asJSON      bool
		interactive bool
		tile        string
		back        bool
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "search [QUERY...]",
		Short: "Search ArkhamDB cards",
		Long: `Search ArkhamDB by name, code, subname, traits or rules text. Results are
ranked exact match first, then prefix, subname, substring, traits and text.

With --interactive the query is typed live; choosing a card with --tile
names that tile of the session.`,
		Example: `  sheetslicer search roland
  sheetslicer search -i --tile 1,3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")
			if !cmd.Flags().Changed("encounter") {
				encounter = c.config().ArkhamDB.IncludeEncounter
			}
			if !interactive && len([]rune(strings.TrimSpace(query))) < arkhamdb.MinQueryLength {
				return sserrors.New(sserrors.ErrCodeInvalidInput, "query must have at least %d characters", arkhamdb.MinQueryLength)
			}
			if tile != "" && !interactive {
				return sserrors.New(sserrors.ErrCodeInvalidInput, "--tile needs --interactive; use \"names set TILE --card CODE\"")
			}

			client, closeFn, err := c.newCardClient(ctx, noCache)
			if err != nil {
				return err
			}
			defer closeFn()

			if interactive {
				card, err := pickCard(ctx, client, query, encounter)
				if err != nil || card == nil {
					return err
				}
				if tile == "" {
					fmt.Println(card.Code)
					return nil
				}
				return c.editNames(ctx, func(sess *session.Session, ns *names.Store) error {
					idx, err := parseTile(tile, sess.Grid)
					if err != nil {
						return err
					}
					entry := names.FromCard(*card)
					side := sideOf(back)
					ns.Set(idx, side, entry)
					printSuccess("%s %s %s %s", side, tileLabel(idx), iconArrow, StyleHighlight.Render(export.ResolveName(entry, idx)))
					return nil
				})
			}

			prog := newProgress(c.Logger)
			var seq iter.Seq[arkhamdb.Card]
			err = httputil.Retry(ctx, retries, time.Second, func() error {
				var err error
				seq, err = client.Search(ctx, query, encounter)
				if err != nil {
					c.Logger.Warn("search failed", "query", query, "err", err)
				}
				return err
			})
			if err != nil {
				return err
			}

			var cards []arkhamdb.Card
			for card := range seq {
				cards = append(cards, card)
				if limit > 0 && len(cards) >= limit {
					break
				}
			}
			c.Logger.Debug("search", "query", query, "cards", len(cards))

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cards)
			}
			if len(cards) == 0 {
				printInfo("No cards match %q", query)
				printNextStep("Name the tile by hand", appName+" names set TILE TEXT")
				return nil
			}
			fmt.Println(cardTable(cards, 0, -1))
			prog.done(fmt.Sprintf("Found %d cards", len(cards)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&encounter, "encounter", "e", true, "include encounter cards (default from settings)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 25, "maximum cards to show (0 for all)")
	cmd.Flags().IntVar(&retries, "retries", 1, "attempts for a failing request")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print cards as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "search as you type")
	cmd.Flags().StringVar(&tile, "tile", "", "name this tile with the chosen card (interactive)")
	cmd.Flags().BoolVar(&back, "back", false, "name the back side")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")

	return cmd
}

// pickCard runs the interactive picker. It returns nil when the user quits
// without choosing.
func pickCard(ctx context.Context, client *arkhamdb.Client, query string, encounter bool) (*arkhamdb.Card, error) {
	co := lookup.New(client, nil)
	defer co.Close()

	p := tea.NewProgram(NewCardPicker(ctx, co, query, encounter), tea.WithContext(ctx))
	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInternal, err, "card picker")
	}
	m, ok := final.(CardPicker)
	if !ok {
		return nil, nil
	}
	return m.Selected, nil
}
