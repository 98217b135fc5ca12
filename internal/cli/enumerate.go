// internal/cli/enumerate.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/pkg/models"
)

// enumerateFlags are shared by enumerate and scrape
type enumerateFlags struct {
	limit      int
	maxPages   int
	pageSize   int
	start      int
	maxRounds  int
	noHeadless bool
}

func (f *enumerateFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Stop after this many listings (0 = all)")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "Maximum result pages to walk (0 = marketplace default)")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "Results per page (0 = marketplace default)")
	cmd.Flags().IntVar(&f.start, "start", 0, "First page number, or first offset for offset-paged APIs")
	cmd.Flags().IntVar(&f.maxRounds, "max-rounds", 0, "Maximum scroll rounds for infinite-scroll listings")
	cmd.Flags().BoolVar(&f.noHeadless, "no-headless", false, "Show the browser window")
}

func (f *enumerateFlags) options() models.EnumerateOptions {
	return models.EnumerateOptions{
		Limit:       f.limit,
		MaxPages:    f.maxPages,
		PageSize:    f.pageSize,
		StartPage:   f.start,
		StartOffset: f.start,
		MaxRounds:   f.maxRounds,
	}
}

var enumerateOpts enumerateFlags

var enumerateCmd = &cobra.Command{
	Use:   "enumerate <marketplace>",
	Short: "List the listing references of a marketplace",
	Long: `Discovers listing references without parsing them. Pagination, infinite
scroll or offset paging is chosen by the marketplace.`,
	Example: `  # First 20 findcar listings
  autoscraper enumerate findcar --limit 20

  # Watch autopunkt load its results
  autoscraper enumerate autopunkt --no-headless --max-rounds 5

  # Machine readable output
  autoscraper enumerate vehis --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnumerate,
}

func init() {
	rootCmd.AddCommand(enumerateCmd)
	enumerateOpts.register(enumerateCmd)
}

func runEnumerate(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	adapter, err := a.Adapter(args[0])
	if err != nil {
		return err
	}

	opts := enumerateOpts.options()
	refs, err := adapter.Enumerate(cmd.Context(), opts)
	if err != nil {
		if len(refs) == 0 {
			return err
		}
		log.Warn().Err(err).Int("refs", len(refs)).Msg("Enumeration stopped early, keeping partial result")
	}
	refs = engine.Truncate(refs, opts.Limit)

	if a.Config.JSONLog {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(refs)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Listing ID", "URL"})
	for i, ref := range refs {
		t.AppendRow(table.Row{i + 1, ref.ListingID, ref.URL})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d listings", len(refs)), adapter.Source()})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
