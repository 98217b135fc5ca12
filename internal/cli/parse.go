// internal/cli/parse.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kameel77/auto-scraper/internal/ui"
	"github.com/kameel77/auto-scraper/internal/utils/output"
	"github.com/kameel77/auto-scraper/pkg/models"
)

var parseOutput string

var parseCmd = &cobra.Command{
	Use:   "parse <marketplace> <listing-url>",
	Short: "Parse a single listing into a vehicle offer record",
	Example: `  # Print one record as JSON
  autoscraper parse findcar https://findcar.pl/listings/123456789

  # Save it as CSV
  autoscraper parse autopunkt https://autopunkt.pl/samochod/toyota/corolla/id/4711 -o car.csv`,
	Args: cobra.ExactArgs(2),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "File to save the record to (.json or .csv)")
}

func runParse(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	adapter, err := a.Adapter(args[0])
	if err != nil {
		return err
	}
	ref, err := adapter.RefFromURL(args[1])
	if err != nil {
		return err
	}

	log.Info().Str("marketplace", adapter.Name()).Str("listing_id", ref.ListingID).Msg("Parsing listing")
	offer, err := adapter.Parse(cmd.Context(), ref)
	if err != nil {
		return err
	}

	if parseOutput != "" {
		if err := output.Save([]*models.Offer{offer}, parseOutput); err != nil {
			return fmt.Errorf("failed to write %s: %w", parseOutput, err)
		}
		fmt.Fprintln(os.Stderr, ui.Success("✓ Saved to "+parseOutput))
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(offer)
}
