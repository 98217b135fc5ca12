// internal/cli/scrape.go
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kameel77/auto-scraper/internal/app"
	"github.com/kameel77/auto-scraper/internal/run"
	"github.com/kameel77/auto-scraper/internal/ui"
	"github.com/kameel77/auto-scraper/internal/utils/output"
)

var (
	scrapeOpts         enumerateFlags
	scrapeOutput       string
	scrapeStore        bool
	scrapeKafkaTopic   string
	scrapeImagesDir    string
	scrapeImageWorkers int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <marketplace>",
	Short: "Enumerate and parse every listing of a marketplace",
	Long: `Runs a full scrape: listings are discovered first, then parsed one at a
time with a randomized pause in between. A listing that fails is logged and
skipped; the run always finishes with a summary.

Parsed records go to every selected sink:
- --output writes a JSON or CSV export
- --db / --store append price snapshots to SQLite or PostgreSQL
- --kafka-topic publishes each record to Kafka
- --images-dir archives the listing images`,
	Example: `  # Scrape 50 findcar listings into a CSV file
  autoscraper scrape findcar --limit 50 -o findcar.csv

  # Track prices in PostgreSQL
  autoscraper scrape vehis --db postgres://scraper@localhost/vehicles

  # Publish to Kafka and keep the pictures
  autoscraper scrape autopunkt --kafka-topic vehicle-offers --kafka-brokers localhost:9092 --images-dir ./images`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeOpts.register(scrapeCmd)

	f := scrapeCmd.Flags()
	f.StringVarP(&scrapeOutput, "output", "o", "", "Export records to a .json or .csv file")
	f.String("db", "", "Store snapshots in this database (SQLite path or postgres:// URL)")
	f.BoolVar(&scrapeStore, "store", false, "Store snapshots in the configured database")
	f.StringVar(&scrapeKafkaTopic, "kafka-topic", "", "Publish records to this Kafka topic")
	f.String("kafka-brokers", "", "Comma-separated Kafka brokers")
	f.StringVar(&scrapeImagesDir, "images-dir", "", "Archive listing images under this directory")
	f.IntVar(&scrapeImageWorkers, "image-workers", 0, "Concurrent image downloads (0 = configured default)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	adapter, err := a.Adapter(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sinks, err := a.OpenSinks(ctx, app.SinkOptions{
		Database:     scrapeStore || cmd.Flags().Changed("db"),
		KafkaTopic:   scrapeKafkaTopic,
		ImagesDir:    scrapeImagesDir,
		ImageWorkers: scrapeImageWorkers,
	})
	if err != nil {
		return err
	}

	opts := a.RunOptions(scrapeOpts.options(), sinks)
	opts.KeepRecords = scrapeOutput != ""

	progress := make(chan run.Progress, 64)
	opts.Progress = progress
	done := make(chan struct{})
	go func() {
		defer close(done)
		renderProgress(progress, !a.Config.JSONLog && a.Config.LogLevel != "error")
	}()

	sum, runErr := run.NewRunner().Run(ctx, adapter, opts)
	close(progress)
	<-done

	if sum != nil && scrapeOutput != "" && len(sum.Records) > 0 {
		if err := output.Save(sum.Records, scrapeOutput); err != nil {
			return fmt.Errorf("failed to write %s: %w", scrapeOutput, err)
		}
		log.Info().Str("file", scrapeOutput).Int("records", len(sum.Records)).Msg("Output saved")
	}
	if sum != nil {
		printSummary(sum)
	}
	return runErr
}

// renderProgress drives a progress bar from runner snapshots until the
// channel is closed
func renderProgress(updates <-chan run.Progress, visible bool) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionSetDescription("collecting listings"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	phase := run.PhaseCollecting
	for p := range updates {
		if p.Phase == run.PhaseParsing && phase != run.PhaseParsing {
			bar.ChangeMax(p.Total)
		}
		phase = p.Phase
		if p.Phase == run.PhaseParsing {
			bar.Describe(fmt.Sprintf("parsing %s (%d failed)", p.Current, p.Failed))
			_ = bar.Set(p.Done)
		}
	}
	_ = bar.Finish()
}

func printSummary(sum *run.Summary) {
	w := os.Stdout
	fmt.Fprintf(w, "\n%s\n", ui.Bold(fmt.Sprintf("Run %s on %s", sum.RunID, sum.Marketplace)))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendRow(table.Row{"Discovered", sum.Discovered})
	t.AppendRow(table.Row{"Parsed", sum.Parsed})
	t.AppendRow(table.Row{"Failed", len(sum.Failures)})
	t.AppendRow(table.Row{"Sink errors", sum.SinkErrors})
	t.AppendRow(table.Row{"Duration", sum.Duration().Round(time.Second)})
	if sum.EnumerateErr != nil {
		t.AppendRow(table.Row{"Enumeration", sum.EnumerateErr.Error()})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	if sum.EnumerateErr != nil {
		fmt.Fprintln(w, ui.Warn("! Enumeration stopped early, only the listings found before the error were parsed"))
	}
	if len(sum.Failures) == 0 {
		fmt.Fprintln(w, ui.Success("✓ All listings parsed"))
		return
	}

	ft := table.NewWriter()
	ft.SetOutputMirror(w)
	ft.AppendHeader(table.Row{"Listing", "Stage", "Code", "Error"})
	for _, f := range sum.Failures {
		ft.AppendRow(table.Row{f.Ref.ListingID, f.Stage, f.Code, truncate(f.Err.Error(), 80)})
	}
	ft.SetStyle(table.StyleRounded)
	ft.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
