// internal/cli/marketplaces.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kameel77/auto-scraper/internal/auth"
	"github.com/kameel77/auto-scraper/internal/marketplace"
)

var marketplacesCmd = &cobra.Command{
	Use:     "marketplaces",
	Aliases: []string{"ls"},
	Short:   "List supported marketplaces",
	Example: `  # Show every marketplace and whether it is ready to use
  autoscraper marketplaces`,
	Args: cobra.NoArgs,
	RunE: runMarketplaces,
}

func init() {
	rootCmd.AddCommand(marketplacesCmd)
}

type marketplaceRow struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Discovery string `json:"discovery"`
	Detail    string `json:"detail"`
	Status    string `json:"status"`
}

func runMarketplaces(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	resolver := auth.NewResolver(a.Credentials)

	rows := make([]marketplaceRow, 0, len(marketplace.Catalog))
	for _, info := range marketplace.Catalog {
		status := "ready"
		if info.Credentials {
			if _, err := resolver.Resolve(info.Name); err != nil {
				identity, secret := auth.EnvNames(info.Name)
				status = fmt.Sprintf("needs %s/%s", identity, secret)
			}
		}
		rows = append(rows, marketplaceRow{
			Name:      info.Name,
			Source:    string(info.Source),
			Discovery: info.Discovery,
			Detail:    info.Detail,
			Status:    status,
		})
	}

	if a.Config.JSONLog {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Name", "Source", "Discovery", "Detail", "Status"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Name, r.Source, r.Discovery, r.Detail, r.Status})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
