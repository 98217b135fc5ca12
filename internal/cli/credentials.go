// internal/cli/credentials.go
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kameel77/auto-scraper/internal/auth"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/ui"
)

var (
	credIdentity   string
	credSecretFrom string
)

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"creds"},
	Short:   "Manage stored marketplace credentials",
	Long: `Store, list and delete the login of marketplaces that require one.

Credentials are kept in the OS keyring, or in 0600 files under
~/.auto-scraper/credentials when no keyring is available. Environment
variables such as VEHIS_EMAIL and VEHIS_PASSWORD always take precedence.`,
	Example: `  # Store the vehis login, reading the password from stdin
  echo "$PASS" | autoscraper credentials set vehis --identity broker@example.com

  # List stored entries
  autoscraper credentials list

  # Remove an entry
  autoscraper credentials delete vehis`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set <marketplace>",
	Short: "Store an identity and secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialsSet,
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <marketplace>",
	Short: "Delete stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialsDelete,
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List marketplaces with stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsList,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd, credentialsDeleteCmd, credentialsListCmd)

	credentialsSetCmd.Flags().StringVar(&credIdentity, "identity", "", "Login identity, usually an e-mail address")
	credentialsSetCmd.Flags().StringVar(&credSecretFrom, "secret-file", "", "Read the secret from this file instead of stdin")
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	if _, err := a.Registry.Get(name); err != nil && !isMissingCredentials(err) {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	identity := strings.TrimSpace(credIdentity)
	if identity == "" {
		fmt.Fprint(os.Stderr, "Identity: ")
		if identity, err = readLine(in); err != nil {
			return err
		}
	}

	var secret string
	if credSecretFrom != "" {
		b, err := os.ReadFile(credSecretFrom)
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		secret = strings.TrimRight(string(b), "\r\n")
	} else {
		fmt.Fprint(os.Stderr, "Secret: ")
		if secret, err = readLine(in); err != nil {
			return err
		}
	}

	if err := a.Credentials.Save(name, auth.Credentials{Identity: identity, Secret: secret}); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("✓ Credentials for %s stored in %s", name, a.Credentials.Backend())))
	return nil
}

func runCredentialsDelete(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if err := a.Credentials.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("✓ Credentials for %s deleted", args[0])))
	return nil
}

func runCredentialsList(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	names, err := a.Credentials.List()
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}
	if len(names) == 0 {
		fmt.Println(ui.Info("No stored credentials. Add some with: autoscraper credentials set <marketplace>"))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Marketplace", "Identity", "Backend"})
	for _, name := range names {
		identity := "?"
		if c, err := a.Credentials.Load(name); err == nil {
			identity = c.Identity
		}
		t.AppendRow(table.Row{name, identity, a.Credentials.Backend()})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func isMissingCredentials(err error) bool {
	return errors.Is(err, engine.ErrMissingCredentials)
}
