// Package cli provides the command-line interface of autoscraper.
package cli

import (
	"context"

	"github.com/kameel77/auto-scraper/internal/app"
	"github.com/spf13/cobra"
)

// ctxKey is used for storing the application in command contexts
type ctxKey string

const appKey ctxKey = "app"

// SetApp stores the Application in the command's context. A nil a clears it.
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey, a))
}

// GetAppFromCmd retrieves the Application stored on cmd or one of its parents
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	for c := cmd; c != nil; c = c.Parent() {
		if ctx := c.Context(); ctx != nil {
			if a, ok := ctx.Value(appKey).(*app.Application); ok && a != nil {
				return a
			}
		}
	}
	return nil
}
