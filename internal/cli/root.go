// Package cli implements billingctl, the operator tool for usage and subscription records.
package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/heic2pdf/backend/internal/service"

	"github.com/spf13/cobra"
)

// App is what the commands operate on.
type App struct {
	Resolver   service.EntitlementResolver
	Reconciler service.Reconciler
	Migrate    func(ctx context.Context) error
	Close      func() error
}

// Loader builds the App lazily so --help works without a database.
type Loader func(ctx context.Context) (*App, error)

func NewRootCmd(load Loader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "billingctl",
		Short:         "Inspect and repair HEIC2PDF usage and subscription records",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newMigrateCmd(load),
		newUsageCmd(load),
		newSubscriptionCmd(load),
		newEventsCmd(load),
		newSweepCmd(load),
	)
	return rootCmd
}

// withApp loads the App for one command invocation and closes it afterwards.
func withApp(cmd *cobra.Command, load Loader, fn func(app *App) error) error {
	app, err := load(cmd.Context())
	if err != nil {
		return err
	}
	if app.Close != nil {
		defer app.Close()
	}
	return fn(app)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
