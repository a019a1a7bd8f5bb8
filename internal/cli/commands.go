package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/spf13/cobra"
)

func newMigrateCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, load, func(app *App) error {
				if app.Migrate == nil {
					return errors.New("migrations are not available for this backend")
				}
				if err := app.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newUsageCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Daily conversion usage",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <user-id>",
		Short: "Show today's usage for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, load, func(app *App) error {
				return writeJSON(cmd.OutOrStdout(), app.Resolver.Usage(cmd.Context(), args[0]))
			})
		},
	})
	return cmd
}

func newSubscriptionCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Subscription records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <user-id>",
		Short: "Show the subscription status of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, load, func(app *App) error {
				st, err := app.Resolver.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), st)
			})
		},
	})
	return cmd
}

type applyLine struct {
	EventID string        `json:"event_id,omitempty"`
	Type    string        `json:"provider_event_type"`
	UserID  string        `json:"user_id,omitempty"`
	Outcome model.Outcome `json:"outcome"`
}

func newEventsCmd(load Loader) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Canonical subscription events",
	}
	apply := &cobra.Command{
		Use:   "apply",
		Short: "Apply canonical events from a JSON file (one object or an array)",
		Long:  "Replays events through the reconciler. Events already applied are reported as duplicate, so a file can be applied more than once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := readEvents(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return withApp(cmd, load, func(app *App) error {
				out := make([]applyLine, 0, len(events))
				for i := range events {
					ev := &events[i]
					res, err := app.Reconciler.ApplyEvent(cmd.Context(), ev)
					if err != nil {
						return fmt.Errorf("event %d (%s): %w", i, ev.ProviderEventType, err)
					}
					out = append(out, applyLine{EventID: ev.EventID, Type: ev.ProviderEventType, UserID: res.UserID, Outcome: res.Outcome})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	apply.Flags().StringVarP(&file, "file", "f", "", "JSON file with events, - for stdin")
	_ = apply.MarkFlagRequired("file")
	cmd.AddCommand(apply)
	return cmd
}

func readEvents(stdin io.Reader, file string) ([]model.Event, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var events []model.Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		return events, nil
	}
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return []model.Event{ev}, nil
}

func newSweepCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire subscriptions whose paid period has ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, load, func(app *App) error {
				users, err := app.Reconciler.SweepExpired(cmd.Context())
				if err != nil {
					return err
				}
				if users == nil {
					users = []string{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"expired": users})
			})
		},
	}
}
