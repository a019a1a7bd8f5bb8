package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/heic2pdf/backend/internal/cli"
	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository/memory"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	subs     *memory.SubscriptionRepo
	usage    *memory.UsageRepo
	now      time.Time
	migrated bool
	app      *cli.App
}

func newFixture() *fixture {
	f := &fixture{
		subs:  memory.NewSubscriptionRepo(),
		usage: memory.NewUsageRepo(),
		now:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	opts := service.Options{Now: func() time.Time { return f.now }}
	ledger := service.NewUsageLedger(f.usage, zerolog.Nop(), opts)
	f.app = &cli.App{
		Resolver:   service.NewEntitlementResolver(f.subs, ledger, nil, zerolog.Nop(), opts),
		Reconciler: service.NewReconciler(f.subs, nil, nil, nil, zerolog.Nop(), opts),
		Migrate: func(context.Context) error {
			f.migrated = true
			return nil
		},
	}
	return f
}

func (f *fixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd(func(context.Context) (*cli.App, error) { return f.app, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	f := newFixture()
	out, err := f.run(t, "", "migrate")
	require.NoError(t, err)
	assert.True(t, f.migrated)
	assert.Contains(t, out, "migrations applied")
}

func TestUsageGet(t *testing.T) {
	f := newFixture()
	_, err := f.usage.RecordConversion(context.Background(), "u1", model.UTCDay(f.now))
	require.NoError(t, err)

	out, err := f.run(t, "", "usage", "get", "u1")
	require.NoError(t, err)
	var report service.UsageReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.DailyCount)
	assert.Equal(t, 9, report.Remaining)
}

func TestEventsApplyFromFileIsIdempotent(t *testing.T) {
	f := newFixture()
	events := `[
	  {"provider":"creem","event_id":"evt_1","provider_event_type":"subscription.active","kind":"activated","user_id":"u1","provider_subscription_id":"sub_1","period_end":"2026-04-10T09:00:00Z"},
	  {"provider":"creem","event_id":"evt_2","provider_event_type":"subscription.canceled","kind":"cancelled","user_id":"u1","provider_subscription_id":"sub_1","cancel_at_period_end":true}
	]`
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(events), 0o600))

	out, err := f.run(t, "", "events", "apply", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "applied"`)

	out, err = f.run(t, "", "events", "apply", "-f", path)
	require.NoError(t, err)
	assert.NotContains(t, out, `"outcome": "applied"`)
	assert.Contains(t, out, `"outcome": "duplicate"`)

	out, err = f.run(t, "", "subscription", "get", "u1")
	require.NoError(t, err)
	var st service.SubscriptionStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "ACTIVE", st.Status)
	assert.True(t, st.CancelAtPeriodEnd)
	assert.True(t, st.IsPro)
}

func TestEventsApplyFromStdin(t *testing.T) {
	f := newFixture()
	out, err := f.run(t,
		`{"provider":"stripe","provider_event_type":"invoice.paid","kind":"payment_succeeded","user_id":"u2","provider_subscription_id":"sub_9"}`,
		"events", "apply", "-f", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "applied"`)
}

func TestEventsApplyReplaysDroppedEvent(t *testing.T) {
	f := newFixture()
	out, err := f.run(t,
		`{"provider":"creem","event_id":"evt_7","provider_event_type":"subscription.active","kind":"activated","provider_subscription_id":"sub_7"}`,
		"events", "apply", "-f", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "dropped"`)

	out, err = f.run(t,
		`{"provider":"creem","event_id":"evt_7","provider_event_type":"subscription.active","kind":"activated","user_id":"u3","provider_subscription_id":"sub_7"}`,
		"events", "apply", "-f", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "applied"`)

	out, err = f.run(t, "", "subscription", "get", "u3")
	require.NoError(t, err)
	var st service.SubscriptionStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.IsPro)
}

func TestEventsApplyRequiresFile(t *testing.T) {
	_, err := newFixture().run(t, "", "events", "apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "file" not set`)
}

func TestSweepExpiresLapsedSubscriptions(t *testing.T) {
	f := newFixture()
	past := f.now.Add(-time.Hour)
	f.subs.Put(&model.SubscriptionRecord{UserID: "u1", Provider: model.ProviderCreem, ProviderSubscriptionID: "s", Status: model.StatusActive, ExpiresAt: &past})

	out, err := f.run(t, "", "sweep")
	require.NoError(t, err)
	assert.JSONEq(t, `{"expired":["u1"]}`, out)
}

func TestLoaderErrorIsReturned(t *testing.T) {
	cmd := cli.NewRootCmd(func(context.Context) (*cli.App, error) { return nil, errors.New("no database") })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"sweep"})
	assert.EqualError(t, cmd.Execute(), "no database")
}
