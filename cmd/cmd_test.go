package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/kitties/internal/config"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/testutil"
)

// newTestConfig writes a default config whose database lives in a temp dir.
func newTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))
	require.NoError(t, config.SetValue(path, "storage.path", filepath.Join(dir, "kitties.db")))
	return path
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)
	t.Cleanup(viper.Reset)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "kitties %v", args)
	return out
}

func decodeOut[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestCLI_Scenario(t *testing.T) {
	c := newTestConfig(t)

	out := mustRun(t, "--config", c, "create", "--as", "alice")
	require.Contains(t, out, "created kitty 0 owner alice")
	mustRun(t, "--config", c, "create", "--as", "alice")

	out = mustRun(t, "--config", c, "breed", "0", "1", "--as", "carol")
	require.Contains(t, out, "bred kitty 2")
	require.Contains(t, out, "owner carol")

	out = mustRun(t, "--config", c, "transfer", "2", "--as", "carol", "--to", "dave")
	require.Contains(t, out, "transferred kitty 2 carol → dave")

	k := decodeOut[kittyJSON](t, mustRun(t, "--config", c, "show", "2", "--json"))
	require.Equal(t, "dave", k.Owner)
	require.Len(t, k.Genome, 2*kitty.GenomeSize)

	out = mustRun(t, "--config", c, "show", "2")
	require.Contains(t, out, "Kitty 2")
	require.Contains(t, out, k.Genome)

	owned := decodeOut[[]kittyJSON](t, mustRun(t, "--config", c, "list", "--owner", "alice", "--json"))
	require.Len(t, owned, 2)

	all := decodeOut[[]kittyJSON](t, mustRun(t, "--config", c, "list", "--offset", "1", "--limit", "2", "--json"))
	require.Equal(t, []kitty.AssetID{1, 2}, []kitty.AssetID{all[0].ID, all[1].ID})

	events := decodeOut[[]kitty.Event](t, mustRun(t, "--config", c, "events", "--json"))
	require.Len(t, events, 4)
	for i, ev := range events {
		require.Equal(t, uint64(i), ev.Seq)
	}

	events = decodeOut[[]kitty.Event](t, mustRun(t, "--config", c, "events", "--from", "2", "--limit", "1", "--json"))
	require.Len(t, events, 1)
	require.Equal(t, kitty.EventBred, events[0].Kind)

	out = mustRun(t, "--config", c, "events")
	require.Contains(t, out, "transferred")
}

func TestCLI_Rejections(t *testing.T) {
	c := newTestConfig(t)
	mustRun(t, "--config", c, "create", "--as", "alice")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"not owner", []string{"transfer", "0", "--as", "bob", "--to", "carol"}, kitty.ErrNotOwner},
		{"unknown kitty", []string{"transfer", "7", "--as", "alice", "--to", "carol"}, kitty.ErrNotFound},
		{"same parent", []string{"breed", "0", "0", "--as", "alice"}, kitty.ErrSameParent},
		{"unknown parent", []string{"breed", "0", "3", "--as", "alice"}, kitty.ErrNotFound},
		{"show unknown", []string{"show", "5"}, kitty.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"--config", c}, tt.args...)...)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := runCLI(t, "--config", c, "create")
	require.ErrorContains(t, err, `required flag(s) "as" not set`)

	_, err = runCLI(t, "--config", c, "show", "not-a-number")
	require.ErrorContains(t, err, "invalid kitty id")
}

func TestCLI_IndexOverflow(t *testing.T) {
	c := newTestConfig(t)
	mustRun(t, "--config", c, "config", "set", "ledger.max_kitty_id", "1")
	mustRun(t, "--config", c, "create", "--as", "alice")

	_, err := runCLI(t, "--config", c, "create", "--as", "alice")
	require.ErrorIs(t, err, kitty.ErrIndexOverflow)
}

func TestCLI_EnvOverridesConfig(t *testing.T) {
	c := newTestConfig(t)
	t.Setenv("KITTIES_CHAIN_BLOCK_SIZE", "2")

	var last kitty.Event
	for range 3 {
		last = decodeOut[kitty.Event](t, mustRun(t, "--config", c, "create", "--as", "alice", "--json"))
	}
	require.Equal(t, uint64(2), last.Seq)
	require.Equal(t, uint64(1), last.Block)
	require.Equal(t, uint32(0), last.OpIndex)
}

func TestCLI_DBFlagOverridesConfig(t *testing.T) {
	c := newTestConfig(t)
	other := filepath.Join(t.TempDir(), "other.db")

	mustRun(t, "--config", c, "--db", other, "create", "--as", "alice")
	_, err := os.Stat(other)
	require.NoError(t, err)

	events := decodeOut[[]kitty.Event](t, mustRun(t, "--config", c, "events", "--json"))
	require.Empty(t, events)
}

func TestCLI_InvalidConfig(t *testing.T) {
	c := newTestConfig(t)
	t.Setenv("KITTIES_STORAGE_DRIVER", "carrier-pigeon")

	_, err := runCLI(t, "--config", c, "list")
	require.ErrorContains(t, err, "invalid configuration")

	// Config commands still run so the file can be repaired.
	out := mustRun(t, "--config", c, "config", "path")
	require.Contains(t, out, c)
}

func TestCLI_ConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	out := mustRun(t, "--config", path, "config", "init")
	require.Contains(t, out, path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	_, err = runCLI(t, "--config", path, "config", "init")
	require.ErrorContains(t, err, "already exists")

	mustRun(t, "--config", path, "config", "init", "--force")
}

func TestCLI_ConfigSet(t *testing.T) {
	c := newTestConfig(t)

	mustRun(t, "--config", c, "config", "set", "chain.block_size", "3")
	data, err := os.ReadFile(c)
	require.NoError(t, err)
	require.Contains(t, string(data), "block_size: 3")

	_, err = runCLI(t, "--config", c, "config", "set", "chain.no_such_key", "1")
	require.ErrorContains(t, err, "unknown config key")

	_, err = runCLI(t, "--config", c, "config", "set", "chain.block_size", "0")
	require.ErrorContains(t, err, "chain.block_size must be positive")

	data, err = os.ReadFile(c)
	require.NoError(t, err)
	require.Contains(t, string(data), "block_size: 3")
}

func TestCLI_FollowNeedsSQLite(t *testing.T) {
	c := newTestConfig(t)
	t.Setenv("KITTIES_STORAGE_DRIVER", "memory")

	_, err := runCLI(t, "--config", c, "events", "--follow")
	require.ErrorIs(t, err, errFollowNeedsSQLite)
}

func TestSetDefaults_CoversEveryKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setDefaults(config.Defaults())
	var got config.Config
	require.NoError(t, viper.Unmarshal(&got))
	require.Equal(t, config.Defaults(), got)
}

func TestFollowEvents(t *testing.T) {
	stack := testutil.NewStack(t)
	testutil.NewBuilder(t, stack).WithKitties("alice", 2).Build()

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 1)
	seen := make(chan kitty.Event, 8)
	done := make(chan error, 1)
	go func() {
		done <- followEvents(ctx, stack.Store, 1, changes, func(ev kitty.Event) error {
			seen <- ev
			return nil
		})
	}()

	next := func() kitty.Event {
		t.Helper()
		select {
		case ev := <-seen:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("expected an event")
			return kitty.Event{}
		}
	}

	require.Equal(t, uint64(1), next().Seq)

	testutil.NewBuilder(t, stack).WithTransfer("alice", "bob", 0).Build()
	changes <- struct{}{}
	ev := next()
	require.Equal(t, uint64(2), ev.Seq)
	require.Equal(t, kitty.EventTransferred, ev.Kind)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("followEvents did not stop")
	}
	require.Empty(t, seen)
}
