package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/kitties/internal/journal"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/render"
	"github.com/zjrosen/kitties/internal/store"
	"github.com/zjrosen/kitties/internal/store/sqlite"
	"github.com/zjrosen/kitties/internal/watcher"
)

var errFollowNeedsSQLite = errors.New("--follow needs the sqlite storage driver")

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the event journal",
	Long: `Show journaled events in sequence order.

With --follow the command keeps running and prints events as other kitties
processes commit them, until interrupted.

Examples:
  kitties events
  kitties events --from 100 --limit 20
  kitties events --follow
  kitties events --follow --json | jq 'select(.kind == "bred")'`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().Uint64("from", 0, "first sequence number")
	eventsCmd.Flags().Int("limit", 0, "maximum number of events (0 = all)")
	eventsCmd.Flags().BoolP("follow", "f", false, "keep printing new events")
	eventsCmd.Flags().Bool("json", false, "print as JSON (one object per line with --follow)")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	from, _ := cmd.Flags().GetUint64("from")
	limit, _ := cmd.Flags().GetInt("limit")
	follow, _ := cmd.Flags().GetBool("follow")
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !follow {
		evs, err := journal.List(cmd.Context(), a.store, from, limit)
		if err != nil {
			return err
		}
		if asJSON {
			if evs == nil {
				evs = []kitty.Event{}
			}
			return writeJSON(out, evs)
		}
		_, err = fmt.Fprintln(out, render.EventTable(evs))
		return err
	}

	db, ok := a.store.(*sqlite.DB)
	if !ok {
		return errFollowNeedsSQLite
	}
	w, err := watcher.New(watcher.DefaultConfig(db.Path()))
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(out)
	return followEvents(ctx, a.store, from, changes, func(ev kitty.Event) error {
		if asJSON {
			return enc.Encode(ev)
		}
		_, err := fmt.Fprintln(out, render.EventLine(ev))
		return err
	})
}

// followEvents emits every event from next onwards, then again after each
// change notification, until ctx ends or changes closes.
func followEvents(ctx context.Context, s store.Store, next uint64, changes <-chan struct{}, emit func(kitty.Event) error) error {
	for {
		evs, err := journal.List(ctx, s, next, 0)
		if err != nil {
			return err
		}
		for _, ev := range evs {
			if err := emit(ev); err != nil {
				return err
			}
			next = ev.Seq + 1
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		}
	}
}
