package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/processor"
	"github.com/zjrosen/kitties/internal/pubsub"
	"github.com/zjrosen/kitties/internal/render"
	"github.com/zjrosen/kitties/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the kitties HTTP API until interrupted. Callers identify themselves
with the X-Caller-Id header; authentication happens in front of this server.

Routes:
  POST /api/v1/kitties                 create (201)
  POST /api/v1/kitties/breed           breed {"parent_1":0,"parent_2":1} (201)
  POST /api/v1/kitties/:id/transfer    transfer {"to":"bob"}
  GET  /api/v1/kitties                 list (?owner=&skip=&limit=)
  GET  /api/v1/kitties/:id             show
  GET  /api/v1/events                  journal (?from=&limit=)
  GET  /api/v1/events/ws               live events over websocket (?from=)
  GET  /api/health

Examples:
  kitties serve
  kitties serve --addr 0.0.0.0:8420`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "address to listen on (overrides server.addr)")
	serveCmd.Flags().BoolP("quiet", "q", false, "do not print activity")
	serveCmd.Flags().BoolP("verbose", "v", false, "also print log lines to stderr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := cfg.Server.Addr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv := server.New(server.Config{
		Addr:            addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, server.Deps{
		Commands:       a.processor,
		Query:          a.query,
		Store:          a.store,
		Events:         a.events,
		TracerProvider: a.tracing.TracerProvider(),
	})

	out := cmd.OutOrStdout()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		if err := tailLog(ctx, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		go printActivity(ctx, out, a.events, a.commands)
	}

	fmt.Fprintf(out, "kitties listening on http://%s (Ctrl+C to stop)\n", addr)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "stopped")
	return nil
}

// tailLog copies log lines to w until ctx ends. Without --debug there is no
// log file, so lines are only kept for the tail.
func tailLog(ctx context.Context, w io.Writer) error {
	if logCleanup == nil {
		level, err := log.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		log.InitWriter(io.Discard)
		log.SetMinLevel(level)
	}
	lines := log.NewListener(ctx)
	go func() {
		for ev := range lines {
			fmt.Fprint(w, ev.Payload)
		}
	}()
	return nil
}

// printActivity prints committed events and failed commands as they happen.
func printActivity(ctx context.Context, out io.Writer,
	events pubsub.Subscriber[kitty.Event], commands pubsub.Subscriber[processor.CommandLogEvent]) {
	evCh := events.Subscribe(ctx)
	cmdCh := commands.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-evCh:
			if !ok {
				return
			}
			fmt.Fprintln(out, render.EventLine(e.Payload))
		case e, ok := <-cmdCh:
			if !ok {
				return
			}
			if !e.Payload.Success && e.Payload.Error != nil {
				fmt.Fprintln(out, render.Failure(fmt.Errorf("%s: %w", e.Payload.CommandType, e.Payload.Error)))
			}
		}
	}
}
