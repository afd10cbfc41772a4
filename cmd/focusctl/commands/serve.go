package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
	"github.com/haivivi/audiofocus/pkg/server"
)

var (
	serveListen    string
	serveNoJournal bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a focus manager over websocket",
	Long: `Run a focus manager and serve it over HTTP.

  GET /events   websocket; streams every manager event as JSON and accepts
                commands on the same socket:
                  {"op": "request", "client": "music", "gain": "gain"}
                  {"op": "request", "client": "nav", "gain": "transient"}
                  {"op": "abandon", "client": "nav"}
                  {"op": "lock"}
                  {"op": "unlock"}
                Requests of a connection are abandoned when it closes.
  GET /status   the focus stack as JSON

Events are recorded to the context journal unless --no-journal is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (default from context)")
	serveCmd.Flags().BoolVar(&serveNoJournal, "no-journal", false, "do not record events")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		return err
	}
	logger, err := newLogger(ctx)
	if err != nil {
		return err
	}

	opts := []audiomgr.Option{
		audiomgr.WithLogger(logger),
		audiomgr.WithDelayedGain(ctx.Delayed()),
	}
	if !serveNoJournal {
		j, err := openJournal(cfg, ctx)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, audiomgr.WithRecorder(j))
		logger.Info("recording events", "journal", cfg.JournalPath(ctx))
	}
	mgr := audiomgr.New(opts...)
	defer mgr.Close()

	addr := serveListen
	if addr == "" {
		addr = ctx.ListenAddr()
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(mgr, server.WithLogger(logger)).ListenAndServe(sigCtx, addr)
}
