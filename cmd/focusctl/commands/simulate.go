package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiofocus/pkg/cli"
	"github.com/haivivi/audiofocus/pkg/journal"
	"github.com/haivivi/audiofocus/pkg/scenario"
)

var (
	simulateOutput  string
	simulateJQ      string
	simulateJournal bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <file>",
	Short: "Run a scenario file",
	Long: `Run a scenario file against a focus manager and print the trace.

Apps and the manager take their defaults from the current context: an app
without "allow" uses the context's allow_focus_management, a scenario without
"delayed_gain" uses the context's delayed_gain.

The trace lists the play and pause calls each app received and every manager
event. With --journal the events are also appended to the context's journal.

Examples:
  focusctl simulate testdata/delayed_transient.yaml
  focusctl simulate scenario.yaml -o json --jq '.calls[] | select(.app == "music")'
  focusctl simulate scenario.yaml --journal`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&simulateOutput, "output", "o", "raw", "output format: raw, yaml, json")
	simulateCmd.Flags().StringVar(&simulateJQ, "jq", "", "jq expression applied to the trace")
	simulateCmd.Flags().BoolVar(&simulateJournal, "journal", false, "record events to the context journal")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(simulateOutput)
	if err != nil {
		return err
	}
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

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	applyContextDefaults(sc, ctx)

	opts := scenario.Options{Logger: logger}
	if simulateJournal {
		j, err := openJournal(cfg, ctx)
		if err != nil {
			return err
		}
		defer j.Close()
		opts.Recorder = j
	}

	trace, runErr := scenario.Run(cmd.Context(), sc, opts)
	if trace != nil {
		if format == cli.FormatRaw && simulateJQ == "" {
			printTrace(os.Stdout, trace)
		} else if err := cli.Output(trace, cli.OutputOptions{Format: format, JQ: simulateJQ}); err != nil {
			return err
		}
	}
	return runErr
}

func applyContextDefaults(sc *scenario.Scenario, ctx *cli.Context) {
	if sc.DelayedGain == nil {
		delayed := ctx.Delayed()
		sc.DelayedGain = &delayed
	}
	for i := range sc.Apps {
		if sc.Apps[i].Allow == nil {
			allow := ctx.Allow()
			sc.Apps[i].Allow = &allow
		}
	}
}

func printTrace(w io.Writer, trace *scenario.Trace) {
	styles := cli.NewStyles(cli.DefaultTheme)

	fmt.Fprintln(w, styles.Title.Render(fmt.Sprintf("%s (%d steps)", trace.Scenario, trace.Steps)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Title.Render("Calls"))
	if len(trace.Calls) == 0 {
		fmt.Fprintln(w, styles.Dim.Render("  (none)"))
	}
	for _, c := range trace.Calls {
		fmt.Fprintln(w, "  "+styles.Call(c.Step, c.App, c.Call))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Title.Render("Events"))
	for _, ev := range trace.Events {
		fmt.Fprintln(w, "  "+styles.Event(ev))
	}

	if len(trace.Audio) > 0 {
		fmt.Fprintln(w)
		var parts []string
		for _, a := range trace.Audio {
			plays, pauses := trace.Counts(a.App)
			parts = append(parts, fmt.Sprintf("%s plays=%d pauses=%d audio=%s", a.App, plays, pauses, a.Time))
		}
		fmt.Fprintln(w, styles.Dim.Render(strings.Join(parts, "  ")))
	}
}

// openJournal opens the badger journal of ctx.
func openJournal(cfg *cli.Config, ctx *cli.Context) (*journal.Journal, error) {
	logger, err := newLogger(ctx)
	if err != nil {
		return nil, err
	}
	store, err := journal.NewBadger(journal.BadgerOptions{
		Dir:    cfg.JournalPath(ctx),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	j, err := journal.New(journal.Config{Store: store, Logger: logger})
	if err != nil {
		store.Close()
		return nil, err
	}
	return j, nil
}
