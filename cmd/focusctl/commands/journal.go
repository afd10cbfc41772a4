package commands

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiofocus/pkg/audiomgr"
	"github.com/haivivi/audiofocus/pkg/cli"
)

var (
	journalLimit  int
	journalClient string
	journalOutput string
	journalJQ     string
	journalBefore time.Duration
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the focus journal",
	Long: `Inspect the focus events recorded by "focusctl serve" and
"focusctl simulate --journal".

The journal directory comes from the context's journal_dir and defaults to
~/.audiofocus/focusctl/data/journal.`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded events",
	Long: `List recorded events, oldest first.

Examples:
  focusctl journal list --limit 20
  focusctl journal list --client music -o json
  focusctl journal list --jq '[.[] | select(.kind == "change")] | length'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(journalOutput)
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
		j, err := openJournal(cfg, ctx)
		if err != nil {
			return err
		}
		defer j.Close()

		var events []audiomgr.Event
		if journalClient != "" {
			events, err = j.ByClient(cmd.Context(), journalClient)
			if err == nil && journalLimit > 0 && len(events) > journalLimit {
				events = events[len(events)-journalLimit:]
			}
		} else if journalLimit > 0 {
			events, err = j.Recent(cmd.Context(), journalLimit)
			slices.Reverse(events)
		} else {
			events, err = j.Range(cmd.Context(), time.Time{}, time.Time{})
		}
		if err != nil {
			return err
		}

		if format == cli.FormatRaw && journalJQ == "" {
			styles := cli.NewStyles(cli.DefaultTheme)
			for _, ev := range events {
				fmt.Fprintln(os.Stdout, styles.Event(ev))
			}
			return nil
		}
		if events == nil {
			events = []audiomgr.Event{}
		}
		return cli.Output(events, cli.OutputOptions{Format: format, JQ: journalJQ})
	},
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old events",
	Long: `Delete events older than the given age.

Example:
  focusctl journal prune --before 168h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if journalBefore <= 0 {
			return fmt.Errorf("--before must be positive")
		}
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		ctx, err := cfg.ResolveContext(contextName)
		if err != nil {
			return err
		}
		j, err := openJournal(cfg, ctx)
		if err != nil {
			return err
		}
		defer j.Close()

		n, err := j.Prune(cmd.Context(), time.Now().Add(-journalBefore))
		if err != nil {
			return err
		}
		cli.PrintSuccess("Pruned %d events", n)
		return nil
	},
}

func init() {
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 50, "maximum number of events (0 for all)")
	journalListCmd.Flags().StringVar(&journalClient, "client", "", "only events of this client")
	journalListCmd.Flags().StringVarP(&journalOutput, "output", "o", "raw", "output format: raw, yaml, json")
	journalListCmd.Flags().StringVar(&journalJQ, "jq", "", "jq expression applied to the event list")

	journalPruneCmd.Flags().DurationVar(&journalBefore, "before", 0, "delete events older than this age, e.g. 24h")
	journalPruneCmd.MarkFlagRequired("before")

	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalPruneCmd)
}
