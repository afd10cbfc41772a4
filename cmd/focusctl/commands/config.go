package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiofocus/pkg/cli"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage focusctl configuration.

Configuration is stored in ~/.audiofocus/focusctl/config.yaml`,
}

// contextCmd represents the context subcommand
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage contexts",
	Long:  `Manage focusctl contexts, each with its own journal, listen address and defaults.`,
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("\nCreate one with:")
			fmt.Println("  focusctl config context add dev --listen=:8740")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tLISTEN\tJOURNAL")
		for _, name := range names {
			ctx, _ := cfg.GetContext(name)
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, ctx.ListenAddr(), cfg.JournalPath(ctx))
		}
		return w.Flush()
	},
}

var contextUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var contextAddCmd = &cobra.Command{
	Use:     "add <name>",
	Aliases: []string{"set"},
	Short:   "Create or update a context",
	Long: `Create or update a context. Only the given flags are changed.

Examples:
  focusctl config context add dev --listen=:8740 --level=debug
  focusctl config context add kiosk --journal-dir=/var/lib/focus --delayed-gain=false
  focusctl config context add dev --allow=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := args[0]
		ctx, err := cfg.GetContext(name)
		if err != nil {
			ctx = &cli.Context{Name: name}
		}

		flags := cmd.Flags()
		if flags.Changed("journal-dir") {
			ctx.JournalDir, _ = flags.GetString("journal-dir")
		}
		if flags.Changed("listen") {
			ctx.Listen, _ = flags.GetString("listen")
		}
		if flags.Changed("allow") {
			v, _ := flags.GetBool("allow")
			ctx.AllowFocusManagement = &v
		}
		if flags.Changed("delayed-gain") {
			v, _ := flags.GetBool("delayed-gain")
			ctx.DelayedGain = &v
		}
		if flags.Changed("level") {
			lvl, _ := flags.GetString("level")
			if _, err := cli.ParseLevel(lvl); err != nil {
				return err
			}
			ctx.LogLevel = lvl
		}

		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			if err := cfg.UseContext(name); err != nil {
				return err
			}
		}
		cli.PrintSuccess("Context %q saved", name)
		return nil
	},
}

var contextDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var contextShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show context details",
	Long:  `Show details of a context. If no name is provided, shows the current context.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := cfg.CurrentContext
		if len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no current context set. Use 'focusctl config context use <name>' to set one")
		}
		ctx, err := cfg.GetContext(name)
		if err != nil {
			return err
		}

		fmt.Printf("Context: %s", name)
		if name == cfg.CurrentContext {
			fmt.Print(" (current)")
		}
		fmt.Println()
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("Listen:       %s\n", ctx.ListenAddr())
		fmt.Printf("Journal:      %s\n", cfg.JournalPath(ctx))
		fmt.Printf("Allow:        %t\n", ctx.Allow())
		fmt.Printf("Delayed gain: %t\n", ctx.Delayed())
		fmt.Printf("Log level:    %s\n", ctx.Level())
		fmt.Println()
		fmt.Printf("Config file: %s\n", cfg.Path())
		return nil
	},
}

func init() {
	contextAddCmd.Flags().String("journal-dir", "", "journal directory, relative to the config directory")
	contextAddCmd.Flags().String("listen", "", "listen address of focusctl serve")
	contextAddCmd.Flags().Bool("allow", true, "allow simulated apps to manage focus by default")
	contextAddCmd.Flags().Bool("delayed-gain", true, "delay requests made while locked")
	contextAddCmd.Flags().String("level", "", "log level of the context: debug, info, warn, error")

	contextCmd.AddCommand(contextListCmd)
	contextCmd.AddCommand(contextUseCmd)
	contextCmd.AddCommand(contextAddCmd)
	contextCmd.AddCommand(contextDeleteCmd)
	contextCmd.AddCommand(contextShowCmd)

	configCmd.AddCommand(contextCmd)
}
