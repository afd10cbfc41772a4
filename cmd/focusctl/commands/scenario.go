package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiofocus/pkg/cli"
	"github.com/haivivi/audiofocus/pkg/scenario"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Inspect scenario files",
}

var scenarioSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the scenario JSON schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Schema()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var scenarioValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate scenario files against the schema",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err == nil {
				err = scenario.Validate(data)
			}
			if err == nil {
				_, err = scenario.Load(path)
			}
			if err != nil {
				cli.PrintError("%s: %v", path, err)
				failed++
				continue
			}
			cli.PrintSuccess("%s", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	scenarioCmd.AddCommand(scenarioSchemaCmd)
	scenarioCmd.AddCommand(scenarioValidateCmd)
}
