// focusctl drives the audio focus stack from the command line.
//
// It runs scenario files against a real focus manager, serves a live manager
// over websocket and inspects the persistent focus journal.
//
// Usage:
//
//	focusctl simulate scenario.yaml          # Run a scenario and print the trace
//	focusctl simulate scenario.yaml -o json  # Print the trace as JSON
//	focusctl scenario schema                 # Print the scenario JSON schema
//	focusctl serve                           # Serve a manager on the context's address
//	focusctl journal list --limit 20         # Show recent focus events
//	focusctl config context use dev          # Switch to dev context
//
// Configuration is stored in ~/.audiofocus/focusctl/
package main

import (
	"os"

	"github.com/haivivi/audiofocus/cmd/focusctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
