// Package cli provides common utilities for the audiofocus command-line tools.
//
// This package includes:
//   - Configuration management with named contexts, similar to kubectl
//   - Output formatting (JSON, YAML, raw) with optional jq filtering
//   - Terminal styles for traces and event streams
//   - slog setup from a level name
//
// Configuration is stored in ~/.audiofocus/<app>/config.yaml.
//
//	cfg, err := cli.LoadConfig("focusctl")
//	ctx, err := cfg.ResolveContext("")
//	cli.Output(events, cli.OutputOptions{Format: cli.FormatJSON, JQ: ".[].kind"})
package cli
