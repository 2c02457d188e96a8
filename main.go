// =============================================================================
// Bursar - Main Entry Point
// =============================================================================
//
// This is the main entry point for the bursar CLI application. It delegates
// command execution to the cmd package.
//
// USAGE:
//   bursar <file>             - Replay a transaction file, print accounts
//   bursar process <file>     - Same, with output and reject log options
//   bursar version            - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Ledger engine, parsers, validation, reporting
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/bursar/cmd"
)

func main() {
	cmd.Execute()
}
