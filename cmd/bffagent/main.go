// Command bffagent runs the chat proxy and the terminal chat client.
package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/bffagent/bffagent/internal/cmd"
	"github.com/bffagent/bffagent/internal/server/handlers"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=..."
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "bffagent failed", err)
	}
}
