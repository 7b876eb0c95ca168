// Command freshservice-mcp serves Freshservice tools and analytics to MCP
// clients over stdio.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("freshservice-mcp failed")
		os.Exit(1)
	}
}
