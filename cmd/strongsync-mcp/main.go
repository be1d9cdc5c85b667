package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/strongsync/internal/ingest/strong"
	strongmcp "github.com/claude/strongsync/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	remote := flag.String("remote", "", "StrongSync server URL for workout queries (e.g. https://strongsync.tail1234.ts.net)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("strongsync-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds strongmcp.DataSource
	if *remote != "" {
		ds = strongmcp.NewHTTPClient(*remote)
		log.Info("using remote data source", "url", *remote)
	} else {
		log.Info("no -remote given, only parse_strong_workout is available")
	}

	s := strongmcp.New(ds, strong.NewParser(log, nil), Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp stdio server error", "error", err)
		os.Exit(1)
	}
}
