package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caravel-hq/caravel/config"
	"github.com/caravel-hq/caravel/llm"
	"github.com/caravel-hq/caravel/server"
)

// runServe starts the MCP tool server on stdio. The profiles file is
// watched for edits; a reload only affects clients created afterwards.
func runServe(profilesPath string, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	var (
		allowedPaths string
		noWatch      bool
	)
	fs.StringVar(&allowedPaths, "allowed-paths", "", "comma-separated list of allowed workspace paths")
	fs.BoolVar(&noWatch, "no-watch", false, "disable profiles file watching")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	var paths []string
	if allowedPaths != "" {
		for _, p := range strings.Split(allowedPaths, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				paths = append(paths, p)
			}
		}
	}

	cfg, err := config.Load(profilesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	registry := llm.NewRegistry(cfg)

	if !noWatch {
		watcher, err := config.Watch(profilesPath, 500*time.Millisecond)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: profiles watcher unavailable: %v\n", err)
		} else {
			defer watcher.Close()
			go func() {
				for updated := range watcher.Changes() {
					registry.SetConfig(updated)
				}
			}()
		}
	}

	srv := server.New(version, paths, registry)
	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "error: MCP server failed: %v\n", err)
		return 2
	}
	return 0
}
