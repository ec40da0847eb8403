// Package main is the entry point for the caravel CLI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/caravel-hq/caravel/config"
	"github.com/caravel-hq/caravel/llm"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the exit code.
// 0 = success, 1 = request failed, 2 = usage or setup error.
func run(args []string) int {
	fs := flag.NewFlagSet("caravel", flag.ContinueOnError)

	var (
		profilesPath string
		profileName  string
		verboseFlag  bool
		versionFlag  bool
	)

	fs.StringVar(&profilesPath, "profiles", defaultProfilesPath(), "path to the profiles YAML file")
	fs.StringVar(&profileName, "profile", config.DefaultProfileName, "profile name to use")
	fs.BoolVar(&verboseFlag, "verbose", false, "enable verbose logging")
	fs.BoolVar(&verboseFlag, "v", false, "enable verbose logging (shorthand)")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: caravel <command> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  ask <prompt>    Send a prompt and print the response\n")
		fmt.Fprintf(os.Stderr, "  chat            Start an interactive chat session\n")
		fmt.Fprintf(os.Stderr, "  vision <prompt> Ask about a local image\n")
		fmt.Fprintf(os.Stderr, "  serve           Start the MCP tool server on stdio\n")
		fmt.Fprintf(os.Stderr, "  cost <prompt>   Estimate the cost of a prompt\n")
		fmt.Fprintf(os.Stderr, "  version         Print version and exit\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	setupLogging(verboseFlag)

	if versionFlag {
		fmt.Printf("caravel %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		fs.Usage()
		return 2
	}

	command := remaining[0]
	switch command {
	case "ask":
		return runAsk(profilesPath, profileName, remaining[1:])
	case "chat":
		return runChat(profilesPath, profileName, remaining[1:])
	case "vision":
		return runVision(profilesPath, profileName, remaining[1:])
	case "serve":
		return runServe(profilesPath, remaining[1:])
	case "cost":
		return runCost(profilesPath, profileName, remaining[1:])
	case "version":
		fmt.Printf("caravel %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		fmt.Fprintln(os.Stderr, "Usage: caravel <command> [flags]")
		return 2
	}
}

// setupLogging routes structured logs to stderr so they never mix with
// command output on stdout.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// defaultProfilesPath honors CARAVEL_PROFILES, falling back to a
// caravel.yaml in the working directory.
func defaultProfilesPath() string {
	if p := os.Getenv("CARAVEL_PROFILES"); p != "" {
		return p
	}
	return "caravel.yaml"
}

// newClient loads the profiles file and builds a client for one profile.
func newClient(profilesPath, profileName string) (*llm.Client, error) {
	cfg, err := config.Load(profilesPath)
	if err != nil {
		return nil, err
	}
	return llm.New(cfg.Profile(profileName)), nil
}
