package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/caravel-hq/caravel/cli/tui"
)

// runChat starts the interactive chat TUI.
func runChat(profilesPath, profileName string, args []string) int {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !isTerminal() {
		fmt.Fprintln(os.Stderr, "error: chat requires an interactive terminal (use 'caravel ask' for piped input)")
		return 2
	}

	client, err := newClient(profilesPath, profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	p := tea.NewProgram(tui.New(client, profileName), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: chat session failed: %v\n", err)
		return 1
	}

	if total := client.Ledger().Accumulated(); total > 0 {
		fmt.Fprintln(os.Stderr, costStyle.Render(client.Ledger().String()))
	}
	return 0
}
