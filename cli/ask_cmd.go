package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/caravel-hq/caravel/llm"
)

// runAsk sends a single prompt and prints the response. The response is
// streamed incrementally when stdout is a terminal, buffered otherwise;
// -stream and -no-stream force either mode.
func runAsk(profilesPath, profileName string, args []string) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)

	var (
		system      string
		streamFlag  bool
		noStream    bool
		temperature float64
		showCost    bool
	)

	fs.StringVar(&system, "system", "", "system prompt to prepend")
	fs.BoolVar(&streamFlag, "stream", false, "force incremental streaming output")
	fs.BoolVar(&noStream, "no-stream", false, "force buffered output")
	fs.Float64Var(&temperature, "temperature", -1, "sampling temperature override (0-2)")
	fs.BoolVar(&showCost, "cost", false, "print the call cost after the response")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	prompt, err := readPrompt(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	client, err := newClient(profilesPath, profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	var opts []llm.AskOption
	if system != "" {
		opts = append(opts, llm.WithSystem(llm.SystemMessage(system)))
	}
	if temperature >= 0 {
		opts = append(opts, llm.WithTemperature(temperature))
	}

	stream := isTerminal()
	if streamFlag {
		stream = true
	}
	if noStream {
		stream = false
	}

	messages := []any{llm.UserMessage(prompt)}

	if stream {
		opts = append(opts, llm.WithDelta(func(delta string) {
			fmt.Print(delta)
		}))
		if _, err := client.Ask(context.Background(), messages, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
			return 1
		}
		fmt.Println()
	} else {
		text, err := client.Ask(context.Background(), messages, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Println(text)
	}

	if showCost {
		fmt.Fprintln(os.Stderr, costStyle.Render(client.Ledger().String()))
	}
	return 0
}

// readPrompt joins positional arguments into the prompt, falling back
// to stdin when none are given (piped input).
func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no prompt given (pass it as an argument or pipe it on stdin)")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("empty prompt on stdin")
	}
	return prompt, nil
}

// isTerminal returns true if stdout is connected to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
