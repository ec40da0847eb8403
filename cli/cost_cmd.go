package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caravel-hq/caravel/config"
	"github.com/caravel-hq/caravel/llm"
)

// runCost estimates what a prompt would cost for the selected profile's
// model without sending anything. Token counts can be given explicitly
// with -input/-output; otherwise the input side is estimated from the
// prompt text.
func runCost(profilesPath, profileName string, args []string) int {
	fs := flag.NewFlagSet("cost", flag.ContinueOnError)

	var (
		inputTokens  int
		outputTokens int
	)
	fs.IntVar(&inputTokens, "input", 0, "input token count (overrides the prompt estimate)")
	fs.IntVar(&outputTokens, "output", 0, "expected output token count")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(profilesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	profile := cfg.Profile(profileName)

	catalog := llm.DefaultCatalog()
	info, ok := catalog.Lookup(profile.Model)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: no pricing information for model %q\n", profile.Model)
		return 1
	}

	if inputTokens == 0 {
		prompt := strings.Join(fs.Args(), " ")
		if prompt == "" {
			fmt.Fprintln(os.Stderr, "Usage: caravel cost [-input N] [-output N] <prompt>")
			return 2
		}
		inputTokens = llm.EstimateTokens([]llm.Message{llm.UserMessage(prompt)})
	}

	usage := llm.Usage{
		PromptTokens:     int64(inputTokens),
		CompletionTokens: int64(outputTokens),
	}
	cost, err := catalog.Cost(profile.Model, usage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Printf("%s %s\n", labelStyle.Render("model:"), info.ID)
	fmt.Printf("%s %d in / %d out (input estimated at ~4 chars per token)\n",
		labelStyle.Render("tokens:"), inputTokens, outputTokens)
	fmt.Printf("%s $%.2f in / $%.2f out per 1M tokens\n",
		labelStyle.Render("pricing:"), info.InputCostPer1M, info.OutputCostPer1M)
	fmt.Printf("%s $%.6f\n", labelStyle.Render("estimate:"), cost)
	return 0
}
