package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
)

// runVision sends a text+image prompt and prints the response with its
// cost. The image is read from a local file and embedded inline.
func runVision(profilesPath, profileName string, args []string) int {
	fs := flag.NewFlagSet("vision", flag.ContinueOnError)

	var imagePath string
	fs.StringVar(&imagePath, "image", "", "path to the image file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if imagePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: caravel vision -image <path> <prompt>")
		return 2
	}

	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" {
		prompt = "What is in this image?"
	}

	client, err := newClient(profilesPath, profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if info := client.ModelInfo(); info != nil && !info.SupportsVision {
		fmt.Fprintf(os.Stderr, "warning: model %s is not known to support images\n", client.Profile().Model)
	}

	result, err := client.AskImage(context.Background(), prompt, imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Println(result.Response.Message.Content)
	fmt.Fprintln(os.Stderr, costStyle.Render(
		fmt.Sprintf("cost: $%.6f (total: $%.6f)", result.Cost, result.AccumulatedCost)))
	return 0
}
