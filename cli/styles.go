package main

import "github.com/charmbracelet/lipgloss"

var (
	costStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#88C0D0"))
)
