package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/memosync/pkg/core"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)
)

// terminalNotifier prints status notifications with a colored marker.
type terminalNotifier struct {
	out io.Writer
}

func (n terminalNotifier) Notify(level core.Level, msg string) {
	var marker string
	switch level {
	case core.LevelSuccess:
		marker = successStyle.Render("✓")
	case core.LevelWarning:
		marker = warningStyle.Render("!")
	case core.LevelError:
		marker = errorStyle.Render("✗")
	default:
		marker = infoStyle.Render("•")
	}
	fmt.Fprintf(n.out, "%s %s\n", marker, msg)
}
