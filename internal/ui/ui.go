// Package ui provides terminal styling and output helpers for the
// docstore CLI, adapted from the teacher's internal/ui: the same
// color-detection conventions (NO_COLOR, CLICOLOR, CLICOLOR_FORCE) and
// lipgloss table rendering, swapped from golang.org/x/term's raw TTY
// check to go-isatty, which the charmbracelet stack already pulls in.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var (
	ColorAccent = lipgloss.Color("39")
	ColorWarn   = lipgloss.Color("214")
	ColorPass   = lipgloss.Color("42")
	ColorMuted  = lipgloss.Color("244")
)

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Align(lipgloss.Center)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	HintStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	BorderStyle = lipgloss.NewStyle().Foreground(ColorMuted)
)

// IsTerminal returns true if stdout is connected to a terminal.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// ShouldUseColor follows the same conventions as the teacher's CLI:
// NO_COLOR and CLICOLOR=0 disable color, CLICOLOR_FORCE forces it on,
// otherwise color tracks whether stdout is a TTY whose terminal
// profile (per termenv's own NO_COLOR-aware detection) supports ANSI
// sequences at all.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	return IsTerminal() && termenv.EnvColorProfile() != termenv.Ascii
}

// NewTable creates a rounded-border table styled like the teacher's
// NewSearchTable, with its own column headers supplied by the caller.
func NewTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(BorderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return lipgloss.NewStyle()
		})
}

// RenderConflictedDocuments renders a conflicts table for the CLI's
// "conflicts" subcommand, or a short success line if there are none.
func RenderConflictedDocuments(docIDs []string) string {
	if len(docIDs) == 0 {
		return PassStyle.Render("no conflicted documents")
	}
	rows := make([][]string, len(docIDs))
	for i, id := range docIDs {
		rows[i] = []string{id}
	}
	return NewTable("document id").Rows(rows...).String()
}
