package main

import "github.com/charmbracelet/lipgloss"

var (
	bgDark    = lipgloss.Color("#0F172A")
	bgMedium  = lipgloss.Color("#1E293B")
	bgLight   = lipgloss.Color("#334155")
	primary   = lipgloss.Color("#8B5CF6")
	accent    = lipgloss.Color("#34D399")
	warn      = lipgloss.Color("#F59E0B")
	danger    = lipgloss.Color("#EF4444")
	textMain  = lipgloss.Color("#F8FAFC")
	textMuted = lipgloss.Color("#94A3B8")
)

var (
	appStyle = lipgloss.NewStyle().
			Background(bgDark).
			Foreground(textMain).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(primary).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 2).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(primary).
			Bold(true)

	resourceBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(bgLight).
				Padding(0, 1).
				MarginRight(1)

	holderStyle = lipgloss.NewStyle().Foreground(accent)

	waitingStyle = lipgloss.NewStyle().Foreground(warn)

	suspendedStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(bgMedium).
			Foreground(textMuted).
			Padding(0, 1)
)
