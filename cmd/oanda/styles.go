package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	reconnectingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	stoppedStyle      = lipgloss.NewStyle().Faint(true)
)

// FormatPriceWithColor appends an arrow when current moved away from previous.
func FormatPriceWithColor(current, previous decimal.Decimal) string {
	priceStr := current.String()

	if previous.IsZero() {
		return priceStr
	}

	switch current.Cmp(previous) {
	case 1:
		return priceStr + " ▲"
	case -1:
		return priceStr + " ▼"
	default:
		return priceStr
	}
}

// FormatConnectionState renders the connection badge shown in the header.
func FormatConnectionState(state stream.State, attempt int) string {
	switch state {
	case stream.StateStreaming:
		return connectedStyle.Render("● streaming")
	case stream.StateConnecting:
		return reconnectingStyle.Render("○ connecting")
	case stream.StateBackingOff:
		return reconnectingStyle.Render("○ reconnecting (attempt " + strconv.Itoa(attempt) + ")")
	case stream.StateTerminated:
		return stoppedStyle.Render("■ stopped")
	default:
		return stoppedStyle.Render("○ idle")
	}
}
