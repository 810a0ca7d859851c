package main

import (
	"sort"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/internal/types"
)

// listItem implements list.Item for the stream selection list.
type listItem struct {
	name        string
	description string
}

func (i listItem) Title() string       { return i.name }
func (i listItem) Description() string { return i.description }
func (i listItem) FilterValue() string { return i.name }

const (
	streamPrices       = "Prices"
	streamTransactions = "Transactions"
)

// NewStreamList creates the list used to pick a stream.
func NewStreamList() list.Model {
	items := []list.Item{
		listItem{name: streamPrices, description: "Live bid/ask for one or more instruments"},
		listItem{name: streamTransactions, description: "Orders, fills and cancels on the account"},
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select Stream"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// NewInstrumentInput creates the text input for instrument entry.
func NewInstrumentInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "USD_JPY,EUR_USD,GBP_USD"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "> "

	return ti
}

// NewPriceTable creates the table of latest prices.
func NewPriceTable() table.Model {
	columns := []table.Column{
		{Title: "Instrument", Width: 12},
		{Title: "Bid", Width: 14},
		{Title: "Ask", Width: 14},
		{Title: "Spread", Width: 10},
		{Title: "Tradeable", Width: 10},
		{Title: "Time", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdatePriceRows replaces the table rows with the latest price per instrument.
func UpdatePriceRows(t table.Model, prices map[string]types.ClientPrice, prevBids map[string]decimal.Decimal) table.Model {
	instruments := make([]string, 0, len(prices))
	for instrument := range prices {
		instruments = append(instruments, instrument)
	}

	sort.Strings(instruments)

	rows := make([]table.Row, 0, len(prices))

	for _, instrument := range instruments {
		p := prices[instrument]

		bid, ask, ok := p.TopOfBook()
		if !ok {
			continue
		}

		tradeable := "-"
		if p.Tradeable.IsSome() {
			tradeable = "no"
			if p.Tradeable.Unwrap() {
				tradeable = "yes"
			}
		}

		rows = append(rows, table.Row{
			instrument,
			FormatPriceWithColor(bid, prevBids[instrument]),
			ask.String(),
			ask.Sub(bid).String(),
			tradeable,
			p.Timestamp.UTC().Format("15:04:05"),
		})
	}

	t.SetRows(rows)

	return t
}
