package main

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/oanda"
	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

// Application states.
const (
	StateStreamSelect = iota
	StateInstrumentInput
	StateDataDisplay
)

// maxTransactions is how many transactions the display keeps.
const maxTransactions = 20

// Streamer opens the streams shown by the model.
type Streamer interface {
	Prices(ctx context.Context, instruments []string, hook stream.StateHook) (iter.Seq2[types.ClientPrice, error], error)
	Transactions(ctx context.Context, hook stream.StateHook) (iter.Seq2[types.Transaction, error], error)
}

// clientStreamer opens streams through an OANDA client.
type clientStreamer struct {
	client *oanda.Client
}

func (c clientStreamer) Prices(ctx context.Context, instruments []string, hook stream.StateHook) (iter.Seq2[types.ClientPrice, error], error) {
	s, err := c.client.PricingStream(instruments, stream.WithStateHook(hook))
	if err != nil {
		return nil, err
	}

	return s.All(ctx), nil
}

func (c clientStreamer) Transactions(ctx context.Context, hook stream.StateHook) (iter.Seq2[types.Transaction, error], error) {
	s, err := c.client.TransactionStream(stream.WithStateHook(hook))
	if err != nil {
		return nil, err
	}

	return s.All(ctx), nil
}

// Model is the Bubble Tea model of the watch command.
type Model struct {
	state           int
	streamList      list.Model
	instrumentInput textinput.Model
	priceTable      table.Model
	prices          map[string]types.ClientPrice
	prevBids        map[string]decimal.Decimal
	transactions    []string
	instruments     []string
	kind            string
	connState       stream.State
	attempt         int
	err             error
	width           int
	height          int

	streamer     Streamer
	streamCancel context.CancelFunc
	events       <-chan tea.Msg
}

// NewModel creates a Model that opens streams through streamer.
func NewModel(streamer Streamer) Model {
	return Model{
		state:           StateStreamSelect,
		streamList:      NewStreamList(),
		instrumentInput: NewInstrumentInput(),
		priceTable:      NewPriceTable(),
		prices:          make(map[string]types.ClientPrice),
		prevBids:        make(map[string]decimal.Decimal),
		connState:       stream.StateIdle,
		streamer:        streamer,
	}
}

// WithPrices returns m set up to stream prices for instruments as soon as it
// starts.
func (m Model) WithPrices(instruments []string) Model {
	m.kind = streamPrices
	m.instruments = instruments
	m.state = StateDataDisplay

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.state == StateDataDisplay {
		return func() tea.Msg { return StreamStartedMsg{} }
	}

	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.stopStreaming()

			return m, tea.Quit
		case "q":
			if m.state != StateInstrumentInput {
				m.stopStreaming()

				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.streamList.SetSize(msg.Width, msg.Height-4)
		m.priceTable.SetWidth(msg.Width)
		m.priceTable.SetHeight(msg.Height - 6)

		return m, nil

	case StreamStartedMsg:
		return m.startStreaming()

	case PriceMsg:
		if instrument := msg.Price.Instrument; instrument.IsSome() {
			if existing, ok := m.prices[instrument.Unwrap()]; ok {
				if bid, _, ok := existing.TopOfBook(); ok {
					m.prevBids[instrument.Unwrap()] = bid
				}
			}

			m.prices[instrument.Unwrap()] = msg.Price
			m.priceTable = UpdatePriceRows(m.priceTable, m.prices, m.prevBids)
		}

		return m, waitForStreamMsg(m.events)

	case TransactionMsg:
		m.transactions = append(m.transactions, FormatTransaction(msg.Transaction))
		if len(m.transactions) > maxTransactions {
			m.transactions = m.transactions[len(m.transactions)-maxTransactions:]
		}

		return m, waitForStreamMsg(m.events)

	case ConnectionStateMsg:
		m.connState = msg.Transition.To
		m.attempt = msg.Transition.Attempt

		return m, waitForStreamMsg(m.events)

	case StreamErrorMsg:
		m.err = msg.Err

		return m, waitForStreamMsg(m.events)

	case StreamEndedMsg:
		// A stream replaced through Esc may end after its successor started.
		if msg.source == m.events {
			m.connState = stream.StateTerminated
		}

		return m, nil
	}

	switch m.state {
	case StateStreamSelect:
		return m.updateStreamSelect(msg)
	case StateInstrumentInput:
		return m.updateInstrumentInput(msg)
	case StateDataDisplay:
		return m.updateDataDisplay(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateInstrumentInput:
		m.state = StateStreamSelect
	case StateDataDisplay:
		m.stopStreaming()
		m.prices = make(map[string]types.ClientPrice)
		m.prevBids = make(map[string]decimal.Decimal)
		m.transactions = nil
		m.instruments = nil
		m.connState = stream.StateIdle
		m.attempt = 0
		m.err = nil
		m.instrumentInput.Reset()
		m.state = StateStreamSelect
	}

	return m, nil
}

func (m Model) updateStreamSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if item, ok := m.streamList.SelectedItem().(listItem); ok {
			m.kind = item.name

			if item.name == streamTransactions {
				m.state = StateDataDisplay

				return m.startStreaming()
			}

			m.state = StateInstrumentInput
			m.instrumentInput.Focus()

			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.streamList, cmd = m.streamList.Update(msg)

	return m, cmd
}

func (m Model) updateInstrumentInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		instruments := ParseInstruments(m.instrumentInput.Value())
		if len(instruments) > 0 {
			m.instruments = instruments
			m.state = StateDataDisplay
			m.instrumentInput.Blur()

			return m.startStreaming()
		}
	}

	var cmd tea.Cmd
	m.instrumentInput, cmd = m.instrumentInput.Update(msg)

	return m, cmd
}

func (m Model) updateDataDisplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.priceTable, cmd = m.priceTable.Update(msg)

	return m, cmd
}

// startStreaming opens the selected stream on a goroutine that feeds m.events.
func (m Model) startStreaming() (tea.Model, tea.Cmd) {
	m.stopStreaming()

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan tea.Msg)

	m.streamCancel = cancel
	m.events = events
	m.connState = stream.StateConnecting
	m.err = nil

	go pumpStream(ctx, m.streamer, m.kind, m.instruments, events)

	return m, waitForStreamMsg(events)
}

func (m *Model) stopStreaming() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
}

// pumpStream forwards stream events as messages until ctx is cancelled or the
// stream ends, then closes events.
func pumpStream(ctx context.Context, streamer Streamer, kind string, instruments []string, events chan<- tea.Msg) {
	defer close(events)

	send := func(msg tea.Msg) bool {
		select {
		case events <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	hook := func(t stream.Transition) {
		send(ConnectionStateMsg{Transition: t})
	}

	if kind == streamTransactions {
		seq, err := streamer.Transactions(ctx, hook)
		if err != nil {
			send(StreamErrorMsg{Err: err})

			return
		}

		for tx, err := range seq {
			if err != nil {
				send(StreamErrorMsg{Err: err})

				return
			}

			if !send(TransactionMsg{Transaction: tx}) {
				return
			}
		}

		return
	}

	seq, err := streamer.Prices(ctx, instruments, hook)
	if err != nil {
		send(StreamErrorMsg{Err: err})

		return
	}

	for price, err := range seq {
		if err != nil {
			send(StreamErrorMsg{Err: err})

			return
		}

		if !send(PriceMsg{Price: price}) {
			return
		}
	}
}

// waitForStreamMsg blocks for the next stream message.
func waitForStreamMsg(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}

	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return StreamEndedMsg{source: events}
		}

		return msg
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateStreamSelect:
		s.WriteString(TitleStyle.Render("OANDA - Live Streams"))
		s.WriteString("\n\n")
		s.WriteString(m.streamList.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to select, q to quit"))

	case StateInstrumentInput:
		s.WriteString(TitleStyle.Render("Enter Instruments"))
		s.WriteString("\n\n")
		s.WriteString("Enter comma-separated instruments (e.g., USD_JPY,EUR_USD):\n\n")
		s.WriteString(m.instrumentInput.View())
		s.WriteString("\n\n")
		s.WriteString(HelpStyle.Render("Press Enter to confirm, Esc to go back"))

	case StateDataDisplay:
		s.WriteString(TitleStyle.Render("Live " + m.kind))
		s.WriteString("  ")
		s.WriteString(FormatConnectionState(m.connState, m.attempt))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		s.WriteString(m.dataView())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render(m.helpLine()))
	}

	return s.String()
}

func (m Model) dataView() string {
	if m.kind == streamTransactions {
		if len(m.transactions) == 0 {
			return "Waiting for transactions...\n"
		}

		return strings.Join(m.transactions, "\n") + "\n"
	}

	if len(m.prices) == 0 {
		return "Waiting for prices...\n"
	}

	return m.priceTable.View()
}

func (m Model) helpLine() string {
	if m.kind == streamTransactions {
		return "q: quit | Esc: back"
	}

	return fmt.Sprintf("q: quit | Esc: back | Streaming: %s", strings.Join(m.instruments, ", "))
}
