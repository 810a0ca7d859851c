package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/pkg/stream"
)

// PriceMsg carries a price from the pricing stream.
type PriceMsg struct {
	Price types.ClientPrice
}

// TransactionMsg carries a transaction from the transaction stream.
type TransactionMsg struct {
	Transaction types.Transaction
}

// ConnectionStateMsg reports a connection state change.
type ConnectionStateMsg struct {
	Transition stream.Transition
}

// StreamErrorMsg carries the terminal error of a stream.
type StreamErrorMsg struct {
	Err error
}

// StreamStartedMsg signals that streaming has begun.
type StreamStartedMsg struct{}

// StreamEndedMsg signals that the stream goroutine has exited.
type StreamEndedMsg struct {
	source <-chan tea.Msg
}
