package mockserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-oanda/internal/types"
	"github.com/rxtech-lab/argo-oanda/mocks"
)

func (s *MockOANDAServer) handlePricingStream(w http.ResponseWriter, r *http.Request) {
	instruments := splitInstruments(r.URL.Query().Get("instruments"))
	if len(instruments) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid value specified for 'instruments'")

		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")

		return
	}

	s.mu.Lock()
	s.connections++
	conn := s.connections
	s.mu.Unlock()

	// Each connection gets its own walk so reconnects see fresh prices.
	quotes := s.config.Quotes
	quotes.StartTime = s.config.Now().UTC()
	lines := mocks.NewQuoteGenerator(s.config.Seed+uint64(conn)).GenerateMultiInstrument(instruments, quotes)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()

	for sent, line := range lines {
		if s.config.DropAfter > 0 && sent >= s.config.DropAfter {
			return
		}

		if !pause(ctx, s.config.StreamInterval) {
			return
		}

		if _, err := w.Write([]byte(line)); err != nil {
			return
		}

		flusher.Flush()
		s.trackPrice([]byte(line))
	}

	s.heartbeat(ctx, w, flusher, func() any {
		return map[string]string{
			"type": "HEARTBEAT",
			"time": types.FormatTime(s.config.Now()),
		}
	})
}

func (s *MockOANDAServer) handleTransactionStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")

		return
	}

	lines := make(chan []byte, 64)

	s.subMu.Lock()
	s.subscribers[lines] = struct{}{}
	s.subMu.Unlock()

	defer func() {
		s.subMu.Lock()
		delete(s.subscribers, lines)
		s.subMu.Unlock()
	}()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case line := <-lines:
			if !writeLine(w, flusher, line) {
				return
			}
		case <-ticker.C:
			if !writeLine(w, flusher, mustMarshal(map[string]string{
				"type":              "HEARTBEAT",
				"lastTransactionID": s.lastTransactionID(),
				"time":              types.FormatTime(s.config.Now()),
			})) {
				return
			}
		}
	}
}

// heartbeat keeps an exhausted stream open until the client leaves.
func (s *MockOANDAServer) heartbeat(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, message func() any) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !writeLine(w, flusher, mustMarshal(message())) {
				return
			}
		}
	}
}

// trackPrice remembers the latest quote per instrument for order fills.
func (s *MockOANDAServer) trackPrice(line []byte) {
	price, err := types.ParseClientPrice(line)
	if err != nil || price.Instrument.IsNone() || len(price.Bids) == 0 || len(price.Asks) == 0 {
		return
	}

	s.SetPrice(price.Instrument.Unwrap(), price.Bids[0].Price, price.Asks[0].Price)
}

func (s *MockOANDAServer) lastTransactionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return strconv.FormatInt(s.transactionSeq, 10)
}

func writeLine(w http.ResponseWriter, flusher http.Flusher, line []byte) bool {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)

	if _, err := w.Write(append(buf, '\n')); err != nil {
		return false
	}

	flusher.Flush()

	return true
}

func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func splitInstruments(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}
