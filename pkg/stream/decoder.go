package stream

import (
	"bytes"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// KeepAliveMarker identifies heartbeat lines. It is matched case-insensitively
// anywhere in the line.
const KeepAliveMarker = "HEARTBEAT"

var keepAliveMarker = []byte(KeepAliveMarker)

// DecodeFunc turns one raw stream line into a domain event. Implementations
// return an error carrying errors.ErrCodeUnknownType for a well-formed message
// whose type discriminant they do not recognize.
type DecodeFunc[E any] func(raw []byte) (E, error)

// LineKind is the result class of decoding one line.
type LineKind int

const (
	LineSkip LineKind = iota
	LineEvent
	LineParseError
)

func (k LineKind) String() string {
	switch k {
	case LineSkip:
		return "skip"
	case LineEvent:
		return "event"
	case LineParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Decoded is the outcome of DecodeLine. Event is set only for LineEvent.
// Err is set for LineParseError, and for a LineSkip caused by an unrecognized
// message type so the caller can warn about it.
type Decoded[E any] struct {
	Kind  LineKind
	Event E
	Err   error
}

// IsKeepAlive reports whether line is empty, whitespace only, or carries the
// keep-alive marker.
func IsKeepAlive(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return true
	}

	return containsFold(trimmed, keepAliveMarker)
}

// DecodeLine classifies one line and, unless it is a keep-alive, decodes it.
func DecodeLine[E any](line []byte, decode DecodeFunc[E]) Decoded[E] {
	if IsKeepAlive(line) {
		return Decoded[E]{Kind: LineSkip}
	}

	event, err := decode(bytes.TrimSpace(line))
	if err != nil {
		if errors.HasCodeInChain(err, errors.ErrCodeUnknownType) {
			return Decoded[E]{Kind: LineSkip, Err: err}
		}

		return Decoded[E]{
			Kind: LineParseError,
			Err:  errors.Wrap(errors.ErrCodeStreamParseFailed, "failed to decode stream line", err),
		}
	}

	return Decoded[E]{Kind: LineEvent, Event: event}
}

// containsFold is a case-insensitive bytes.Contains for an ASCII needle.
func containsFold(s, needle []byte) bool {
	n := len(needle)
	for i := 0; i+n <= len(s); i++ {
		if bytes.EqualFold(s[i:i+n], needle) {
			return true
		}
	}

	return false
}
