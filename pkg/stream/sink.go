package stream

import (
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-oanda/internal/logger"
)

// Severity of a Report.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Report is a non-fatal condition observed while streaming: a line that failed to
// decode, an unknown message type, or a reconnect.
type Report struct {
	Severity Severity
	Message  string
	// Line is the raw line for decode reports, nil otherwise.
	Line []byte
	Err  error
}

// ErrorSink receives reports. It is called from the streaming goroutine and must
// not block.
type ErrorSink func(Report)

// LogSink writes reports through l.
func LogSink(l *logger.Logger) ErrorSink {
	return func(r Report) {
		fields := make([]zap.Field, 0, 2)
		if r.Line != nil {
			fields = append(fields, zap.ByteString("line", r.Line))
		}

		if r.Err != nil {
			fields = append(fields, zap.Error(r.Err))
		}

		switch r.Severity {
		case SeverityInfo:
			l.Info(r.Message, fields...)
		case SeverityWarning:
			l.Warn(r.Message, fields...)
		default:
			l.Error(r.Message, fields...)
		}
	}
}

// Tee fans a report out to every sink.
func Tee(sinks ...ErrorSink) ErrorSink {
	return func(r Report) {
		for _, sink := range sinks {
			if sink != nil {
				sink(r)
			}
		}
	}
}
