package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

type tick struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`
}

// decodeTick accepts {"type":"TICK","seq":n} and flags any other type as unknown.
func decodeTick(raw []byte) (tick, error) {
	var t tick
	if err := json.Unmarshal(raw, &t); err != nil {
		return tick{}, errors.Wrap(errors.ErrCodeInvalidField, "bad tick", err)
	}

	if t.Type != "TICK" {
		return tick{}, errors.Newf(errors.ErrCodeUnknownType, "unknown type %q", t.Type)
	}

	return t, nil
}

type DecoderTestSuite struct {
	suite.Suite
}

func TestDecoderSuite(t *testing.T) {
	suite.Run(t, new(DecoderTestSuite))
}

func (suite *DecoderTestSuite) TestKeepAliveLinesAreSkipped() {
	lines := []string{
		"",
		"   ",
		"\r\n",
		"HEARTBEAT",
		"heartbeat",
		`{"type":"HEARTBEAT","time":"2025-03-24T15:34:25Z"}`,
		// Valid event JSON is still skipped when the marker appears anywhere.
		`{"type":"TICK","seq":1,"note":"HeartBeat"}`,
	}

	for _, line := range lines {
		suite.Run(line, func() {
			suite.True(IsKeepAlive([]byte(line)))

			decoded := DecodeLine([]byte(line), decodeTick)
			suite.Equal(LineSkip, decoded.Kind)
			suite.NoError(decoded.Err)
			suite.Equal(tick{}, decoded.Event)
		})
	}
}

func (suite *DecoderTestSuite) TestUnknownTypeIsSkippedWithWarning() {
	decoded := DecodeLine([]byte(`{"type":"PRICE_V2","seq":3}`), decodeTick)

	suite.Equal(LineSkip, decoded.Kind)
	suite.Error(decoded.Err)
	suite.True(errors.HasCodeInChain(decoded.Err, errors.ErrCodeUnknownType))
}

func (suite *DecoderTestSuite) TestUnknownTypeWrappedByDecoderIsSkipped() {
	wrapped := func(raw []byte) (tick, error) {
		t, err := decodeTick(raw)
		if err != nil {
			return tick{}, errors.Wrap(errors.ErrCodeInvalidField, "decode", err)
		}

		return t, nil
	}

	decoded := DecodeLine([]byte(`{"type":"OTHER"}`), wrapped)
	suite.Equal(LineSkip, decoded.Kind)
}

func (suite *DecoderTestSuite) TestMalformedLinesAreParseErrors() {
	lines := []string{
		"garbage",
		`{"type":"TICK","seq":`,
		`{"type":"TICK","seq":"one"}`,
		`[1,2]`,
	}

	for _, line := range lines {
		suite.Run(line, func() {
			decoded := DecodeLine([]byte(line), decodeTick)
			suite.Equal(LineParseError, decoded.Kind)
			suite.Equal(errors.ErrCodeStreamParseFailed, errors.GetCode(decoded.Err))
		})
	}
}

func (suite *DecoderTestSuite) TestValidLineIsEvent() {
	decoded := DecodeLine([]byte("  {\"type\":\"TICK\",\"seq\":7}\n"), decodeTick)

	suite.Equal(LineEvent, decoded.Kind)
	suite.NoError(decoded.Err)
	suite.Equal(tick{Type: "TICK", Seq: 7}, decoded.Event)
}

func (suite *DecoderTestSuite) TestLineKindString() {
	suite.Equal("skip", LineSkip.String())
	suite.Equal("event", LineEvent.String())
	suite.Equal("parse_error", LineParseError.String())
}
