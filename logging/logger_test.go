package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/veilberry/types"
)

func TestTextLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, slog.LevelInfo)

	logger.Info("transition executed",
		Program("auction.aleo"),
		Transition("place_bid"),
		Caller("aleo1bidder"),
		Count(2),
	)

	out := buf.String()
	assert.Contains(t, out, "transition executed")
	assert.Contains(t, out, "program=auction.aleo")
	assert.Contains(t, out, "transition=place_bid")
	assert.Contains(t, out, "caller=aleo1bidder")
	assert.Contains(t, out, "count=2")
}

func TestJSONLogger_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, slog.LevelInfo)

	logger.Info("finalize applied", Mapping("account"), Version(3))

	out := buf.String()
	assert.Contains(t, out, `"mapping":"account"`)
	assert.Contains(t, out, `"version":3`)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, slog.LevelInfo)

	logger.Debug("should be filtered")
	assert.Empty(t, buf.String())
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, slog.LevelInfo).
		WithComponent("executor").
		WithProgram("token.aleo")

	logger.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "component=executor")
	assert.Contains(t, out, "program=token.aleo")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	require.NotNil(t, logger)
	logger.Info("discarded") // must not panic
}

func TestAttributes(t *testing.T) {
	ref := types.RecordRef{0xab, 0xcd}
	attr := RecordRef(ref)
	assert.Equal(t, "record", attr.Key)

	assert.Equal(t, "none", ErrorKind(nil).Value.String())
	assert.Equal(t, "already_spent", ErrorKind(types.ErrAlreadySpent).Value.String())

	assert.Equal(t, slog.Attr{}, Error(nil))
	assert.Equal(t, assert.AnError.Error(), Error(assert.AnError).Value.String())

	d := Duration(1500 * time.Millisecond)
	assert.Equal(t, "duration_ms", d.Key)
}
