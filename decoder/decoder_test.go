package decoder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/sensor"
	"github.com/temoto/teleinfo/tic"
)

func testDecoder(t testing.TB, d tic.Dialect) (*Decoder, *[]sensor.Event) {
	reg, err := sensor.NewRegistry(sensor.Builtin(d))
	require.NoError(t, err)
	events := new([]sensor.Event)
	dec := NewDecoder(d, reg, func(e sensor.Event) { *events = append(*events, e) }, log2.NewTest(t, log2.LError))
	return dec, events
}

func frameHistoric(label, data string) []byte {
	span := fmt.Sprintf("%s %s", label, data)
	return []byte(fmt.Sprintf("\x02\x0a%s %c\x0d\x03", span, tic.Checksum([]byte(span))))
}

func frameStandard(label, stamp, data string) []byte {
	span := label + "\t"
	if stamp != "" {
		span += stamp + "\t"
	}
	span += data + "\t"
	return []byte(fmt.Sprintf("\x02\x0a%s%c\x0d\x03", span, tic.Checksum([]byte(span))))
}

func TestFeedHappyPath(t *testing.T) {
	t.Parallel()

	dec, events := testDecoder(t, tic.DialectHistoric)
	st := dec.NewStream("test")
	st.Feed([]byte("\x02\x0aENERGY 012345 \x39\x0d\x03"))

	require.Len(t, *events, 1)
	assert.Equal(t, "ENERGY", (*events)[0].Label)
	assert.Equal(t, int64(12345), (*events)[0].Value.Int)
	assert.Equal(t, sensor.ReasonChanged, (*events)[0].Reason)

	snap, ok := dec.Store().Get("ENERGY")
	require.True(t, ok)
	assert.Equal(t, int64(12345), snap.Value.Int)

	s := dec.Stat().Copy()
	assert.Equal(t, uint32(1), s.Frames)
	assert.Equal(t, uint32(1), s.Lines)
	assert.Equal(t, uint32(1), s.Events)
}

func TestFeedFlippedChecksum(t *testing.T) {
	t.Parallel()

	dec, events := testDecoder(t, tic.DialectHistoric)
	st := dec.NewStream("test")
	st.Feed(frameHistoric("ENERGY", "012345"))
	require.Len(t, *events, 1)

	// same payload, corrupted checksum: counted, value untouched
	st.Feed([]byte("\x02\x0aENERGY 012399 \x39\x0d\x03"))
	assert.Len(t, *events, 1)
	assert.Equal(t, uint32(1), dec.Stat().Copy().ChecksumMismatch)
	snap, _ := dec.Store().Get("ENERGY")
	assert.Equal(t, int64(12345), snap.Value.Int)
}

func TestFeedIdempotent(t *testing.T) {
	t.Parallel()

	dec, events := testDecoder(t, tic.DialectHistoric)
	st := dec.NewStream("test")
	f := frameHistoric("ENERGY", "012345")
	st.Feed(f)
	st.Feed(f)
	st.Feed(f)
	assert.Len(t, *events, 1, "unchanged value must not re-emit")

	st.Feed(frameHistoric("ENERGY", "012346"))
	assert.Len(t, *events, 2)
}

func TestFeedUnknownLabel(t *testing.T) {
	t.Parallel()

	dec, events := testDecoder(t, tic.DialectHistoric)
	st := dec.NewStream("test")
	st.Feed(frameHistoric("NOPE42", "1"))
	assert.Len(t, *events, 0)
	s := dec.Stat().Copy()
	assert.Equal(t, uint32(1), s.Lines)
	assert.Equal(t, uint32(1), s.UnknownLabel)
	assert.Equal(t, 0, dec.Store().Len())
}

func TestFeedBadValueKeepsPrevious(t *testing.T) {
	t.Parallel()

	dec, _ := testDecoder(t, tic.DialectHistoric)
	st := dec.NewStream("test")
	st.Feed(frameHistoric("IINST", "023"))
	st.Feed(frameHistoric("IINST", "2x"))

	assert.Equal(t, uint32(1), dec.Stat().Copy().ParseFailure)
	snap, ok := dec.Store().Get("IINST")
	require.True(t, ok)
	assert.Equal(t, int64(23), snap.Value.Int)
}

func TestFeedStandardStamped(t *testing.T) {
	t.Parallel()

	dec, events := testDecoder(t, tic.DialectStandard)
	st := dec.NewStream("test")
	st.Feed(frameStandard("SMAXSN", "H231109111001", "00230"))

	require.Len(t, *events, 1)
	assert.Equal(t, sensor.KindStamped, (*events)[0].Value.Kind)
	assert.Equal(t, int64(230), (*events)[0].Value.Int)
	assert.Equal(t, tic.Stamp("H231109111001"), (*events)[0].Value.Stamp)
}

func TestFeedGarbageThenFrame(t *testing.T) {
	t.Parallel()

	dec, events := testDecoder(t, tic.DialectHistoric)
	st := dec.NewStream("test")
	st.Feed([]byte("\xff\xfenoise before any frame"))
	st.Feed(frameHistoric("PAPP", "00750"))

	require.Len(t, *events, 1)
	assert.Equal(t, "PAPP", (*events)[0].Label)
}

func TestStreamClose(t *testing.T) {
	t.Parallel()

	dec, events := testDecoder(t, tic.DialectHistoric)
	st := dec.NewStream("test")
	// chunk ends mid-line, then the stream closes
	st.Feed([]byte("\x02\x0aENERGY 0123"))
	st.Close()
	// the tail would have completed the line; must be ignored
	st.Feed([]byte("45 \x39\x0d\x03"))

	assert.Len(t, *events, 0)
	assert.Equal(t, 0, dec.Store().Len())
	st.Close() // second close is a no-op
}

func TestStreamsIsolated(t *testing.T) {
	t.Parallel()

	dec, events := testDecoder(t, tic.DialectHistoric)
	a := dec.NewStream("a")
	b := dec.NewStream("b")
	// partial frame on a does not disturb a complete frame on b
	a.Feed([]byte("\x02\x0aENERGY 0123"))
	b.Feed(frameHistoric("PAPP", "00750"))

	require.Len(t, *events, 1)
	assert.Equal(t, "PAPP", (*events)[0].Label)

	a.Feed([]byte("45 \x39\x0d\x03"))
	require.Len(t, *events, 2)
	assert.Equal(t, "ENERGY", (*events)[1].Label)
}
