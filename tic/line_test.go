package tic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkline builds a wire-correct line payload for dialect d.
func mkline(d Dialect, label, stamp, data string) []byte {
	sep := string(d.Sep())
	s := label + sep
	if stamp != "" {
		s += stamp + sep
	}
	s += data + sep
	var span []byte
	if d == DialectStandard {
		span = []byte(s)
	} else {
		span = []byte(s[:len(s)-1])
	}
	return append([]byte(s), Checksum(span))
}

func TestChecksumKnown(t *testing.T) {
	t.Parallel()

	// hand-computed anchors, not derived via Checksum()
	assert.Equal(t, byte(0x39), Checksum([]byte("ENERGY 012345")))
	assert.Equal(t, byte('L'), Checksum([]byte("SINSTS\t00123\t")))
}

func TestParseLineHistoric(t *testing.T) {
	t.Parallel()

	line, err := ParseLine([]byte("ENERGY 012345 9"), DialectHistoric)
	require.NoError(t, err)
	assert.Equal(t, Line{Label: "ENERGY", Data: "012345"}, line)
}

func TestParseLineStandard(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		raw    []byte
		expect Line
	}{
		{"plain", mkline(DialectStandard, "SINSTS", "", "00123"),
			Line{Label: "SINSTS", Data: "00123"}},
		{"stamped", mkline(DialectStandard, "SMAXSN", "H231109111001", "00020"),
			Line{Label: "SMAXSN", Stamp: "H231109111001", Data: "00020"}},
		{"stamped empty data", mkline(DialectStandard, "DATE", "H231110100819", ""),
			Line{Label: "DATE", Stamp: "H231110100819", Data: ""}},
		{"data with spaces", mkline(DialectStandard, "LTARF", "", "H PLEINE"),
			Line{Label: "LTARF", Data: "H PLEINE"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			line, err := ParseLine(c.raw, DialectStandard)
			require.NoError(t, err)
			assert.Equal(t, c.expect, line)
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		d    Dialect
		raw  []byte
	}{
		{"too short", DialectHistoric, []byte("A 1")},
		{"historic three fields", DialectHistoric, []byte("A B C \x26")},
		{"standard bad stamp", DialectStandard, mkline(DialectStandard, "UMOY1", "", "231109111001\tX")},
		{"no separator", DialectHistoric, []byte("ENERGY-012345-9")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseLine(c.raw, c.d)
			assert.Error(t, err)
		})
	}
}

func TestParseLineFlippedChecksum(t *testing.T) {
	t.Parallel()

	for _, d := range []Dialect{DialectHistoric, DialectStandard} {
		t.Run(d.String(), func(t *testing.T) {
			raw := mkline(d, "NTARF", "", "01")
			raw[len(raw)-1] ^= 0x01
			_, err := ParseLine(raw, d)
			require.Error(t, err)
			assert.IsType(t, InvalidChecksum{}, err)
		})
	}
}

// A line valid under one dialect must never validate under the other.
func TestParseLineCrossDialect(t *testing.T) {
	t.Parallel()

	for _, labelData := range [][2]string{
		{"ENERGY", "012345"},
		{"NTARF", "01"},
		{"SINSTS", "00123"},
	} {
		label, data := labelData[0], labelData[1]
		t.Run(fmt.Sprintf("%s=%s", label, data), func(t *testing.T) {
			hist := mkline(DialectHistoric, label, "", data)
			std := mkline(DialectStandard, label, "", data)
			if _, err := ParseLine(hist, DialectHistoric); err != nil {
				t.Fatal(err)
			}
			if _, err := ParseLine(std, DialectStandard); err != nil {
				t.Fatal(err)
			}
			_, err := ParseLine(hist, DialectStandard)
			assert.Error(t, err)
			_, err = ParseLine(std, DialectHistoric)
			assert.Error(t, err)
		})
	}
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	d, err := ParseDialect("historic")
	require.NoError(t, err)
	assert.Equal(t, DialectHistoric, d)
	assert.Equal(t, byte(' '), d.Sep())
	assert.Equal(t, 1200, d.DefaultBaud())

	d, err = ParseDialect("standard")
	require.NoError(t, err)
	assert.Equal(t, DialectStandard, d)
	assert.Equal(t, byte('\t'), d.Sep())
	assert.Equal(t, 9600, d.DefaultBaud())

	_, err = ParseDialect("auto")
	assert.Error(t, err)
}
