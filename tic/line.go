package tic

import (
	"bytes"
	"fmt"
)

// Line is one tokenized label/data record of a frame.
// Stamp is empty except for timestamped labels in the standard dialect.
type Line struct {
	Label string
	Data  string
	Stamp Stamp
}

type InvalidChecksum struct {
	Received byte
	Actual   byte
}

func (self InvalidChecksum) Error() string {
	return fmt.Sprintf("invalid checksum received=%02x actual=%02x", self.Received, self.Actual)
}

type InvalidLine string

func (self InvalidLine) Error() string { return string(self) }

func invalidLinef(format string, args ...interface{}) InvalidLine {
	return InvalidLine(fmt.Sprintf(format, args...))
}

// Checksum is the TIC line checksum: byte sum over the dialect-defined
// span, kept to 6 bits, shifted into the printable range.
func Checksum(span []byte) byte {
	var sum uint32
	for _, b := range span {
		sum += uint32(b)
	}
	return byte(sum&0x3f) + 0x20
}

// ParseLine tokenizes and validates one line payload (the bytes
// between LF and CR, markers excluded).
//
// Historic:  label SP data SP chk     checksum span excludes " chk"
// Standard:  label HT [stamp HT] data HT chk   span excludes only chk
//
// A line from the other dialect fails here on the separator check;
// the two formats are never allowed to cross-validate.
func ParseLine(raw []byte, d Dialect) (Line, error) {
	sep := d.Sep()
	if len(raw) < 4 {
		return Line{}, invalidLinef("line too short raw=%q", raw)
	}
	chk := raw[len(raw)-1]
	if raw[len(raw)-2] != sep {
		return Line{}, invalidLinef("dialect=%s no separator before checksum raw=%q", d, raw)
	}

	span := raw[:len(raw)-2] // historic: checksum separator excluded
	if d == DialectStandard {
		span = raw[:len(raw)-1]
	}
	if actual := Checksum(span); actual != chk {
		return Line{}, InvalidChecksum{Received: chk, Actual: actual}
	}

	fields := bytes.Split(raw[:len(raw)-2], []byte{sep})
	switch {
	case len(fields) == 2:
		return Line{Label: string(fields[0]), Data: string(fields[1])}, nil

	case len(fields) == 3 && d == DialectStandard:
		stamp, err := ParseStamp(string(fields[1]))
		if err != nil {
			return Line{}, invalidLinef("label=%s bad timestamp field: %s", fields[0], err)
		}
		return Line{Label: string(fields[0]), Stamp: stamp, Data: string(fields[2])}, nil
	}
	return Line{}, invalidLinef("dialect=%s unexpected field count=%d raw=%q", d, len(fields), raw)
}
