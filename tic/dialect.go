// Package tic implements the wire level of the French meter
// "Téléinformation Client" protocol: frame assembly from a raw byte
// stream, line tokenizing and checksum validation for both the legacy
// historic dialect and the modern standard dialect.
//
// Reference: Enedis-NOI-CPT_54E.
package tic

import "github.com/juju/errors"

// Framing control bytes. A frame is STX lines ETX, each line is
// LF label sep data sep checksum CR. EOT aborts a frame mid-way.
const (
	STX = 0x02
	ETX = 0x03
	EOT = 0x04
	LF  = 0x0a
	CR  = 0x0d
)

type Dialect uint8

const (
	DialectHistoric Dialect = iota // 1200 baud, SP separator, no timestamps
	DialectStandard                // 9600 baud, HT separator, optional timestamps
)

func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "historic":
		return DialectHistoric, nil
	case "standard":
		return DialectStandard, nil
	}
	return DialectHistoric, errors.NotValidf("tic dialect=%s only historic|standard", s)
}

func (d Dialect) String() string {
	switch d {
	case DialectHistoric:
		return "historic"
	case DialectStandard:
		return "standard"
	}
	return "invalid"
}

// Sep returns the field separator byte on the wire.
func (d Dialect) Sep() byte {
	if d == DialectStandard {
		return 0x09
	}
	return 0x20
}

func (d Dialect) DefaultBaud() int {
	if d == DialectStandard {
		return 9600
	}
	return 1200
}
