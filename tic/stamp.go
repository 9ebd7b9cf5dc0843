package tic

import (
	"time"

	"github.com/juju/errors"
)

// StampLength is the fixed size of a standard dialect timestamp field:
// season letter plus yymmddhhmmss.
const StampLength = 13

// Stamp is a raw meter timestamp, validated on parse.
type Stamp string

func ParseStamp(s string) (Stamp, error) {
	if len(s) != StampLength {
		return "", errors.NotValidf("timestamp=%q length", s)
	}
	switch s[0] {
	case 'H', 'h', 'E', 'e': // winter/summer, lowercase = degraded meter clock
	default:
		return "", errors.NotValidf("timestamp=%q season", s)
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return "", errors.NotValidf("timestamp=%q digits", s)
		}
	}
	return Stamp(s), nil
}

func (s Stamp) Summer() bool { return len(s) == StampLength && (s[0] == 'E' || s[0] == 'e') }

func (s Stamp) Time() (time.Time, error) {
	t, err := time.ParseInLocation("060102150405", string(s[1:]), time.Local)
	return t, errors.Trace(err)
}

func (s Stamp) String() string { return string(s) }
