// Package sensor holds the configured catalog of meter sensors, the
// latest-value store with change detection and the forced-cycle
// scheduler. All mutation goes through Store.
package sensor

import "github.com/juju/errors"

type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt          // decimal integer payload
	KindString       // free text payload
	KindEnum         // payload restricted to configured values
	KindStatus       // STGE status register, 8 hex digits
	KindStamped      // timestamped integer, standard dialect only
)

func ParseKind(s string) (Kind, error) {
	switch s {
	case "int":
		return KindInt, nil
	case "string":
		return KindString, nil
	case "enum":
		return KindEnum, nil
	case "status":
		return KindStatus, nil
	case "stamped":
		return KindStamped, nil
	}
	return KindInvalid, errors.NotValidf("sensor kind=%s only int|string|enum|status|stamped", s)
}

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindStatus:
		return "status"
	case KindStamped:
		return "stamped"
	}
	return "invalid"
}
