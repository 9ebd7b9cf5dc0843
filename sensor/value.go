package sensor

import (
	"fmt"
	"strconv"

	"github.com/juju/errors"

	"github.com/temoto/teleinfo/tic"
)

// Value is one decoded sensor reading. Which fields are meaningful
// depends on Kind.
type Value struct {
	Kind   Kind
	Int    int64
	Str    string
	Status tic.Register
	Stamp  tic.Stamp
}

// Equal is the change detection predicate: exact equality of the
// decoded representation.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindString, KindEnum:
		return v.Str == o.Str
	case KindStatus:
		return v.Status.Raw == o.Status.Raw
	case KindStamped:
		return v.Stamp == o.Stamp && v.Int == o.Int
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindString, KindEnum:
		return v.Str
	case KindStatus:
		return fmt.Sprintf("%08x", v.Status.Raw)
	case KindStamped:
		return fmt.Sprintf("%s@%s", strconv.FormatInt(v.Int, 10), v.Stamp)
	}
	return "(invalid)"
}

// Decode parses one validated line payload according to the
// definition's kind. Errors here never touch the previously stored
// value.
func Decode(def *Definition, line tic.Line) (Value, error) {
	switch def.Kind {
	case KindInt:
		n, err := strconv.ParseInt(line.Data, 10, 64)
		if err != nil {
			return Value{}, errors.NotValidf("sensor=%s data=%q not integer", def.Label, line.Data)
		}
		return Value{Kind: KindInt, Int: n}, nil

	case KindString:
		return Value{Kind: KindString, Str: line.Data}, nil

	case KindEnum:
		for _, allowed := range def.Enum {
			if line.Data == allowed {
				return Value{Kind: KindEnum, Str: line.Data}, nil
			}
		}
		return Value{}, errors.NotValidf("sensor=%s data=%q not in enum", def.Label, line.Data)

	case KindStatus:
		reg, err := tic.ParseRegister(line.Data)
		if err != nil {
			return Value{}, errors.Annotatef(err, "sensor=%s", def.Label)
		}
		return Value{Kind: KindStatus, Status: reg}, nil

	case KindStamped:
		if line.Stamp == "" {
			return Value{}, errors.NotValidf("sensor=%s missing timestamp", def.Label)
		}
		v := Value{Kind: KindStamped, Stamp: line.Stamp}
		if line.Data != "" {
			n, err := strconv.ParseInt(line.Data, 10, 64)
			if err != nil {
				return Value{}, errors.NotValidf("sensor=%s data=%q not integer", def.Label, line.Data)
			}
			v.Int = n
		}
		return v, nil
	}
	return Value{}, errors.Errorf("code error sensor=%s kind=%v", def.Label, def.Kind)
}
