package tic

import (
	"strconv"

	"github.com/juju/errors"
)

// CutReason is the breaker state encoded in STGE bits 1-3.
type CutReason uint8

const (
	CutClosed CutReason = iota
	CutOverPower
	CutOverVoltage
	CutLoadShedding
	CutOnCPL
	CutOverHeatHighCurrent
	CutOverHeatLowCurrent
	CutUnknown
)

func (c CutReason) String() string {
	switch c {
	case CutClosed:
		return "closed"
	case CutOverPower:
		return "over-power"
	case CutOverVoltage:
		return "over-voltage"
	case CutLoadShedding:
		return "load-shedding"
	case CutOnCPL:
		return "on-cpl"
	case CutOverHeatHighCurrent:
		return "over-heat-high-current"
	case CutOverHeatLowCurrent:
		return "over-heat-low-current"
	}
	return "unknown"
}

// Register is the decoded STGE meter status word.
type Register struct {
	Raw         uint32
	RelayOpen   bool
	Cut         CutReason
	DoorOpen    bool
	OverVoltage bool
	OverPower   bool
	Producer    bool // supplier mode: produces energy
	Injecting   bool // active energy direction is outbound
}

// ParseRegister decodes the 8 hex digit STGE payload.
func ParseRegister(data string) (Register, error) {
	if len(data) != 8 {
		return Register{}, errors.NotValidf("STGE data=%q length", data)
	}
	raw, err := strconv.ParseUint(data, 16, 32)
	if err != nil {
		return Register{}, errors.NotValidf("STGE data=%q not hex", data)
	}

	v := uint32(raw)
	r := Register{
		Raw:         v,
		RelayOpen:   v&1 == 1,
		DoorOpen:    v>>4&1 == 1,
		OverVoltage: v>>6&1 == 1,
		OverPower:   v>>7&1 == 1,
		Producer:    v>>8&1 == 1,
		Injecting:   v>>9&1 == 1,
	}
	if cut := v >> 1 & 0x7; cut <= uint32(CutOverHeatLowCurrent) {
		r.Cut = CutReason(cut)
	} else {
		r.Cut = CutUnknown
	}
	return r, nil
}
