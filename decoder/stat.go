package decoder

import (
	"fmt"
	"sync/atomic"
)

// Stat counts decode outcomes across all streams of one Decoder.
// Fields are updated atomically; read a consistent-enough view with
// Copy. Malformed input never stops decoding, it lands here.
type Stat struct {
	Bytes            uint64
	Frames           uint32
	Lines            uint32
	ChecksumMismatch uint32
	UnknownLabel     uint32
	ParseFailure     uint32
	FramingDrop      uint32
	Events           uint32
}

func (self *Stat) addBytes(n int) { atomic.AddUint64(&self.Bytes, uint64(n)) }

func (self *Stat) add(p *uint32, n uint32) {
	if n != 0 {
		atomic.AddUint32(p, n)
	}
}

func (self *Stat) Copy() Stat {
	return Stat{
		Bytes:            atomic.LoadUint64(&self.Bytes),
		Frames:           atomic.LoadUint32(&self.Frames),
		Lines:            atomic.LoadUint32(&self.Lines),
		ChecksumMismatch: atomic.LoadUint32(&self.ChecksumMismatch),
		UnknownLabel:     atomic.LoadUint32(&self.UnknownLabel),
		ParseFailure:     atomic.LoadUint32(&self.ParseFailure),
		FramingDrop:      atomic.LoadUint32(&self.FramingDrop),
		Events:           atomic.LoadUint32(&self.Events),
	}
}

func (self *Stat) String() string {
	s := self.Copy()
	return fmt.Sprintf("bytes=%d frames=%d lines=%d events=%d badsum=%d unknown=%d badparse=%d framedrop=%d",
		s.Bytes, s.Frames, s.Lines, s.Events, s.ChecksumMismatch, s.UnknownLabel, s.ParseFailure, s.FramingDrop)
}
