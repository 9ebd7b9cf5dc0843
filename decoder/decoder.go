// Package decoder turns raw TIC bytes into sensor store updates.
// One Decoder per meter link; each byte source gets its own Stream so
// partial-frame carry never mixes between transports.
package decoder

import (
	"sync"

	"github.com/juju/errors"

	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/sensor"
	"github.com/temoto/teleinfo/tic"
)

type Decoder struct {
	dialect tic.Dialect
	reg     *sensor.Registry
	store   *sensor.Store
	log     *log2.Log
	stat    Stat
}

// NewDecoder wires a registry and event sink into a ready decoder.
// emit=nil is valid and means decode-only (CLI, tests).
func NewDecoder(dialect tic.Dialect, reg *sensor.Registry, emit sensor.EventFunc, log *log2.Log) *Decoder {
	self := &Decoder{
		dialect: dialect,
		reg:     reg,
		log:     log,
	}
	if emit == nil {
		emit = func(sensor.Event) {}
	}
	self.store = sensor.NewStore(reg, func(e sensor.Event) {
		self.stat.add(&self.stat.Events, 1)
		emit(e)
	})
	return self
}

func (self *Decoder) Dialect() tic.Dialect       { return self.dialect }
func (self *Decoder) Registry() *sensor.Registry { return self.reg }
func (self *Decoder) Store() *sensor.Store       { return self.store }
func (self *Decoder) Stat() *Stat                { return &self.stat }

// Stream feeds one byte source into the decoder. Feed is not
// reentrant; transports call it from their single read loop. Close is
// safe from another goroutine and makes further Feed a no-op.
type Stream struct {
	d      *Decoder
	tag    string
	asm    *tic.Assembler
	lk     sync.Mutex
	closed bool
}

func (self *Decoder) NewStream(tag string) *Stream {
	return &Stream{
		d:   self,
		tag: tag,
		asm: tic.NewAssembler(),
	}
}

func (self *Stream) String() string { return "stream=" + self.tag }

// Feed consumes one chunk. Every malformed line is counted and
// skipped; a bad line never clears the previously stored value.
func (self *Stream) Feed(p []byte) {
	self.lk.Lock()
	defer self.lk.Unlock()
	if self.closed {
		return
	}
	stat := &self.d.stat
	stat.addBytes(len(p))

	framesBefore, dropsBefore := self.asm.Frames(), self.asm.Drops()
	lines := self.asm.Feed(p)
	stat.add(&stat.Frames, self.asm.Frames()-framesBefore)
	stat.add(&stat.FramingDrop, self.asm.Drops()-dropsBefore)

	for _, raw := range lines {
		self.line(raw)
	}
}

// Close drops any partially assembled frame. No event is ever emitted
// from bytes buffered at close time.
func (self *Stream) Close() {
	self.lk.Lock()
	defer self.lk.Unlock()
	if self.closed {
		return
	}
	self.closed = true
	self.asm.Reset()
}

func (self *Stream) line(raw []byte) {
	stat := &self.d.stat
	stat.add(&stat.Lines, 1)

	line, err := tic.ParseLine(raw, self.d.dialect)
	if err != nil {
		if _, ok := errors.Cause(err).(tic.InvalidChecksum); ok {
			stat.add(&stat.ChecksumMismatch, 1)
		} else {
			stat.add(&stat.ParseFailure, 1)
		}
		self.d.log.Debugf("%s drop line=%q err=%v", self.String(), raw, err)
		return
	}

	def, ok := self.d.reg.Get(line.Label)
	if !ok {
		stat.add(&stat.UnknownLabel, 1)
		return
	}

	v, err := sensor.Decode(def, line)
	if err != nil {
		stat.add(&stat.ParseFailure, 1)
		self.d.log.Debugf("%s drop line=%q err=%v", self.String(), raw, err)
		return
	}

	outcome := self.d.store.Update(def, v)
	self.d.log.Debugf("%s sensor=%s value=%s outcome=%s", self.String(), def.Label, v.String(), outcome.String())
}
