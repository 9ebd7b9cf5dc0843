package sensor

import (
	"sort"
	"sync"
	"time"

	atomic_clock "github.com/temoto/atomic_clock"
)

type Outcome uint8

const (
	OutcomeCreated Outcome = iota
	OutcomeChanged
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeChanged:
		return "changed"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return "invalid"
}

type Reason uint8

const (
	ReasonChanged Reason = iota
	ReasonForcedCycle
)

func (r Reason) String() string {
	if r == ReasonForcedCycle {
		return "cycle"
	}
	return "changed"
}

// Event is handed to the sink and never stored.
type Event struct {
	Label  string
	Name   string
	Value  Value
	Reason Reason
}

type EventFunc func(Event)

type entry struct {
	def     *Definition
	value   Value
	changed atomic_clock.Clock
	pushed  atomic_clock.Clock
}

// Store holds the latest value per sensor and is the single mutation
// point: ingestion streams and the cycle scheduler all serialize on
// its lock, so change detection is a clean read-modify-write.
//
// The sink runs under the store lock and must not call back into the
// Store; it is expected to hand off (log line, channel, MQTT publish
// queue) and return.
type Store struct {
	lk   sync.Mutex
	reg  *Registry
	emit EventFunc
	m    map[string]*entry
}

func NewStore(reg *Registry, emit EventFunc) *Store {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Store{
		reg:  reg,
		emit: emit,
		m:    make(map[string]*entry, reg.Len()),
	}
}

// Update stores a freshly decoded value and emits a change event for
// subscribable sensors on Created/Changed.
func (self *Store) Update(def *Definition, v Value) Outcome {
	self.lk.Lock()
	defer self.lk.Unlock()

	e, ok := self.m[def.Label]
	if !ok {
		e = &entry{def: def, value: v}
		e.changed.SetNow()
		self.m[def.Label] = e
		self.push(e, ReasonChanged)
		return OutcomeCreated
	}
	if e.value.Equal(v) {
		return OutcomeUnchanged
	}
	e.value = v
	e.changed.SetNow()
	self.push(e, ReasonChanged)
	return OutcomeChanged
}

// Snapshot is a copy of one sensor's current state for readers.
type Snapshot struct {
	Label     string
	Name      string
	Value     Value
	ChangedAt time.Time
	PushedAt  time.Time
}

// Get returns the current value for a label; ok=false until the first
// valid line for that label was decoded.
func (self *Store) Get(label string) (Snapshot, bool) {
	self.lk.Lock()
	defer self.lk.Unlock()
	e, ok := self.m[label]
	if !ok {
		return Snapshot{}, false
	}
	return self.snapshot(e), true
}

// Push re-emits the current value with ReasonForcedCycle. Change
// detection state is not touched. Returns false when the sensor has no
// value yet or is not subscribable.
func (self *Store) Push(label string) bool {
	self.lk.Lock()
	defer self.lk.Unlock()
	e, ok := self.m[label]
	if !ok || !e.def.Subscribe {
		return false
	}
	self.push(e, ReasonForcedCycle)
	return true
}

// Labels returns sensors seen so far, sorted.
func (self *Store) Labels() []string {
	self.lk.Lock()
	defer self.lk.Unlock()
	ls := make([]string, 0, len(self.m))
	for l := range self.m {
		ls = append(ls, l)
	}
	sort.Strings(ls)
	return ls
}

func (self *Store) Len() int {
	self.lk.Lock()
	defer self.lk.Unlock()
	return len(self.m)
}

func (self *Store) push(e *entry, reason Reason) {
	if !e.def.Subscribe {
		return
	}
	e.pushed.SetNow()
	self.emit(Event{Label: e.def.Label, Name: e.def.Name, Value: e.value, Reason: reason})
}

func (self *Store) snapshot(e *entry) Snapshot {
	// clocks hold monotonic marks, convert to wall time through the age
	now := time.Now()
	s := Snapshot{
		Label:     e.def.Label,
		Name:      e.def.Name,
		Value:     e.value,
		ChangedAt: now.Add(-atomic_clock.Since(&e.changed)),
	}
	if !e.pushed.IsZero() {
		s.PushedAt = now.Add(-atomic_clock.Since(&e.pushed))
	}
	return s
}
