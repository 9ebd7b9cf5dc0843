package sensor

import (
	"time"

	"github.com/temoto/alive/v2"

	"github.com/temoto/teleinfo/log2"
)

// Scheduler forces periodic pushes of subscribable sensors so a
// quiescent meter still produces signs of life. Per-definition Cycle
// overrides the global interval; interval 0 disables the sensor's
// forced push. Firing serializes through Store.Push, never racing an
// ingestion update, and does not reset change detection.
type Scheduler struct {
	alive     *alive.Alive
	store     *Store
	log       *log2.Log
	intervals map[string]time.Duration
}

func NewScheduler(reg *Registry, store *Store, global time.Duration, log *log2.Log) *Scheduler {
	self := &Scheduler{
		alive:     alive.NewAlive(),
		store:     store,
		log:       log,
		intervals: make(map[string]time.Duration),
	}
	for _, label := range reg.Labels() {
		def, _ := reg.Get(label)
		if !def.Subscribe {
			continue
		}
		interval := def.Cycle
		if interval == 0 {
			interval = global
		}
		if interval > 0 {
			self.intervals[label] = interval
		}
	}
	return self
}

func (self *Scheduler) Start() {
	if len(self.intervals) == 0 {
		self.log.Debugf("cycle: disabled")
		return
	}
	if !self.alive.Add(1) {
		return
	}
	go self.worker()
}

func (self *Scheduler) Stop() {
	self.alive.Stop()
	self.alive.Wait()
}

func (self *Scheduler) worker() {
	defer self.alive.Done()
	stopch := self.alive.StopChan()

	next := make(map[string]time.Time, len(self.intervals))
	now := time.Now()
	for label, interval := range self.intervals {
		next[label] = now.Add(interval)
	}

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		earliest := time.Time{}
		for _, at := range next {
			if earliest.IsZero() || at.Before(earliest) {
				earliest = at
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(time.Until(earliest))

		select {
		case <-stopch:
			return
		case now = <-timer.C:
		}
		for label, at := range next {
			if at.After(now) {
				continue
			}
			if self.store.Push(label) {
				self.log.Debugf("cycle: push sensor=%s", label)
			}
			next[label] = now.Add(self.intervals[label])
		}
	}
}
