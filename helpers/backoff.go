package helpers

import (
	"sync/atomic"
	"time"

	atomic_clock "github.com/temoto/atomic_clock"
)

// Backoff is a limited exponential delay for retry loops.
// First delay is always Min. Update(false) multiplies the next delay by K.
// Safe for concurrent use.
type Backoff struct {
	next int64 // atomic align
	last atomic_clock.Clock

	Min time.Duration
	Max time.Duration
	K   float32
}

// Use scenario:
//   for {
//     time.Sleep(b.Delay())
//     err := op()
//     b.Update(err == nil)
//   }
func (b *Backoff) Delay() time.Duration {
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		return 0
	}
	since := atomic_clock.Since(&b.last)
	if since >= next {
		return 0
	}
	return next - since
}

func (b *Backoff) Update(success bool) {
	if success {
		b.Reset()
		return
	}
	next := time.Duration(atomic.LoadInt64(&b.next))
	if next == 0 {
		next = b.Min
	} else {
		next = time.Duration(float32(next) * b.K)
	}
	if next < b.Min {
		next = b.Min
	}
	if next > b.Max {
		next = b.Max
	}
	b.last.SetNow()
	atomic.StoreInt64(&b.next, int64(next))
}

func (b *Backoff) Reset() {
	b.last.SetNow()
	atomic.StoreInt64(&b.next, 0)
}
