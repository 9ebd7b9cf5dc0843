// Package transport delivers raw meter bytes to a decoder stream.
// Sources are dumb byte taps: open, read chunks, close. Run owns the
// retry policy so a flaky serial link or a restarted sender never
// kills the process.
package transport

import (
	"time"

	"github.com/temoto/alive/v2"

	"github.com/temoto/teleinfo/helpers"
	"github.com/temoto/teleinfo/log2"
)

const readBufferSize = 4096

// readTimeout bounds a blocking Read so the loop can notice stop.
const readTimeout = 200 * time.Millisecond

// Sink consumes raw chunks. decoder.Stream implements it.
type Sink interface {
	Feed(p []byte)
}

type Source interface {
	Open() error
	// Read may return a Timeout()=true error; that is not a failure.
	Read(p []byte) (int, error)
	Close() error
	String() string
}

type ErrTimeout string

func (self ErrTimeout) Error() string { return string(self) }
func (ErrTimeout) Timeout() bool      { return true }

type timeouter interface {
	Timeout() bool
}

// Run pumps src into sink until alive stop. Open and read failures go
// through exponential backoff and reopen; only stop ends the loop.
// Caller did alive.Add(1), Run does Done.
func Run(a *alive.Alive, src Source, sink Sink, log *log2.Log) {
	defer a.Done()
	defer src.Close()
	stopch := a.StopChan()
	bo := helpers.Backoff{Min: 500 * time.Millisecond, Max: 30 * time.Second, K: 2}
	buf := make([]byte, readBufferSize)
	opened := false

	for {
		select {
		case <-stopch:
			return
		default:
		}

		if !opened {
			if delay := bo.Delay(); delay > 0 {
				select {
				case <-stopch:
					return
				case <-time.After(delay):
				}
			}
			if err := src.Open(); err != nil {
				bo.Update(false)
				log.Errorf("%s open err=%v", src.String(), err)
				continue
			}
			bo.Update(true)
			opened = true
			log.Infof("%s open", src.String())
		}

		n, err := src.Read(buf)
		if n > 0 {
			sink.Feed(buf[:n])
		}
		if err != nil {
			if t, ok := err.(timeouter); ok && t.Timeout() {
				continue
			}
			log.Errorf("%s read err=%v", src.String(), err)
			src.Close()
			opened = false
			bo.Update(false)
		}
	}
}
