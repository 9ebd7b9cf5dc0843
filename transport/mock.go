package transport

import (
	"io"
	"sync"
	"time"
)

// Mock is a channel-fed source for tests and the CLI: whatever is
// Sent comes out of Read in the same chunks.
type Mock struct {
	ch      chan []byte
	closech chan struct{}
	once    sync.Once
}

func NewMock() *Mock {
	return &Mock{
		ch:      make(chan []byte, 32),
		closech: make(chan struct{}),
	}
}

func (self *Mock) String() string { return "mock" }

func (self *Mock) Open() error { return nil }

// Send queues one chunk. Panics after Close, like writing a closed pipe.
func (self *Mock) Send(p []byte) {
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case <-self.closech:
		panic("transport: Send on closed Mock")
	case self.ch <- cp:
	}
}

func (self *Mock) Read(p []byte) (int, error) {
	select {
	case chunk := <-self.ch:
		return copy(p, chunk), nil
	case <-self.closech:
		return 0, io.EOF
	case <-time.After(readTimeout):
		return 0, ErrTimeout("mock read timeout")
	}
}

func (self *Mock) Close() error {
	self.once.Do(func() { close(self.closech) })
	return nil
}
