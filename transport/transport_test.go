package transport

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"

	"github.com/temoto/teleinfo/log2"
)

type chunkSink struct {
	mu     sync.Mutex
	chunks [][]byte
}

func (self *chunkSink) Feed(p []byte) {
	cp := make([]byte, len(p))
	copy(cp, p)
	self.mu.Lock()
	self.chunks = append(self.chunks, cp)
	self.mu.Unlock()
}

func (self *chunkSink) joined() []byte {
	self.mu.Lock()
	defer self.mu.Unlock()
	var b []byte
	for _, c := range self.chunks {
		b = append(b, c...)
	}
	return b
}

func TestRunMock(t *testing.T) {
	t.Parallel()

	a := alive.NewAlive()
	src := NewMock()
	sink := &chunkSink{}
	require.True(t, a.Add(1))
	go Run(a, src, sink, log2.NewTest(t, log2.LError))

	src.Send([]byte("\x02\x0aPAPP 00"))
	src.Send([]byte("750 *\x0d\x03"))

	deadline := time.Now().Add(3 * time.Second)
	for string(sink.joined()) != "\x02\x0aPAPP 00750 *\x0d\x03" {
		if time.Now().After(deadline) {
			t.Fatalf("sink did not receive chunks, got=%q", sink.joined())
		}
		time.Sleep(5 * time.Millisecond)
	}

	a.Stop()
	a.Wait()
}

func TestRunStopsDuringTimeout(t *testing.T) {
	t.Parallel()

	a := alive.NewAlive()
	src := NewMock()
	require.True(t, a.Add(1))
	go Run(a, src, &chunkSink{}, log2.NewTest(t, log2.LError))

	time.Sleep(10 * time.Millisecond) // let the loop block in Read
	a.Stop()

	done := make(chan struct{})
	go func() { a.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestUDPSource(t *testing.T) {
	t.Parallel()

	src := NewUDP("127.0.0.1:0")
	require.NoError(t, src.Open())
	defer src.Close()

	conn, err := net.Dial("udp", src.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	payload := []byte("\x02\x0aENERGY 012345 \x39\x0d\x03")
	_, err = conn.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, 4096)
	deadline := time.Now().Add(3 * time.Second)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			assert.Equal(t, payload, buf[:n])
			return
		}
		if err != nil {
			if t2, ok := err.(timeouter); ok && t2.Timeout() {
				if time.Now().After(deadline) {
					t.Fatal("datagram not received")
				}
				continue
			}
			t.Fatal(err)
		}
	}
}

func TestSerialOptionsValidation(t *testing.T) {
	t.Parallel()

	err := NewSerial(SerialOptions{Device: "/dev/null", Baud: 2400}).Open()
	assert.Error(t, err)
	err = NewSerial(SerialOptions{Device: "/dev/null", Baud: 1200, Bits: 9}).Open()
	assert.Error(t, err)
	err = NewSerial(SerialOptions{Device: "/dev/null", Baud: 1200, Parity: "mark"}).Open()
	assert.Error(t, err)
}

func TestMockClose(t *testing.T) {
	t.Parallel()

	src := NewMock()
	require.NoError(t, src.Close())
	buf := make([]byte, 16)
	_, err := src.Read(buf)
	assert.Error(t, err)
	require.NoError(t, src.Close())
	assert.Panics(t, func() { src.Send([]byte("x")) })
}
