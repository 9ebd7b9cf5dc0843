package transport

import (
	"os"
	"syscall"
	"time"
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

const (
	cFIONREAD = 0x541b
	cNCCS     = 19
	cTCSETSF2 = 0x402c542d
)

type cc_t byte
type speed_t uint32
type tcflag_t uint32
type termios2 struct {
	c_iflag  tcflag_t    // input mode flags
	c_oflag  tcflag_t    // output mode flags
	c_cflag  tcflag_t    // control mode flags
	c_lflag  tcflag_t    // local mode flags
	c_line   cc_t        // line discipline
	c_cc     [cNCCS]cc_t // control characters
	c_ispeed speed_t     // input speed
	c_ospeed speed_t     // output speed
}

type SerialOptions struct {
	Device string
	Baud   int    // 1200 or 9600
	Bits   int    // 0/7 or 8 data bits
	Parity string // "", even, odd, none
}

// Serial reads the meter's telemetry output pair. The link is
// receive-only: historic 1200 7E1, standard 9600 7E1.
type Serial struct {
	opt SerialOptions
	f   *os.File
	t2  termios2
}

func NewSerial(opt SerialOptions) *Serial { return &Serial{opt: opt} }

func (self *Serial) String() string { return "serial:" + self.opt.Device }

func (self *Serial) Open() (err error) {
	if self.f != nil {
		self.f.Close()
		self.f = nil
	}

	var speed speed_t
	switch self.opt.Baud {
	case 1200:
		speed = speed_t(unix.B1200)
	case 9600:
		speed = speed_t(unix.B9600)
	default:
		return errors.NotValidf("%s baud=%d", self.String(), self.opt.Baud)
	}

	cflag := tcflag_t(syscall.CLOCAL | syscall.CREAD)
	iflag := tcflag_t(unix.IGNBRK)
	switch self.opt.Bits {
	case 0, 7:
		cflag |= syscall.CS7
	case 8:
		cflag |= syscall.CS8
	default:
		return errors.NotValidf("%s bits=%d", self.String(), self.opt.Bits)
	}
	switch self.opt.Parity {
	case "", "even":
		cflag |= unix.PARENB
		iflag |= unix.INPCK | unix.ISTRIP | unix.IGNPAR
	case "odd":
		cflag |= unix.PARENB | unix.PARODD
		iflag |= unix.INPCK | unix.ISTRIP | unix.IGNPAR
	case "none":
	default:
		return errors.NotValidf("%s parity=%s", self.String(), self.opt.Parity)
	}

	self.f, err = os.OpenFile(self.opt.Device, syscall.O_RDONLY|syscall.O_NOCTTY, 0600)
	if err != nil {
		return errors.Annotatef(err, "%s", self.String())
	}
	self.t2 = termios2{
		c_iflag:  iflag,
		c_cflag:  cflag,
		c_ispeed: speed,
		c_ospeed: speed,
	}
	// VMIN=0: Read drains what FIONREAD promised, never blocks forever
	if err = ioctl(self.f.Fd(), uintptr(cTCSETSF2), uintptr(unsafe.Pointer(&self.t2))); err != nil {
		self.f.Close()
		self.f = nil
		return errors.Annotatef(err, "%s termios", self.String())
	}
	return nil
}

// Read waits for at least one buffered byte, bounded by readTimeout,
// then drains what the driver has.
func (self *Serial) Read(p []byte) (int, error) {
	fd := self.f.Fd()
	if err := ioWaitRead(fd, 1, readTimeout); err != nil {
		return 0, err
	}
	return syscall.Read(int(fd), p)
}

func (self *Serial) Close() error {
	if self.f == nil {
		return nil
	}
	err := self.f.Close()
	self.f = nil
	return err
}

func ioctl(fd uintptr, op, arg uintptr) (err error) {
	r, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, op, arg)
	if errno != 0 {
		err = os.NewSyscallError("SYS_IOCTL", errno)
	} else if r != 0 {
		err = errors.Errorf("unknown error from SYS_IOCTL")
	}
	return err
}

func ioWaitRead(fd uintptr, min int, wait time.Duration) error {
	var out int
	tfinal := time.Now().Add(wait)
	for {
		if err := ioctl(fd, uintptr(cFIONREAD), uintptr(unsafe.Pointer(&out))); err != nil {
			return err
		}
		if out >= min {
			return nil
		}
		time.Sleep(wait / 16)
		if time.Now().After(tfinal) {
			return ErrTimeout("serial read timeout")
		}
	}
}
