package transport

import (
	"net"
	"time"

	"github.com/juju/errors"
)

// UDP receives meter bytes relayed over the network, one or more
// frames (or fragments) per datagram. Useful when the serial tap sits
// on another box.
type UDP struct {
	listen string
	conn   *net.UDPConn
}

func NewUDP(listen string) *UDP { return &UDP{listen: listen} }

func (self *UDP) String() string { return "udp:" + self.listen }

func (self *UDP) Open() error {
	addr, err := net.ResolveUDPAddr("udp", self.listen)
	if err != nil {
		return errors.Annotatef(err, "%s", self.String())
	}
	self.conn, err = net.ListenUDP("udp", addr)
	if err != nil {
		return errors.Annotatef(err, "%s", self.String())
	}
	return nil
}

// Addr is the bound address, for tests using listen=":0".
func (self *UDP) Addr() net.Addr {
	if self.conn == nil {
		return nil
	}
	return self.conn.LocalAddr()
}

func (self *UDP) Read(p []byte) (int, error) {
	if err := self.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return 0, err
	}
	n, _, err := self.conn.ReadFromUDP(p)
	return n, err
}

func (self *UDP) Close() error {
	if self.conn == nil {
		return nil
	}
	err := self.conn.Close()
	self.conn = nil
	return err
}
