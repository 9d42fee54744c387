package egm

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

const (
	// DefaultReadTimeout bounds every Receive so loops can observe shutdown.
	DefaultReadTimeout = 5 * time.Second
	// MaxFrameSize is large enough for any EgmRobot frame.
	MaxFrameSize = 4096
)

// Conn is a UDP socket bound to a local port that talks to one controller.
type Conn struct {
	udp         *net.UDPConn
	remote      *net.UDPAddr
	readTimeout time.Duration

	mu          sync.Mutex
	interrupted bool
}

// Listen binds localPort on all interfaces. Port 0 picks an ephemeral port.
// remote may be nil for sockets that only reply via SendTo.
func Listen(localPort int, remote *net.UDPAddr, readTimeout time.Duration) (*Conn, error) {
	udp, err := net.ListenUDP("udp", &net.UDPAddr{Port: localPort})
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", localPort, err)
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Conn{
		udp:         udp,
		remote:      remote,
		readTimeout: readTimeout,
	}, nil
}

// LocalAddr returns the bound address.
func (c *Conn) LocalAddr() *net.UDPAddr {
	return c.udp.LocalAddr().(*net.UDPAddr)
}

// Remote returns the controller endpoint.
func (c *Conn) Remote() *net.UDPAddr {
	return c.remote
}

// Send writes one datagram to the controller endpoint.
func (c *Conn) Send(b []byte) error {
	if c.remote == nil {
		return errors.New("send: no remote endpoint")
	}
	return c.SendTo(b, c.remote)
}

// SendTo writes one datagram to addr.
func (c *Conn) SendTo(b []byte, addr *net.UDPAddr) error {
	if _, err := c.udp.WriteToUDP(b, addr); err != nil {
		return fmt.Errorf("send to %s: %w", addr, err)
	}
	return nil
}

// Receive reads one datagram into buf, waiting at most the read timeout.
// A timeout is reported as an error for which IsTimeout is true.
func (c *Conn) Receive(buf []byte) (int, *net.UDPAddr, error) {
	c.mu.Lock()
	if c.interrupted {
		c.mu.Unlock()
		return 0, nil, os.ErrDeadlineExceeded
	}
	err := c.udp.SetReadDeadline(time.Now().Add(c.readTimeout))
	c.mu.Unlock()
	if err != nil {
		return 0, nil, err
	}
	return c.udp.ReadFromUDP(buf)
}

// Interrupt wakes a goroutine blocked in Receive with a timeout error.
// Every later Receive returns a timeout immediately.
func (c *Conn) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interrupted = true
	_ = c.udp.SetReadDeadline(time.Now())
}

// Close closes the socket.
func (c *Conn) Close() error {
	return c.udp.Close()
}

// IsTimeout reports whether err is a receive timeout.
func IsTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// IsClosed reports whether err comes from using a closed socket.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
