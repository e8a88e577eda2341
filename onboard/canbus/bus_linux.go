package canbus

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// how often the reader wakes up to notice Close
const readTimeout = 100 * time.Millisecond

// CANBus is a raw SocketCAN socket bound to one interface.
type CANBus struct {
	*listeners

	name   string
	fd     int
	wlock  sync.Mutex // serialises writes
	open   int32
	closed chan struct{}
}

func NewCANBus(ifname string) (bus *CANBus, err error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, errors.Wrapf(err, "can interface %s", ifname)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, errors.Wrap(err, "open can socket")
	}

	tv := unix.NsecToTimeval(readTimeout.Nanoseconds())
	if err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "set can read timeout")
	}

	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err = unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind %s", ifname)
	}

	bus = &CANBus{
		listeners: newListeners(),
		name:      ifname,
		fd:        fd,
		open:      1,
		closed:    make(chan struct{}),
	}

	go bus.reader()

	return bus, nil
}

func (c *CANBus) Name() string {
	return c.name
}

func (c *CANBus) AddListener(id uint32, rx chan CANMsg) {
	c.add(id, rx)
}

func (c *CANBus) RemoveListener(id uint32) {
	c.remove(id)
}

func (c *CANBus) SendMsg(msg CANMsg) error {
	if atomic.LoadInt32(&c.open) == 0 {
		return ErrBusClosed
	}

	raw, err := msg.toByteArray()
	if err != nil {
		return err
	}

	c.wlock.Lock()
	defer c.wlock.Unlock()

	_, err = unix.Write(c.fd, raw)
	return err
}

func (c *CANBus) Close() error {
	if !atomic.CompareAndSwapInt32(&c.open, 1, 0) {
		return nil
	}
	<-c.closed
	return unix.Close(c.fd)
}

func (c *CANBus) reader() {
	defer close(c.closed)

	raw := make([]byte, frameLength)
	for atomic.LoadInt32(&c.open) == 1 {
		n, err := unix.Read(c.fd, raw)
		if err != nil || n < frameLength {
			// timeouts land here too
			continue
		}

		if msg, ok := msgFromByteArray(raw); ok {
			c.route(msg)
		}
	}
}
