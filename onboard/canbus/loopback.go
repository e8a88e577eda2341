package canbus

import (
	"sync"
	"sync/atomic"
)

// LoopbackBus is an in-memory bus. Frames sent on it are handed to the OnSend
// observers, frames received are injected with Inject. With Echo set every sent
// frame is also routed back to the listeners, like a bus with loopback enabled.
type LoopbackBus struct {
	*listeners

	name   string
	Echo   bool
	open   int32
	lock   sync.RWMutex
	onSend []func(CANMsg)
	sent   uint64
}

func NewLoopbackBus(name string) *LoopbackBus {
	return &LoopbackBus{
		listeners: newListeners(),
		name:      name,
		open:      1,
	}
}

func (b *LoopbackBus) Name() string {
	return b.name
}

func (b *LoopbackBus) AddListener(id uint32, rx chan CANMsg) {
	b.add(id, rx)
}

func (b *LoopbackBus) RemoveListener(id uint32) {
	b.remove(id)
}

// OnSend registers an observer for transmitted frames. Observers run on the
// sender's goroutine and must not block.
func (b *LoopbackBus) OnSend(fn func(CANMsg)) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.onSend = append(b.onSend, fn)
}

func (b *LoopbackBus) SendMsg(msg CANMsg) error {
	if atomic.LoadInt32(&b.open) == 0 {
		return ErrBusClosed
	}
	// same validation as the wire
	if _, err := msg.toByteArray(); err != nil {
		return err
	}

	atomic.AddUint64(&b.sent, 1)

	b.lock.RLock()
	observers := b.onSend
	b.lock.RUnlock()
	for _, fn := range observers {
		fn(copyMsg(msg))
	}

	if b.Echo {
		b.route(copyMsg(msg))
	}
	return nil
}

// Inject delivers a frame to the listeners as if it had been received.
func (b *LoopbackBus) Inject(msg CANMsg) {
	if atomic.LoadInt32(&b.open) == 0 {
		return
	}
	b.route(copyMsg(msg))
}

// Sent is the number of frames transmitted so far.
func (b *LoopbackBus) Sent() uint64 {
	return atomic.LoadUint64(&b.sent)
}

func (b *LoopbackBus) Close() error {
	atomic.StoreInt32(&b.open, 0)
	return nil
}

func copyMsg(msg CANMsg) CANMsg {
	data := make([]byte, len(msg.Data))
	copy(data, msg.Data)
	msg.Data = data
	return msg
}
