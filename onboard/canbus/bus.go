package canbus

import (
	"sync"
	"sync/atomic"
)

// Bus is a shared CAN bus. Many components may hold the same bus, none of them
// owns it; the Registry that opened it closes it.
type Bus interface {
	Name() string
	// AddListener routes every received frame with the given id to rx.
	// Delivery never blocks the reader, frames for a full rx are dropped.
	AddListener(id uint32, rx chan CANMsg)
	RemoveListener(id uint32)
	SendMsg(msg CANMsg) error
	Close() error
}

// listeners is the id -> channel routing table shared by the bus implementations.
type listeners struct {
	lock    sync.RWMutex
	rx      map[uint32]chan CANMsg
	dropped uint64
}

func newListeners() *listeners {
	return &listeners{rx: make(map[uint32]chan CANMsg)}
}

func (l *listeners) add(id uint32, rx chan CANMsg) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.rx[id] = rx
}

func (l *listeners) remove(id uint32) {
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.rx, id)
}

// route hands the frame to its listener without waiting.
func (l *listeners) route(msg CANMsg) {
	l.lock.RLock()
	c, ok := l.rx[msg.ID]
	l.lock.RUnlock()
	if !ok {
		return
	}

	select {
	case c <- msg:
	default:
		atomic.AddUint64(&l.dropped, 1)
	}
}

func (l *listeners) Dropped() uint64 {
	return atomic.LoadUint64(&l.dropped)
}
