package hardware

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"

	"github.com/CodedInternet/gomotor/onboard/canbus"
)

const (
	CMD_GROUP_LOW  = 0x200 // motors 1-4
	CMD_GROUP_HIGH = 0x1FF // motors 5-8
	CMD_GROUP_EXT  = 0x2FF // motors 9-11

	FEEDBACK_BASE = 0x201

	MaxMotors = 11
)

// FeedbackID is the id a motor at index reports on.
func FeedbackID(index int) uint32 {
	return FEEDBACK_BASE + uint32(index)
}

// ControlID is the id of the frame that carries the current of the motor at index.
func ControlID(index int) uint32 {
	switch {
	case index < 4:
		return CMD_GROUP_LOW
	case index < 8:
		return CMD_GROUP_HIGH
	default:
		return CMD_GROUP_EXT
	}
}

// Group is one control frame shared by up to four motors.
type Group struct {
	id   uint32
	bus  canbus.Bus
	lock sync.Mutex
	buf  [8]byte
}

// Set stores the raw current of the motor at index and transmits the frame
// with the latest values of every motor in the group.
func (g *Group) Set(index int, raw int16) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	offset := (index % 4) * 2
	binary.BigEndian.PutUint16(g.buf[offset:offset+2], uint16(raw))

	data := make([]byte, len(g.buf))
	copy(data, g.buf[:])
	return g.bus.SendMsg(canbus.CANMsg{ID: g.id, Data: data})
}

// Groups holds the control frames of one bus and the slots bound on it.
type Groups struct {
	bus     canbus.Bus
	lock    sync.Mutex
	groups  map[uint32]*Group
	claimed [MaxMotors]bool
}

// NewGroups returns frames private to the caller. Drivers that share a bus
// with anything else must use GroupsFor.
func NewGroups(bus canbus.Bus) *Groups {
	return &Groups{
		bus:    bus,
		groups: make(map[uint32]*Group),
	}
}

var (
	busGroupsLock sync.Mutex
	busGroups     = make(map[canbus.Bus]*Groups)
)

// GroupsFor returns the frames of bus, the same value for every caller, so
// the motors of two containers on one bus travel in the same frames instead
// of zeroing each other.
func GroupsFor(bus canbus.Bus) *Groups {
	busGroupsLock.Lock()
	defer busGroupsLock.Unlock()

	g, ok := busGroups[bus]
	if !ok {
		g = NewGroups(bus)
		busGroups[bus] = g
	}
	return g
}

// For returns the group of the motor at index.
func (g *Groups) For(index int) *Group {
	g.lock.Lock()
	defer g.lock.Unlock()

	id := ControlID(index)
	group, ok := g.groups[id]
	if !ok {
		group = &Group{id: id, bus: g.bus}
		g.groups[id] = group
	}
	return group
}

// Claim reserves the slot at index for one driver.
func (g *Groups) Claim(index int) error {
	if index < 0 || index >= MaxMotors {
		return errors.Wrapf(ErrBadIndex, "%d", index)
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	if g.claimed[index] {
		return errors.Wrap(ErrSlotTaken, g.bus.Name())
	}
	g.claimed[index] = true
	return nil
}

// Release frees a claimed slot and detaches its feedback listener. Slots that
// were never claimed are left alone.
func (g *Groups) Release(index int) {
	if index < 0 || index >= MaxMotors {
		return
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	if !g.claimed[index] {
		return
	}
	g.claimed[index] = false
	g.bus.RemoveListener(FeedbackID(index))
}
