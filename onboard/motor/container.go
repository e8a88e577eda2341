// Package motor holds the fixed size motor container: up to eleven motor
// drivers sharing one CAN bus, addressed by slot index.
//
// Invalid slot references are absorbed on purpose. An index outside [0, 10]
// or an index whose slot is configured as none behaves like a motor that is
// switched off: commands are dropped and every reading is 0. A control loop
// can therefore run over a fixed index range without checking which slots are
// fitted, at the cost that a wrong index reads as a stationary motor rather
// than failing. Use GetHandle to tell the two apart.
//
// The container does no locking. Update is the single writer of the cached
// readings and must not run at the same time as the accessors; the host
// serialises them (see app.Manager.Exclusive).
package motor

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/CodedInternet/gomotor/calcs"
	"github.com/CodedInternet/gomotor/onboard/app"
	"github.com/CodedInternet/gomotor/onboard/canbus"
	"github.com/CodedInternet/gomotor/onboard/hardware"
)

const SlotCount = hardware.MaxMotors

var (
	ErrTooManySlots = errors.New("more than 11 motor slots configured")
	ErrUnknownBus   = errors.New("unknown bus")
)

// BusFinder looks buses up by name, canbus.Registry in production.
type BusFinder interface {
	Find(name string) (canbus.Bus, bool)
}

// Container owns the drivers of its bound slots and borrows the bus, which
// has to outlive it.
type Container struct {
	bus     canbus.Bus
	groups  *hardware.Groups
	params  [SlotCount]hardware.Param
	handles [SlotCount]hardware.Motor
}

// NewContainer binds a driver to every slot of params whose model is not
// ModelNone and registers the container with registrar. Slots past the end
// of params are unused. Containers may share a bus as long as their bound
// slots differ; binding a slot twice fails with hardware.ErrSlotTaken.
func NewContainer(hw BusFinder, registrar app.Registrar, busName string, params []hardware.Param, logger *zap.SugaredLogger) (c *Container, err error) {
	if len(params) > SlotCount {
		return nil, errors.Wrapf(ErrTooManySlots, "got %d", len(params))
	}

	bus, ok := hw.Find(busName)
	if !ok {
		return nil, errors.Wrap(ErrUnknownBus, busName)
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger = logger.With("bus", busName)

	c = &Container{bus: bus, groups: hardware.GroupsFor(bus)}
	copy(c.params[:], params)

	for i, p := range c.params {
		if p.Model == hardware.ModelNone {
			continue
		}

		c.handles[i], err = hardware.New(p.Model, bus, i, p.Reverse, c.groups, logger)
		if err != nil {
			c.Close()
			return nil, errors.Wrapf(err, "slot %d", i)
		}
	}

	registrar.Register(c)
	return c, nil
}

// Close frees the slots the container bound and detaches their listeners,
// leaving every other slot on the bus alone. The bus stays open and the
// container answers like an empty one afterwards.
func (c *Container) Close() {
	for i, h := range c.handles {
		if h != nil {
			c.groups.Release(i)
			c.handles[i] = nil
		}
	}
}

func (c *Container) BusName() string {
	return c.bus.Name()
}

// Params returns the slot configuration the container was built with.
func (c *Container) Params() [SlotCount]hardware.Param {
	return c.params
}

// GetHandle returns the driver at index, or nil when index is out of range
// or the slot is unused. The handle belongs to the container.
func (c *Container) GetHandle(index int) hardware.Motor {
	if index < 0 || index >= SlotCount {
		return nil
	}
	return c.handles[index]
}

// SetCurrent passes a normalised current to the driver unchanged; limiting it
// is the driver's job.
func (c *Container) SetCurrent(index int, value float32) {
	if m := c.GetHandle(index); m != nil {
		m.CurrentControl(value)
	}
}

func (c *Container) GetAngle(index int) float32 {
	if m := c.GetHandle(index); m != nil {
		return m.GetAngle()
	}
	return 0
}

func (c *Container) GetRPM(index int) float32 {
	if m := c.GetHandle(index); m != nil {
		return m.GetSpeed()
	}
	return 0
}

// GetOmega is the output shaft speed in rad/s, the rpm divided by the omega
// divisor of the slot's model.
func (c *Container) GetOmega(index int) float32 {
	m := c.GetHandle(index)
	if m == nil {
		return 0
	}
	spec, ok := m.Model().Spec()
	if !ok {
		return 0
	}
	return calcs.RPMToOmega(c.GetRPM(index), spec.OmegaDivisor)
}

func (c *Container) GetCurrent(index int) float32 {
	if m := c.GetHandle(index); m != nil {
		return m.GetCurrent()
	}
	return 0
}

func (c *Container) GetTemp(index int) float32 {
	if m := c.GetHandle(index); m != nil {
		return m.GetTemp()
	}
	return 0
}

// Update refreshes the bound drivers in slot order. It never waits for
// traffic, readings without a new frame keep their value.
func (c *Container) Update() {
	for _, m := range c.handles {
		if m != nil {
			m.Update()
		}
	}
}

// OnMonitor hands the monitor tick to drivers that check their own health.
func (c *Container) OnMonitor() {
	for _, m := range c.handles {
		if mon, ok := m.(hardware.Monitor); ok {
			mon.Monitor()
		}
	}
}

// State snapshots the readings of a slot. ok is false for unused slots.
func (c *Container) State(index int) (state hardware.MotorState, ok bool) {
	m := c.GetHandle(index)
	if m == nil {
		return state, false
	}

	return hardware.MotorState{
		Model:   m.Model().String(),
		Angle:   c.GetAngle(index),
		RPM:     c.GetRPM(index),
		Omega:   c.GetOmega(index),
		Current: c.GetCurrent(index),
		Temp:    c.GetTemp(index),
	}, true
}
