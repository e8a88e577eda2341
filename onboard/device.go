package onboard

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/CodedInternet/gomotor/onboard/app"
	"github.com/CodedInternet/gomotor/onboard/canbus"
	deverrors "github.com/CodedInternet/gomotor/onboard/errors"
	"github.com/CodedInternet/gomotor/onboard/hardware"
	"github.com/CodedInternet/gomotor/onboard/motor"
)

// MotorDevice is what the operator surfaces drive.
type MotorDevice interface {
	GroupNames() []string
	SetCurrent(group string, index int, value float32) error
	GroupState(group string) (GroupState, error)
	State() DeviceState
	Stop()
}

type SlotState struct {
	Index int `json:"index"`
	hardware.MotorState
}

type GroupState struct {
	Bus    string      `json:"bus"`
	Motors []SlotState `json:"motors"`
}

type DeviceState map[string]GroupState

// Device is a set of named motor groups, one container per group, all driven
// by the same manager. Every method is safe to call from any goroutine.
type Device struct {
	manager *app.Manager
	groups  map[string]*motor.Container
	names   []string
}

// deferredRegistrar holds applications back until every group is built.
type deferredRegistrar []app.Application

func (r *deferredRegistrar) Register(a app.Application) {
	*r = append(*r, a)
}

// NewDevice opens the bus of every group through hw and builds its container.
// A bus carries one group only so every slot on it is named by one group.
// The containers are registered with manager once all groups are built; on
// error nothing is registered and the slots bound so far are freed.
func NewDevice(config *MotorConfig, hw *canbus.Registry, opener canbus.Opener, manager *app.Manager, logger *zap.SugaredLogger) (d *Device, err error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	d = &Device{
		manager: manager,
		groups:  make(map[string]*motor.Container, len(config.Groups)),
		names:   config.GroupNames(),
	}

	var built deferredRegistrar
	containers := d.groups
	defer func() {
		if err != nil {
			for _, c := range containers {
				c.Close()
			}
		}
	}()

	owners := make(map[string]string, len(d.names))
	for _, name := range d.names {
		group := config.Groups[name]
		if group.Bus == "" {
			return nil, deverrors.BusNameError{Group: name}
		}
		if owner, ok := owners[group.Bus]; ok {
			return nil, errors.Errorf("motor groups %s and %s share bus %s", owner, name, group.Bus)
		}
		owners[group.Bus] = name

		if _, err = hw.Open(group.Bus, opener); err != nil {
			return nil, deverrors.BusNameError{Group: name, Bus: group.Bus, Err: err}
		}

		c, cerr := motor.NewContainer(hw, &built, group.Bus, group.Motors, logger.With("group", name))
		if cerr != nil {
			return nil, errors.Wrapf(cerr, "motor group %s", name)
		}
		d.groups[name] = c

		logger.Infow("motor group ready", "group", name, "bus", group.Bus, "motors", len(group.Motors))
	}

	for _, a := range built {
		manager.Register(a)
	}
	return d, nil
}

func (d *Device) GroupNames() []string {
	names := make([]string, len(d.names))
	copy(names, d.names)
	return names
}

func (d *Device) container(group string) (*motor.Container, error) {
	c, ok := d.groups[group]
	if !ok {
		return nil, deverrors.GroupNameError{Name: group}
	}
	return c, nil
}

// SetCurrent commands a normalised current in [-1, 1]. Like the container,
// an unused or out of range index is accepted and ignored.
func (d *Device) SetCurrent(group string, index int, value float32) error {
	c, err := d.container(group)
	if err != nil {
		return err
	}

	d.manager.Exclusive(func() {
		c.SetCurrent(index, value)
	})
	return nil
}

func (d *Device) GroupState(group string) (state GroupState, err error) {
	c, err := d.container(group)
	if err != nil {
		return
	}

	d.manager.Exclusive(func() {
		state = groupState(c)
	})
	return
}

// State snapshots every group within one cycle boundary.
func (d *Device) State() DeviceState {
	state := make(DeviceState, len(d.groups))
	d.manager.Exclusive(func() {
		for name, c := range d.groups {
			state[name] = groupState(c)
		}
	})
	return state
}

// Stop commands zero current on every bound slot.
func (d *Device) Stop() {
	d.manager.Exclusive(func() {
		for _, c := range d.groups {
			for i := 0; i < motor.SlotCount; i++ {
				c.SetCurrent(i, 0)
			}
		}
	})
}

func groupState(c *motor.Container) GroupState {
	state := GroupState{
		Bus:    c.BusName(),
		Motors: make([]SlotState, 0, motor.SlotCount),
	}
	for i := 0; i < motor.SlotCount; i++ {
		if ms, ok := c.State(i); ok {
			state.Motors = append(state.Motors, SlotState{Index: i, MotorState: ms})
		}
	}
	return state
}
