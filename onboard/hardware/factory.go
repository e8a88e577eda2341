package hardware

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/CodedInternet/gomotor/onboard/canbus"
)

type driverConfig struct {
	model   Model
	bus     canbus.Bus
	index   int
	reverse bool
	groups  *Groups
	logger  *zap.SugaredLogger
}

type constructor func(cfg driverConfig) (Motor, error)

// every model the driver layer knows, ModelNone deliberately absent
var constructors = map[Model]constructor{
	ModelM2006:  newRMMotor,
	ModelM3508:  newRMMotor,
	ModelGM6020: newRMMotor,
}

// New creates the driver for model at index on bus and claims the slot in
// groups. Motors on one bus share groups so their currents travel in the same
// control frames.
func New(model Model, bus canbus.Bus, index int, reverse bool, groups *Groups, logger *zap.SugaredLogger) (Motor, error) {
	build, ok := constructors[model]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownModel, "%s", model)
	}
	if index < 0 || index >= MaxMotors {
		return nil, errors.Wrapf(ErrBadIndex, "%d", index)
	}
	if groups == nil {
		groups = NewGroups(bus)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if err := groups.Claim(index); err != nil {
		return nil, err
	}
	m, err := build(driverConfig{
		model:   model,
		bus:     bus,
		index:   index,
		reverse: reverse,
		groups:  groups,
		logger:  logger,
	})
	if err != nil {
		groups.Release(index)
		return nil, err
	}
	return m, nil
}
