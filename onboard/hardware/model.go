package hardware

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Model selects the motor driver bound to a slot.
type Model uint8

const (
	ModelNone Model = iota // slot is unused
	ModelM2006
	ModelM3508
	ModelGM6020
)

var (
	ErrUnknownModel = errors.New("unknown motor model")
	ErrBadIndex     = errors.New("motor index out of range")
	ErrSlotTaken    = errors.New("motor slot already bound")
)

// Spec carries the model specific constants of a motor.
type Spec struct {
	MaxRawCurrent int16   // raw command/feedback value at full current
	MaxAmps       float32 // current at MaxRawCurrent
	Reduction     float32 // gearbox ratio between rotor and output shaft
	// OmegaDivisor turns rotor rpm into output shaft rad/s. It depends on the
	// gearbox, so a motor fitted with a different reduction needs its own value.
	OmegaDivisor float32
	HasTemp      bool
}

var specs = map[Model]Spec{
	ModelM2006: {
		MaxRawCurrent: 10000,
		MaxAmps:       10,
		Reduction:     36,
		OmegaDivisor:  343.7747, // 36 * 60 / 2pi
		HasTemp:       false,
	},
	ModelM3508: {
		MaxRawCurrent: 16384,
		MaxAmps:       20,
		Reduction:     3591.0 / 187.0,
		// measured on the C620/M3508 chassis wheels, slightly above the
		// nominal 19.2 * 60 / 2pi
		OmegaDivisor: 184.6153,
		HasTemp:      true,
	},
	ModelGM6020: {
		MaxRawCurrent: 16384,
		MaxAmps:       3,
		Reduction:     1,
		OmegaDivisor:  9.549297, // 60 / 2pi
		HasTemp:       true,
	},
}

var modelNames = map[Model]string{
	ModelNone:   "none",
	ModelM2006:  "M2006",
	ModelM3508:  "M3508",
	ModelGM6020: "GM6020",
}

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Model(%d)", uint8(m))
}

// Spec returns the constants for m. ok is false for ModelNone and unknown values.
func (m Model) Spec() (spec Spec, ok bool) {
	spec, ok = specs[m]
	return
}

// ParseModel accepts the model name in any case, with or without the MOTOR_
// prefix used by older configuration files.
func ParseModel(s string) (Model, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "MOTOR_")
	if name == "" {
		return ModelNone, nil
	}

	for m, n := range modelNames {
		if strings.ToUpper(n) == name {
			return m, nil
		}
	}
	return ModelNone, errors.Wrapf(ErrUnknownModel, "%q", s)
}

func (m Model) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *Model) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}

	parsed, err := ParseModel(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Param configures one slot.
type Param struct {
	Model   Model `yaml:"model"`
	Reverse bool  `yaml:"reverse"`
}
