package onboard

import (
	"os"
	"sort"
	"time"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	deverrors "github.com/CodedInternet/gomotor/onboard/errors"
	"github.com/CodedInternet/gomotor/onboard/hardware"
	"github.com/CodedInternet/gomotor/onboard/motor"
)

// CONFIG_VERSION is the range of config file versions this build understands.
const CONFIG_VERSION = "~1.0"

const (
	DEFAULT_UPDATE_HZ  = 1000
	DEFAULT_MONITOR_HZ = 10
	DEFAULT_STREAM_HZ  = 20
)

type GroupConfig struct {
	Bus    string           `yaml:"bus"`
	Motors []hardware.Param `yaml:"motors"`
}

// Operator is a person allowed to drive the device. Password holds a bcrypt
// hash, never the plain text.
type Operator struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type MotorConfig struct {
	Version   string                 `yaml:"version"`
	Groups    map[string]GroupConfig `yaml:"groups"`
	Operators []Operator             `yaml:"operators"`
	UpdateHz  int                    `yaml:"update_hz"`
	MonitorHz int                    `yaml:"monitor_hz"`
	StreamHz  int                    `yaml:"stream_hz"`
}

func LoadConfig(filename string) (*MotorConfig, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config")
	}
	return ParseConfig(raw)
}

func ParseConfig(raw []byte) (*MotorConfig, error) {
	config := new(MotorConfig)
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the version range and every group, reporting all group
// problems at once.
func (c *MotorConfig) Validate() (err error) {
	constraint, err := semver.NewConstraint(CONFIG_VERSION)
	if err != nil {
		return err
	}
	version, verr := semver.NewVersion(c.Version)
	if verr != nil || !constraint.Check(version) {
		return deverrors.ConfigVersionError{Version: c.Version, Constraint: CONFIG_VERSION}
	}

	for _, name := range c.GroupNames() {
		group := c.Groups[name]
		if group.Bus == "" {
			err = multierr.Append(err, deverrors.BusNameError{Group: name})
		}
		if len(group.Motors) > motor.SlotCount {
			err = multierr.Append(err, errors.Wrapf(motor.ErrTooManySlots, "motor group %s has %d", name, len(group.Motors)))
		}
	}

	for i, op := range c.Operators {
		if op.Email == "" || op.Password == "" {
			err = multierr.Append(err, errors.Errorf("operator %d needs an email and a password hash", i))
		}
	}
	return err
}

// GroupNames returns the configured group names in sorted order.
func (c *MotorConfig) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for name := range c.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *MotorConfig) Operator(email string) (Operator, bool) {
	for _, op := range c.Operators {
		if op.Email == email {
			return op, true
		}
	}
	return Operator{}, false
}

func (c *MotorConfig) UpdatePeriod() time.Duration {
	return hzToPeriod(c.UpdateHz, DEFAULT_UPDATE_HZ)
}

func (c *MotorConfig) MonitorPeriod() time.Duration {
	return hzToPeriod(c.MonitorHz, DEFAULT_MONITOR_HZ)
}

func (c *MotorConfig) StreamPeriod() time.Duration {
	return hzToPeriod(c.StreamHz, DEFAULT_STREAM_HZ)
}

func hzToPeriod(hz, def int) time.Duration {
	if hz <= 0 {
		hz = def
	}
	return time.Second / time.Duration(hz)
}
