package onboard

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CodedInternet/gomotor/onboard/canbus"
	"github.com/CodedInternet/gomotor/onboard/hardware"
)

const (
	SIM_FREE_RPM      = 8000 // rotor speed at full command
	SIM_FULL_RAW      = 16384
	SIM_TIME_CONSTANT = 40 * time.Millisecond
	SIM_AMBIENT_TEMP  = 30
	SIM_HEATING       = 20 // degrees above ambient at full current
)

type simMotor struct {
	command int16
	rpm     float64
	current float64
	ticks   float64
}

type simBus struct {
	bus    *canbus.LoopbackBus
	motors [hardware.MaxMotors]simMotor
}

// Simulator stands in for the motors on every bus it opens. It reads the
// control frames sent on its loopback buses and answers each Update with one
// feedback frame per slot, the motor following its command as a first order
// lag. Register it on the manager before the motor groups so the feedback of a
// cycle is read in the same cycle.
type Simulator struct {
	lock   sync.Mutex
	buses  map[string]*simBus
	dt     time.Duration
	steps  uint64
	logger *zap.SugaredLogger
}

func NewSimulator(dt time.Duration, logger *zap.SugaredLogger) *Simulator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Simulator{
		buses:  make(map[string]*simBus),
		dt:     dt,
		logger: logger,
	}
}

// Open is a canbus.Opener that creates a simulated bus.
func (s *Simulator) Open(name string) (canbus.Bus, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if sb, ok := s.buses[name]; ok {
		return sb.bus, nil
	}

	sb := &simBus{bus: canbus.NewLoopbackBus(name)}
	sb.bus.OnSend(func(msg canbus.CANMsg) {
		s.command(sb, msg)
	})
	s.buses[name] = sb
	s.logger.Infow("simulated bus opened", "bus", name)
	return sb.bus, nil
}

func (s *Simulator) command(sb *simBus, msg canbus.CANMsg) {
	var base int
	switch msg.ID {
	case hardware.CMD_GROUP_LOW:
		base = 0
	case hardware.CMD_GROUP_HIGH:
		base = 4
	case hardware.CMD_GROUP_EXT:
		base = 8
	default:
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for slot := 0; slot < 4 && base+slot < hardware.MaxMotors; slot++ {
		if len(msg.Data) < (slot+1)*2 {
			break
		}
		sb.motors[base+slot].command = int16(binary.BigEndian.Uint16(msg.Data[slot*2:]))
	}
}

// Step advances every simulated motor by dt and publishes its feedback.
func (s *Simulator) Step(dt time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()

	alpha := dt.Seconds() / (SIM_TIME_CONSTANT.Seconds() + dt.Seconds())
	for _, sb := range s.buses {
		for i := range sb.motors {
			m := &sb.motors[i]
			target := float64(m.command) / SIM_FULL_RAW
			m.rpm += (target*SIM_FREE_RPM - m.rpm) * alpha
			m.current += (float64(m.command) - m.current) * alpha
			m.ticks = math.Mod(m.ticks+m.rpm/60*dt.Seconds()*hardware.ENCODER_TICKS, hardware.ENCODER_TICKS)
			if m.ticks < 0 {
				m.ticks += hardware.ENCODER_TICKS
			}

			sb.bus.Inject(canbus.CANMsg{ID: hardware.FeedbackID(i), Data: m.feedback()})
		}
	}
	s.steps++
}

func (m *simMotor) feedback() []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint16(data[0:2], uint16(m.ticks))
	binary.BigEndian.PutUint16(data[2:4], uint16(int16(math.Round(m.rpm))))
	binary.BigEndian.PutUint16(data[4:6], uint16(int16(math.Round(m.current))))
	data[6] = uint8(SIM_AMBIENT_TEMP + SIM_HEATING*math.Abs(m.current)/SIM_FULL_RAW)
	return data
}

func (s *Simulator) Update() {
	s.Step(s.dt)
}

func (s *Simulator) OnMonitor() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.logger.Debugw("simulator", "buses", len(s.buses), "steps", s.steps)
}
