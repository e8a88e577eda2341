package hardware

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/CodedInternet/gomotor/calcs"
	"github.com/CodedInternet/gomotor/onboard/canbus"
)

const (
	ENCODER_TICKS = 8192

	// updates without feedback before a motor is reported stale
	StaleCycles = 100

	// feedback frames buffered between two updates
	rxDepth = 8
)

// RMMotor drives a RoboMaster motor (C610/C620 ESC or GM6020) over CAN.
// It is not safe for concurrent use: one goroutine calls Update, the
// accessors must not run at the same time.
type RMMotor struct {
	model   Model
	spec    Spec
	index   int
	reverse bool
	group   *Group
	rx      chan canbus.CANMsg
	logger  *zap.SugaredLogger

	// raw feedback
	ticks   uint16
	speed   int16
	current int16
	temp    uint8

	command     float32
	frames      uint64
	malformed   uint64
	sinceFrame  int
	stale       bool
	txErrors    uint64
	reportedTx  uint64
	lastTxError error
}

func newRMMotor(cfg driverConfig) (Motor, error) {
	spec, ok := cfg.model.Spec()
	if !ok {
		return nil, ErrUnknownModel
	}

	m := &RMMotor{
		model:   cfg.model,
		spec:    spec,
		index:   cfg.index,
		reverse: cfg.reverse,
		group:   cfg.groups.For(cfg.index),
		rx:      make(chan canbus.CANMsg, rxDepth),
		logger:  cfg.logger.With("model", cfg.model.String(), "index", cfg.index),
	}
	cfg.bus.AddListener(FeedbackID(cfg.index), m.rx)

	return m, nil
}

func (m *RMMotor) Model() Model {
	return m.model
}

func (m *RMMotor) Index() int {
	return m.index
}

// CurrentControl clamps out to [-1, 1] and sends it with the rest of the group.
func (m *RMMotor) CurrentControl(out float32) {
	if m.reverse {
		out = -out
	}
	m.command = out

	raw := calcs.NormalizedToRaw(out, m.spec.MaxRawCurrent)
	if err := m.group.Set(m.index, raw); err != nil {
		m.txErrors++
		m.lastTxError = err
	}
}

func (m *RMMotor) Update() {
	var latest canbus.CANMsg
	got := false

drain:
	for {
		select {
		case msg := <-m.rx:
			latest, got = msg, true
		default:
			break drain
		}
	}

	if !got {
		m.sinceFrame++
		return
	}

	m.decode(latest.Data)
}

func (m *RMMotor) decode(data []byte) {
	if len(data) < 6 || (m.spec.HasTemp && len(data) < 7) {
		m.malformed++
		m.sinceFrame++
		return
	}

	m.ticks = binary.BigEndian.Uint16(data[0:2]) % ENCODER_TICKS
	m.speed = int16(binary.BigEndian.Uint16(data[2:4]))
	m.current = int16(binary.BigEndian.Uint16(data[4:6]))
	if m.spec.HasTemp {
		m.temp = data[6]
	}

	m.frames++
	m.sinceFrame = 0
}

func (m *RMMotor) GetAngle() float32 {
	angle := calcs.TicksToRad(m.ticks, ENCODER_TICKS)
	if m.reverse {
		return calcs.MirrorAngle(angle)
	}
	return angle
}

func (m *RMMotor) GetSpeed() float32 {
	if m.reverse {
		return -float32(m.speed)
	}
	return float32(m.speed)
}

func (m *RMMotor) GetCurrent() float32 {
	amps := calcs.RawToAmps(m.current, m.spec.MaxRawCurrent, m.spec.MaxAmps)
	if m.reverse {
		return -amps
	}
	return amps
}

func (m *RMMotor) GetTemp() float32 {
	return float32(m.temp)
}

// Frames is the number of feedback frames decoded so far.
func (m *RMMotor) Frames() uint64 {
	return m.frames
}

// Monitor logs feedback loss and failed current commands, once per change.
func (m *RMMotor) Monitor() {
	switch {
	case m.sinceFrame >= StaleCycles && !m.stale:
		m.stale = true
		m.logger.Warnw("motor feedback stale", "updates", m.sinceFrame, "frames", m.frames)
	case m.sinceFrame < StaleCycles && m.stale:
		m.stale = false
		m.logger.Infow("motor feedback recovered", "frames", m.frames)
	}

	if m.txErrors > m.reportedTx {
		m.logger.Warnw("current command not sent",
			"failed", m.txErrors-m.reportedTx,
			"error", m.lastTxError)
		m.reportedTx = m.txErrors
	}

	if m.malformed > 0 {
		m.logger.Debugw("malformed feedback dropped", "count", m.malformed)
		m.malformed = 0
	}
}

// Stale reports whether Monitor last saw the feedback as lost.
func (m *RMMotor) Stale() bool {
	return m.stale
}
