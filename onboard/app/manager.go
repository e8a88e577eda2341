// Package app is the host side of the periodic component lifecycle: components
// register once and are then updated every control cycle and monitored at a
// slower rate.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	DefaultUpdatePeriod  = time.Millisecond
	DefaultMonitorPeriod = 100 * time.Millisecond
)

// Application is a component driven by the Manager.
type Application interface {
	Update()
	OnMonitor()
}

// Registrar is the part of the Manager components see at construction.
type Registrar interface {
	Register(app Application)
}

type Option func(*Manager)

func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithPeriods sets the update and monitor periods; zero keeps the default.
func WithPeriods(update, monitor time.Duration) Option {
	return func(m *Manager) {
		if update > 0 {
			m.updatePeriod = update
		}
		if monitor > 0 {
			m.monitorPeriod = monitor
		}
	}
}

// Manager owns the registration list and the cycle lock. Everything that
// touches a registered component from another goroutine goes through Exclusive.
type Manager struct {
	lock          sync.Mutex
	apps          []Application
	clock         clock.Clock
	logger        *zap.SugaredLogger
	updatePeriod  time.Duration
	monitorPeriod time.Duration
	cycles        uint64
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clock:         clock.New(),
		logger:        zap.NewNop().Sugar(),
		updatePeriod:  DefaultUpdatePeriod,
		monitorPeriod: DefaultMonitorPeriod,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register appends app; components are driven in registration order.
func (m *Manager) Register(app Application) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.apps = append(m.apps, app)
}

func (m *Manager) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.apps)
}

func (m *Manager) UpdateAll() {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, app := range m.apps {
		app.Update()
	}
	m.cycles++
}

func (m *Manager) MonitorAll() {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, app := range m.apps {
		app.OnMonitor()
	}
}

// Exclusive runs fn while no cycle is in progress.
func (m *Manager) Exclusive(fn func()) {
	m.lock.Lock()
	defer m.lock.Unlock()
	fn()
}

// Cycles is the number of completed update cycles.
func (m *Manager) Cycles() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.cycles
}

// Run drives the update and monitor cycles until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	update := m.clock.Ticker(m.updatePeriod)
	defer update.Stop()
	monitor := m.clock.Ticker(m.monitorPeriod)
	defer monitor.Stop()

	m.logger.Infow("application loop started",
		"components", m.Len(),
		"update", m.updatePeriod,
		"monitor", m.monitorPeriod)

	for {
		select {
		case <-ctx.Done():
			m.logger.Infow("application loop stopped", "cycles", m.Cycles())
			return ctx.Err()
		case <-update.C:
			m.UpdateAll()
		case <-monitor.C:
			m.MonitorAll()
		}
	}
}
