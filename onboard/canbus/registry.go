package canbus

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Opener creates the bus for an interface name, NewCANBus on real hardware.
type Opener func(name string) (Bus, error)

// SocketCAN opens a raw SocketCAN bus.
func SocketCAN(name string) (Bus, error) {
	bus, err := NewCANBus(name)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

// Registry maps bus names to buses. Components borrow buses from it; the
// registry owns them and closes them all at shutdown.
type Registry struct {
	lock  sync.Mutex
	buses map[string]Bus
}

func NewRegistry() *Registry {
	return &Registry{buses: make(map[string]Bus)}
}

func (r *Registry) Add(bus Bus) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.buses[bus.Name()]; ok {
		return errors.Wrap(ErrDuplicateBus, bus.Name())
	}
	r.buses[bus.Name()] = bus
	return nil
}

func (r *Registry) Find(name string) (bus Bus, ok bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	bus, ok = r.buses[name]
	return
}

// Open returns the bus called name, creating it through opener the first time.
func (r *Registry) Open(name string, opener Opener) (bus Bus, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	bus, ok := r.buses[name]
	if !ok {
		// need to create bus
		bus, err = opener(name)
		if err != nil {
			return nil, errors.Wrapf(err, "open bus %s", name)
		}
		r.buses[name] = bus
	}

	return bus, nil
}

func (r *Registry) Names() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	names := make([]string, 0, len(r.buses))
	for name := range r.buses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Close() (err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for name, bus := range r.buses {
		err = multierr.Append(err, bus.Close())
		delete(r.buses, name)
	}
	return err
}
