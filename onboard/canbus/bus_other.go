//go:build !linux

package canbus

// CANBus is only available on linux; elsewhere use a LoopbackBus.
type CANBus struct {
	*LoopbackBus
}

func NewCANBus(ifname string) (*CANBus, error) {
	return nil, ErrUnsupported
}
