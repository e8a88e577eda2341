package canbus

import (
	"errors"
	"fmt"
)

const (
	msgMaxLength = 8
	frameLength  = 16 // sizeof(struct can_frame)

	CAN_EFF_FLAG = 0x80000000
	CAN_RTR_FLAG = 0x40000000
	CAN_ERR_FLAG = 0x20000000
	CAN_SFF_MASK = 0x000007ff
	CAN_EFF_MASK = 0x1fffffff
)

// errors
var (
	ErrDataTooLong  = errors.New("data length exceeds 8 bytes")
	ErrShortFrame   = errors.New("raw frame shorter than 16 bytes")
	ErrUnsupported  = errors.New("socketcan is not supported on this platform")
	ErrBusClosed    = errors.New("bus is closed")
	ErrDuplicateBus = errors.New("bus already registered")
)

type CANMsg struct {
	ID       uint32 // arbitration id, 11 bit unless Extended
	Extended bool   // 29 bit identifier
	Data     []byte // raw payload up to eight bytes. DLC is taken from len(Data).
}

func (msg CANMsg) String() string {
	if msg.Extended {
		return fmt.Sprintf("%08X [%d] % X", msg.ID, len(msg.Data), msg.Data)
	}
	return fmt.Sprintf("%03X [%d] % X", msg.ID, len(msg.Data), msg.Data)
}
