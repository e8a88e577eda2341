package canbus

import (
	"encoding/binary"
)

// toByteArray packs the message into the layout of the kernel's struct can_frame.
func (msg *CANMsg) toByteArray() (raw []byte, err error) {
	if len(msg.Data) > msgMaxLength {
		return nil, ErrDataTooLong
	}

	raw = make([]byte, frameLength)

	oid := msg.ID
	if msg.Extended || oid != oid&CAN_SFF_MASK {
		oid = (oid & CAN_EFF_MASK) | CAN_EFF_FLAG
	}
	binary.LittleEndian.PutUint32(raw[0:4], oid)

	raw[4] = byte(len(msg.Data))
	copy(raw[8:], msg.Data)

	return
}

// msgFromByteArray decodes a raw can_frame. Error and remote frames carry no
// motor data and are reported as not ok.
func msgFromByteArray(raw []byte) (msg CANMsg, ok bool) {
	if len(raw) < frameLength {
		return msg, false
	}

	oid := binary.LittleEndian.Uint32(raw[0:4])
	if oid&(CAN_ERR_FLAG|CAN_RTR_FLAG) != 0 {
		return msg, false
	}

	if oid&CAN_EFF_FLAG != 0 {
		msg.ID = oid & CAN_EFF_MASK
		msg.Extended = true
	} else {
		msg.ID = oid & CAN_SFF_MASK
	}

	dataLength := int(raw[4])
	if dataLength > msgMaxLength {
		dataLength = msgMaxLength
	}

	// copy out so the read buffer can be reused
	msg.Data = make([]byte, dataLength)
	copy(msg.Data, raw[8:8+dataLength])

	return msg, true
}
