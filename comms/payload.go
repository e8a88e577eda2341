package comms

import (
	"github.com/CodedInternet/gomotor/onboard"
)

const (
	CMD_SET_CURRENT = "set_current"
	CMD_STOP        = "stop"
)

// Cmd is a command sent by a stream client.
type Cmd struct {
	Cmd   string  `json:"cmd"`
	Group string  `json:"group"`
	Index int     `json:"index"`
	Value float32 `json:"value"`
}

type StatePayload struct {
	Seq    uint64              `json:"seq"`
	Groups onboard.DeviceState `json:"groups"`
}

type ErrorPayload struct {
	Cmd   string `json:"cmd,omitempty"`
	Error string `json:"error"`
}
