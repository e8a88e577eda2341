// Package comms streams device state to operator clients over websockets and
// takes their commands.
package comms

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/CodedInternet/gomotor/onboard"
)

const (
	writeWait  = time.Second
	sendBuffer = 16
	maxMessage = 4096
)

var ErrUnknownCommand = errors.New("unknown command")

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Conductor fans state snapshots out to every connected client. Clients that
// fall behind miss snapshots rather than slowing the others down.
type Conductor struct {
	Device onboard.MotorDevice
	Period time.Duration
	Clock  clock.Clock
	Logger *zap.SugaredLogger

	lock    sync.Mutex
	clients map[*client]struct{}
	seq     uint64
}

func NewConductor(device onboard.MotorDevice, period time.Duration, logger *zap.SugaredLogger) *Conductor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Conductor{
		Device:  device,
		Period:  period,
		Clock:   clock.New(),
		Logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (c *Conductor) ProcessCommand(cmd Cmd) error {
	switch cmd.Cmd {
	case CMD_SET_CURRENT:
		return c.Device.SetCurrent(cmd.Group, cmd.Index, cmd.Value)

	case CMD_STOP:
		c.Device.Stop()
		return nil

	default:
		return errors.Wrap(ErrUnknownCommand, cmd.Cmd)
	}
}

// Serve runs one client connection until it closes. It takes ownership of conn.
func (c *Conductor) Serve(conn *websocket.Conn) {
	cl := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	c.lock.Lock()
	c.clients[cl] = struct{}{}
	c.lock.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump(cl)
	}()

	c.readPump(cl)

	c.lock.Lock()
	delete(c.clients, cl)
	close(cl.send)
	c.lock.Unlock()
	<-done
	conn.Close()
}

func (c *Conductor) readPump(cl *client) {
	cl.conn.SetReadLimit(maxMessage)
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Logger.Warnw("stream client read failed", "error", err)
			}
			return
		}

		var cmd Cmd
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.reply(cl, ErrorPayload{Error: "invalid json"})
			continue
		}

		if err := c.ProcessCommand(cmd); err != nil {
			c.Logger.Debugw("stream command rejected", "cmd", cmd.Cmd, "error", err)
			c.reply(cl, ErrorPayload{Cmd: cmd.Cmd, Error: err.Error()})
		}
	}
}

func (c *Conductor) writePump(cl *client) {
	for msg := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.Logger.Debugw("stream client write failed", "error", err)
		}
	}
}

func (c *Conductor) reply(cl *client, payload interface{}) {
	msg, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.clients[cl]; ok {
		select {
		case cl.send <- msg:
		default:
		}
	}
}

func (c *Conductor) Clients() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.clients)
}

// Broadcast sends one state snapshot to every client.
func (c *Conductor) Broadcast() error {
	c.lock.Lock()
	c.seq++
	payload := StatePayload{Seq: c.seq}
	idle := len(c.clients) == 0
	c.lock.Unlock()
	if idle {
		return nil
	}

	payload.Groups = c.Device.State()
	msg, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "unable to encode state")
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	for cl := range c.clients {
		select {
		case cl.send <- msg:
		default:
		}
	}
	return nil
}

// UpdateClients broadcasts every Period until ctx is done.
func (c *Conductor) UpdateClients(ctx context.Context) error {
	ticker := c.Clock.Ticker(c.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Broadcast(); err != nil {
				return err
			}
		}
	}
}
