package comms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/CodedInternet/gomotor/onboard"
	deverrors "github.com/CodedInternet/gomotor/onboard/errors"
	"github.com/CodedInternet/gomotor/onboard/hardware"
)

type mockDevice struct {
	cmds  chan Cmd
	stops chan struct{}
}

func newMockDevice() *mockDevice {
	return &mockDevice{
		cmds:  make(chan Cmd, 8),
		stops: make(chan struct{}, 8),
	}
}

// next waits a little for the next set_current call.
func (d *mockDevice) next() (Cmd, bool) {
	select {
	case cmd := <-d.cmds:
		return cmd, true
	case <-time.After(time.Second):
		return Cmd{}, false
	}
}

func (d *mockDevice) GroupNames() []string {
	return []string{"chassis"}
}

func (d *mockDevice) SetCurrent(group string, index int, value float32) error {
	if group != "chassis" {
		return deverrors.GroupNameError{Name: group}
	}
	d.cmds <- Cmd{Cmd: CMD_SET_CURRENT, Group: group, Index: index, Value: value}
	return nil
}

func (d *mockDevice) GroupState(group string) (onboard.GroupState, error) {
	return d.State()[group], nil
}

func (d *mockDevice) State() onboard.DeviceState {
	return onboard.DeviceState{
		"chassis": {
			Bus: "can1",
			Motors: []onboard.SlotState{
				{Index: 0, MotorState: hardware.MotorState{Model: "M3508", RPM: 1200}},
			},
		},
	}
}

func (d *mockDevice) Stop() {
	d.stops <- struct{}{}
}

func serveConductor(c *Conductor) (*httptest.Server, *websocket.Conn) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c.Serve(conn)
	}))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		panic(err)
	}

	// wait for the server side to register the client
	for i := 0; c.Clients() == 0 && i < 100; i++ {
		time.Sleep(time.Millisecond)
	}
	return srv, conn
}

func TestProcessCommand(t *testing.T) {
	Convey("Commands are dispatched to the device", t, func() {
		device := newMockDevice()
		c := NewConductor(device, time.Second, nil)

		So(c.ProcessCommand(Cmd{Cmd: CMD_SET_CURRENT, Group: "chassis", Index: 3, Value: -0.25}), ShouldBeNil)
		So(<-device.cmds, ShouldResemble, Cmd{Cmd: CMD_SET_CURRENT, Group: "chassis", Index: 3, Value: -0.25})

		So(c.ProcessCommand(Cmd{Cmd: CMD_STOP}), ShouldBeNil)
		So(device.stops, ShouldHaveLength, 1)

		err := c.ProcessCommand(Cmd{Cmd: CMD_SET_CURRENT, Group: "turret"})
		So(err, ShouldResemble, deverrors.GroupNameError{Name: "turret"})

		err = c.ProcessCommand(Cmd{Cmd: "set_height"})
		So(errors.Is(err, ErrUnknownCommand), ShouldBeTrue)
	})
}

func TestConductorStream(t *testing.T) {
	Convey("Given a connected stream client", t, func() {
		device := newMockDevice()
		c := NewConductor(device, 50*time.Millisecond, nil)
		srv, conn := serveConductor(c)
		So(c.Clients(), ShouldEqual, 1)

		Convey("commands from the client reach the device", func() {
			err := conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"set_current","group":"chassis","index":1,"value":0.5}`))
			So(err, ShouldBeNil)

			cmd, ok := device.next()
			So(ok, ShouldBeTrue)
			So(cmd.Index, ShouldEqual, 1)
			So(cmd.Value, ShouldEqual, 0.5)
		})

		Convey("bad commands are answered with an error", func() {
			conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
			var reply ErrorPayload
			So(conn.ReadJSON(&reply), ShouldBeNil)
			So(reply.Error, ShouldEqual, "invalid json")

			conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"set_current","group":"turret"}`))
			So(conn.ReadJSON(&reply), ShouldBeNil)
			So(reply.Cmd, ShouldEqual, CMD_SET_CURRENT)
			So(reply.Error, ShouldContainSubstring, "turret")
		})

		Convey("broadcasts carry the device state", func() {
			So(c.Broadcast(), ShouldBeNil)
			So(c.Broadcast(), ShouldBeNil)

			var state StatePayload
			So(conn.ReadJSON(&state), ShouldBeNil)
			So(state.Seq, ShouldEqual, 1)
			So(state.Groups["chassis"].Motors[0].RPM, ShouldEqual, 1200)
			So(conn.ReadJSON(&state), ShouldBeNil)
			So(state.Seq, ShouldEqual, 2)
		})

		Convey("the client is dropped once it disconnects", func() {
			conn.Close()
			for i := 0; c.Clients() > 0 && i < 100; i++ {
				time.Sleep(time.Millisecond)
			}
			So(c.Clients(), ShouldEqual, 0)
			So(c.Broadcast(), ShouldBeNil)
		})

		Reset(func() {
			conn.Close()
			srv.Close()
		})
	})
}

func TestUpdateClients(t *testing.T) {
	Convey("UpdateClients broadcasts on every period", t, func() {
		device := newMockDevice()
		mock := clock.NewMock()
		c := NewConductor(device, 50*time.Millisecond, nil)
		c.Clock = mock
		srv, conn := serveConductor(c)
		defer srv.Close()
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		errc := make(chan error, 1)
		go func() { errc <- c.UpdateClients(ctx) }()

		// let the ticker be created before moving time
		time.Sleep(20 * time.Millisecond)
		mock.Add(50 * time.Millisecond)

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, raw, err := conn.ReadMessage()
		So(err, ShouldBeNil)

		var state StatePayload
		So(json.Unmarshal(raw, &state), ShouldBeNil)
		So(state.Seq, ShouldEqual, 1)
		So(state.Groups, ShouldContainKey, "chassis")

		cancel()
		So(<-errc, ShouldEqual, context.Canceled)
	})
}
