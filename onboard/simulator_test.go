package onboard

import (
	"encoding/binary"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/CodedInternet/gomotor/onboard/canbus"
	"github.com/CodedInternet/gomotor/onboard/hardware"
)

func readFeedback(rx chan canbus.CANMsg) (ticks uint16, rpm, current int16, temp uint8) {
	var msg canbus.CANMsg
	select {
	case msg = <-rx:
	default:
		panic("no feedback frame")
	}
	return binary.BigEndian.Uint16(msg.Data[0:2]),
		int16(binary.BigEndian.Uint16(msg.Data[2:4])),
		int16(binary.BigEndian.Uint16(msg.Data[4:6])),
		msg.Data[6]
}

func TestSimulator(t *testing.T) {
	Convey("Given a simulated bus", t, func() {
		sim := NewSimulator(time.Millisecond, nil)
		bus, err := sim.Open("can0")
		So(err, ShouldBeNil)

		again, _ := sim.Open("can0")
		So(again, ShouldEqual, bus)

		rx := make(chan canbus.CANMsg, 1)
		bus.AddListener(hardware.FeedbackID(5), rx)

		Convey("idle motors report standstill", func() {
			sim.Update()
			ticks, rpm, current, temp := readFeedback(rx)
			So(ticks, ShouldEqual, 0)
			So(rpm, ShouldEqual, 0)
			So(current, ShouldEqual, 0)
			So(temp, ShouldEqual, SIM_AMBIENT_TEMP)
		})

		Convey("a control frame drives the matching slot", func() {
			raw := int16(-SIM_FULL_RAW)
			data := make([]byte, 8)
			binary.BigEndian.PutUint16(data[2:4], uint16(raw))
			So(bus.SendMsg(canbus.CANMsg{ID: hardware.CMD_GROUP_HIGH, Data: data}), ShouldBeNil)

			var rpm int16
			var ticks uint16
			for i := 0; i < 500; i++ {
				sim.Step(time.Millisecond)
				ticks, rpm, _, _ = readFeedback(rx)
				So(ticks, ShouldBeLessThan, hardware.ENCODER_TICKS)
			}
			So(rpm, ShouldBeBetween, -SIM_FREE_RPM-1, -SIM_FREE_RPM+10)
		})

		Convey("other frames are ignored", func() {
			data := []byte{0x40, 0x00, 0x40, 0x00}
			bus.SendMsg(canbus.CANMsg{ID: 0x123, Data: data})
			bus.SendMsg(canbus.CANMsg{ID: hardware.CMD_GROUP_LOW, Data: data})
			sim.Step(10 * time.Millisecond)

			_, rpm, _, _ := readFeedback(rx)
			So(rpm, ShouldEqual, 0)
		})
	})
}
