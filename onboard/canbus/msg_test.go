package canbus

import (
	"encoding/binary"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCANMsg_toByteArray(t *testing.T) {
	Convey("Standard frame format encodes correctly", t, func() {
		msg := &CANMsg{
			ID: 0x123,
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint32(buf, 0x1234)
		msg.Data = buf[:2] // need to do this manually so the length gets correctly set
		raw, err := msg.toByteArray()
		So(err, ShouldBeNil)

		Convey("ID gets set correctly", func() {
			So(raw[0:4], ShouldResemble, []byte{0x23, 0x01, 0x00, 0x00})
		})

		Convey("Data length is correctly set", func() {
			So(raw[4], ShouldEqual, 2)
		})

		Convey("Data is copied over", func() {
			So(raw[8:], ShouldResemble, []byte{0x34, 0x12, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
		})

		Convey("data length error is handled correctly", func() {
			msg.Data = make([]byte, 8)
			_, err := msg.toByteArray()
			So(err, ShouldBeNil)

			msg.Data = make([]byte, 9)
			_, err = msg.toByteArray()
			So(err, ShouldEqual, ErrDataTooLong)
		})
	})

	Convey("Extended frame format sets the EFF flag", t, func() {
		msg := &CANMsg{ID: 0x1234567, Data: []byte{1}}
		raw, err := msg.toByteArray()
		So(err, ShouldBeNil)
		So(binary.LittleEndian.Uint32(raw[0:4]), ShouldEqual, uint32(0x1234567|CAN_EFF_FLAG))

		Convey("even for a small id when requested", func() {
			msg := &CANMsg{ID: 0x10, Extended: true}
			raw, _ := msg.toByteArray()
			So(binary.LittleEndian.Uint32(raw[0:4]), ShouldEqual, uint32(0x10|CAN_EFF_FLAG))
		})
	})
}

func TestMsgFromByteArray(t *testing.T) {
	Convey("A round trip keeps id and payload", t, func() {
		msg := &CANMsg{ID: 0x201, Data: []byte{0x1f, 0xff, 0x00, 0x64, 0xff, 0x38, 0x24, 0x00}}
		raw, _ := msg.toByteArray()

		decoded, ok := msgFromByteArray(raw)
		So(ok, ShouldBeTrue)
		So(decoded.ID, ShouldEqual, 0x201)
		So(decoded.Extended, ShouldBeFalse)
		So(decoded.Data, ShouldResemble, msg.Data)

		Convey("and the payload does not alias the raw buffer", func() {
			raw[8] = 0
			So(decoded.Data[0], ShouldEqual, 0x1f)
		})
	})

	Convey("Error and remote frames are discarded", t, func() {
		raw := make([]byte, frameLength)
		binary.LittleEndian.PutUint32(raw[0:4], 0x201|CAN_ERR_FLAG)
		_, ok := msgFromByteArray(raw)
		So(ok, ShouldBeFalse)

		binary.LittleEndian.PutUint32(raw[0:4], 0x201|CAN_RTR_FLAG)
		_, ok = msgFromByteArray(raw)
		So(ok, ShouldBeFalse)
	})

	Convey("Short buffers are rejected", t, func() {
		_, ok := msgFromByteArray(make([]byte, 8))
		So(ok, ShouldBeFalse)
	})

	Convey("A bogus DLC is capped at eight bytes", t, func() {
		raw := make([]byte, frameLength)
		raw[4] = 15
		msg, ok := msgFromByteArray(raw)
		So(ok, ShouldBeTrue)
		So(len(msg.Data), ShouldEqual, 8)
	})
}

func BenchmarkCANMsg_toByteArray(b *testing.B) {
	msg := &CANMsg{
		ID:   0x7ff,
		Data: make([]byte, 8),
	}
	binary.LittleEndian.PutUint32(msg.Data, 0x0001)

	for n := 0; n < b.N; n++ {
		msg.toByteArray()
	}
}

func BenchmarkMsgFromByteArray(b *testing.B) {
	msg := &CANMsg{
		ID:   0x7ff,
		Data: make([]byte, 8),
	}
	binary.LittleEndian.PutUint32(msg.Data, 0x0001)
	raw, _ := msg.toByteArray()

	for n := 0; n < b.N; n++ {
		msgFromByteArray(raw)
	}
}
