package hardware

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v2"
)

func TestParseModel(t *testing.T) {
	Convey("Model names parse regardless of case and prefix", t, func() {
		cases := map[string]Model{
			"M3508":        ModelM3508,
			"m2006":        ModelM2006,
			"MOTOR_GM6020": ModelGM6020,
			"none":         ModelNone,
			"MOTOR_NONE":   ModelNone,
			"":             ModelNone,
		}
		for name, want := range cases {
			got, err := ParseModel(name)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		Convey("unknown names error", func() {
			_, err := ParseModel("M9000")
			So(errors.Is(err, ErrUnknownModel), ShouldBeTrue)
		})
	})

	Convey("Only real models carry a spec", t, func() {
		_, ok := ModelNone.Spec()
		So(ok, ShouldBeFalse)

		spec, ok := ModelM3508.Spec()
		So(ok, ShouldBeTrue)
		So(spec.OmegaDivisor, ShouldEqual, float32(184.6153))
		So(Model(99).String(), ShouldEqual, "Model(99)")
	})
}

func TestParamYAML(t *testing.T) {
	Convey("Slot parameters read from yaml", t, func() {
		var params []Param
		err := yaml.Unmarshal([]byte(`
- model: M3508
  reverse: true
- model: none
- {}
`), &params)
		So(err, ShouldBeNil)
		So(params, ShouldResemble, []Param{
			{Model: ModelM3508, Reverse: true},
			{Model: ModelNone},
			{Model: ModelNone},
		})

		Convey("and write back by name", func() {
			out, err := yaml.Marshal(params[0])
			So(err, ShouldBeNil)
			So(string(out), ShouldContainSubstring, "model: M3508")
		})

		Convey("bad names fail the whole document", func() {
			err := yaml.Unmarshal([]byte(`- model: M9000`), &params)
			So(err, ShouldNotBeNil)
		})
	})
}
