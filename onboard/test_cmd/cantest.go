//go:build linux
// +build linux

// cantest prints the feedback of every motor slot on one CAN interface and can
// optionally drive a single motor at a fixed current while doing so.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/CodedInternet/gomotor/calcs"
	"github.com/CodedInternet/gomotor/onboard/canbus"
	"github.com/CodedInternet/gomotor/onboard/hardware"
)

func main() {
	ifname := flag.String("i", "can0", "CAN interface")
	count := flag.Int("n", 0, "stop after n frames, 0 runs until interrupted")
	model := flag.String("model", "", "model of the motor to drive, e.g. M3508")
	index := flag.Int("index", 0, "slot of the motor to drive")
	current := flag.Float64("current", 0, "normalised current for the driven motor")
	flag.Parse()

	bus, err := canbus.NewCANBus(*ifname)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open %s: %v\n", *ifname, err)
		os.Exit(1)
	}
	defer bus.Close()

	rx := make(chan canbus.CANMsg, 64)
	for i := 0; i < hardware.MaxMotors; i++ {
		bus.AddListener(hardware.FeedbackID(i), rx)
	}

	var drive *hardware.Group
	var raw int16
	if *model != "" {
		m, err := hardware.ParseModel(*model)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		spec, ok := m.Spec()
		if !ok || *index < 0 || *index >= hardware.MaxMotors {
			fmt.Fprintln(os.Stderr, "need a motor model and an index in 0-10")
			os.Exit(2)
		}
		drive = hardware.NewGroups(bus).For(*index)
		raw = calcs.NormalizedToRaw(float32(*current), spec.MaxRawCurrent)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

loop:
	for seen := 0; *count == 0 || seen < *count; {
		select {
		case msg := <-rx:
			seen++
			printFeedback(msg)
		case <-ticker.C:
			if drive != nil {
				if err := drive.Set(*index, raw); err != nil {
					fmt.Fprintln(os.Stderr, "send:", err)
				}
			}
		case <-interrupt:
			break loop
		}
	}

	if drive != nil {
		drive.Set(*index, 0)
	}
}

func printFeedback(msg canbus.CANMsg) {
	fmt.Println(msg)
	if len(msg.Data) < 7 {
		return
	}
	fmt.Printf("  slot %d angle %d rpm %d current %d temp %d\n",
		msg.ID-hardware.FEEDBACK_BASE,
		binary.BigEndian.Uint16(msg.Data[0:2]),
		int16(binary.BigEndian.Uint16(msg.Data[2:4])),
		int16(binary.BigEndian.Uint16(msg.Data[4:6])),
		msg.Data[6])
}
