// Command tgconsole is a line-oriented demo harness for package tinyg,
// standing in for the out-of-scope G-code console and serial I/O layer
// (spec.md §1's external collaborators). It reads whitespace-tokenized
// commands from stdin and drives a single Machine.
package main

import (
	"bufio"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/google/shlex"

	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/motorport"
	"github.com/synthetos/tinyg-motion/tinyg"
)

// logSink counts emitted step pulses per motor; real boards wire
// PulseSink to a GPIO toggle instead.
type logSink struct {
	counts [config.NumMotors]int
}

func (s *logSink) Pulse(motor int, dir uint8) {
	s.counts[motor]++
}

func main() {
	reg := config.Default()
	sink := &logSink{}
	var motors [config.NumMotors]motorport.Port
	m := tinyg.New(reg, sink, motors)

	fmt.Println("tgconsole: type 'help' for commands")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields, err := shlex.Split(scanner.Text())
		if err != nil || len(fields) == 0 {
			continue
		}
		if !dispatch(m, sink, fields) {
			break
		}
	}
}

// lastTarget is the last target the console submitted successfully;
// "line" turns its feedrate into a move time from the distance to it.
var lastTarget [config.NumAxes]float64

func dispatch(m *tinyg.Machine, sink *logSink, fields []string) bool {
	switch fields[0] {
	case "help":
		fmt.Println("commands: line X Y Z F | dwell SECONDS | start | feedhold | resume V | reset | status | run N | quit")
	case "line":
		if len(fields) < 5 {
			fmt.Println("usage: line X Y Z F")
			return true
		}
		target, feed, err := parseLine(fields[1:])
		if err != nil {
			fmt.Println("error:", err)
			return true
		}
		moveTime := 0.0
		if feed > 0 {
			var sq float64
			for i := range target {
				d := target[i] - lastTarget[i]
				sq += d * d
			}
			moveTime = math.Sqrt(sq) / feed
		}
		if _, err := m.SubmitLine(target, moveTime, false, 0); err != nil {
			fmt.Println("submit_line failed:", err)
		} else {
			lastTarget = target
		}
	case "dwell":
		secs, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			fmt.Println("error:", err)
			return true
		}
		if _, err := m.SubmitDwell(secs, 0); err != nil {
			fmt.Println("submit_dwell failed:", err)
		}
	case "start":
		m.RequestCycleStart()
	case "feedhold":
		m.RequestFeedhold()
	case "resume":
		v, _ := strconv.ParseFloat(orDefault(fields, 1, "0"), 64)
		m.RequestResume(v, 5e7)
	case "reset":
		m.RequestReset()
	case "status":
		s := m.Status()
		fmt.Printf("machine=%v cycle=%v motion=%v hold=%v queue=%d v=%.1f line=%d\n",
			s.Machine, s.Cycle, s.Motion, s.Hold, s.QueueDepth, s.Velocity, s.LineNumber)
	case "run":
		n, _ := strconv.Atoi(orDefault(fields, 1, "10000"))
		runTicks(m, n)
	case "quit", "exit":
		return false
	default:
		fmt.Println("unknown command:", fields[0])
	}
	return true
}

// runTicks advances the machine's three priority levels for n HI
// ticks, calling MED/foreground work at a coarser cadence, standing in
// for the board's real timer ISRs during this host-side demo.
func runTicks(m *tinyg.Machine, n int) {
	for i := 0; i < n; i++ {
		m.HITick()
		if i%100 == 0 {
			m.MEDTick()
			m.Foreground()
		}
	}
	log.Printf("ran %d ticks, cycle done=%v", n, m.CycleDone())
}

// parseLine reads "X Y Z ... F": every field but the last is an axis
// target (up to config.NumAxes of them), and the last field is always
// the feedrate, matching the "line X Y Z F" usage string.
func parseLine(fields []string) ([config.NumAxes]float64, float64, error) {
	var target [config.NumAxes]float64
	if len(fields) < 2 {
		return target, 0, fmt.Errorf("usage: line X Y Z F")
	}
	axisFields, feedField := fields[:len(fields)-1], fields[len(fields)-1]
	for i, f := range axisFields {
		if i >= config.NumAxes {
			break
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return target, 0, err
		}
		target[i] = v
	}
	feed, err := strconv.ParseFloat(feedField, 64)
	if err != nil {
		return target, 0, err
	}
	return target, feed, nil
}

func orDefault(fields []string, i int, def string) string {
	if i < len(fields) {
		return fields[i]
	}
	return def
}
