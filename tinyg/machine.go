// Package tinyg is the façade wiring the motion core together: the
// planner, arc generator, segment executor, step generator, cycle
// controller, and motor ports, connected along the single-writer/
// single-reader cursor discipline of spec.md §5. Machine is the
// top-level owning struct, in the shape of the teacher's own
// Driver type: one struct owning comm plus sub-components, with a
// single init constructor and a small set of per-priority-level
// entry points the embedding program calls from its own scheduler.
package tinyg

import (
	"log"

	"github.com/synthetos/tinyg-motion/arcgen"
	"github.com/synthetos/tinyg-motion/config"
	"github.com/synthetos/tinyg-motion/cycle"
	"github.com/synthetos/tinyg-motion/executor"
	"github.com/synthetos/tinyg-motion/motorport"
	"github.com/synthetos/tinyg-motion/planner"
	"github.com/synthetos/tinyg-motion/stepgen"
	"github.com/synthetos/tinyg-motion/tinygerr"
)

// Machine owns every motion-core component for one multi-axis CNC.
type Machine struct {
	Reg    *config.Registry
	Queue  *planner.Queue
	Arc    *arcgen.Generator
	Exec   *executor.Executor
	Loader *stepgen.Loader
	Engine *stepgen.Engine
	Cycle  *cycle.Controller
	Switch *cycle.Switches
	Motors [config.NumMotors]motorport.Port

	wasAlarm bool
}

// New wires a fresh Machine. sink receives step pulses at HI rate;
// motors is the per-motor driver chip adapter (may contain nil entries
// for unused motor slots).
func New(reg *config.Registry, sink stepgen.PulseSink, motors [config.NumMotors]motorport.Port) *Machine {
	q := planner.NewQueue()
	ex := executor.New(q)
	loader := stepgen.NewLoader(ex)
	sw := cycle.NewSwitches()
	ctl := cycle.New(reg, q, sw)

	var polarity [config.NumMotors]uint8
	for i, mc := range reg.Motors {
		polarity[i] = mc.Polarity
	}
	engine := stepgen.NewEngine(loader, sink, reg.Snapshot(), polarity)
	engine.SetConfig(stepgen.Config{}) // overclock off; see tinygerr.ErrNotSupported
	for i, mc := range reg.Motors {
		if mc.IdlePowerMode == config.IdlePowerTimeout {
			engine.SetIdleTimer(i, motorport.NewIdleTimer(mc.IdleTimeoutTicks))
		}
		if motors[i] != nil {
			motors[i].Configure(mc.Microsteps, mc.RunCurrent, mc.HoldCurrent)
			engine.SetPort(i, motors[i])
		}
	}

	m := &Machine{
		Reg:    reg,
		Queue:  q,
		Arc:    &arcgen.Generator{},
		Exec:   ex,
		Loader: loader,
		Engine: engine,
		Cycle:  ctl,
		Switch: sw,
		Motors: motors,
	}
	ex.OnFinal = m.onBufferFinal
	return m
}

func (m *Machine) onBufferFinal(bf *planner.BF) {
	if m.Cycle.Hold == cycle.HoldDecel && bf.ExitV == 0 {
		m.Cycle.NotifyHoldReached()
	}
}

// gateSubmission rejects any planner submission while the machine is in
// Alarm or Shutdown, per spec.md §4.5 ("gate planner submission during
// alarm") and §8 scenario 6 ("subsequent planner submissions
// rejected"). A reset is the only way back to a state that submits.
func (m *Machine) gateSubmission() error {
	if m.Cycle.Machine == cycle.Alarm || m.Cycle.Machine == cycle.Shutdown {
		return tinygerr.ErrMachineHalted
	}
	return nil
}

// SubmitLine enqueues a straight-line move. See planner.Queue.SubmitLine.
func (m *Machine) SubmitLine(target [config.NumAxes]float64, moveTimeMin float64, isRapid bool, lineNumber uint32) (*planner.BF, error) {
	if err := m.gateSubmission(); err != nil {
		return nil, err
	}
	return m.Queue.SubmitLine(m.Reg, target, moveTimeMin, isRapid, lineNumber)
}

// SubmitDwell enqueues a dwell.
func (m *Machine) SubmitDwell(seconds float64, lineNumber uint32) (*planner.BF, error) {
	if err := m.gateSubmission(); err != nil {
		return nil, err
	}
	return m.Queue.SubmitDwell(seconds, lineNumber)
}

// SubmitMCode enqueues an M-code.
func (m *Machine) SubmitMCode(kind int, lineNumber uint32) (*planner.BF, error) {
	if err := m.gateSubmission(); err != nil {
		return nil, err
	}
	return m.Queue.SubmitMCode(kind, lineNumber)
}

// SubmitArc begins a new arc continuation. Call StepArc repeatedly
// (e.g. once per Foreground iteration) until it reports arcgen.Done.
func (m *Machine) SubmitArc(req arcgen.Request) error {
	if err := m.gateSubmission(); err != nil {
		return err
	}
	return m.Arc.Begin(m.Reg, m.Queue, req)
}

// StepArc advances the in-flight arc continuation, if any.
func (m *Machine) StepArc() arcgen.Status {
	return m.Arc.Step()
}

// RequestCycleStart, RequestFeedhold, RequestResume, and RequestReset
// forward to the cycle controller.
func (m *Machine) RequestCycleStart()            { m.Cycle.RequestCycleStart() }
func (m *Machine) RequestFeedhold()              { m.Cycle.RequestFeedhold() }
func (m *Machine) RequestResume(v, jerk float64) { m.Cycle.RequestResume(v, jerk) }
func (m *Machine) RequestReset()                 { m.Cycle.RequestReset() }

// HITick runs one HI-priority step-generator tick. While the machine is
// in Alarm/Shutdown the engine is held halted so that once the segment
// already in flight finishes, no further segment is loaded (spec.md
// §4.5, §8 scenario 6) — the in-flight segment itself is never cut
// short, preserving pulse-train integrity per §5.
func (m *Machine) HITick() {
	if m.Cycle.Machine == cycle.Alarm || m.Cycle.Machine == cycle.Shutdown {
		m.Engine.Halt()
	} else {
		m.Engine.Resume()
	}
	m.Engine.Tick()
}

// MEDTick runs one MED-priority tick: switch lockout countdown. The
// executor itself is driven indirectly, via the loader, from HITick.
func (m *Machine) MEDTick() {
	m.Switch.Tick()
}

// Foreground runs one foreground scheduler iteration: advances any
// in-flight arc continuation, publishes the executor's last known
// velocity to the cycle controller, then runs the fixed dispatch list.
func (m *Machine) Foreground() {
	if m.Arc.Active() {
		m.StepArc()
	}
	m.Cycle.SetVelocity(m.Exec.Velocity())
	m.Cycle.RunDispatch()

	isAlarm := m.Cycle.Machine == cycle.Alarm
	if isAlarm && !m.wasAlarm {
		log.Printf("tinyg: alarm entered at line %d, queue depth %d", m.Status().LineNumber, m.Queue.Depth())
		m.Queue.Drain()
	}
	m.wasAlarm = isAlarm
}

// Status is a point-in-time snapshot of machine state for reporting.
type Status struct {
	Machine    cycle.MachineState
	Cycle      cycle.CycleState
	Motion     cycle.MotionState
	Hold       cycle.HoldState
	QueueDepth int
	Velocity   float64
	LineNumber uint32
}

// Status returns a snapshot safe to read from the foreground at any time.
func (m *Machine) Status() Status {
	s := Status{
		Machine:    m.Cycle.Machine,
		Cycle:      m.Cycle.Cycle,
		Motion:     m.Cycle.Motion,
		Hold:       m.Cycle.Hold,
		QueueDepth: m.Queue.Depth(),
		Velocity:   m.Exec.Velocity(),
	}
	if b := m.Queue.Peek(); b != nil {
		s.LineNumber = b.LineNumber
	}
	return s
}

// CycleDone reports whether the machine has finished all queued motion
// and returned to a stopped, non-held state — the "move done"/"cycle
// done" completion signal of spec.md §6, exposed as a polled flag
// rather than a callback (no thread blocking anywhere in this core).
func (m *Machine) CycleDone() bool {
	return m.Cycle.Motion == cycle.MotionStop && m.Queue.Depth() == 0
}
