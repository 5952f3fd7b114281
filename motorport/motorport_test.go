package motorport

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// fakeComm is an in-memory RegisterComm used to test Port adapters
// without real SPI/UART hardware.
type fakeComm struct {
	regs map[uint8]uint32
}

func newFakeComm() *fakeComm { return &fakeComm{regs: map[uint8]uint32{}} }

func (f *fakeComm) ReadRegister(reg, _ uint8) (uint32, error) {
	return f.regs[reg], nil
}

func (f *fakeComm) WriteRegister(reg uint8, value uint32, _ uint8) error {
	f.regs[reg] = value
	return nil
}

type fakePin struct{ state bool }

func (p *fakePin) Set(high bool) { p.state = high }

func TestTMC5160PortConfigureAndStatus(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	pin := &fakePin{}
	port := NewTMC5160Port(comm, 0, pin, NewDefaultStepper())

	err := port.Configure(16, 20, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(comm.regs[regCHOPCONF]&(0xFF<<24), qt.Not(qt.Equals), uint32(0)|uint32(0)) // MRES bits present somewhere

	c.Assert(port.SetEnabled(true), qt.IsNil)
	c.Assert(pin.state, qt.IsTrue)

	comm.regs[regDRV_STATUS] = 1 << 1 // OT bit
	st, err := port.Status()
	c.Assert(err, qt.IsNil)
	c.Assert(st.OverTemperature, qt.IsTrue)
	c.Assert(st.Errored(), qt.IsTrue)
}

func TestTMC2209PortConfigureNoEnablePin(t *testing.T) {
	c := qt.New(t)
	comm := newFakeComm()
	port := NewTMC2209Port(comm, 0, NewDefaultStepper())

	c.Assert(port.Configure(128, 31, 8), qt.IsNil)
	c.Assert(port.SetEnabled(true), qt.IsNil)
	c.Assert(comm.regs[regGCONF]&(1<<2), qt.Not(qt.Equals), uint32(0))
}

func TestMicrostepsToMRES(t *testing.T) {
	c := qt.New(t)
	c.Assert(microstepsToMRES(128), qt.Equals, uint8(1))
	c.Assert(microstepsToMRES(1), qt.Equals, uint8(8))
	c.Assert(microstepsToMRES(16), qt.Equals, uint8(4))
}

func TestCRCMatchesKnownVector(t *testing.T) {
	c := qt.New(t)
	// Read-access datagram for GCONF: sync(0x05) + node address(0x00) +
	// register 0x00, whose CRC byte is 0x48.
	data := []byte{0x05, 0x00, 0x00}
	crc := CalculateCRC(data)
	c.Assert(crc, qt.Equals, uint8(0x48))
}

func TestIdleTimer(t *testing.T) {
	c := qt.New(t)
	it := NewIdleTimer(3)
	c.Assert(it.Idle(), qt.IsTrue) // never touched: already idle

	it.Touch()
	c.Assert(it.Tick(), qt.IsFalse)
	c.Assert(it.Tick(), qt.IsFalse)
	c.Assert(it.Tick(), qt.IsTrue) // third tick after touch crosses to idle
	c.Assert(it.Idle(), qt.IsTrue)
}
