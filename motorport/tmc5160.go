package motorport

// TMC5160Port drives a TMC5160 over SPI register access (comm is
// supplied by the caller; SPI framing itself is an external
// collaborator — board-level peripheral init is out of scope). Adapted
// from the teacher's tmc5160.Driver, generalized behind the Port
// interface.
type TMC5160Port struct {
	comm    RegisterComm
	address uint8
	enable  OutputPin
	stepper Stepper
}

// NewTMC5160Port constructs a port bound to comm/address/enable. enable
// may be nil, in which case the chip's enable is left to its own
// register-level EN bit only.
func NewTMC5160Port(comm RegisterComm, address uint8, enable OutputPin, stepper Stepper) *TMC5160Port {
	if enable == nil {
		enable = noopPin{}
	}
	return &TMC5160Port{comm: comm, address: address, enable: enable, stepper: stepper}
}

func (p *TMC5160Port) writeRegister(reg uint8, value uint32) error {
	if p.comm == nil {
		return CustomError("tmc5160: communication interface not set")
	}
	return p.comm.WriteRegister(reg, value, p.address)
}

func (p *TMC5160Port) readRegister(reg uint8) (uint32, error) {
	if p.comm == nil {
		return 0, CustomError("tmc5160: communication interface not set")
	}
	return p.comm.ReadRegister(reg, p.address)
}

// Configure pushes microstep resolution, run/hold current, and the
// teacher's recommended chopper timing constants, mirroring the
// Begin() sequence from tmc5160/tmc5160.go.
func (p *TMC5160Port) Configure(microsteps uint8, runCurrent, holdCurrent uint8) error {
	gc := gconf{EnPwmMode: true}
	if err := p.writeRegister(regGCONF, gc.pack()); err != nil {
		return err
	}

	iholdrun := iholdIrun{Ihold: holdCurrent, Irun: runCurrent, IholdDelay: 7}
	if err := p.writeRegister(regIHOLD_IRUN, iholdrun.pack()); err != nil {
		return err
	}

	cc := chopconf{MRES: microstepsToMRES(microsteps), Toff: 5, Tbl: 2}
	return p.writeRegister(regCHOPCONF, cc.pack())
}

// SetEnabled drives the chip-enable line, the step generator's
// idle-power policy hook for de-energizing a motor between moves.
func (p *TMC5160Port) SetEnabled(enabled bool) error {
	p.enable.Set(enabled)
	return nil
}

// Status reads DRV_STATUS and reports a coarse fault summary.
func (p *TMC5160Port) Status() (Status, error) {
	v, err := p.readRegister(regDRV_STATUS)
	if err != nil {
		return Status{}, err
	}
	d := unpackDrvStatus(v)
	return Status{
		OverTemperature: d.OT || d.OTPW,
		ShortToGround:   d.S2GA || d.S2GB,
		OpenLoad:        d.OLA || d.OLB,
		StandstillStall: d.Stall,
	}, nil
}
