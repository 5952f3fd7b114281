package motorport

// TMC2209Port drives a TMC2209 over its single-wire UART register
// protocol. Adapted from the teacher's tmc2209.Driver/UARTComm: the
// CRC routine and write/read framing are kept verbatim in spirit, but
// rebuilt on the RegisterComm interface (instead of a direct
// machine.UART) so it is host-testable without tinygo.
type TMC2209Port struct {
	comm    RegisterComm
	address uint8
	stepper Stepper
}

// NewTMC2209Port constructs a port bound to a UART-framed comm.
func NewTMC2209Port(comm RegisterComm, address uint8, stepper Stepper) *TMC2209Port {
	return &TMC2209Port{comm: comm, address: address, stepper: stepper}
}

func (p *TMC2209Port) writeRegister(reg uint8, value uint32) error {
	if p.comm == nil {
		return CustomError("tmc2209: communication interface not set")
	}
	return p.comm.WriteRegister(reg, value, p.address)
}

func (p *TMC2209Port) readRegister(reg uint8) (uint32, error) {
	if p.comm == nil {
		return 0, CustomError("tmc2209: communication interface not set")
	}
	return p.comm.ReadRegister(reg, p.address)
}

// Configure pushes microstep resolution and run/hold current,
// mirroring tmc2209/motor_config.go and tmc2209/current.go.
func (p *TMC2209Port) Configure(microsteps uint8, runCurrent, holdCurrent uint8) error {
	cc := chopconf{MRES: microstepsToMRES(microsteps), Toff: 5, Tbl: 2}
	if err := p.writeRegister(regCHOPCONF, cc.pack()); err != nil {
		return err
	}
	iholdrun := iholdIrun{Ihold: holdCurrent, Irun: runCurrent, IholdDelay: 7}
	return p.writeRegister(regIHOLD_IRUN, iholdrun.pack())
}

// SetEnabled toggles stealthChop's PWM mode bit as a software enable,
// since the TMC2209 (unlike the TMC5160) is commonly wired without a
// separate hardware enable pin. Mirrors tmc2209/stealthchop.go.
func (p *TMC2209Port) SetEnabled(enabled bool) error {
	gc := gconf{EnPwmMode: enabled}
	return p.writeRegister(regGCONF, gc.pack())
}

// Status reads DRV_STATUS and reports a coarse fault summary.
func (p *TMC2209Port) Status() (Status, error) {
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

// CalculateCRC computes the TMC2209 UART datagram CRC, kept verbatim
// from the teacher's tmc2209/utils.go.
func CalculateCRC(data []byte) uint8 {
	crc := uint8(0)
	for _, b := range data {
		for i := 0; i < 8; i++ {
			if (crc>>7)^(b&0x01) == 1 {
				crc = (crc << 1) ^ 0x07
			} else {
				crc = crc << 1
			}
			b >>= 1
		}
	}
	return crc
}
