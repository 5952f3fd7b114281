package motorport

// Register addresses shared by the TMC5160 (SPI) and TMC2209 (UART)
// families for the subset this Port actually drives: global config,
// chopper config, current control, and status. Trimmed from the
// teacher's full register maps (tmc5160/address.go, tmc2209/address.go)
// down to what Configure/SetEnabled/Status exercise.
const (
	regGCONF      uint8 = 0x00
	regGSTAT      uint8 = 0x01
	regIHOLD_IRUN uint8 = 0x10
	regCHOPCONF   uint8 = 0x6C
	regDRV_STATUS uint8 = 0x6F
)

// gconf is the bitfield layout of the GCONF register, kept from the
// teacher's tmc5160/registers.go Gconf type, trimmed to the fields
// Configure/SetEnabled actually set.
type gconf struct {
	EnPwmMode bool // stealthChop voltage PWM mode
	Shaft     bool // inverts motor direction
}

func (g gconf) pack() uint32 {
	var v uint32
	if g.EnPwmMode {
		v |= 1 << 2
	}
	if g.Shaft {
		v |= 1 << 4
	}
	return v
}

// iholdIrun is the IHOLD_IRUN current-control register layout, kept
// from the teacher's tmc5160/registers.go IHOLD_IRUN type.
type iholdIrun struct {
	Ihold      uint8 // 0..31, holding current
	Irun       uint8 // 0..31, running current
	IholdDelay uint8 // 0..15
}

func (r iholdIrun) pack() uint32 {
	return uint32(clamp(r.Ihold, 0, 31)) |
		uint32(clamp(r.Irun, 0, 31))<<8 |
		uint32(clamp(r.IholdDelay, 0, 15))<<16
}

// chopconf is the chopper configuration layout, kept from the
// teacher's tmc5160/registers.go Chopconf type, trimmed to the fields
// Configure sets (microstep resolution + the teacher's recommended
// chopper timing constants).
type chopconf struct {
	MRES uint8 // microstep resolution exponent: 256>>MRES microsteps
	Toff uint8
	Tbl  uint8
}

func (c chopconf) pack() uint32 {
	return uint32(clamp(c.Toff, 0, 15)) |
		uint32(clamp(c.Tbl, 0, 3))<<15 |
		uint32(clamp(c.MRES, 0, 8))<<24
}

// drvStatus is the status readback layout, kept from the teacher's
// tmc5160/registers.go DRV_STATUS type, trimmed to fault bits.
type drvStatus struct {
	OTPW  bool
	OT    bool
	S2GA  bool
	S2GB  bool
	OLA   bool
	OLB   bool
	Stall bool
}

func unpackDrvStatus(v uint32) drvStatus {
	return drvStatus{
		OTPW:  v&(1<<0) != 0,
		OT:    v&(1<<1) != 0,
		S2GA:  v&(1<<2) != 0,
		S2GB:  v&(1<<3) != 0,
		OLA:   v&(1<<4) != 0,
		OLB:   v&(1<<5) != 0,
		Stall: v&(1<<24) != 0,
	}
}

// microstepsToMRES converts a microstep divisor (1,2,4,...,128) into
// the chip's MRES exponent (256 >> MRES == microsteps). The uint8
// parameter cannot express 256, so MRES 0 is never produced.
func microstepsToMRES(microsteps uint8) uint8 {
	mres := uint8(8)
	for m := uint8(1); m < microsteps && mres > 0; m <<= 1 {
		mres--
	}
	return mres
}
