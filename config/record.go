package config

import (
	"encoding/binary"
	"math"
)

// Record is one fixed-width NVM entry: {group_id, mnemonic_id, 4-byte
// value}, matching spec.md §6's persisted-state layout. The flash
// driver itself stays an external collaborator; this type only defines
// the in-memory layout and its (de)serialization, in the spirit of the
// teacher's own register bitfield Pack/Unpack methods.
type Record struct {
	GroupID    uint8
	MnemonicID uint8
	Value      float32
}

// RecordSize is the on-disk width of one Record: 1 + 1 + 4 bytes.
const RecordSize = 6

// trailerMnemonic marks the profile trailer record that terminates a Table.
const trailerMnemonic = 0xFF

// Pack serializes the record into a RecordSize-byte buffer.
func (rec Record) Pack() [RecordSize]byte {
	var buf [RecordSize]byte
	buf[0] = rec.GroupID
	buf[1] = rec.MnemonicID
	binary.BigEndian.PutUint32(buf[2:], math.Float32bits(rec.Value))
	return buf
}

// Unpack decodes a RecordSize-byte buffer into this Record.
func (rec *Record) Unpack(buf [RecordSize]byte) {
	rec.GroupID = buf[0]
	rec.MnemonicID = buf[1]
	rec.Value = math.Float32frombits(binary.BigEndian.Uint32(buf[2:]))
}

// Table is a versioned, ordered set of Records, indexed by stable
// record position (the index into Records, not a hash), terminated by
// a trailer record.
type Table struct {
	Version uint8
	Records []Record
}

// Pack serializes the whole table: a version byte, each record in
// order, then the profile trailer.
func (t Table) Pack() []byte {
	out := make([]byte, 0, 1+(len(t.Records)+1)*RecordSize)
	out = append(out, t.Version)
	for _, rec := range t.Records {
		b := rec.Pack()
		out = append(out, b[:]...)
	}
	trailer := Record{GroupID: trailerMnemonic, MnemonicID: trailerMnemonic}
	b := trailer.Pack()
	out = append(out, b[:]...)
	return out
}

// Unpack parses a byte stream produced by Pack, stopping at the
// trailer record. Returns false if the stream is malformed (no
// trailer found, or a truncated record).
func Unpack(data []byte) (Table, bool) {
	if len(data) < 1 {
		return Table{}, false
	}
	t := Table{Version: data[0]}
	rest := data[1:]
	for len(rest) >= RecordSize {
		var buf [RecordSize]byte
		copy(buf[:], rest[:RecordSize])
		rest = rest[RecordSize:]
		var rec Record
		rec.Unpack(buf)
		if rec.GroupID == trailerMnemonic && rec.MnemonicID == trailerMnemonic {
			return t, true
		}
		t.Records = append(t.Records, rec)
	}
	return t, false
}

// Find returns the value stored for (group, mnemonic) and whether it
// was present.
func (t Table) Find(group, mnemonic uint8) (float32, bool) {
	for _, rec := range t.Records {
		if rec.GroupID == group && rec.MnemonicID == mnemonic {
			return rec.Value, true
		}
	}
	return 0, false
}
