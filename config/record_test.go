package config

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRecordPackUnpack(t *testing.T) {
	c := qt.New(t)

	rec := Record{GroupID: 3, MnemonicID: 7, Value: 1200.5}
	buf := rec.Pack()

	var got Record
	got.Unpack(buf)
	c.Assert(got, qt.Equals, rec)
}

func TestTablePackUnpackRoundTrip(t *testing.T) {
	c := qt.New(t)

	table := Table{
		Version: 1,
		Records: []Record{
			{GroupID: 1, MnemonicID: 1, Value: 5e7},
			{GroupID: 1, MnemonicID: 2, Value: 0.05},
			{GroupID: 2, MnemonicID: 1, Value: 100},
		},
	}

	data := table.Pack()
	got, ok := Unpack(data)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got.Version, qt.Equals, table.Version)
	c.Assert(got.Records, qt.DeepEquals, table.Records)

	v, found := got.Find(1, 2)
	c.Assert(found, qt.IsTrue)
	c.Assert(v, qt.Equals, float32(0.05))
}

func TestUnpackMalformedMissingTrailer(t *testing.T) {
	c := qt.New(t)
	_, ok := Unpack([]byte{1, 0, 0})
	c.Assert(ok, qt.IsFalse)
}

func TestClampAndMicrostepSnap(t *testing.T) {
	c := qt.New(t)
	r := Default()

	c.Assert(r.SetAxisJerkMax(0, -5), qt.IsTrue)
	c.Assert(r.Axes[0].JerkMax, qt.Equals, 0.0)

	c.Assert(r.SetMicrosteps(0, 20), qt.IsTrue)
	c.Assert(r.Motors[0].Microsteps, qt.Equals, uint8(16))

	c.Assert(r.SetAxisJerkMax(-1, 1), qt.IsFalse)
	c.Assert(r.SetMicrosteps(99, 1), qt.IsFalse)
}
