package hashtable

import (
	"testing"

	"go.viam.com/test"
)

func TestInsertGetRoundTrip(t *testing.T) {
	tbl := New(16)
	tbl.Insert(7, "seven")
	v, ok := tbl.Get(7)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "seven")
}

func TestGetMissing(t *testing.T) {
	tbl := New(16)
	_, ok := tbl.Get(99)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestDuplicateKeysAllowed(t *testing.T) {
	tbl := New(4)
	tbl.Insert(1, "a")
	tbl.Insert(1, "b")
	v, ok := tbl.Get(1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "b")
}

func TestRemove(t *testing.T) {
	tbl := New(4)
	tbl.Insert(5, "x")
	test.That(t, tbl.Remove(5), test.ShouldBeTrue)
	_, ok := tbl.Get(5)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestResizePreservesEntries(t *testing.T) {
	tbl := New(2)
	for i := uint32(0); i < 50; i++ {
		tbl.Insert(i, i)
	}
	tbl.Resize(256)
	for i := uint32(0); i < 50; i++ {
		v, ok := tbl.Get(i)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, v, test.ShouldEqual, i)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := New(8)
	tbl.Insert(1, "orig")
	clone := tbl.Clone()
	tbl.Insert(1, "mutated")

	v, _ := clone.Get(1)
	test.That(t, v, test.ShouldEqual, "orig")
}

func TestNextPowerOfTwoSizing(t *testing.T) {
	tbl := New(17)
	test.That(t, tbl.Len(), test.ShouldEqual, 32)
}
