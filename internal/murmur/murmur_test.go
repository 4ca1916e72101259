package murmur

import (
	"encoding/binary"
	"testing"

	"go.viam.com/test"
)

func TestHash32Deterministic(t *testing.T) {
	data := []byte("surface matching")
	h1 := Hash32(data, 42)
	h2 := Hash32(data, 42)
	test.That(t, h1, test.ShouldEqual, h2)
}

func TestHash32SeedSensitive(t *testing.T) {
	data := []byte("surface matching")
	test.That(t, Hash32(data, 42), test.ShouldNotEqual, Hash32(data, 43))
}

func TestHash32OfUint32Key(t *testing.T) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], 123456)
	h := Hash32(buf[:], 42)
	test.That(t, h, test.ShouldNotEqual, uint32(0))
}
