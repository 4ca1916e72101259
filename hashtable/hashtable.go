// Package hashtable implements an open-chained, uint32-keyed hash table
// sized to the next power of two, ported from the hashtable_int family of
// functions in the original surface-matching module.
package hashtable

import (
	"encoding/binary"

	"go.viam.com/ppf3d/internal/murmur"
)

// defaultHashSeed matches the seed the ppf package uses for its own
// MurmurHash3 key hashing, so a Table built with New and one built with
// an explicit murmur-based hasher distribute keys identically.
const defaultHashSeed uint32 = 42

// Node is one entry in a Table's bucket chain.
type Node struct {
	Key   uint32
	Value any
	next  *Node
}

// Next returns the next node in this bucket's chain, or nil.
func (n *Node) Next() *Node {
	if n == nil {
		return nil
	}
	return n.next
}

// Table is an open-chained hash table keyed by uint32. Duplicate keys are
// permitted; Get returns the most recently inserted match. Iteration order
// within a bucket, and across buckets, is unspecified.
type Table struct {
	buckets []*Node
	hash    func(uint32) uint32
}

// New returns a Table with at least size buckets (rounded up to the next
// power of two), using MurmurHash3 x86-32 (seed 42) as the default key
// hash, matching the original surface-matching module's default internal
// hash over a uint32 key.
func New(size int) *Table {
	return NewWithHasher(size, defaultHash)
}

// NewWithHasher returns a Table with at least size buckets (rounded up to
// the next power of two), using hash to map keys to bucket indices.
func NewWithHasher(size int, hash func(uint32) uint32) *Table {
	if size < 1 {
		size = 1
	}
	return &Table{
		buckets: make([]*Node, nextPowerOfTwo(uint32(size))),
		hash:    hash,
	}
}

func defaultHash(key uint32) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	return murmur.Hash32(buf[:], defaultHashSeed)
}

// nextPowerOfTwo rounds value up to the next highest power of two, ported
// from next_power_of_two in the original surface-matching module.
func nextPowerOfTwo(value uint32) uint32 {
	value--
	value |= value >> 1
	value |= value >> 2
	value |= value >> 4
	value |= value >> 8
	value |= value >> 16
	value++
	return value
}

func (t *Table) bucketIndex(key uint32) uint32 {
	return t.hash(key) % uint32(len(t.buckets))
}

// Bucket returns the head of the bucket chain that key hashes into. Ported
// from hashtable_int_get_bucket_hashed.
func (t *Table) Bucket(key uint32) *Node {
	return t.buckets[t.bucketIndex(key)]
}

// Insert adds key/value as a new head node in its bucket.
func (t *Table) Insert(key uint32, value any) {
	idx := t.bucketIndex(key)
	t.buckets[idx] = &Node{Key: key, Value: value, next: t.buckets[idx]}
}

// InsertPreHashed is equivalent to Insert: Go has no separate "raw hash
// code vs. re-hash the key" step the way the original's C implementation
// does, so both entry points share one code path. Kept as a distinct
// method for contract fidelity with the original's insert/insert_hashed
// split. Callers that, like the original, pass an already-hashed key and
// want bucket placement to use that value directly should build the
// Table with NewWithHasher and an identity hasher; otherwise the key is
// hashed again on its way to a bucket.
func (t *Table) InsertPreHashed(key uint32, value any) {
	t.Insert(key, value)
}

// Get returns the most recently inserted value for key, if any.
func (t *Table) Get(key uint32) (any, bool) {
	for n := t.Bucket(key); n != nil; n = n.next {
		if n.Key == key {
			return n.Value, true
		}
	}
	return nil, false
}

// Remove deletes the first node matching key from its bucket. Returns
// whether a node was removed.
func (t *Table) Remove(key uint32) bool {
	idx := t.bucketIndex(key)
	var prev *Node
	for n := t.buckets[idx]; n != nil; n = n.next {
		if n.Key == key {
			if prev == nil {
				t.buckets[idx] = n.next
			} else {
				prev.next = n.next
			}
			return true
		}
		prev = n
	}
	return false
}

// Resize rebuilds the table with at least newSize buckets (rounded up to
// the next power of two), preserving all entries.
func (t *Table) Resize(newSize int) {
	if newSize < 1 {
		newSize = 1
	}
	newBuckets := make([]*Node, nextPowerOfTwo(uint32(newSize)))
	for _, head := range t.buckets {
		var chain []*Node
		for n := head; n != nil; n = n.next {
			chain = append(chain, n)
		}
		// Re-insert oldest first so each new chain keeps newest-first order.
		for i := len(chain) - 1; i >= 0; i-- {
			n := chain[i]
			idx := t.hash(n.Key) % uint32(len(newBuckets))
			newBuckets[idx] = &Node{Key: n.Key, Value: n.Value, next: newBuckets[idx]}
		}
	}
	t.buckets = newBuckets
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{buckets: make([]*Node, len(t.buckets)), hash: t.hash}
	for i, head := range t.buckets {
		var newHead, tail *Node
		for n := head; n != nil; n = n.next {
			cp := &Node{Key: n.Key, Value: n.Value}
			if newHead == nil {
				newHead = cp
			} else {
				tail.next = cp
			}
			tail = cp
		}
		out.buckets[i] = newHead
	}
	return out
}

// Len returns the number of buckets (always a power of two).
func (t *Table) Len() int {
	return len(t.buckets)
}

// Each calls fn for every node in the table, in unspecified order.
func (t *Table) Each(fn func(*Node)) {
	for _, head := range t.buckets {
		for n := head; n != nil; n = n.next {
			fn(n)
		}
	}
}
