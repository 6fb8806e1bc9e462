// this code is adapted from the SamehadaDB project; the original bucket
// page stored a fixed int/int slot pair via unsafe struct overlay, this
// version is generalized over K/V via caller-supplied fixed-width codecs
// so the same bucket layout serves any comparable key/value type without
// unsafe pointer tricks.

package page

import "github.com/ryogrid/dbcore/common"

// Codec turns a fixed-width value of type T into bytes and back. Width must
// be the same for every value of T the caller ever encodes, since the
// bucket's slot size is derived from it once at construction.
type Codec[T any] struct {
	Width  int
	Encode func(T, []byte)
	Decode func([]byte) T
}

// BucketCapacity returns B = floor((pageSize*8) / (8*sizeOfKV + 2)), the
// number of slots that fit in one page alongside two B-bit bitmaps.
func BucketCapacity(keyWidth, valWidth int) int {
	kv := keyWidth + valWidth
	return (common.PageSize * 8) / (8*kv + 2)
}

// HashTableBucketPage is a packed slot array plus occupied/readable bitmaps
// overlaid onto a buffer-pool frame's raw bytes. Layout, front to back:
// occupied bitmap (ceil(B/8) bytes), readable bitmap (ceil(B/8) bytes),
// then B slots of (keyWidth+valWidth) bytes each.
type HashTableBucketPage[K comparable, V comparable] struct {
	kc       Codec[K]
	vc       Codec[V]
	capacity int
	occupied []byte
	readable []byte
	slots    []byte
}

func bitmapBytes(capacity int) int {
	return (capacity-1)/8 + 1
}

// NewHashTableBucketPage overlays a bucket view onto buf (typically
// page.Data()[:]). capacity is BucketCapacity(kc.Width, vc.Width); it is
// passed explicitly rather than recomputed so every bucket page in an index
// agrees on it even if buf's usable length varies slightly across backends.
func NewHashTableBucketPage[K comparable, V comparable](buf []byte, kc Codec[K], vc Codec[V], capacity int) *HashTableBucketPage[K, V] {
	nb := bitmapBytes(capacity)
	slotWidth := kc.Width + vc.Width
	need := 2*nb + capacity*slotWidth
	if need > len(buf) {
		panic("hash bucket page: capacity too large for backing buffer")
	}
	return &HashTableBucketPage[K, V]{
		kc:       kc,
		vc:       vc,
		capacity: capacity,
		occupied: buf[0:nb],
		readable: buf[nb : 2*nb],
		slots:    buf[2*nb : 2*nb+capacity*slotWidth],
	}
}

func (b *HashTableBucketPage[K, V]) slot(i int) []byte {
	w := b.kc.Width + b.vc.Width
	return b.slots[i*w : (i+1)*w]
}

func (b *HashTableBucketPage[K, V]) KeyAt(i int) K {
	return b.kc.Decode(b.slot(i)[:b.kc.Width])
}

func (b *HashTableBucketPage[K, V]) ValueAt(i int) V {
	return b.vc.Decode(b.slot(i)[b.kc.Width:])
}

func (b *HashTableBucketPage[K, V]) IsOccupied(i int) bool {
	return b.occupied[i/8]&(1<<uint(i%8)) != 0
}

func (b *HashTableBucketPage[K, V]) IsReadable(i int) bool {
	return b.readable[i/8]&(1<<uint(i%8)) != 0
}

func (b *HashTableBucketPage[K, V]) setOccupied(i int) {
	b.occupied[i/8] |= 1 << uint(i%8)
}

func (b *HashTableBucketPage[K, V]) setReadable(i int) {
	b.readable[i/8] |= 1 << uint(i%8)
}

func (b *HashTableBucketPage[K, V]) clearReadable(i int) {
	b.readable[i/8] &^= 1 << uint(i%8)
}

// Capacity returns B.
func (b *HashTableBucketPage[K, V]) Capacity() int {
	return b.capacity
}

// GetValue returns every live value stored under a key equal to k per cmp.
// It short-circuits on the first unoccupied slot, which is safe only for a
// bucket that has never had a slot cleared out of order (see ScanAll for
// the non-short-circuiting variant split migration must use).
func (b *HashTableBucketPage[K, V]) GetValue(k K, cmp func(K, K) bool) []V {
	var out []V
	for i := 0; i < b.capacity; i++ {
		if !b.IsOccupied(i) {
			break
		}
		if b.IsReadable(i) && cmp(b.KeyAt(i), k) {
			out = append(out, b.ValueAt(i))
		}
	}
	return out
}

// Insert places (k,v) at the first unoccupied slot. It fails if the pair is
// already present (readable, matching key and value) or if the bucket is
// full.
func (b *HashTableBucketPage[K, V]) Insert(k K, v V, cmp func(K, K) bool) bool {
	firstFree := -1
	for i := 0; i < b.capacity; i++ {
		if !b.IsOccupied(i) {
			if firstFree == -1 {
				firstFree = i
			}
			break
		}
		if b.IsReadable(i) && cmp(b.KeyAt(i), k) && b.ValueAt(i) == v {
			return false
		}
	}
	if firstFree == -1 {
		return false
	}
	s := b.slot(firstFree)
	b.kc.Encode(k, s[:b.kc.Width])
	b.vc.Encode(v, s[b.kc.Width:])
	b.setOccupied(firstFree)
	b.setReadable(firstFree)
	return true
}

// Remove clears the readable bit of the first live (k,v) match. occupied is
// left set as a tombstone, so a later GetValue's short-circuit scan still
// walks past this slot.
func (b *HashTableBucketPage[K, V]) Remove(k K, v V, cmp func(K, K) bool) bool {
	for i := 0; i < b.capacity; i++ {
		if !b.IsOccupied(i) {
			break
		}
		if b.IsReadable(i) && cmp(b.KeyAt(i), k) && b.ValueAt(i) == v {
			b.RemoveAt(i)
			return true
		}
	}
	return false
}

// RemoveAt clears the readable bit at i without touching occupied.
func (b *HashTableBucketPage[K, V]) RemoveAt(i int) {
	if !b.IsReadable(i) {
		return
	}
	b.clearReadable(i)
}

// IsFull reports whether every slot has been occupied at least once, which
// is the true "no room to insert" condition since occupied is never
// cleared.
func (b *HashTableBucketPage[K, V]) IsFull() bool {
	for i := 0; i < b.capacity; i++ {
		if !b.IsOccupied(i) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no slot is currently readable.
func (b *HashTableBucketPage[K, V]) IsEmpty() bool {
	return b.NumReadable() == 0
}

// NumReadable counts live slots by scanning the whole bitmap, not by
// short-circuiting, since occupied-but-unreadable holes are expected after
// removes.
func (b *HashTableBucketPage[K, V]) NumReadable() int {
	n := 0
	for i := 0; i < b.capacity; i++ {
		if b.IsReadable(i) {
			n++
		}
	}
	return n
}

// Entry pairs a live slot's key and value, returned by ScanAll.
type Entry[K comparable, V comparable] struct {
	Slot  int
	Key   K
	Value V
}

// ScanAll returns every live (occupied and readable) slot, walking all of
// [0,B) without short-circuiting on the first unoccupied one. Split
// migration uses it to collect a bucket's entries before redistributing
// them.
func (b *HashTableBucketPage[K, V]) ScanAll() []Entry[K, V] {
	var out []Entry[K, V]
	for i := 0; i < b.capacity; i++ {
		if b.IsOccupied(i) && b.IsReadable(i) {
			out = append(out, Entry[K, V]{Slot: i, Key: b.KeyAt(i), Value: b.ValueAt(i)})
		}
	}
	return out
}

// Reset clears every bit and slot. A bucket split uses it to compact the
// old bucket before refilling it with the entries that stay.
func (b *HashTableBucketPage[K, V]) Reset() {
	for i := range b.occupied {
		b.occupied[i] = 0
	}
	for i := range b.readable {
		b.readable[i] = 0
	}
	for i := range b.slots {
		b.slots[i] = 0
	}
}
