package page

import (
	"encoding/binary"
	"testing"

	"github.com/ryogrid/dbcore/common"
	"github.com/stretchr/testify/assert"
)

func int32Codec() Codec[int32] {
	return Codec[int32]{
		Width: 4,
		Encode: func(v int32, b []byte) {
			binary.LittleEndian.PutUint32(b, uint32(v))
		},
		Decode: func(b []byte) int32 {
			return int32(binary.LittleEndian.Uint32(b))
		},
	}
}

func intCmp(a, b int32) bool { return a == b }

func TestHashTableBucketPageInsertGetRemove(t *testing.T) {
	var buf [common.PageSize]byte
	kc, vc := int32Codec(), int32Codec()
	capacity := BucketCapacity(kc.Width, vc.Width)
	b := NewHashTableBucketPage[int32, int32](buf[:], kc, vc, capacity)

	assert.True(t, b.IsEmpty())
	assert.True(t, b.Insert(1, 100, intCmp))
	assert.True(t, b.Insert(2, 200, intCmp))
	assert.False(t, b.Insert(1, 100, intCmp)) // duplicate rejected

	assert.Equal(t, []int32{100}, b.GetValue(1, intCmp))
	assert.Equal(t, 2, b.NumReadable())

	assert.True(t, b.Remove(1, 100, intCmp))
	assert.False(t, b.Remove(1, 100, intCmp))
	assert.Empty(t, b.GetValue(1, intCmp))
	assert.Equal(t, 1, b.NumReadable())
	assert.False(t, b.IsEmpty())
}

func TestHashTableBucketPageFullAndScanAll(t *testing.T) {
	var buf [common.PageSize]byte
	kc, vc := int32Codec(), int32Codec()
	capacity := BucketCapacity(kc.Width, vc.Width)
	b := NewHashTableBucketPage[int32, int32](buf[:], kc, vc, capacity)

	for i := 0; i < capacity; i++ {
		assert.True(t, b.Insert(int32(i), int32(i*10), intCmp))
	}
	assert.True(t, b.IsFull())
	assert.False(t, b.Insert(int32(capacity), int32(9999), intCmp))

	b.RemoveAt(0)
	// occupied stays set at slot 0, so short-circuiting GetValue on a later
	// key still finds it: occupied[0]=true means the scan doesn't stop early.
	assert.NotEmpty(t, b.GetValue(int32(capacity-1), intCmp))

	all := b.ScanAll()
	assert.Equal(t, capacity-1, len(all))
}
