// this code is adapted from the SamehadaDB project's hash_table_header_page.go;
// the original header page tracked a flat list of block page ids for
// linear-probing overlaid directly on page bytes, this version keeps that
// byte-overlay approach but tracks per-slot local depth alongside bucket
// page id to support extendible hashing.

package page

import (
	"encoding/binary"

	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/types"
)

// MaxDirectoryDepth bounds how far global_depth can grow, giving a
// directory of up to 512 slots.
const MaxDirectoryDepth = common.MaxHashDirDepth
const maxDirectorySlots = 1 << MaxDirectoryDepth

// directory page layout, overlaid on a buffer-pool frame's raw bytes:
//
//	globalDepth (1 byte) | bucketPageID[512] (int32 each) | localDepth[512] (1 byte each)
const (
	dirGlobalDepthOffset = 0
	dirBucketIDsOffset   = 8 // leave room for alignment / future header fields
	dirLocalDepthOffset  = dirBucketIDsOffset + maxDirectorySlots*4
)

// HashTableDirectoryPage is the extendible hash index's single directory
// page: global depth, and per-slot bucket page id + local depth.
type HashTableDirectoryPage struct {
	buf []byte
}

// NewHashTableDirectoryPage overlays a directory view onto buf (typically
// page.Data()[:]).
func NewHashTableDirectoryPage(buf []byte) *HashTableDirectoryPage {
	if len(buf) < dirLocalDepthOffset+maxDirectorySlots {
		panic("hash directory page: backing buffer too small")
	}
	return &HashTableDirectoryPage{buf: buf}
}

func (d *HashTableDirectoryPage) GetGlobalDepth() uint32 {
	return uint32(d.buf[dirGlobalDepthOffset])
}

func (d *HashTableDirectoryPage) setGlobalDepth(depth uint32) {
	d.buf[dirGlobalDepthOffset] = byte(depth)
}

// GlobalDepthMask is (1<<global_depth)-1.
func (d *HashTableDirectoryPage) GlobalDepthMask() uint32 {
	return (uint32(1) << d.GetGlobalDepth()) - 1
}

// LocalDepthMask is (1<<local_depth(i))-1.
func (d *HashTableDirectoryPage) LocalDepthMask(i uint32) uint32 {
	return (uint32(1) << d.GetLocalDepth(i)) - 1
}

func (d *HashTableDirectoryPage) GetLocalDepth(i uint32) uint32 {
	return uint32(d.buf[dirLocalDepthOffset+i])
}

func (d *HashTableDirectoryPage) SetLocalDepth(i uint32, depth uint32) {
	d.buf[dirLocalDepthOffset+i] = byte(depth)
}

func (d *HashTableDirectoryPage) IncrLocalDepth(i uint32) {
	d.SetLocalDepth(i, d.GetLocalDepth(i)+1)
}

func (d *HashTableDirectoryPage) DecrLocalDepth(i uint32) {
	d.SetLocalDepth(i, d.GetLocalDepth(i)-1)
}

func (d *HashTableDirectoryPage) bucketOffset(i uint32) int {
	return dirBucketIDsOffset + int(i)*4
}

func (d *HashTableDirectoryPage) GetBucketPageId(i uint32) types.PageID {
	return types.PageID(binary.LittleEndian.Uint32(d.buf[d.bucketOffset(i):]))
}

func (d *HashTableDirectoryPage) SetBucketPageId(i uint32, pageID types.PageID) {
	binary.LittleEndian.PutUint32(d.buf[d.bucketOffset(i):], uint32(pageID))
}

// Size returns 2^global_depth, the number of live directory slots.
func (d *HashTableDirectoryPage) Size() uint32 {
	return uint32(1) << d.GetGlobalDepth()
}

// SplitImageIndex returns the sibling slot i was paired with before its
// most recent split: i XOR (1 << (local_depth(i)-1)).
func (d *HashTableDirectoryPage) SplitImageIndex(i uint32) uint32 {
	return i ^ (uint32(1) << (d.GetLocalDepth(i) - 1))
}

// Grow doubles the directory, copying each low-half slot's bucket id and
// local depth into its mirrored high-half slot.
func (d *HashTableDirectoryPage) Grow() {
	oldSize := d.Size()
	d.setGlobalDepth(d.GetGlobalDepth() + 1)
	for j := oldSize; j < d.Size(); j++ {
		d.SetBucketPageId(j, d.GetBucketPageId(j-oldSize))
		d.SetLocalDepth(j, d.GetLocalDepth(j-oldSize))
	}
}

// CanShrink reports whether every live slot's local depth is strictly less
// than global depth, the precondition for Shrink.
func (d *HashTableDirectoryPage) CanShrink() bool {
	gd := d.GetGlobalDepth()
	for i := uint32(0); i < d.Size(); i++ {
		if d.GetLocalDepth(i) >= gd {
			return false
		}
	}
	return true
}

// Shrink halves the directory. Callers must check CanShrink first.
func (d *HashTableDirectoryPage) Shrink() {
	d.setGlobalDepth(d.GetGlobalDepth() - 1)
}

// VerifyIntegrity checks the directory's slot-equivalence invariant: for
// every slot i, all slots congruent to i mod 2^local_depth(i) share the same
// bucket id and local depth.
func (d *HashTableDirectoryPage) VerifyIntegrity() bool {
	size := d.Size()
	gd := d.GetGlobalDepth()
	for i := uint32(0); i < size; i++ {
		ld := d.GetLocalDepth(i)
		if ld > gd {
			return false
		}
		mask := d.LocalDepthMask(i)
		for j := uint32(0); j < size; j++ {
			if i&mask == j&mask {
				if d.GetBucketPageId(j) != d.GetBucketPageId(i) || d.GetLocalDepth(j) != ld {
					return false
				}
			}
		}
	}
	return true
}

// InitEmpty sets up the initial two-slot directory: global_depth=1, both
// slots at local_depth=1, pointing at bucket0PageID and bucket1PageID
// respectively. The source this is adapted from has a copy-paste bug that
// assigns bucket0 to both slots; this always installs two distinct bucket
// ids.
func (d *HashTableDirectoryPage) InitEmpty(bucket0PageID, bucket1PageID types.PageID) {
	d.setGlobalDepth(1)
	d.SetBucketPageId(0, bucket0PageID)
	d.SetLocalDepth(0, 1)
	d.SetBucketPageId(1, bucket1PageID)
	d.SetLocalDepth(1, 1)
}
