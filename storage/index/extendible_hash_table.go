// this code is grounded on the SamehadaDB project's container/hash package
// (hash_util.go, linear_probe_hash_table.go) for the shape of a BPM-backed
// hash index and its hash-function plumbing; the actual directory/bucket
// split-and-merge algorithm is new, since the source only implements
// static linear-probing hashing, and the constructor fixes the source's
// documented copy-paste bug that pointed both initial directory slots at
// the same bucket.

package index

import (
	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/container/hash"
	"github.com/ryogrid/dbcore/storage/buffer"
	"github.com/ryogrid/dbcore/storage/page"
	"github.com/ryogrid/dbcore/types"
)

// ExtendibleHashTable is a BPM-backed, dynamically growable hash index: a
// directory page fans out to bucket pages, splitting a bucket on overflow
// and merging an emptied bucket back into its split image. It is generic
// over key and value type through fixed-width codecs and a caller-supplied
// comparator and hash function — generics in place of runtime type
// dispatch.
type ExtendibleHashTable[K comparable, V comparable] struct {
	bpm             *buffer.BufferPoolManager
	directoryPageID types.PageID
	keyCodec        page.Codec[K]
	valCodec        page.Codec[V]
	cmp             func(K, K) bool
	hashFn          hash.Function64[K]
	bucketCapacity  int
	tableLatch      common.ReaderWriterLatch
}

// NewExtendibleHashTable allocates a fresh directory page and two bucket
// pages: global_depth=1, both slots at local_depth=1, each pointing at its
// own bucket.
func NewExtendibleHashTable[K comparable, V comparable](
	bpm *buffer.BufferPoolManager,
	keyCodec page.Codec[K],
	valCodec page.Codec[V],
	cmp func(K, K) bool,
	hashFn hash.Function64[K],
) *ExtendibleHashTable[K, V] {
	dirPage := bpm.NewPage()
	if dirPage == nil {
		panic("extendible hash table: could not allocate directory page")
	}
	bucket0 := bpm.NewPage()
	bucket1 := bpm.NewPage()
	if bucket0 == nil || bucket1 == nil {
		panic("extendible hash table: could not allocate initial bucket pages")
	}

	dir := page.NewHashTableDirectoryPage(dirPage.Data()[:])
	dir.InitEmpty(bucket0.GetPageId(), bucket1.GetPageId())

	bpm.UnpinPage(bucket0.GetPageId(), true)
	bpm.UnpinPage(bucket1.GetPageId(), true)
	bpm.UnpinPage(dirPage.GetPageId(), true)

	return &ExtendibleHashTable[K, V]{
		bpm:             bpm,
		directoryPageID: dirPage.GetPageId(),
		keyCodec:        keyCodec,
		valCodec:        valCodec,
		cmp:             cmp,
		hashFn:          hashFn,
		bucketCapacity:  page.BucketCapacity(keyCodec.Width, valCodec.Width),
		tableLatch:      common.NewRWLatch(),
	}
}

func (t *ExtendibleHashTable[K, V]) hash32(key K) uint32 {
	return uint32(t.hashFn(key))
}

func (t *ExtendibleHashTable[K, V]) newBucketView(pg *page.Page) *page.HashTableBucketPage[K, V] {
	return page.NewHashTableBucketPage[K, V](pg.Data()[:], t.keyCodec, t.valCodec, t.bucketCapacity)
}

func (t *ExtendibleHashTable[K, V]) fetchDirectory() (*page.Page, *page.HashTableDirectoryPage) {
	pg := t.bpm.FetchPage(t.directoryPageID)
	if pg == nil {
		panic("extendible hash table: directory page missing from disk")
	}
	return pg, page.NewHashTableDirectoryPage(pg.Data()[:])
}

// GetGlobalDepth reports the directory's current global depth.
func (t *ExtendibleHashTable[K, V]) GetGlobalDepth() uint32 {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()
	_, dir := t.fetchDirectory()
	depth := dir.GetGlobalDepth()
	t.bpm.UnpinPage(t.directoryPageID, false)
	return depth
}

// GetValue returns every value stored under key.
func (t *ExtendibleHashTable[K, V]) GetValue(key K) []V {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()

	_, dir := t.fetchDirectory()
	slot := t.hash32(key) & dir.GlobalDepthMask()
	bucketID := dir.GetBucketPageId(slot)

	bucketPage := t.bpm.FetchPage(bucketID)
	bucket := t.newBucketView(bucketPage)
	values := bucket.GetValue(key, t.cmp)

	t.bpm.UnpinPage(bucketID, false)
	t.bpm.UnpinPage(t.directoryPageID, false)
	return values
}

// Insert adds (key,value). It takes the table's read lock for the common
// non-splitting case and escalates to the write lock only when the target
// bucket is full.
func (t *ExtendibleHashTable[K, V]) Insert(key K, value V) bool {
	t.tableLatch.RLock()
	_, dir := t.fetchDirectory()
	slot := t.hash32(key) & dir.GlobalDepthMask()
	bucketID := dir.GetBucketPageId(slot)
	bucketPage := t.bpm.FetchPage(bucketID)
	bucket := t.newBucketView(bucketPage)

	if !bucket.IsFull() {
		ok := bucket.Insert(key, value, t.cmp)
		t.bpm.UnpinPage(bucketID, ok)
		t.bpm.UnpinPage(t.directoryPageID, false)
		t.tableLatch.RUnlock()
		return ok
	}

	t.bpm.UnpinPage(bucketID, false)
	t.bpm.UnpinPage(t.directoryPageID, false)
	t.tableLatch.RUnlock()

	t.tableLatch.WLock()
	defer t.tableLatch.WUnlock()
	return t.splitInsert(key, value)
}

// splitInsert repeatedly grows the directory and splits the target bucket
// until the (possibly moved) target bucket can accept (key,value), or the
// directory hits MaxDirectoryDepth without making room. Must be called
// under the table write lock.
func (t *ExtendibleHashTable[K, V]) splitInsert(key K, value V) bool {
	dirPage, dir := t.fetchDirectory()
	defer t.bpm.UnpinPage(dirPage.GetPageId(), true)

	for {
		i := t.hash32(key) & dir.GlobalDepthMask()
		bucketID := dir.GetBucketPageId(i)
		bucketPage := t.bpm.FetchPage(bucketID)
		bucket := t.newBucketView(bucketPage)

		if !bucket.IsFull() {
			ok := bucket.Insert(key, value, t.cmp)
			t.bpm.UnpinPage(bucketID, ok)
			return ok
		}

		if dir.GetLocalDepth(i) == dir.GetGlobalDepth() {
			if dir.GetGlobalDepth() >= page.MaxDirectoryDepth {
				t.bpm.UnpinPage(bucketID, false)
				return false
			}
			dir.Grow()
			i = t.hash32(key) & dir.GlobalDepthMask()
			if newID := dir.GetBucketPageId(i); newID != bucketID {
				t.bpm.UnpinPage(bucketID, false)
				bucketID = newID
				bucketPage = t.bpm.FetchPage(bucketID)
				bucket = t.newBucketView(bucketPage)
			}
		}

		ld := dir.GetLocalDepth(i)
		oldMask := dir.LocalDepthMask(i)

		newBucketPage := t.bpm.NewPage()
		if newBucketPage == nil {
			t.bpm.UnpinPage(bucketID, false)
			return false
		}
		newBucketID := newBucketPage.GetPageId()
		newBucket := t.newBucketView(newBucketPage)

		for j := uint32(0); j < dir.Size(); j++ {
			if j&oldMask != i&oldMask {
				continue
			}
			dir.SetLocalDepth(j, ld+1)
			if j&(uint32(1)<<ld) != 0 {
				dir.SetBucketPageId(j, newBucketID)
			}
		}

		// The bit that this split just made significant is bit ld: every
		// entry with that bit set belongs in the new bucket, everything
		// else stays. The old bucket is reset and refilled with the entries
		// that stay, so the slots freed by the move are unoccupied again
		// and the bucket no longer reports IsFull.
		newMask := oldMask | (uint32(1) << ld)
		imageBit := (i & oldMask) | (uint32(1) << ld)
		entries := bucket.ScanAll()
		bucket.Reset()
		for _, e := range entries {
			if t.hash32(e.Key)&newMask == imageBit {
				newBucket.Insert(e.Key, e.Value, t.cmp)
			} else {
				bucket.Insert(e.Key, e.Value, t.cmp)
			}
		}

		t.bpm.UnpinPage(bucketID, true)
		t.bpm.UnpinPage(newBucketID, true)
	}
}

// Remove deletes (key,value) if present, merging the emptied bucket with
// its sibling when possible.
func (t *ExtendibleHashTable[K, V]) Remove(key K, value V) bool {
	t.tableLatch.RLock()
	_, dir := t.fetchDirectory()
	slot := t.hash32(key) & dir.GlobalDepthMask()
	bucketID := dir.GetBucketPageId(slot)
	bucketPage := t.bpm.FetchPage(bucketID)
	bucket := t.newBucketView(bucketPage)

	ok := bucket.Remove(key, value, t.cmp)
	becameEmpty := ok && bucket.IsEmpty()

	t.bpm.UnpinPage(bucketID, ok)
	t.bpm.UnpinPage(t.directoryPageID, false)
	t.tableLatch.RUnlock()

	if becameEmpty {
		t.tableLatch.WLock()
		t.merge()
		t.tableLatch.WUnlock()
	}
	return ok
}

// merge walks the directory looking for a merge-eligible empty bucket,
// merges it into its split image, frees the orphaned page, and shrinks the
// directory whenever CanShrink allows it, repeating until no progress is
// made. Must be called under the table write lock.
func (t *ExtendibleHashTable[K, V]) merge() {
	dirPage, dir := t.fetchDirectory()
	defer t.bpm.UnpinPage(dirPage.GetPageId(), true)

	for {
		progressed := false
		for i := uint32(0); i < dir.Size(); i++ {
			if dir.GetLocalDepth(i) <= 1 {
				continue
			}
			image := dir.SplitImageIndex(i)
			if dir.GetLocalDepth(image) != dir.GetLocalDepth(i) {
				continue
			}

			bucketID := dir.GetBucketPageId(i)
			bp := t.bpm.FetchPage(bucketID)
			empty := t.newBucketView(bp).IsEmpty()
			t.bpm.UnpinPage(bucketID, false)
			if !empty {
				continue
			}

			imageBucketID := dir.GetBucketPageId(image)
			newLD := dir.GetLocalDepth(i) - 1
			for j := uint32(0); j < dir.Size(); j++ {
				bid := dir.GetBucketPageId(j)
				if bid == bucketID || bid == imageBucketID {
					dir.SetBucketPageId(j, imageBucketID)
					dir.SetLocalDepth(j, newLD)
				}
			}
			t.bpm.DeletePage(bucketID)
			progressed = true
			break
		}

		if !progressed {
			break
		}
		for dir.CanShrink() && dir.GetGlobalDepth() > 0 {
			dir.Shrink()
		}
	}
}

// VerifyIntegrity checks the directory's slot-equivalence invariant.
func (t *ExtendibleHashTable[K, V]) VerifyIntegrity() bool {
	t.tableLatch.RLock()
	defer t.tableLatch.RUnlock()
	_, dir := t.fetchDirectory()
	ok := dir.VerifyIntegrity()
	t.bpm.UnpinPage(t.directoryPageID, false)
	return ok
}
