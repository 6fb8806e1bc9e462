// this code is adapted from https://github.com/brunocalza/go-bustub and the
// SamehadaDB project; pin/frame bookkeeping keeps the original shape,
// while dirty tracking is corrected so a fetch never marks a frame dirty
// on its own — only an explicit UnpinPage(id, true) does that.

package buffer

import (
	"errors"

	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/storage/disk"
	"github.com/ryogrid/dbcore/storage/page"
	"github.com/ryogrid/dbcore/types"
)

var ErrNoFreeFrame = errors.New("buffer: no free frame available")
var ErrPageNotFound = errors.New("buffer: page not resident")
var ErrPagePinned = errors.New("buffer: page still pinned")

// BufferPoolManager mediates all access between fixed-size on-disk pages
// and a bounded pool of in-memory frames, replacing unpinned frames by
// LRU. One instance either owns the whole page-id space (shardCount==1) or
// is shard shardIndex of shardCount, in which case every id it allocates
// satisfies id mod shardCount == shardIndex.
type BufferPoolManager struct {
	mu          common.ReaderWriterLatch
	diskManager disk.DiskManager
	pages       []*page.Page
	replacer    *LRUReplacer
	freeList    []FrameID
	pageTable   map[types.PageID]FrameID

	shardIndex int32
	shardCount int32
	nextID     int32
}

// NewBufferPoolManager returns an unsharded buffer pool of poolSize frames.
func NewBufferPoolManager(poolSize uint32, diskManager disk.DiskManager) *BufferPoolManager {
	return NewShardedBufferPoolManager(poolSize, diskManager, 0, 1)
}

// NewShardedBufferPoolManager returns a buffer pool that only allocates
// page-ids congruent to shardIndex modulo shardCount, for use behind a
// ParallelBufferPoolManager dispatcher.
func NewShardedBufferPoolManager(poolSize uint32, diskManager disk.DiskManager, shardIndex, shardCount int32) *BufferPoolManager {
	freeList := make([]FrameID, poolSize)
	pages := make([]*page.Page, poolSize)
	for i := uint32(0); i < poolSize; i++ {
		freeList[i] = FrameID(i)
	}
	return &BufferPoolManager{
		mu:          common.NewRWLatch(),
		diskManager: diskManager,
		pages:       pages,
		replacer:    NewLRUReplacer(poolSize),
		freeList:    freeList,
		pageTable:   make(map[types.PageID]FrameID),
		shardIndex:  shardIndex,
		shardCount:  shardCount,
		nextID:      shardIndex,
	}
}

func (b *BufferPoolManager) GetPoolSize() int {
	return len(b.pages)
}

// residentCount reports how many pages this instance currently holds. Used
// by the parallel dispatcher's load-balancing heuristic; it may not reach
// into pageTable directly since that field is guarded by b.mu.
func (b *BufferPoolManager) residentCount() int {
	b.mu.WLock()
	defer b.mu.WUnlock()
	return len(b.pageTable)
}

// allocatePageID hands out the next id owned by this shard. Held under b.mu.
func (b *BufferPoolManager) allocatePageID() types.PageID {
	id := b.nextID
	b.nextID += b.shardCount
	return types.PageID(id)
}

// reserveFrame finds a frame to hold a page, flushing a dirty victim first.
// Held under b.mu.
func (b *BufferPoolManager) reserveFrame() (FrameID, error) {
	if len(b.freeList) > 0 {
		frameID := b.freeList[0]
		b.freeList = b.freeList[1:]
		return frameID, nil
	}

	frameID, ok := b.replacer.Victim()
	if !ok {
		return 0, ErrNoFreeFrame
	}
	victim := b.pages[frameID]
	if victim != nil {
		if victim.IsDirty() {
			data := victim.Data()
			if err := b.diskManager.WritePage(victim.GetPageId(), data[:]); err != nil {
				return 0, err
			}
		}
		delete(b.pageTable, victim.GetPageId())
	}
	return frameID, nil
}

// NewPage allocates a fresh page-id, installs it in a free/victim frame
// zeroed out, and returns a pinned view.
func (b *BufferPoolManager) NewPage() *page.Page {
	b.mu.WLock()
	defer b.mu.WUnlock()

	frameID, err := b.reserveFrame()
	if err != nil {
		return nil
	}

	pageID := b.allocatePageID()
	pg := page.NewEmpty(pageID)
	b.pageTable[pageID] = frameID
	b.pages[frameID] = pg
	return pg
}

// FetchPage returns a pinned view of pageID, reading it from disk on a
// miss. The frame is never marked dirty by a fetch; dirtiness is only ever
// set explicitly through UnpinPage(pageID, true).
func (b *BufferPoolManager) FetchPage(pageID types.PageID) *page.Page {
	b.mu.WLock()
	defer b.mu.WUnlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		pg.IncPinCount()
		b.replacer.Pin(frameID)
		return pg
	}

	frameID, err := b.reserveFrame()
	if err != nil {
		return nil
	}

	data := make([]byte, common.PageSize)
	if err := b.diskManager.ReadPage(pageID, data); err != nil {
		b.freeList = append(b.freeList, frameID)
		return nil
	}
	var raw [common.PageSize]byte
	copy(raw[:], data)
	pg := page.New(pageID, false, &raw)
	b.pageTable[pageID] = frameID
	b.pages[frameID] = pg
	return pg
}

// UnpinPage decrements pageID's pin count and folds isDirty into the
// frame's dirty bit (dirty is sticky until the next flush). A frame that
// reaches pin count zero becomes replacer-eligible.
func (b *BufferPoolManager) UnpinPage(pageID types.PageID, isDirty bool) error {
	b.mu.WLock()
	defer b.mu.WUnlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return ErrPageNotFound
	}
	pg := b.pages[frameID]
	if pg.PinCount() <= 0 {
		return ErrPageNotFound
	}

	if isDirty {
		pg.SetIsDirty(true)
	}
	pg.DecPinCount()
	if pg.PinCount() == 0 {
		b.replacer.Unpin(frameID)
	}
	return nil
}

// FlushPage writes a resident page's bytes to disk and clears dirty. It
// does not evict the page.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) bool {
	b.mu.WLock()
	defer b.mu.WUnlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	pg := b.pages[frameID]
	data := pg.Data()
	if err := b.diskManager.WritePage(pageID, data[:]); err != nil {
		return false
	}
	pg.SetIsDirty(false)
	return true
}

// FlushAll flushes every resident page.
func (b *BufferPoolManager) FlushAll() {
	b.mu.WLock()
	pageIDs := make([]types.PageID, 0, len(b.pageTable))
	for pageID := range b.pageTable {
		pageIDs = append(pageIDs, pageID)
	}
	b.mu.WUnlock()

	for _, pageID := range pageIDs {
		b.FlushPage(pageID)
	}
}

// DeletePage deallocates pageID at the disk level and, if resident and
// unpinned, frees its frame back to the pool. Fails if the page is
// resident and still pinned.
func (b *BufferPoolManager) DeletePage(pageID types.PageID) error {
	b.mu.WLock()
	defer b.mu.WUnlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		b.diskManager.DeallocatePage(pageID)
		return nil
	}

	pg := b.pages[frameID]
	if pg.PinCount() > 0 {
		return ErrPagePinned
	}

	delete(b.pageTable, pageID)
	b.replacer.Pin(frameID)
	b.diskManager.DeallocatePage(pageID)
	b.pages[frameID] = nil
	b.freeList = append(b.freeList, frameID)
	return nil
}
