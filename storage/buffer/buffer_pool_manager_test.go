// this code is adapted from https://github.com/brunocalza/go-bustub

package buffer

import (
	"crypto/rand"
	"testing"

	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/storage/disk"
	"github.com/ryogrid/dbcore/types"
	"github.com/stretchr/testify/assert"
)

func TestBinaryData(t *testing.T) {
	poolSize := uint32(10)

	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(poolSize, dm)

	page0 := bpm.NewPage()
	assert.Equal(t, types.PageID(0), page0.GetPageId())

	randomBinaryData := make([]byte, common.PageSize)
	rand.Read(randomBinaryData)
	randomBinaryData[common.PageSize/2] = '0'
	randomBinaryData[common.PageSize-1] = '0'

	var fixedRandomBinaryData [common.PageSize]byte
	copy(fixedRandomBinaryData[:], randomBinaryData[:common.PageSize])

	page0.Copy(0, randomBinaryData)
	assert.Equal(t, fixedRandomBinaryData, *page0.Data())

	for i := uint32(1); i < poolSize; i++ {
		p := bpm.NewPage()
		assert.Equal(t, types.PageID(i), p.GetPageId())
	}

	for i := poolSize; i < poolSize*2; i++ {
		assert.Nil(t, bpm.NewPage())
	}

	for i := 0; i < 5; i++ {
		assert.NoError(t, bpm.UnpinPage(types.PageID(i), true))
		bpm.FlushPage(types.PageID(i))
	}
	for i := 0; i < 4; i++ {
		p := bpm.NewPage()
		bpm.UnpinPage(p.GetPageId(), false)
	}

	page0 = bpm.FetchPage(types.PageID(0))
	assert.Equal(t, fixedRandomBinaryData, *page0.Data())
	assert.NoError(t, bpm.UnpinPage(types.PageID(0), true))
}

// TestBufferPoolManagerEvictsDirtyVictimOnFull fills a 3-frame unsharded
// pool, fails a 4th allocation, then frees up room by unpinning a dirty
// page and checks that it gets flushed before its frame is reused.
func TestBufferPoolManagerEvictsDirtyVictimOnFull(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(3, dm)

	p0 := bpm.NewPage()
	assert.Equal(t, types.PageID(0), p0.GetPageId())
	p1 := bpm.NewPage()
	assert.Equal(t, types.PageID(1), p1.GetPageId())
	p2 := bpm.NewPage()
	assert.Equal(t, types.PageID(2), p2.GetPageId())

	assert.Nil(t, bpm.NewPage())

	copy(p1.Data()[:], []byte("dirty page one"))
	assert.NoError(t, bpm.UnpinPage(p1.GetPageId(), true))

	p3 := bpm.NewPage()
	assert.NotNil(t, p3)
	assert.Equal(t, types.PageID(3), p3.GetPageId())
	assert.Equal(t, uint64(1), dm.GetNumWrites())
}

func TestBufferPoolManagerFetchDoesNotDirty(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(2, dm)

	p0 := bpm.NewPage()
	id := p0.GetPageId()
	assert.NoError(t, bpm.UnpinPage(id, false))

	fetched := bpm.FetchPage(id)
	assert.NotNil(t, fetched)
	assert.False(t, fetched.IsDirty())
	assert.NoError(t, bpm.UnpinPage(id, false))
}

func TestBufferPoolManagerUnpinUnknownPageFails(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(1, dm)

	assert.Error(t, bpm.UnpinPage(types.PageID(99), false))
}

func TestBufferPoolManagerDeletePagePinnedFails(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(1, dm)

	p0 := bpm.NewPage()
	assert.Error(t, bpm.DeletePage(p0.GetPageId()))
	assert.NoError(t, bpm.UnpinPage(p0.GetPageId(), false))
	assert.NoError(t, bpm.DeletePage(p0.GetPageId()))
}

func TestBufferPoolManagerShardingRule(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewShardedBufferPoolManager(4, dm, 2, 5)

	for i := 0; i < 4; i++ {
		pg := bpm.NewPage()
		assert.NotNil(t, pg)
		assert.Equal(t, int32(2), int32(pg.GetPageId())%5)
	}
}
