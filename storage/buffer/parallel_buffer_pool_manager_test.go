package buffer

import (
	"testing"

	"github.com/ryogrid/dbcore/storage/disk"
	"github.com/ryogrid/dbcore/types"
	"github.com/stretchr/testify/assert"
)

func TestParallelBufferPoolManagerSharding(t *testing.T) {
	dms := []disk.DiskManager{
		disk.NewVirtualDiskManagerImpl(),
		disk.NewVirtualDiskManagerImpl(),
		disk.NewVirtualDiskManagerImpl(),
	}
	p := NewParallelBufferPoolManager(3, 4, dms)

	seen := make([]int, 0, 12)
	for i := 0; i < 12; i++ {
		pg := p.NewPage()
		assert.NotNil(t, pg)
		seen = append(seen, int(pg.GetPageId()))
	}

	for _, id := range seen {
		fetched := p.FetchPage(types.PageID(id))
		assert.NotNil(t, fetched)
		assert.NoError(t, p.UnpinPage(types.PageID(id), false))
	}
}
