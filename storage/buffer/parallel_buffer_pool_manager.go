// this code follows the SamehadaDB samehada.go engine-wiring pattern of
// composing several long-lived subsystem instances; a sharded pool of
// BufferPoolManagers behind a thin routing dispatcher is new relative to
// the single-instance BPM SamehadaDB itself wires up.

package buffer

import (
	"github.com/ryogrid/dbcore/storage/disk"
	"github.com/ryogrid/dbcore/storage/page"
	"github.com/ryogrid/dbcore/types"
)

// ParallelBufferPoolManager fans out to numInstances independent
// BufferPoolManagers, partitioning the page-id space by page_id mod
// numInstances. There is no cross-instance locking or shared frames; a
// call for page_id p is always routed to instance p mod numInstances.
type ParallelBufferPoolManager struct {
	instances []*BufferPoolManager
}

// NewParallelBufferPoolManager builds numInstances shards, each of
// poolSizePerInstance frames, each backed by its own DiskManager (callers
// typically hand it one DiskManager per shard file, or the same
// DiskManager if it is safe for concurrent use across the id space it will
// see).
func NewParallelBufferPoolManager(numInstances int, poolSizePerInstance uint32, diskManagers []disk.DiskManager) *ParallelBufferPoolManager {
	if len(diskManagers) != numInstances {
		panic("parallel buffer pool: need one disk manager per instance")
	}
	instances := make([]*BufferPoolManager, numInstances)
	for k := 0; k < numInstances; k++ {
		instances[k] = NewShardedBufferPoolManager(poolSizePerInstance, diskManagers[k], int32(k), int32(numInstances))
	}
	return &ParallelBufferPoolManager{instances: instances}
}

func (p *ParallelBufferPoolManager) instanceFor(pageID types.PageID) *BufferPoolManager {
	k := int32(pageID) % int32(len(p.instances))
	if k < 0 {
		k += int32(len(p.instances))
	}
	return p.instances[k]
}

// NewPage allocates on the least-loaded instance so ids stay balanced
// across shards rather than always landing on instance 0.
func (p *ParallelBufferPoolManager) NewPage() *page.Page {
	var best *BufferPoolManager
	bestFree := -1
	for _, inst := range p.instances {
		free := inst.GetPoolSize() - inst.residentCount()
		if free > bestFree {
			bestFree = free
			best = inst
		}
	}
	return best.NewPage()
}

func (p *ParallelBufferPoolManager) FetchPage(pageID types.PageID) *page.Page {
	return p.instanceFor(pageID).FetchPage(pageID)
}

func (p *ParallelBufferPoolManager) UnpinPage(pageID types.PageID, isDirty bool) error {
	return p.instanceFor(pageID).UnpinPage(pageID, isDirty)
}

func (p *ParallelBufferPoolManager) FlushPage(pageID types.PageID) bool {
	return p.instanceFor(pageID).FlushPage(pageID)
}

func (p *ParallelBufferPoolManager) DeletePage(pageID types.PageID) error {
	return p.instanceFor(pageID).DeletePage(pageID)
}

func (p *ParallelBufferPoolManager) FlushAll() {
	for _, inst := range p.instances {
		inst.FlushAll()
	}
}

func (p *ParallelBufferPoolManager) GetPoolSize() int {
	total := 0
	for _, inst := range p.instances {
		total += inst.GetPoolSize()
	}
	return total
}
