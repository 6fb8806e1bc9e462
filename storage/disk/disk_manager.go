package disk

import (
	"github.com/ryogrid/dbcore/types"
)

// DiskManager is responsible for interacting with disk. It is the sole
// producer/consumer of durable page bytes; the buffer pool never touches a
// file descriptor directly.
type DiskManager interface {
	ReadPage(types.PageID, []byte) error
	WritePage(types.PageID, []byte) error
	AllocatePage() types.PageID
	DeallocatePage(types.PageID)
	GetNumWrites() uint64
	ShutDown()
	Size() int64
}
