// this code is adapted from the SamehadaDB project

package disk

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dsnet/golib/memfile"
	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/types"
)

// VirtualDiskManagerImpl is an in-memory DiskManager backed by memfile
// instead of an *os.File. It is useful for unit tests and for the parallel
// buffer pool's per-shard "disk" when a real file is not wanted, since it
// gives up durability for speed and avoids touching the filesystem at all.
type VirtualDiskManagerImpl struct {
	dbMu       sync.Mutex
	db         *memfile.File
	logMu      sync.Mutex
	log        *memfile.File
	nextPageID int32
	numWrites  uint64
	size       int64
	deallocked map[types.PageID]bool
}

// NewVirtualDiskManagerImpl returns a DiskManager instance that never
// touches disk.
func NewVirtualDiskManagerImpl() DiskManager {
	return &VirtualDiskManagerImpl{
		db:         memfile.New(nil),
		log:        memfile.New(nil),
		deallocked: make(map[types.PageID]bool),
	}
}

func (d *VirtualDiskManagerImpl) ShutDown() {}

func (d *VirtualDiskManagerImpl) WritePage(pageID types.PageID, pageData []byte) error {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()

	offset := int64(pageID) * common.PageSize
	n, err := d.db.WriteAt(pageData, offset)
	if err != nil {
		return err
	}
	if n != common.PageSize {
		return errors.New("disk: short write, bytes written != page size")
	}
	atomic.AddUint64(&d.numWrites, 1)
	if offset+int64(n) > d.size {
		d.size = offset + int64(n)
	}
	return nil
}

func (d *VirtualDiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()

	if d.deallocked[pageID] {
		return types.ErrDeallocatedPage
	}

	offset := int64(pageID) * common.PageSize
	if offset >= d.size {
		for i := range pageData {
			pageData[i] = 0
		}
		return nil
	}
	n, err := d.db.ReadAt(pageData, offset)
	if err != nil && err != io.EOF {
		return err
	}
	for i := n; i < len(pageData); i++ {
		pageData[i] = 0
	}
	return nil
}

func (d *VirtualDiskManagerImpl) AllocatePage() types.PageID {
	id := atomic.AddInt32(&d.nextPageID, 1) - 1
	return types.PageID(id)
}

func (d *VirtualDiskManagerImpl) DeallocatePage(pageID types.PageID) {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()
	d.deallocked[pageID] = true
}

func (d *VirtualDiskManagerImpl) GetNumWrites() uint64 {
	return atomic.LoadUint64(&d.numWrites)
}

func (d *VirtualDiskManagerImpl) Size() int64 {
	d.dbMu.Lock()
	defer d.dbMu.Unlock()
	return d.size
}

// WriteLog appends logData to the in-memory log, sequentially.
func (d *VirtualDiskManagerImpl) WriteLog(logData []byte) error {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	_, err := d.log.Write(logData)
	return err
}
