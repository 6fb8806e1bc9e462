// this code is adapted from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/types"
)

// DiskManagerImpl is the file-backed implementation of DiskManager.
type DiskManagerImpl struct {
	db         *os.File
	fileName   string
	logFile    *os.File
	logName    string
	nextPageID int32
	numWrites  uint64
	size       int64
}

// NewDiskManagerImpl returns a DiskManager instance backed by dbFilename,
// with a companion write-ahead log file next to it.
func NewDiskManagerImpl(dbFilename string) DiskManager {
	file, err := os.OpenFile(dbFilename, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("disk: can't open db file:", err)
	}

	logName := dbFilename + ".log"
	if idx := strings.LastIndex(dbFilename, "."); idx >= 0 {
		logName = dbFilename[:idx] + ".log"
	}
	logFile, err := os.OpenFile(logName, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("disk: can't open log file:", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		log.Fatalln("disk: file info error:", err)
	}
	logInfo, err := logFile.Stat()
	if err != nil {
		log.Fatalln("disk: log file info error:", err)
	}
	logFile.Seek(logInfo.Size(), io.SeekStart)

	fileSize := fileInfo.Size()
	nextPageID := int32(fileSize / common.PageSize)

	return &DiskManagerImpl{
		db:         file,
		fileName:   dbFilename,
		logFile:    logFile,
		logName:    logName,
		nextPageID: nextPageID,
		size:       fileSize,
	}
}

// ShutDown closes the database and log files.
func (d *DiskManagerImpl) ShutDown() {
	d.db.Close()
	d.logFile.Close()
}

// WritePage writes a page to the database file.
func (d *DiskManagerImpl) WritePage(pageID types.PageID, pageData []byte) error {
	offset := int64(pageID) * common.PageSize
	if _, err := d.db.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	bytesWritten, err := d.db.Write(pageData)
	if err != nil {
		return err
	}
	if bytesWritten != common.PageSize {
		return errors.New("disk: short write, bytes written != page size")
	}
	atomic.AddUint64(&d.numWrites, 1)
	if offset+int64(bytesWritten) > d.size {
		d.size = offset + int64(bytesWritten)
	}
	return d.db.Sync()
}

// ReadPage reads a page from the database file. Reads past the end of the
// file zero-fill pageData rather than erroring, matching the semantics of a
// page that was allocated but never written.
func (d *DiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	offset := int64(pageID) * common.PageSize

	fileInfo, err := d.db.Stat()
	if err != nil {
		return errors.New("disk: file info error")
	}
	if offset >= fileInfo.Size() {
		for i := range pageData {
			pageData[i] = 0
		}
		return nil
	}

	if _, err := d.db.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	bytesRead, err := d.db.Read(pageData)
	if err != nil && err != io.EOF {
		return errors.New("disk: I/O error while reading")
	}
	if bytesRead < common.PageSize {
		for i := bytesRead; i < common.PageSize; i++ {
			pageData[i] = 0
		}
	}
	return nil
}

// AllocatePage hands out an ever-increasing page id. Callers that need the
// buffer pool's sharding guarantee (page_id mod M == shard index) do not
// route through this method; see buffer.BufferPoolManager.
func (d *DiskManagerImpl) AllocatePage() types.PageID {
	id := atomic.AddInt32(&d.nextPageID, 1) - 1
	return types.PageID(id)
}

// DeallocatePage is a no-op for the file-backed manager: it does not record
// freed page ids, does not reuse their space, and later reads of pageID
// still return whatever bytes are on disk.
func (d *DiskManagerImpl) DeallocatePage(pageID types.PageID) {}

// GetNumWrites returns the number of successful WritePage calls.
func (d *DiskManagerImpl) GetNumWrites() uint64 {
	return atomic.LoadUint64(&d.numWrites)
}

// Size returns the current size of the database file in bytes.
func (d *DiskManagerImpl) Size() int64 {
	return d.size
}

// RemoveDBFile deletes the backing database file. Only valid after ShutDown.
func (d *DiskManagerImpl) RemoveDBFile() {
	os.Remove(d.fileName)
}

// RemoveLogFile deletes the backing log file. Only valid after ShutDown.
func (d *DiskManagerImpl) RemoveLogFile() {
	os.Remove(d.logName)
}

// WriteLog appends a WAL record buffer to the log file and syncs it. The
// log manager that would normally batch these writes isn't implemented
// here; this hook exists so the buffer pool's optional "flush WAL before
// evicting a dirty page" call has somewhere to land.
func (d *DiskManagerImpl) WriteLog(logData []byte) error {
	if _, err := d.logFile.Write(logData); err != nil {
		return err
	}
	return d.logFile.Sync()
}

// ReadLog reads len(logData) bytes starting at offset from the log file.
// It reports false once offset reaches the end of the log.
func (d *DiskManagerImpl) ReadLog(logData []byte, offset int64) (bool, error) {
	if offset >= d.logFileSize() {
		return false, nil
	}
	if _, err := d.logFile.Seek(offset, io.SeekStart); err != nil {
		return false, err
	}
	n, err := d.logFile.Read(logData)
	if err != nil && err != io.EOF {
		return false, err
	}
	for i := n; i < len(logData); i++ {
		logData[i] = 0
	}
	return true, nil
}

func (d *DiskManagerImpl) logFileSize() int64 {
	fileInfo, err := d.logFile.Stat()
	if err != nil {
		return -1
	}
	return fileInfo.Size()
}
