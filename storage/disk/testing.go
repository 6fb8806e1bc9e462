// this code is adapted from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"os"
	"strings"
)

// DiskManagerTest wraps DiskManagerImpl with a temp file that is removed on
// ShutDown, so tests don't litter the working directory.
type DiskManagerTest struct {
	path string
	DiskManager
}

// NewDiskManagerTest returns a DiskManager instance backed by a scratch file.
func NewDiskManagerTest() DiskManager {
	f, err := os.CreateTemp("", "dbcore-*.db")
	if err != nil {
		panic(err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)

	return &DiskManagerTest{path: path, DiskManager: NewDiskManagerImpl(path)}
}

// ShutDown closes and removes the backing database and log files.
func (d *DiskManagerTest) ShutDown() {
	defer os.Remove(d.path)
	defer os.Remove(strings.TrimSuffix(d.path, ".db") + ".log")
	d.DiskManager.ShutDown()
}
