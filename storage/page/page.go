// this code is adapted from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package page

import (
	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/types"
)

// Page is a fixed-size in-memory frame the buffer pool manages. Pin count
// and dirty bit are owned by the buffer pool manager, never by callers that
// hold onto a *Page after unpinning it.
type Page struct {
	id       types.PageID
	pinCount int32
	isDirty  bool
	data     *[common.PageSize]byte
}

// New wraps an existing byte array as a page frame, starting at pin count 1
// because it's handed straight to a caller who is expected to Unpin it.
func New(id types.PageID, isDirty bool, data *[common.PageSize]byte) *Page {
	return &Page{id: id, pinCount: 1, isDirty: isDirty, data: data}
}

// NewEmpty allocates a zero-filled frame for id, pinned once.
func NewEmpty(id types.PageID) *Page {
	return &Page{id: id, pinCount: 1, data: &[common.PageSize]byte{}}
}

func (p *Page) IncPinCount() {
	p.pinCount++
}

func (p *Page) DecPinCount() {
	if p.pinCount > 0 {
		p.pinCount--
	}
}

func (p *Page) PinCount() int32 {
	return p.pinCount
}

func (p *Page) GetPageId() types.PageID {
	return p.id
}

// ResetTo reinitializes the frame in place for a different page id: pin
// count 1, clean, zeroed bytes. The buffer pool does not call it; it
// allocates a new Page for each page it installs.
func (p *Page) ResetTo(id types.PageID) {
	p.id = id
	p.pinCount = 1
	p.isDirty = false
	for i := range p.data {
		p.data[i] = 0
	}
}

func (p *Page) Data() *[common.PageSize]byte {
	return p.data
}

// Copy overwrites data starting at offset, then marks the page dirty since
// almost every caller of Copy is about to mutate on-disk state.
func (p *Page) Copy(offset int, data []byte) {
	copy(p.data[offset:], data)
	p.isDirty = true
}

func (p *Page) SetIsDirty(isDirty bool) {
	p.isDirty = isDirty
}

func (p *Page) IsDirty() bool {
	return p.isDirty
}
