package page

import "github.com/ryogrid/dbcore/types"

// RID identifies a record by page id and slot number within that page. The
// hash index stores RIDs as values pointing back into a table heap that is
// outside this module's scope; RID itself is comparable so it can be used
// directly as a generic index value type.
type RID struct {
	pageID  types.PageID
	slotNum uint32
}

func NewRID(pageID types.PageID, slot uint32) RID {
	return RID{pageID: pageID, slotNum: slot}
}

func (r *RID) Set(pageID types.PageID, slot uint32) {
	r.pageID = pageID
	r.slotNum = slot
}

func (r RID) GetPageId() types.PageID {
	return r.pageID
}

func (r RID) GetSlot() uint32 {
	return r.slotNum
}
