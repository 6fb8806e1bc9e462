package page

import (
	"testing"

	"github.com/ryogrid/dbcore/types"
	"github.com/stretchr/testify/assert"
)

func TestRID(t *testing.T) {
	rid := RID{}
	rid.Set(types.PageID(0), uint32(3))
	assert.Equal(t, types.PageID(0), rid.GetPageId())
	assert.Equal(t, uint32(3), rid.GetSlot())

	rid2 := NewRID(types.PageID(7), 2)
	assert.NotEqual(t, rid, rid2)
	assert.Equal(t, rid2, NewRID(types.PageID(7), 2))
}
