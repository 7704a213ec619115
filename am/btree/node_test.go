package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkihara/pagestore/storage/heap"
	"github.com/mkihara/pagestore/storage/page"
)

func TestDerivedCapacities(t *testing.T) {
	// a full node must fit in one page
	assert.LessOrEqual(t, leafEntriesOffset+defaultLeafCapacity*leafEntrySize, page.PageSize)
	assert.LessOrEqual(t, nodeEntriesOffset+defaultNonLeafCapacity*nodeEntrySize, page.PageSize)
	// and adding one more entry must not
	assert.Greater(t, leafEntriesOffset+(defaultLeafCapacity+1)*leafEntrySize, page.PageSize)
	assert.Greater(t, nodeEntriesOffset+(defaultNonLeafCapacity+1)*nodeEntrySize, page.PageSize)
}

func TestZeroPageIsEmptyLeaf(t *testing.T) {
	p := page.NewPagePtr()
	assert.Equal(t, 0, leafNumKeys(p))
	assert.Equal(t, page.InvalidPageID, leafRightSib(p))
}

func TestLeafInsertAt(t *testing.T) {
	p := page.NewPagePtr()
	for _, k := range []int32{10, 30} {
		leafInsertAt(p, leafFindIndex(p, k), k, testingRID(k))
	}
	// 20 lands between them, shifting 30 right
	leafInsertAt(p, leafFindIndex(p, int32(20)), 20, testingRID(20))

	assert.Equal(t, 3, leafNumKeys(p))
	for i, k := range []int32{10, 20, 30} {
		assert.Equal(t, k, leafKey(p, i))
		assert.Equal(t, testingRID(k), leafRID(p, i))
	}
}

func TestNodeInsertAt(t *testing.T) {
	p := page.NewPagePtr()
	setNodeChild(p, 0, page.PageID(100))
	nodeInsertAt(p, 0, 50, page.PageID(150))
	nodeInsertAt(p, nodeFindIndex(p, int32(70)), 70, page.PageID(170))
	// 60 goes between 50 and 70; its right child shifts 70's child right
	nodeInsertAt(p, nodeFindIndex(p, int32(60)), 60, page.PageID(160))

	assert.Equal(t, 3, nodeNumKeys(p))
	assert.Equal(t, []int32{50, 60, 70}, []int32{nodeKey(p, 0), nodeKey(p, 1), nodeKey(p, 2)})
	assert.Equal(t, page.PageID(100), nodeChild(p, 0))
	assert.Equal(t, page.PageID(150), nodeChild(p, 1))
	assert.Equal(t, page.PageID(160), nodeChild(p, 2))
	assert.Equal(t, page.PageID(170), nodeChild(p, 3))
}

func TestLeafRIDRoundTrip(t *testing.T) {
	p := page.NewPagePtr()
	rid := heap.RecordID{PageNo: page.PageID(0xDEADBEEF), SlotNo: 0xBEEF}
	setLeafRID(p, 5, rid)
	assert.Equal(t, rid, leafRID(p, 5))
}
