/*
Node layouts. Every node occupies exactly one page and is manipulated in
place through little-endian accessors, never decoded into a separate struct.

Leaf page:

	numKeys  uint16
	rightSib uint32 (0 means no sibling)
	entries  numKeys * (key int32, rid pageNo uint32, rid slotNo uint16)

Internal (non-leaf) page:

	numKeys uint16
	level   uint16 (1: children are leaves, 0: children are internal)
	child0  uint32
	entries numKeys * (key int32, right child uint32)

Keys are kept in ascending order. An internal node with numKeys keys has
numKeys+1 children; the key at index i separates child i (keys < key) from
child i+1 (keys >= key).

A zero-filled page reads as an empty leaf, which the open path relies on for
the initial root.
*/
package btree

import (
	"encoding/binary"

	"github.com/mkihara/pagestore/storage/heap"
	"github.com/mkihara/pagestore/storage/page"
)

const (
	keySize    = 4
	ridSize    = 6
	pageNoSize = 4

	leafNumKeysOffset  = 0
	leafRightSibOffset = 2
	leafEntriesOffset  = 6
	leafEntrySize      = keySize + ridSize

	nodeNumKeysOffset = 0
	nodeLevelOffset   = 2
	nodeChild0Offset  = 4
	nodeEntriesOffset = 8
	nodeEntrySize     = keySize + pageNoSize
)

// Default node capacities, derived so a full node fills one page.
const (
	defaultLeafCapacity    = (page.PageSize - leafEntriesOffset) / leafEntrySize
	defaultNonLeafCapacity = (page.PageSize - nodeEntriesOffset) / nodeEntrySize
)

func leafNumKeys(p page.PagePtr) int {
	return int(binary.LittleEndian.Uint16(p[leafNumKeysOffset:]))
}

func setLeafNumKeys(p page.PagePtr, n int) {
	binary.LittleEndian.PutUint16(p[leafNumKeysOffset:], uint16(n))
}

func leafRightSib(p page.PagePtr) page.PageID {
	return page.PageID(binary.LittleEndian.Uint32(p[leafRightSibOffset:]))
}

func setLeafRightSib(p page.PagePtr, id page.PageID) {
	binary.LittleEndian.PutUint32(p[leafRightSibOffset:], uint32(id))
}

func leafKey(p page.PagePtr, i int) int32 {
	off := leafEntriesOffset + i*leafEntrySize
	return int32(binary.LittleEndian.Uint32(p[off:]))
}

func setLeafKey(p page.PagePtr, i int, key int32) {
	off := leafEntriesOffset + i*leafEntrySize
	binary.LittleEndian.PutUint32(p[off:], uint32(key))
}

func leafRID(p page.PagePtr, i int) heap.RecordID {
	off := leafEntriesOffset + i*leafEntrySize + keySize
	return heap.RecordID{
		PageNo: page.PageID(binary.LittleEndian.Uint32(p[off:])),
		SlotNo: binary.LittleEndian.Uint16(p[off+pageNoSize:]),
	}
}

func setLeafRID(p page.PagePtr, i int, rid heap.RecordID) {
	off := leafEntriesOffset + i*leafEntrySize + keySize
	binary.LittleEndian.PutUint32(p[off:], uint32(rid.PageNo))
	binary.LittleEndian.PutUint16(p[off+pageNoSize:], rid.SlotNo)
}

func nodeNumKeys(p page.PagePtr) int {
	return int(binary.LittleEndian.Uint16(p[nodeNumKeysOffset:]))
}

func setNodeNumKeys(p page.PagePtr, n int) {
	binary.LittleEndian.PutUint16(p[nodeNumKeysOffset:], uint16(n))
}

// nodeLevel is 1 when the node's children are leaves.
func nodeLevel(p page.PagePtr) uint16 {
	return binary.LittleEndian.Uint16(p[nodeLevelOffset:])
}

func setNodeLevel(p page.PagePtr, level uint16) {
	binary.LittleEndian.PutUint16(p[nodeLevelOffset:], level)
}

func nodeKey(p page.PagePtr, i int) int32 {
	off := nodeEntriesOffset + i*nodeEntrySize
	return int32(binary.LittleEndian.Uint32(p[off:]))
}

func setNodeKey(p page.PagePtr, i int, key int32) {
	off := nodeEntriesOffset + i*nodeEntrySize
	binary.LittleEndian.PutUint32(p[off:], uint32(key))
}

// nodeChild returns child i, for i in 0..numKeys.
func nodeChild(p page.PagePtr, i int) page.PageID {
	if i == 0 {
		return page.PageID(binary.LittleEndian.Uint32(p[nodeChild0Offset:]))
	}
	off := nodeEntriesOffset + (i-1)*nodeEntrySize + keySize
	return page.PageID(binary.LittleEndian.Uint32(p[off:]))
}

func setNodeChild(p page.PagePtr, i int, id page.PageID) {
	if i == 0 {
		binary.LittleEndian.PutUint32(p[nodeChild0Offset:], uint32(id))
		return
	}
	off := nodeEntriesOffset + (i-1)*nodeEntrySize + keySize
	binary.LittleEndian.PutUint32(p[off:], uint32(id))
}

// leafFindIndex returns the first index whose key the new key sorts before,
// scanning left to right.
func leafFindIndex(p page.PagePtr, key int32) int {
	i := 0
	for n := leafNumKeys(p); i < n && key >= leafKey(p, i); i++ {
	}
	return i
}

// nodeFindIndex is leafFindIndex for internal nodes. The returned index is
// also the child slot a lookup for key descends into.
func nodeFindIndex(p page.PagePtr, key int32) int {
	i := 0
	for n := nodeNumKeys(p); i < n && key >= nodeKey(p, i); i++ {
	}
	return i
}

// leafInsertAt shifts the tail right by one and writes the entry.
func leafInsertAt(p page.PagePtr, at int, key int32, rid heap.RecordID) {
	n := leafNumKeys(p)
	for i := n; i > at; i-- {
		setLeafKey(p, i, leafKey(p, i-1))
		setLeafRID(p, i, leafRID(p, i-1))
	}
	setLeafKey(p, at, key)
	setLeafRID(p, at, rid)
	setLeafNumKeys(p, n+1)
}

// nodeInsertAt inserts the key at the position and places its right child
// at the following child slot.
func nodeInsertAt(p page.PagePtr, at int, key int32, rightChild page.PageID) {
	n := nodeNumKeys(p)
	for i := n; i > at; i-- {
		setNodeKey(p, i, nodeKey(p, i-1))
		setNodeChild(p, i+1, nodeChild(p, i))
	}
	setNodeKey(p, at, key)
	setNodeChild(p, at+1, rightChild)
	setNodeNumKeys(p, n+1)
}
