package btree

import (
	"bytes"
	"encoding/binary"

	"github.com/mkihara/pagestore/storage/page"
)

/*
The index meta page is page 1 of the index file:

	relationName [20]byte (NUL padded)
	attrByteOffset int32
	keyType int32
	rootPageNo uint32
	leafOccupancy int32
	nodeOccupancy int32

It is read once on open and rewritten on close.
*/
const (
	metaRelNameSize = 20

	metaRelNameOffset    = 0
	metaAttrOffsetOffset = 20
	metaKeyTypeOffset    = 24
	metaRootOffset       = 28
	metaLeafOccOffset    = 32
	metaNodeOccOffset    = 36
)

func metaRelName(p page.PagePtr) string {
	name := p[metaRelNameOffset : metaRelNameOffset+metaRelNameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

func setMetaRelName(p page.PagePtr, name string) {
	b := p[metaRelNameOffset : metaRelNameOffset+metaRelNameSize]
	for i := range b {
		b[i] = 0
	}
	copy(b, name)
}

func metaAttrOffset(p page.PagePtr) int {
	return int(int32(binary.LittleEndian.Uint32(p[metaAttrOffsetOffset:])))
}

func setMetaAttrOffset(p page.PagePtr, off int) {
	binary.LittleEndian.PutUint32(p[metaAttrOffsetOffset:], uint32(off))
}

func metaKeyType(p page.PagePtr) KeyType {
	return KeyType(binary.LittleEndian.Uint32(p[metaKeyTypeOffset:]))
}

func setMetaKeyType(p page.PagePtr, kt KeyType) {
	binary.LittleEndian.PutUint32(p[metaKeyTypeOffset:], uint32(kt))
}

func metaRoot(p page.PagePtr) page.PageID {
	return page.PageID(binary.LittleEndian.Uint32(p[metaRootOffset:]))
}

func setMetaRoot(p page.PagePtr, id page.PageID) {
	binary.LittleEndian.PutUint32(p[metaRootOffset:], uint32(id))
}

func metaLeafOcc(p page.PagePtr) int {
	return int(int32(binary.LittleEndian.Uint32(p[metaLeafOccOffset:])))
}

func setMetaLeafOcc(p page.PagePtr, n int) {
	binary.LittleEndian.PutUint32(p[metaLeafOccOffset:], uint32(n))
}

func metaNodeOcc(p page.PagePtr) int {
	return int(int32(binary.LittleEndian.Uint32(p[metaNodeOccOffset:])))
}

func setMetaNodeOcc(p page.PagePtr, n int) {
	binary.LittleEndian.PutUint32(p[metaNodeOccOffset:], uint32(n))
}
