/*
B+-tree index over a fixed-width integer attribute of a heap relation.

The index lives in its own paged file named "<relation>.<attrByteOffset>".
Page 1 is the meta page; the remaining pages are tree nodes. All node access
goes through the buffer pool, and the root page stays pinned for the index's
entire lifetime so every descent re-enters the tree in constant time (this
implies the pool needs at least two frames for any useful work).

Parent pointers are not persisted. The insertion path walks back upward by
re-descending from the root (findParent), which costs O(height) per level;
acceptable for an engine of this size.
*/
package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/buffer"
	"github.com/mkihara/pagestore/storage/disk"
	"github.com/mkihara/pagestore/storage/heap"
	"github.com/mkihara/pagestore/storage/page"
)

// KeyType tags the attribute type an index is built over.
type KeyType int32

const (
	// KeyTypeInt32 indexes a 4-byte little-endian signed integer attribute.
	KeyTypeInt32 KeyType = iota
)

// metaPageID is where the meta page lives. It is the first page allocated
// in a fresh index file.
const metaPageID = page.FirstPageID

// Index is a B+-tree index.
type Index struct {
	bm   *buffer.Manager
	file *disk.File
	name string

	attrByteOffset int
	keyType        KeyType

	rootPageID page.PageID
	// running statistics, not structural: leafOccupancy counts entries ever
	// inserted, nodeOccupancy counts internal-node insertions
	leafOccupancy int
	nodeOccupancy int

	// node capacities, derived from the page size
	leafCap int
	nodeCap int

	// scan state
	scanExecuting bool
	nextEntry     int
	currentPageID page.PageID
	currentPage   page.PagePtr
	lowVal        int32
	highVal       int32
	lowOp         Operator
	highOp        Operator
}

// New opens the index over the relation's attribute at attrByteOffset,
// creating and bulk-building it from the relation when the index file does
// not exist yet. The index file name is "<relation>.<attrByteOffset>".
func New(bm *buffer.Manager, rel *heap.File, attrByteOffset int, keyType KeyType) (*Index, error) {
	if keyType != KeyTypeInt32 {
		return nil, errors.Errorf("unsupported key type %d", keyType)
	}
	idx := &Index{
		bm:             bm,
		name:           fmt.Sprintf("%s.%d", rel.Name(), attrByteOffset),
		attrByteOffset: attrByteOffset,
		keyType:        keyType,
		leafCap:        defaultLeafCapacity,
		nodeCap:        defaultNonLeafCapacity,
	}

	f, err := disk.Open(idx.name)
	if err == nil {
		idx.file = f
		if err := idx.adoptMeta(); err != nil {
			return nil, errors.Wrap(err, "adoptMeta failed")
		}
		// pin the root for the index lifetime
		if _, err := bm.ReadPage(f, idx.rootPageID); err != nil {
			return nil, errors.Wrap(err, "bm.ReadPage failed")
		}
		return idx, nil
	}
	if !errors.Is(err, disk.ErrFileNotFound) {
		return nil, errors.Wrap(err, "disk.Open failed")
	}

	if idx.file, err = disk.Create(idx.name); err != nil {
		return nil, errors.Wrap(err, "disk.Create failed")
	}
	if err := idx.build(rel); err != nil {
		return nil, errors.Wrap(err, "build failed")
	}
	return idx, nil
}

// Name returns the index file name.
func (idx *Index) Name() string {
	return idx.name
}

// adoptMeta reads the meta page of an existing index file.
func (idx *Index) adoptMeta() error {
	p, err := idx.bm.ReadPage(idx.file, metaPageID)
	if err != nil {
		return errors.Wrap(err, "bm.ReadPage failed")
	}
	idx.rootPageID = metaRoot(p)
	idx.leafOccupancy = metaLeafOcc(p)
	idx.nodeOccupancy = metaNodeOcc(p)
	if err := idx.bm.UnpinPage(idx.file, metaPageID, false); err != nil {
		return errors.Wrap(err, "bm.UnpinPage failed")
	}
	return nil
}

// build initializes a fresh index file and inserts every record of the
// relation.
func (idx *Index) build(rel *heap.File) error {
	metaID, meta, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		return errors.Wrap(err, "bm.AllocPage failed")
	}
	if metaID != metaPageID {
		return errors.Errorf("meta page allocated as page %d", metaID)
	}

	// the root starts as an empty leaf; a zero page already is one
	rootID, _, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		return errors.Wrap(err, "bm.AllocPage failed")
	}
	idx.rootPageID = rootID

	setMetaRelName(meta, rel.Name())
	setMetaAttrOffset(meta, idx.attrByteOffset)
	setMetaKeyType(meta, idx.keyType)
	setMetaRoot(meta, rootID)
	if err := idx.bm.UnpinPage(idx.file, metaPageID, true); err != nil {
		return errors.Wrap(err, "bm.UnpinPage failed")
	}
	// the root stays pinned

	// scan the relation once and insert every (key, rid)
	s := rel.NewScanner()
	defer s.Close()
	for {
		rid, record, err := s.Next()
		if err != nil {
			if errors.Is(err, heap.ErrEndOfFile) {
				return nil
			}
			return errors.Wrap(err, "scanner.Next failed")
		}
		key, err := idx.extractKey(record)
		if err != nil {
			return errors.Wrap(err, "extractKey failed")
		}
		if err := idx.Insert(key, rid); err != nil {
			return errors.Wrap(err, "Insert failed")
		}
	}
}

// extractKey reads the key bytes at the configured offset within a record.
func (idx *Index) extractKey(record []byte) (int32, error) {
	if idx.attrByteOffset+keySize > len(record) {
		return 0, errors.Errorf("record of %d bytes has no key at offset %d", len(record), idx.attrByteOffset)
	}
	return int32(binary.LittleEndian.Uint32(record[idx.attrByteOffset:])), nil
}

// Close ends any live scan, rewrites the meta page, drops the root's
// lifetime pin, flushes the index file and closes it.
func (idx *Index) Close() error {
	if idx.scanExecuting {
		if err := idx.EndScan(); err != nil {
			return errors.Wrap(err, "EndScan failed")
		}
	}

	meta, err := idx.bm.ReadPage(idx.file, metaPageID)
	if err != nil {
		return errors.Wrap(err, "bm.ReadPage failed")
	}
	setMetaRoot(meta, idx.rootPageID)
	setMetaLeafOcc(meta, idx.leafOccupancy)
	setMetaNodeOcc(meta, idx.nodeOccupancy)
	if err := idx.bm.UnpinPage(idx.file, metaPageID, true); err != nil {
		return errors.Wrap(err, "bm.UnpinPage failed")
	}
	if err := idx.bm.UnpinPage(idx.file, idx.rootPageID, true); err != nil {
		return errors.Wrap(err, "bm.UnpinPage failed")
	}
	if err := idx.bm.FlushFile(idx.file); err != nil {
		return errors.Wrap(err, "bm.FlushFile failed")
	}
	if err := idx.file.Close(); err != nil {
		return errors.Wrap(err, "file.Close failed")
	}
	return nil
}
