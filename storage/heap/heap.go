/*
A heap file stores records in insertion order, page by page, through the
buffer pool. It is the relation an index is built over: the build scans all
records once and extracts the key bytes at a fixed offset within each record.

Record page layout (little endian):

	numRecords uint16
	freeOffset uint16 (next free byte within the page; 0 on a fresh page)
	records    each one a uint16 length prefix followed by the bytes

Records are never updated or deleted, so a page is append-only and a
record's slot number is its ordinal on the page.
*/
package heap

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/buffer"
	"github.com/mkihara/pagestore/storage/disk"
	"github.com/mkihara/pagestore/storage/page"
)

const (
	numRecordsOffset = 0
	freeOffsetOffset = 2
	// recordsOffset is where the first record starts
	recordsOffset = 4
	// lenPrefixSize is the byte size of a record's length prefix
	lenPrefixSize = 2
)

// MaxRecordSize is the largest record that fits in one page.
const MaxRecordSize = page.PageSize - recordsOffset - lenPrefixSize

// File is a heap file.
type File struct {
	file *disk.File
	bm   *buffer.Manager
}

// Create creates a new empty heap file.
func Create(bm *buffer.Manager, name string) (*File, error) {
	f, err := disk.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "disk.Create failed")
	}
	return &File{file: f, bm: bm}, nil
}

// Open opens an existing heap file.
func Open(bm *buffer.Manager, name string) (*File, error) {
	f, err := disk.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "disk.Open failed")
	}
	return &File{file: f, bm: bm}, nil
}

// Name returns the heap file's name.
func (f *File) Name() string {
	return f.file.Name()
}

// Close flushes the file's pages out of the buffer pool and closes it.
func (f *File) Close() error {
	if err := f.bm.FlushFile(f.file); err != nil {
		return errors.Wrap(err, "bm.FlushFile failed")
	}
	if err := f.file.Close(); err != nil {
		return errors.Wrap(err, "file.Close failed")
	}
	return nil
}

// Insert appends the record and returns its id.
// The record goes to the last page if it fits, otherwise onto a new page.
func (f *File) Insert(record []byte) (RecordID, error) {
	if len(record) > MaxRecordSize {
		return RecordID{}, errors.Errorf("record of %d bytes exceeds the page capacity", len(record))
	}

	var (
		id  page.PageID
		p   page.PagePtr
		err error
	)
	if id = f.file.NumPages(); id != 0 {
		p, err = f.bm.ReadPage(f.file, id)
		if err != nil {
			return RecordID{}, errors.Wrap(err, "bm.ReadPage failed")
		}
		if int(getFreeOffset(p))+lenPrefixSize+len(record) > page.PageSize {
			// the record doesn't fit; move on to a fresh page
			if err := f.bm.UnpinPage(f.file, id, false); err != nil {
				return RecordID{}, errors.Wrap(err, "bm.UnpinPage failed")
			}
			p = nil
		}
	}
	if p == nil {
		id, p, err = f.bm.AllocPage(f.file)
		if err != nil {
			return RecordID{}, errors.Wrap(err, "bm.AllocPage failed")
		}
	}

	slot := getNumRecords(p)
	off := getFreeOffset(p)
	binary.LittleEndian.PutUint16(p[off:], uint16(len(record)))
	copy(p[int(off)+lenPrefixSize:], record)
	setNumRecords(p, slot+1)
	setFreeOffset(p, off+uint16(lenPrefixSize+len(record)))

	if err := f.bm.UnpinPage(f.file, id, true); err != nil {
		return RecordID{}, errors.Wrap(err, "bm.UnpinPage failed")
	}
	return RecordID{PageNo: id, SlotNo: slot}, nil
}

// Fetch returns a copy of the record's bytes.
func (f *File) Fetch(rid RecordID) ([]byte, error) {
	p, err := f.bm.ReadPage(f.file, rid.PageNo)
	if err != nil {
		return nil, errors.Wrap(err, "bm.ReadPage failed")
	}
	defer f.bm.UnpinPage(f.file, rid.PageNo, false)

	if rid.SlotNo >= getNumRecords(p) {
		return nil, errors.Errorf("slot %d out of range on page %d", rid.SlotNo, rid.PageNo)
	}
	off := recordsOffset
	for s := uint16(0); s < rid.SlotNo; s++ {
		off += lenPrefixSize + int(binary.LittleEndian.Uint16(p[off:]))
	}
	size := int(binary.LittleEndian.Uint16(p[off:]))
	record := make([]byte, size)
	copy(record, p[off+lenPrefixSize:])
	return record, nil
}

func getNumRecords(p page.PagePtr) uint16 {
	return binary.LittleEndian.Uint16(p[numRecordsOffset:])
}

func setNumRecords(p page.PagePtr, n uint16) {
	binary.LittleEndian.PutUint16(p[numRecordsOffset:], n)
}

// getFreeOffset returns the next free byte within the page.
// A fresh page is zero-filled, so 0 reads as "records start".
func getFreeOffset(p page.PagePtr) uint16 {
	off := binary.LittleEndian.Uint16(p[freeOffsetOffset:])
	if off == 0 {
		return recordsOffset
	}
	return off
}

func setFreeOffset(p page.PagePtr, off uint16) {
	binary.LittleEndian.PutUint16(p[freeOffsetOffset:], off)
}
