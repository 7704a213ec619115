package heap

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/page"
)

// Scanner walks a heap file's records in insertion order through the buffer
// pool, keeping at most one page pinned at a time.
// The caller must call Close unless the scan has already failed with
// ErrEndOfFile, which releases the last pin itself.
type Scanner struct {
	f *File
	// current page, nil between pages
	p      page.PagePtr
	pageID page.PageID
	slot   uint16
	off    int
	done   bool
}

// NewScanner starts a scan over all records of the file.
func (f *File) NewScanner() *Scanner {
	return &Scanner{f: f}
}

// Next returns the next record's id and a copy of its bytes.
// Fails with ErrEndOfFile when the file is exhausted.
func (s *Scanner) Next() (RecordID, []byte, error) {
	for {
		if s.done {
			return RecordID{}, nil, errors.Wrap(ErrEndOfFile, s.f.Name())
		}
		if s.p == nil {
			s.pageID++
			if s.pageID > s.f.file.NumPages() {
				s.done = true
				return RecordID{}, nil, errors.Wrap(ErrEndOfFile, s.f.Name())
			}
			p, err := s.f.bm.ReadPage(s.f.file, s.pageID)
			if err != nil {
				return RecordID{}, nil, errors.Wrap(err, "bm.ReadPage failed")
			}
			s.p = p
			s.slot = 0
			s.off = recordsOffset
		}
		if s.slot < getNumRecords(s.p) {
			break
		}
		// page exhausted; move on
		if err := s.f.bm.UnpinPage(s.f.file, s.pageID, false); err != nil {
			return RecordID{}, nil, errors.Wrap(err, "bm.UnpinPage failed")
		}
		s.p = nil
	}

	size := int(binary.LittleEndian.Uint16(s.p[s.off:]))
	record := make([]byte, size)
	copy(record, s.p[s.off+lenPrefixSize:])
	rid := RecordID{PageNo: s.pageID, SlotNo: s.slot}
	s.slot++
	s.off += lenPrefixSize + size
	return rid, record, nil
}

// Close releases the scan's pin. Safe to call more than once.
func (s *Scanner) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if s.p == nil {
		return nil
	}
	if err := s.f.bm.UnpinPage(s.f.file, s.pageID, false); err != nil {
		return errors.Wrap(err, "bm.UnpinPage failed")
	}
	s.p = nil
	return nil
}
