/*
File is a paged file: a sequence of fixed-size pages numbered from 1.
The file allocates page numbers, reads and writes whole pages, and is
authoritative for the bytes on disk. Everything above it (buffer pool,
access methods) deals in page numbers only.

Deleted pages are zero-filled and their numbers are never reused, so callers
must not assume page numbers stay contiguous after deletes.
*/
package disk

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/page"
)

// File is one paged file.
type File struct {
	name string
	st   storage
	// npages is the highest page id allocated so far
	npages page.PageID
}

// Create creates a new empty paged file.
func Create(name string) (*File, error) {
	st, err := std.create(name)
	if err != nil {
		return nil, errors.Wrap(err, "create failed")
	}
	return &File{name: name, st: st}, nil
}

// Open opens an existing paged file.
// Fails with ErrFileNotFound when no file with the name exists.
func Open(name string) (*File, error) {
	st, err := std.open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	size, err := st.Size()
	if err != nil {
		return nil, errors.Wrap(err, "st.Size failed")
	}
	return &File{
		name:   name,
		st:     st,
		npages: page.PageID(size / page.PageSize),
	}, nil
}

// Name returns the file name. File identity is the name: two File values
// with the same name refer to the same file.
func (f *File) Name() string {
	return f.name
}

// NumPages returns the number of pages allocated so far, including deleted
// ones.
func (f *File) NumPages() page.PageID {
	return f.npages
}

// AllocatePage extends the file by one zero-filled page and returns its id.
func (f *File) AllocatePage() (page.PageID, error) {
	id := f.npages + 1
	if err := f.writeAt(id, page.NewPagePtr()); err != nil {
		return page.InvalidPageID, errors.Wrap(err, "writeAt failed")
	}
	f.npages = id
	return id, nil
}

// ReadPage reads the page into p.
func (f *File) ReadPage(id page.PageID, p page.PagePtr) error {
	if err := f.checkPageID(id); err != nil {
		return err
	}
	if _, err := f.st.Seek(page.FileOffset(id), io.SeekStart); err != nil {
		return errors.Wrap(err, "st.Seek failed")
	}
	if _, err := f.st.Read(p[:]); err != nil {
		return errors.Wrap(err, "st.Read failed")
	}
	return nil
}

// WritePage writes p as the page's new contents.
func (f *File) WritePage(id page.PageID, p page.PagePtr) error {
	if err := f.checkPageID(id); err != nil {
		return err
	}
	return f.writeAt(id, p)
}

// DeletePage deallocates the page on disk. The contents are zero-filled and
// the page number is not reused.
func (f *File) DeletePage(id page.PageID) error {
	if err := f.checkPageID(id); err != nil {
		return err
	}
	return f.writeAt(id, page.NewPagePtr())
}

// Close syncs and closes the underlying storage.
func (f *File) Close() error {
	if err := f.st.Sync(); err != nil {
		return errors.Wrap(err, "st.Sync failed")
	}
	if err := f.st.Close(); err != nil {
		return errors.Wrap(err, "st.Close failed")
	}
	return nil
}

func (f *File) checkPageID(id page.PageID) error {
	if id == page.InvalidPageID || id > f.npages {
		return errors.Wrapf(ErrInvalidPage, "page %d of %s (allocated %d)", id, f.name, f.npages)
	}
	return nil
}

func (f *File) writeAt(id page.PageID, p page.PagePtr) error {
	if _, err := f.st.Seek(page.FileOffset(id), io.SeekStart); err != nil {
		return errors.Wrap(err, "st.Seek failed")
	}
	if _, err := f.st.Write(p[:]); err != nil {
		return errors.Wrap(err, "st.Write failed")
	}
	return nil
}
