/*
This file defines the storage interface and its implementations.
We don't want to execute disk I/O in test, so it's better to use a byte slice
instead of an actual file there. For this reason the storage interface is
defined. Possible operations with storage are read/write/seek/sync/get size.
The implementations are:
- fileStorage: wrapper of os.File
- memStorage: byte slice plus the current position within it
*/
package disk

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// storage implements the operations necessary for one paged file.
type storage interface {
	io.ReadWriteSeeker
	Size() (int64, error)
	Sync() error
	Close() error
}

// fileStorage is file-backed storage
type fileStorage struct {
	*os.File
}

// Size returns the storage's size
func (fs fileStorage) Size() (int64, error) {
	stat, err := fs.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "Stat failed")
	}
	return stat.Size(), nil
}

// memStorage is memory-backed storage
type memStorage struct {
	// buf is the actual contents
	buf []byte
	// off is the current position
	off int
}

// newMemStorage initializes memStorage
func newMemStorage() *memStorage {
	return &memStorage{}
}

// Size returns the buffer size
func (ms *memStorage) Size() (int64, error) {
	return int64(len(ms.buf)), nil
}

// Sync doesn't do anything. an in-memory byte slice doesn't need sync.
func (ms *memStorage) Sync() error {
	return nil
}

// Close doesn't do anything. the contents stay reachable through the opener
// so the file can be reopened within the same process.
func (ms *memStorage) Close() error {
	return nil
}

// Read reads buffer at the current position into p
func (ms *memStorage) Read(p []byte) (int, error) {
	if ms.off >= len(ms.buf) {
		return 0, io.EOF
	}
	n := copy(p, ms.buf[ms.off:])
	if n != len(p) {
		return n, errors.Errorf("cannot fully read: read %d, want %d", n, len(p))
	}
	ms.off += n
	return n, nil
}

// Write writes p into the buffer at the current position,
// extending the buffer when the write reaches past its end
func (ms *memStorage) Write(p []byte) (int, error) {
	if need := ms.off + len(p); need > len(ms.buf) {
		extended := make([]byte, need)
		copy(extended, ms.buf)
		ms.buf = extended
	}
	n := copy(ms.buf[ms.off:], p)
	ms.off += n
	return n, nil
}

// Seek moves the current position
func (ms *memStorage) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, errors.Errorf("whence is unexpected: %d", whence)
	}
	ms.off = int(offset)
	return offset, nil
}

var _ storage = fileStorage{}
var _ storage = (*memStorage)(nil)
