/*
This file defines the opener interface and its implementations.
The opener creates/opens the storage backing a paged file. The
implementations are:
- fileOpener: opens files under the base directory
- memOpener: opens byte slices. this is intended to be used in test.
*/
package disk

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// baseDir is the directory all file-backed paged files live under.
// tests override this with a temporary directory.
var baseDir = "base"

// opener opens storage by file name
type opener interface {
	// open opens existing storage. fails with ErrFileNotFound when absent.
	open(name string) (storage, error)
	// create creates new storage. fails with ErrFileExists when present.
	create(name string) (storage, error)
}

// std is the opener used by Open/Create. swapped in test.
var std opener = fileOpener{}

// fileOpener opens files
type fileOpener struct{}

func (fileOpener) open(name string) (storage, error) {
	path := filepath.Join(baseDir, name)
	fd, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrFileNotFound, "%s", name)
		}
		return nil, errors.Wrap(err, "os.OpenFile failed")
	}
	return fileStorage{fd}, nil
}

func (fileOpener) create(name string) (storage, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, errors.Wrap(err, "os.MkdirAll failed")
	}
	path := filepath.Join(baseDir, name)
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrapf(ErrFileExists, "%s", name)
		}
		return nil, errors.Wrap(err, "os.OpenFile failed")
	}
	return fileStorage{fd}, nil
}

// memOpener opens byte slices. the slices are kept in the opener so a file
// can be closed and reopened within one process, which the index open path
// relies on.
type memOpener struct {
	st map[string]*memStorage
}

// newMemOpener initializes memOpener
func newMemOpener() *memOpener {
	return &memOpener{
		st: make(map[string]*memStorage),
	}
}

func (mo *memOpener) open(name string) (storage, error) {
	ms, ok := mo.st[name]
	if !ok {
		return nil, errors.Wrapf(ErrFileNotFound, "%s", name)
	}
	// reset the position. the previous user may have left it anywhere.
	ms.off = 0
	return ms, nil
}

func (mo *memOpener) create(name string) (storage, error) {
	if _, ok := mo.st[name]; ok {
		return nil, errors.Wrapf(ErrFileExists, "%s", name)
	}
	ms := newMemStorage()
	mo.st[name] = ms
	return ms, nil
}
