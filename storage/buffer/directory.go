/*
The hash directory maps (file, page id) to the frame holding the page.

The directory is a fixed-size chained hash table sized to roughly 1.2x the
frame count, rounded to an odd bucket count. A lookup miss is signalled with
ErrHashNotFound; the miss is the normal "page not resident" signal inside the
manager and never escapes the public API.

Lifecycle of an entry: inserted when the page is brought in, removed on
eviction, flush, or dispose.
*/
package buffer

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/page"
)

// tag identifies a resident page. File identity is the file name.
type tag struct {
	file   string
	pageID page.PageID
}

type dirEntry struct {
	tag     tag
	frameNo int
	next    *dirEntry
}

// directory is the hash directory.
type directory struct {
	buckets []*dirEntry
}

// newDirectory sizes the table to ~1.2x the frame count, rounded to odd.
func newDirectory(numBufs int) *directory {
	size := ((numBufs * 6 / 5) &^ 1) + 1
	return &directory{
		buckets: make([]*dirEntry, size),
	}
}

// bucket hashes the tag into a bucket index.
func (dir *directory) bucket(tg tag) int {
	h := fnv.New32a()
	h.Write([]byte(tg.file))
	var pid [4]byte
	binary.LittleEndian.PutUint32(pid[:], uint32(tg.pageID))
	h.Write(pid[:])
	return int(h.Sum32() % uint32(len(dir.buckets)))
}

// insert adds the entry. The caller guarantees the tag is absent.
func (dir *directory) insert(tg tag, frameNo int) {
	b := dir.bucket(tg)
	dir.buckets[b] = &dirEntry{
		tag:     tg,
		frameNo: frameNo,
		next:    dir.buckets[b],
	}
}

// lookup returns the frame holding the page.
// Fails with ErrHashNotFound when the page is not resident.
func (dir *directory) lookup(tg tag) (int, error) {
	for e := dir.buckets[dir.bucket(tg)]; e != nil; e = e.next {
		if e.tag == tg {
			return e.frameNo, nil
		}
	}
	return 0, errors.Wrapf(ErrHashNotFound, "page %d of %s", tg.pageID, tg.file)
}

// remove deletes the entry.
// Fails with ErrHashNotFound when the entry is absent.
func (dir *directory) remove(tg tag) error {
	b := dir.bucket(tg)
	for pp := &dir.buckets[b]; *pp != nil; pp = &(*pp).next {
		if (*pp).tag == tg {
			*pp = (*pp).next
			return nil
		}
	}
	return errors.Wrapf(ErrHashNotFound, "page %d of %s", tg.pageID, tg.file)
}
