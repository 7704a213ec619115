/*
The buffer pool manager mediates all access between the access methods and
the paged files on disk. Pages are fetched into fixed-size frames; a frame
descriptor table tracks pin counts, dirty bits and the clock's ref bits, and
a hash directory maps (file, page id) to the resident frame.

Access rule: every ReadPage/AllocPage must be paired with exactly one
UnpinPage (or DisposePage) on every exit path, including error paths. A page
stays resident while pinned; eviction only ever selects unpinned frames.

The contracts assume serial calls (there is no async boundary anywhere in
the subsystem); a single coarse mutex makes the manager safe to share
between goroutines anyway.
*/
package buffer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/disk"
	"github.com/mkihara/pagestore/storage/page"
)

// Manager is the buffer pool manager.
type Manager struct {
	mu sync.Mutex
	// numBufs is the number of frames in the pool
	numBufs int
	// pool holds the frames. pool[i] is described by descTable[i].
	pool []page.PagePtr
	// descTable is the frame descriptor table, indexed by frame number
	descTable []descriptor
	// dir maps (file, page id) to frame number for resident pages
	dir *directory
	// clockHand is the replacement cursor into the descriptor table
	clockHand int
	// stats accumulates access counters
	stats Stats
}

// NewManager initializes a buffer pool with numBufs frames.
func NewManager(numBufs int) *Manager {
	pool := make([]page.PagePtr, numBufs)
	for i := range pool {
		pool[i] = page.NewPagePtr()
	}
	return &Manager{
		numBufs:   numBufs,
		pool:      pool,
		descTable: newDescriptors(numBufs),
		dir:       newDirectory(numBufs),
		// the first advance lands on frame 0
		clockHand: numBufs - 1,
	}
}

// ReadPage returns a reference to the page, pinned.
// When the page is already resident the cached frame is returned; otherwise
// a frame is allocated through the clock and the page is read from the file.
// The caller has to call UnpinPage after it completes using the page.
func (m *Manager) ReadPage(f *disk.File, id page.PageID) (page.PagePtr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tg := tag{f.Name(), id}
	if frameNo, err := m.dir.lookup(tg); err == nil {
		d := &m.descTable[frameNo]
		d.refbit = true
		d.pinCount++
		m.stats.Accesses++
		return m.pool[frameNo], nil
	} else if !errors.Is(err, ErrHashNotFound) {
		return nil, errors.Wrap(err, "dir.lookup failed")
	}

	frameNo, err := m.allocFrame()
	if err != nil {
		return nil, errors.Wrap(err, "allocFrame failed")
	}
	if err := f.ReadPage(id, m.pool[frameNo]); err != nil {
		return nil, errors.Wrap(err, "file.ReadPage failed")
	}
	m.dir.insert(tg, frameNo)
	m.descTable[frameNo].set(f, id)
	m.stats.DiskReads++
	m.stats.Accesses++
	return m.pool[frameNo], nil
}

// AllocPage allocates a new page in the file and returns its id and a
// pinned reference to the zero-filled page.
func (m *Manager) AllocPage(f *disk.File) (page.PageID, page.PagePtr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := f.AllocatePage()
	if err != nil {
		return page.InvalidPageID, nil, errors.Wrap(err, "file.AllocatePage failed")
	}
	frameNo, err := m.allocFrame()
	if err != nil {
		return page.InvalidPageID, nil, errors.Wrap(err, "allocFrame failed")
	}
	// the frame may hold stale bytes of the evicted page
	*m.pool[frameNo] = [page.PageSize]byte{}
	m.dir.insert(tag{f.Name(), id}, frameNo)
	m.descTable[frameNo].set(f, id)
	return id, m.pool[frameNo], nil
}

// UnpinPage drops one pin on the page. The dirty flag is sticky: once set it
// stays until the page is written out at eviction or flush.
// An unknown (file, page) pair is silently ignored; unpinning a page whose
// pin count is already zero fails with ErrPageNotPinned.
func (m *Manager) UnpinPage(f *disk.File, id page.PageID, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameNo, err := m.dir.lookup(tag{f.Name(), id})
	if err != nil {
		if errors.Is(err, ErrHashNotFound) {
			return nil
		}
		return errors.Wrap(err, "dir.lookup failed")
	}
	d := &m.descTable[frameNo]
	if d.pinCount == 0 {
		return errors.Wrapf(ErrPageNotPinned, "page %d of %s in frame %d", id, f.Name(), frameNo)
	}
	d.pinCount--
	if dirty {
		d.dirty = true
	}
	return nil
}

// FlushFile writes out every dirty resident page of the file and evicts all
// of the file's pages from the pool.
// Fails with ErrPagePinned if any page of the file is pinned and with
// ErrBadBuffer if an invalid frame claims to belong to the file; a failure
// short-circuits, leaving the remaining frames untouched.
func (m *Manager) FlushFile(f *disk.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.descTable {
		d := &m.descTable[i]
		if d.file == nil || d.file.Name() != f.Name() {
			continue
		}
		if d.pinCount != 0 {
			return errors.Wrapf(ErrPagePinned, "page %d of %s in frame %d", d.pageID, f.Name(), i)
		}
		if !d.valid {
			return errors.Wrapf(ErrBadBuffer, "frame %d", i)
		}
		if d.dirty {
			if err := d.file.WritePage(d.pageID, m.pool[i]); err != nil {
				return errors.Wrap(err, "file.WritePage failed")
			}
			m.stats.DiskWrites++
		}
		if err := m.dir.remove(tag{d.file.Name(), d.pageID}); err != nil {
			return errors.Wrap(err, "dir.remove failed")
		}
		d.clear()
	}
	return nil
}

// DisposePage evicts the page from the pool if resident, then deallocates it
// on disk. The page must not be pinned.
func (m *Manager) DisposePage(f *disk.File, id page.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tg := tag{f.Name(), id}
	frameNo, err := m.dir.lookup(tg)
	if err == nil {
		d := &m.descTable[frameNo]
		if d.pinCount != 0 {
			return errors.Wrapf(ErrPagePinned, "page %d of %s in frame %d", id, f.Name(), frameNo)
		}
		d.clear()
		if err := m.dir.remove(tg); err != nil {
			return errors.Wrap(err, "dir.remove failed")
		}
	} else if !errors.Is(err, ErrHashNotFound) {
		return errors.Wrap(err, "dir.lookup failed")
	}
	if err := f.DeletePage(id); err != nil {
		return errors.Wrap(err, "file.DeletePage failed")
	}
	return nil
}

// Stats returns a copy of the access counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// ClearStats resets the access counters.
func (m *Manager) ClearStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = Stats{}
}
