package buffer

import (
	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/disk"
)

// TestingNewManager initializes a buffer pool over a fresh memory-backed
// disk namespace and returns the manager plus a new paged file in it.
func TestingNewManager(numBufs int) (*Manager, *disk.File, error) {
	disk.TestingUseMemStorage()
	f, err := disk.Create("rel")
	if err != nil {
		return nil, nil, errors.Wrap(err, "disk.Create failed")
	}
	return NewManager(numBufs), f, nil
}

// testingCreateFile creates another paged file in the namespace set up by
// TestingNewManager.
func testingCreateFile(name string) (*disk.File, error) {
	return disk.Create(name)
}

// testingCheckInvariants verifies the frame/directory invariants:
// a valid frame has exactly one directory entry pointing at it, an invalid
// frame has none and carries no state, and pinned frames are valid.
func (m *Manager) testingCheckInvariants() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.descTable {
		d := &m.descTable[i]
		if d.valid {
			frameNo, err := m.dir.lookup(tag{d.file.Name(), d.pageID})
			if err != nil {
				return errors.Wrapf(err, "valid frame %d has no directory entry", i)
			}
			if frameNo != i {
				return errors.Errorf("directory points frame %d at %d", i, frameNo)
			}
			continue
		}
		if d.pinCount != 0 || d.dirty || d.refbit {
			return errors.Errorf("invalid frame %d carries state", i)
		}
	}
	entries := 0
	for _, e := range m.dir.buckets {
		for ; e != nil; e = e.next {
			if !m.descTable[e.frameNo].valid {
				return errors.Errorf("directory entry points at invalid frame %d", e.frameNo)
			}
			entries++
		}
	}
	valid := 0
	for i := range m.descTable {
		if m.descTable[i].valid {
			valid++
		}
	}
	if entries != valid {
		return errors.Errorf("%d directory entries for %d valid frames", entries, valid)
	}
	return nil
}
