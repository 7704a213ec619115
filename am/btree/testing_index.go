package btree

import (
	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/buffer"
	"github.com/mkihara/pagestore/storage/heap"
	"github.com/mkihara/pagestore/storage/page"
)

// TestingNewIndex builds an index over an empty memory-backed relation and
// shrinks the node capacities so splits are reachable with a handful of
// keys. Capacities must be set before the first insert, hence the empty
// relation.
func TestingNewIndex(numBufs, leafCap, nodeCap int) (*Index, *heap.File, *buffer.Manager, error) {
	rel, bm, err := heap.TestingNewFile(numBufs, "rel")
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "heap.TestingNewFile failed")
	}
	idx, err := New(bm, rel, 0, KeyTypeInt32)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "New failed")
	}
	idx.leafCap = leafCap
	idx.nodeCap = nodeCap
	return idx, rel, bm, nil
}

// testingRID derives a synthetic record id from a key so scans can be
// checked against the keys alone.
func testingRID(key int32) heap.RecordID {
	return heap.RecordID{PageNo: page.PageID(key), SlotNo: uint16(key)}
}

// testingCheckTree verifies the structural invariants: all leaves at the
// same depth, keys within every subtree bounded by the separators above it,
// and the leaf sibling chain strictly ascending with no cycles.
func (idx *Index) testingCheckTree() error {
	leafDepth := -1
	var walk func(pid page.PageID, depth int, lo, hi int64, isLeaf bool) error
	walk = func(pid page.PageID, depth int, lo, hi int64, isLeaf bool) error {
		p, err := idx.bm.ReadPage(idx.file, pid)
		if err != nil {
			return errors.Wrap(err, "bm.ReadPage failed")
		}
		defer idx.bm.UnpinPage(idx.file, pid, false)

		if isLeaf {
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				return errors.Errorf("leaf %d at depth %d, expected %d", pid, depth, leafDepth)
			}
			for i := 0; i < leafNumKeys(p); i++ {
				k := int64(leafKey(p, i))
				if k < lo || k >= hi {
					return errors.Errorf("leaf %d key %d outside [%d, %d)", pid, k, lo, hi)
				}
				if i > 0 && leafKey(p, i-1) > leafKey(p, i) {
					return errors.Errorf("leaf %d keys out of order", pid)
				}
			}
			return nil
		}
		n := nodeNumKeys(p)
		if n == 0 {
			return errors.Errorf("internal node %d is empty", pid)
		}
		childIsLeaf := nodeLevel(p) == 1
		for i := 0; i <= n; i++ {
			childLo, childHi := lo, hi
			if i > 0 {
				childLo = int64(nodeKey(p, i-1))
			}
			if i < n {
				childHi = int64(nodeKey(p, i))
			}
			if childLo > childHi {
				return errors.Errorf("internal node %d separators out of order", pid)
			}
			if err := walk(nodeChild(p, i), depth+1, childLo, childHi, childIsLeaf); err != nil {
				return err
			}
		}
		return nil
	}

	const (
		unbounded = int64(1) << 40
	)
	if err := walk(idx.rootPageID, 0, -unbounded, unbounded, idx.nodeOccupancy == 0); err != nil {
		return err
	}
	return idx.testingCheckLeafChain()
}

// testingCheckLeafChain walks the sibling chain from the leftmost leaf and
// verifies it is strictly key-ascending, cycle free, and covers every entry.
func (idx *Index) testingCheckLeafChain() error {
	// descend to the leftmost leaf
	pid := idx.rootPageID
	isLeaf := idx.nodeOccupancy == 0
	for !isLeaf {
		p, err := idx.bm.ReadPage(idx.file, pid)
		if err != nil {
			return errors.Wrap(err, "bm.ReadPage failed")
		}
		isLeaf = nodeLevel(p) == 1
		next := nodeChild(p, 0)
		if err := idx.bm.UnpinPage(idx.file, pid, false); err != nil {
			return errors.Wrap(err, "bm.UnpinPage failed")
		}
		pid = next
	}

	seen := make(map[page.PageID]bool)
	last := int64(-1) << 40
	entries := 0
	for pid != page.InvalidPageID {
		if seen[pid] {
			return errors.Errorf("sibling chain cycles at page %d", pid)
		}
		seen[pid] = true
		p, err := idx.bm.ReadPage(idx.file, pid)
		if err != nil {
			return errors.Wrap(err, "bm.ReadPage failed")
		}
		for i := 0; i < leafNumKeys(p); i++ {
			k := int64(leafKey(p, i))
			if k <= last {
				return errors.Errorf("sibling chain not ascending at page %d", pid)
			}
			last = k
			entries++
		}
		next := leafRightSib(p)
		if err := idx.bm.UnpinPage(idx.file, pid, false); err != nil {
			return errors.Wrap(err, "bm.UnpinPage failed")
		}
		pid = next
	}
	if entries != idx.leafOccupancy {
		return errors.Errorf("sibling chain holds %d entries, %d inserted", entries, idx.leafOccupancy)
	}
	return nil
}

// testingCollectKeys returns every key in the index in sibling-chain order.
func (idx *Index) testingCollectKeys() ([]int32, error) {
	pid := idx.rootPageID
	isLeaf := idx.nodeOccupancy == 0
	for !isLeaf {
		p, err := idx.bm.ReadPage(idx.file, pid)
		if err != nil {
			return nil, errors.Wrap(err, "bm.ReadPage failed")
		}
		isLeaf = nodeLevel(p) == 1
		next := nodeChild(p, 0)
		if err := idx.bm.UnpinPage(idx.file, pid, false); err != nil {
			return nil, errors.Wrap(err, "bm.UnpinPage failed")
		}
		pid = next
	}

	var keys []int32
	for pid != page.InvalidPageID {
		p, err := idx.bm.ReadPage(idx.file, pid)
		if err != nil {
			return nil, errors.Wrap(err, "bm.ReadPage failed")
		}
		for i := 0; i < leafNumKeys(p); i++ {
			keys = append(keys, leafKey(p, i))
		}
		next := leafRightSib(p)
		if err := idx.bm.UnpinPage(idx.file, pid, false); err != nil {
			return nil, errors.Wrap(err, "bm.UnpinPage failed")
		}
		pid = next
	}
	return keys, nil
}
