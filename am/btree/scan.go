package btree

import (
	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/heap"
	"github.com/mkihara/pagestore/storage/page"
)

// Operator bounds one side of a range scan.
type Operator int

const (
	// LT matches keys strictly below the high value
	LT Operator = iota
	// LTE matches keys up to and including the high value
	LTE
	// GT matches keys strictly above the low value
	GT
	// GTE matches keys from the low value upward
	GTE
)

// StartScan positions the scan cursor on the first entry within
// (low lowOp .. high highOp). Only one scan is live at a time; a running
// scan is terminated first.
//
// Fails with ErrBadOpcodes unless lowOp is GT/GTE and highOp is LT/LTE,
// with ErrBadScanrange when low > high, and with ErrNoSuchKeyFound when no
// entry satisfies the bounds (the scan is left inactive in that case).
func (idx *Index) StartScan(lowVal int32, lowOp Operator, highVal int32, highOp Operator) error {
	if lowOp != GT && lowOp != GTE {
		return errors.Wrapf(ErrBadOpcodes, "low operator %d", lowOp)
	}
	if highOp != LT && highOp != LTE {
		return errors.Wrapf(ErrBadOpcodes, "high operator %d", highOp)
	}
	if idx.leafOccupancy == 0 {
		return errors.Wrap(ErrNoSuchKeyFound, "index is empty")
	}
	if idx.scanExecuting {
		if err := idx.EndScan(); err != nil {
			return errors.Wrap(err, "EndScan failed")
		}
	}
	if lowVal > highVal {
		return errors.Wrapf(ErrBadScanrange, "low %d > high %d", lowVal, highVal)
	}

	idx.lowVal, idx.lowOp = lowVal, lowOp
	idx.highVal, idx.highOp = highVal, highOp

	// descend to the leaf that would contain the low value
	pid, p, _, err := idx.findLeaf(idx.rootPageID, lowVal)
	if err != nil {
		return errors.Wrap(err, "findLeaf failed")
	}
	idx.scanExecuting = true
	idx.currentPageID, idx.currentPage = pid, p

	for {
		idx.nextEntry = 0
		for n := leafNumKeys(p); idx.nextEntry < n; idx.nextEntry++ {
			key := leafKey(p, idx.nextEntry)
			if idx.pastHighBound(key) {
				return idx.abortScan()
			}
			if (lowOp == GTE && lowVal <= key) || (lowOp == GT && lowVal < key) {
				// the cursor is positioned; the leaf stays pinned
				return nil
			}
		}
		next := leafRightSib(p)
		if next == page.InvalidPageID {
			return idx.abortScan()
		}
		if err := idx.bm.UnpinPage(idx.file, idx.currentPageID, false); err != nil {
			return errors.Wrap(err, "bm.UnpinPage failed")
		}
		if p, err = idx.bm.ReadPage(idx.file, next); err != nil {
			return errors.Wrap(err, "bm.ReadPage failed")
		}
		idx.currentPageID, idx.currentPage = next, p
	}
}

// abortScan unwinds a failed StartScan: the visited leaf is unpinned and
// the scan left inactive.
func (idx *Index) abortScan() error {
	idx.scanExecuting = false
	if err := idx.bm.UnpinPage(idx.file, idx.currentPageID, false); err != nil {
		return errors.Wrap(err, "bm.UnpinPage failed")
	}
	return errors.Wrap(ErrNoSuchKeyFound, "no entry in scan range")
}

// pastHighBound reports whether the key violates the scan's upper bound.
func (idx *Index) pastHighBound(key int32) bool {
	return key > idx.highVal || (key == idx.highVal && idx.highOp == LT)
}

// ScanNext returns the record id under the cursor and advances it, moving
// to the right sibling when the current leaf is exhausted.
// Fails with ErrScanNotInitialized when no scan is live and with
// ErrIndexScanCompleted when the range or the leaf chain is exhausted (the
// scan stays live; EndScan releases it).
func (idx *Index) ScanNext() (heap.RecordID, error) {
	if !idx.scanExecuting {
		return heap.RecordID{}, errors.Wrap(ErrScanNotInitialized, "ScanNext")
	}

	p := idx.currentPage
	if idx.nextEntry >= leafNumKeys(p) {
		next := leafRightSib(p)
		if next == page.InvalidPageID {
			return heap.RecordID{}, errors.Wrap(ErrIndexScanCompleted, "leaf chain exhausted")
		}
		if err := idx.bm.UnpinPage(idx.file, idx.currentPageID, false); err != nil {
			return heap.RecordID{}, errors.Wrap(err, "bm.UnpinPage failed")
		}
		var err error
		if p, err = idx.bm.ReadPage(idx.file, next); err != nil {
			return heap.RecordID{}, errors.Wrap(err, "bm.ReadPage failed")
		}
		idx.currentPageID, idx.currentPage = next, p
		idx.nextEntry = 0
	}

	if idx.pastHighBound(leafKey(p, idx.nextEntry)) {
		return heap.RecordID{}, errors.Wrap(ErrIndexScanCompleted, "high bound reached")
	}
	rid := leafRID(p, idx.nextEntry)
	idx.nextEntry++
	return rid, nil
}

// EndScan terminates the scan and unpins the leaf it was positioned on.
// Fails with ErrScanNotInitialized when no scan is live.
func (idx *Index) EndScan() error {
	if !idx.scanExecuting {
		return errors.Wrap(ErrScanNotInitialized, "EndScan")
	}
	idx.scanExecuting = false
	if err := idx.bm.UnpinPage(idx.file, idx.currentPageID, false); err != nil {
		return errors.Wrap(err, "bm.UnpinPage failed")
	}
	return nil
}
