package btree

import (
	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/heap"
	"github.com/mkihara/pagestore/storage/page"
)

// Insert adds one (key, rid) entry to the index.
//
// The target leaf is found by descending from the root. When the leaf is
// full it splits, the new right leaf's first key is promoted, and the
// insertion walks back upward by parent re-descent, splitting internal
// nodes as needed; a split of the old root grows the tree by one level.
func (idx *Index) Insert(key int32, rid heap.RecordID) error {
	idx.leafOccupancy++

	leafID, leaf, depth, err := idx.findLeaf(idx.rootPageID, key)
	if err != nil {
		return errors.Wrap(err, "findLeaf failed")
	}

	if leafNumKeys(leaf) < idx.leafCap {
		leafInsertAt(leaf, leafFindIndex(leaf, key), key, rid)
		if err := idx.bm.UnpinPage(idx.file, leafID, true); err != nil {
			return errors.Wrap(err, "bm.UnpinPage failed")
		}
		return nil
	}

	promoted, promotedPage, routeKey, err := idx.splitLeaf(leafID, leaf, key, rid)
	if err != nil {
		return errors.Wrap(err, "splitLeaf failed")
	}

	// walk upward, inserting the promotion at each ancestor
	childID := leafID
	for d := depth - 1; d >= 0; d-- {
		parentID, err := idx.findParent(childID, routeKey)
		if err != nil {
			return errors.Wrap(err, "findParent failed")
		}
		parent, err := idx.bm.ReadPage(idx.file, parentID)
		if err != nil {
			return errors.Wrap(err, "bm.ReadPage failed")
		}
		idx.nodeOccupancy++

		if nodeNumKeys(parent) < idx.nodeCap {
			nodeInsertAt(parent, nodeFindIndex(parent, promoted), promoted, promotedPage)
			if err := idx.bm.UnpinPage(idx.file, parentID, true); err != nil {
				return errors.Wrap(err, "bm.UnpinPage failed")
			}
			return nil
		}

		promoted, promotedPage, routeKey, err = idx.splitNode(parentID, parent, promoted, promotedPage)
		if err != nil {
			return errors.Wrap(err, "splitNode failed")
		}
		childID = parentID
	}

	// the walk exited past the old root
	return idx.growRoot(promoted, promotedPage)
}

// findLeaf descends from the given page to the leaf that owns key.
// The returned leaf is pinned; every internal node on the way is unpinned
// clean. depth is the number of levels descended (0 when the start page is
// the leaf itself), which the insertion path uses to bound its upward walk.
func (idx *Index) findLeaf(from page.PageID, key int32) (page.PageID, page.PagePtr, int, error) {
	pid := from
	p, err := idx.bm.ReadPage(idx.file, pid)
	if err != nil {
		return page.InvalidPageID, nil, 0, errors.Wrap(err, "bm.ReadPage failed")
	}
	depth := 0
	// with no internal nodes the root is the only leaf
	isLeaf := idx.nodeOccupancy == 0
	for !isLeaf {
		// does the next descent reach a leaf?
		isLeaf = nodeLevel(p) == 1

		next := nodeChild(p, nodeFindIndex(p, key))
		if err := idx.bm.UnpinPage(idx.file, pid, false); err != nil {
			return page.InvalidPageID, nil, 0, errors.Wrap(err, "bm.UnpinPage failed")
		}
		if p, err = idx.bm.ReadPage(idx.file, next); err != nil {
			return page.InvalidPageID, nil, 0, errors.Wrap(err, "bm.ReadPage failed")
		}
		pid = next
		depth++
	}
	return pid, p, depth, nil
}

// findParent locates the parent of target by re-descending from the root,
// routing routeKey (a key stored in target's subtree, by convention its
// first key) until a node's child pointer equals target. Parent pointers
// are not persisted, so this re-descent is the only way back up.
// By convention the parent of the root is the root itself.
func (idx *Index) findParent(target page.PageID, routeKey int32) (page.PageID, error) {
	if target == idx.rootPageID {
		return target, nil
	}
	pid := idx.rootPageID
	p, err := idx.bm.ReadPage(idx.file, pid)
	if err != nil {
		return page.InvalidPageID, errors.Wrap(err, "bm.ReadPage failed")
	}
	for {
		next := nodeChild(p, nodeFindIndex(p, routeKey))
		if err := idx.bm.UnpinPage(idx.file, pid, false); err != nil {
			return page.InvalidPageID, errors.Wrap(err, "bm.UnpinPage failed")
		}
		if next == target {
			return pid, nil
		}
		if p, err = idx.bm.ReadPage(idx.file, next); err != nil {
			return page.InvalidPageID, errors.Wrap(err, "bm.ReadPage failed")
		}
		pid = next
	}
}

// splitLeaf splits the full leaf, inserts the entry on the correct side and
// threads the sibling chain. It returns the promoted key (the new right
// leaf's first key), the new leaf's page number, and the route key for the
// parent walk (the left leaf's first key). Both leaves are unpinned dirty.
func (idx *Index) splitLeaf(leftID page.PageID, left page.PagePtr, key int32, rid heap.RecordID) (int32, page.PageID, int32, error) {
	rightID, right, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		return 0, page.InvalidPageID, 0, errors.Wrap(err, "bm.AllocPage failed")
	}

	// the entry goes left iff its position falls strictly in the lower
	// half; with an odd capacity the receiving side is left one entry short,
	// with an even one both sides keep half
	insertLeft := leafFindIndex(left, key) < idx.leafCap-idx.leafCap/2
	moveNum := idx.leafCap / 2
	if insertLeft {
		moveNum = (idx.leafCap + 1) / 2
	}

	// move the trailing entries, preserving order
	for i := 0; i < moveNum; i++ {
		setLeafKey(right, i, leafKey(left, idx.leafCap-moveNum+i))
		setLeafRID(right, i, leafRID(left, idx.leafCap-moveNum+i))
	}
	setLeafNumKeys(right, moveNum)
	setLeafNumKeys(left, idx.leafCap-moveNum)

	if insertLeft {
		leafInsertAt(left, leafFindIndex(left, key), key, rid)
	} else {
		leafInsertAt(right, leafFindIndex(right, key), key, rid)
	}

	// thread the sibling chain
	setLeafRightSib(right, leafRightSib(left))
	setLeafRightSib(left, rightID)

	promoted := leafKey(right, 0)
	routeKey := leafKey(left, 0)
	if err := idx.bm.UnpinPage(idx.file, rightID, true); err != nil {
		return 0, page.InvalidPageID, 0, errors.Wrap(err, "bm.UnpinPage failed")
	}
	if err := idx.bm.UnpinPage(idx.file, leftID, true); err != nil {
		return 0, page.InvalidPageID, 0, errors.Wrap(err, "bm.UnpinPage failed")
	}
	return promoted, rightID, routeKey, nil
}

// splitNode splits the full internal node while inserting (key, rightChild).
// Unlike a leaf split the middle key is not copied up, it moves up: the left
// node's last key after redistribution leaves the node and becomes the next
// promotion, except when the incoming key lands exactly between the halves:
// then the incoming key itself moves up. The new right node inherits the
// level flag. Both nodes are unpinned dirty.
func (idx *Index) splitNode(leftID page.PageID, left page.PagePtr, key int32, rightChild page.PageID) (int32, page.PageID, int32, error) {
	secondID, second, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		return 0, page.InvalidPageID, 0, errors.Wrap(err, "bm.AllocPage failed")
	}

	// pick the insert side so that the key moving up separates the halves
	// correctly. when the incoming key lands exactly between the halves it
	// is the median and moves up itself.
	insertAt := nodeFindIndex(left, key)
	insertRightFrom := (idx.nodeCap + 2) / 2
	var moveNum int
	switch {
	case insertAt < idx.nodeCap/2:
		moveNum = idx.nodeCap / 2
	case insertAt >= insertRightFrom:
		moveNum = (idx.nodeCap - 1) / 2
	default:
		moveNum = idx.nodeCap - insertAt
	}

	// move the trailing keys with their right children; the child between
	// the halves becomes the right node's leftmost child
	for i := 0; i < moveNum; i++ {
		setNodeKey(second, i, nodeKey(left, idx.nodeCap-moveNum+i))
		setNodeChild(second, i, nodeChild(left, idx.nodeCap-moveNum+i))
	}
	setNodeChild(second, moveNum, nodeChild(left, idx.nodeCap))
	setNodeNumKeys(second, moveNum)
	setNodeNumKeys(left, idx.nodeCap-moveNum)
	setNodeLevel(second, nodeLevel(left))

	var promoted int32
	switch {
	case insertAt < idx.nodeCap/2:
		// the middle key moves up before the insertion so the left node
		// has room
		n := nodeNumKeys(left)
		promoted = nodeKey(left, n-1)
		setNodeNumKeys(left, n-1)
		nodeInsertAt(left, nodeFindIndex(left, key), key, rightChild)
	case insertAt >= insertRightFrom:
		nodeInsertAt(second, nodeFindIndex(second, key), key, rightChild)
		n := nodeNumKeys(left)
		promoted = nodeKey(left, n-1)
		setNodeNumKeys(left, n-1)
	default:
		// the incoming key is the median: it moves up unchanged and its
		// right child leads the new node
		promoted = key
		setNodeChild(second, 0, rightChild)
	}

	routeKey := nodeKey(left, 0)
	if err := idx.bm.UnpinPage(idx.file, secondID, true); err != nil {
		return 0, page.InvalidPageID, 0, errors.Wrap(err, "bm.UnpinPage failed")
	}
	if err := idx.bm.UnpinPage(idx.file, leftID, true); err != nil {
		return 0, page.InvalidPageID, 0, errors.Wrap(err, "bm.UnpinPage failed")
	}
	return promoted, secondID, routeKey, nil
}

// growRoot allocates a new root above the old one after the upward walk
// exits past it. The old root's lifetime pin moves to the new root.
func (idx *Index) growRoot(promoted int32, rightID page.PageID) error {
	newRootID, p, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		return errors.Wrap(err, "bm.AllocPage failed")
	}
	setNodeNumKeys(p, 1)
	setNodeKey(p, 0, promoted)
	setNodeChild(p, 0, idx.rootPageID)
	setNodeChild(p, 1, rightID)
	if idx.nodeOccupancy == 0 {
		// the tree had no internal nodes: the new root's children are leaves
		setNodeLevel(p, 1)
	}
	idx.nodeOccupancy++

	// release the old root's lifetime pin; the new root carries it now
	if err := idx.bm.UnpinPage(idx.file, idx.rootPageID, true); err != nil {
		return errors.Wrap(err, "bm.UnpinPage failed")
	}
	idx.rootPageID = newRootID
	return nil
}
