package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkihara/pagestore/storage/heap"
)

func TestNewRejectsUnsupportedKeyType(t *testing.T) {
	rel, bm, err := heap.TestingNewFile(10, "rel")
	require.Nil(t, err)
	_, err = New(bm, rel, 0, KeyType(99))
	assert.NotNil(t, err)
}

func TestBuildFromRelation(t *testing.T) {
	rel, bm, err := heap.TestingNewFile(10, "rel")
	require.Nil(t, err)

	// records carry their key at byte offset 8 inside a 32-byte record
	const attrByteOffset = 8
	keys := []int32{42, 7, 99, -5, 13, 7000, 0}
	ridByKey := make(map[int32]heap.RecordID)
	for _, k := range keys {
		rid, err := rel.Insert(heap.TestingRecord(k, attrByteOffset, 32))
		require.Nil(t, err)
		ridByKey[k] = rid
	}

	idx, err := New(bm, rel, attrByteOffset, KeyTypeInt32)
	require.Nil(t, err)
	assert.Equal(t, "rel.8", idx.Name())
	assert.Equal(t, len(keys), idx.leafOccupancy)

	// the scan returns the relation's record ids in ascending key order
	require.Nil(t, idx.StartScan(-5, GTE, 7000, LTE))
	for _, k := range []int32{-5, 0, 7, 13, 42, 99, 7000} {
		rid, err := idx.ScanNext()
		require.Nil(t, err)
		assert.Equal(t, ridByKey[k], rid)
	}
	require.Nil(t, idx.EndScan())
	assert.Nil(t, idx.testingCheckTree())
	require.Nil(t, idx.Close())
}

func TestCloseAndReopen(t *testing.T) {
	rel, bm, err := heap.TestingNewFile(10, "rel")
	require.Nil(t, err)

	keys := []int32{5, 1, 9, 3, 7}
	for _, k := range keys {
		_, err := rel.Insert(heap.TestingRecord(k, 0, 16))
		require.Nil(t, err)
	}

	idx, err := New(bm, rel, 0, KeyTypeInt32)
	require.Nil(t, err)
	leafOcc := idx.leafOccupancy
	root := idx.rootPageID
	require.Nil(t, idx.Close())

	// reopening adopts the meta page instead of rebuilding
	reopened, err := New(bm, rel, 0, KeyTypeInt32)
	require.Nil(t, err)
	assert.Equal(t, leafOcc, reopened.leafOccupancy)
	assert.Equal(t, root, reopened.rootPageID)

	require.Nil(t, reopened.StartScan(1, GTE, 9, LTE))
	got, err := reopened.testingCollectKeys()
	require.Nil(t, err)
	assert.Equal(t, []int32{1, 3, 5, 7, 9}, got)
	require.Nil(t, reopened.EndScan())
	require.Nil(t, reopened.Close())
}

func TestCloseReleasesEveryPin(t *testing.T) {
	rel, bm, err := heap.TestingNewFile(10, "rel")
	require.Nil(t, err)

	idx, err := New(bm, rel, 0, KeyTypeInt32)
	require.Nil(t, err)
	idx.leafCap, idx.nodeCap = 4, 4
	for k := int32(0); k < 30; k++ {
		require.Nil(t, idx.Insert(k, testingRID(k)))
	}
	// a scan left open is ended by Close
	require.Nil(t, idx.StartScan(0, GTE, 29, LTE))
	require.Nil(t, idx.Close())
}

func TestMetaPageRoundTrip(t *testing.T) {
	rel, bm, err := heap.TestingNewFile(10, "rel")
	require.Nil(t, err)

	idx, err := New(bm, rel, 4, KeyTypeInt32)
	require.Nil(t, err)

	meta, err := idx.bm.ReadPage(idx.file, metaPageID)
	require.Nil(t, err)
	assert.Equal(t, "rel", metaRelName(meta))
	assert.Equal(t, 4, metaAttrOffset(meta))
	assert.Equal(t, KeyTypeInt32, metaKeyType(meta))
	assert.Equal(t, idx.rootPageID, metaRoot(meta))
	require.Nil(t, idx.bm.UnpinPage(idx.file, metaPageID, false))
	require.Nil(t, idx.Close())
}
