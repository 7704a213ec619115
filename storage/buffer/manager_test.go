package buffer

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkihara/pagestore/storage/page"
)

func TestReadPage(t *testing.T) {
	t.Run("miss fetches from disk, hit returns the cached frame", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		id, err := f.AllocatePage()
		require.Nil(t, err)
		rp, err := page.TestingNewRandomPage()
		require.Nil(t, err)
		require.Nil(t, f.WritePage(id, rp))

		p1, err := m.ReadPage(f, id)
		require.Nil(t, err)
		assert.True(t, bytes.Equal(rp[:], p1[:]))
		assert.Equal(t, uint64(1), m.Stats().DiskReads)

		// the hit pins the same frame again without disk I/O
		p2, err := m.ReadPage(f, id)
		require.Nil(t, err)
		assert.Equal(t, p1, p2)
		assert.Equal(t, uint64(1), m.Stats().DiskReads)
		assert.Equal(t, uint64(2), m.Stats().Accesses)
		assert.Equal(t, uint32(2), m.descTable[0].pinCount)

		require.Nil(t, m.testingCheckInvariants())
	})
	t.Run("pool overflow", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		var ids []page.PageID
		for i := 0; i < 4; i++ {
			id, err := f.AllocatePage()
			require.Nil(t, err)
			ids = append(ids, id)
		}
		// pin three distinct pages, filling the pool
		for i := 0; i < 3; i++ {
			_, err := m.ReadPage(f, ids[i])
			require.Nil(t, err)
		}
		_, err = m.ReadPage(f, ids[3])
		assert.True(t, errors.Is(err, ErrBufferExceeded))
	})
}

func TestAllocPage(t *testing.T) {
	m, f, err := TestingNewManager(3)
	require.Nil(t, err)

	id, p, err := m.AllocPage(f)
	require.Nil(t, err)
	assert.Equal(t, page.FirstPageID, id)
	// the new page starts zero-filled
	assert.True(t, bytes.Equal(page.NewPagePtr()[:], p[:]))
	assert.Equal(t, uint32(1), m.descTable[0].pinCount)
	require.Nil(t, m.testingCheckInvariants())
}

func TestUnpinPage(t *testing.T) {
	t.Run("unknown page is ignored", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)
		assert.Nil(t, m.UnpinPage(f, page.PageID(42), false))
	})
	t.Run("unpinning below zero fails", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		id, _, err := m.AllocPage(f)
		require.Nil(t, err)
		assert.Nil(t, m.UnpinPage(f, id, false))
		assert.True(t, errors.Is(m.UnpinPage(f, id, false), ErrPageNotPinned))
	})
	t.Run("dirty flag is sticky", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		id, _, err := m.AllocPage(f)
		require.Nil(t, err)
		require.Nil(t, m.UnpinPage(f, id, true))

		// a later clean unpin must not clear the bit
		_, err = m.ReadPage(f, id)
		require.Nil(t, err)
		require.Nil(t, m.UnpinPage(f, id, false))
		assert.True(t, m.descTable[0].dirty)
	})
}

func TestFlushFile(t *testing.T) {
	t.Run("round trip through flush", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		id, p, err := m.AllocPage(f)
		require.Nil(t, err)
		rp, err := page.TestingNewRandomPage()
		require.Nil(t, err)
		copy(p[:], rp[:])
		require.Nil(t, m.UnpinPage(f, id, true))

		require.Nil(t, m.FlushFile(f))
		assert.Equal(t, uint64(1), m.Stats().DiskWrites)
		require.Nil(t, m.testingCheckInvariants())

		// the pool was emptied, so this is a fresh read of the flushed bytes
		got, err := m.ReadPage(f, id)
		require.Nil(t, err)
		assert.True(t, bytes.Equal(rp[:], got[:]))
	})
	t.Run("flush while pinned is rejected", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		_, _, err = m.AllocPage(f)
		require.Nil(t, err)
		assert.True(t, errors.Is(m.FlushFile(f), ErrPagePinned))
	})
	t.Run("clean pages are evicted without writes", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		id, _, err := m.AllocPage(f)
		require.Nil(t, err)
		require.Nil(t, m.UnpinPage(f, id, false))

		require.Nil(t, m.FlushFile(f))
		assert.Equal(t, uint64(0), m.Stats().DiskWrites)
		assert.False(t, m.descTable[0].valid)
	})
}

func TestDisposePage(t *testing.T) {
	t.Run("resident page", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		id, _, err := m.AllocPage(f)
		require.Nil(t, err)
		require.Nil(t, m.UnpinPage(f, id, true))

		require.Nil(t, m.DisposePage(f, id))
		_, err = m.dir.lookup(tag{f.Name(), id})
		assert.True(t, errors.Is(err, ErrHashNotFound))
		require.Nil(t, m.testingCheckInvariants())
	})
	t.Run("pinned page is rejected", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		id, _, err := m.AllocPage(f)
		require.Nil(t, err)
		assert.True(t, errors.Is(m.DisposePage(f, id), ErrPagePinned))
	})
	t.Run("non-resident page is deleted on disk", func(t *testing.T) {
		m, f, err := TestingNewManager(3)
		require.Nil(t, err)

		id, err := f.AllocatePage()
		require.Nil(t, err)
		assert.Nil(t, m.DisposePage(f, id))
	})
}

func TestDirtyEvictionWritesThrough(t *testing.T) {
	// pool of one frame: allocating a second page forces eviction of the
	// first, which must write the dirty bytes through to disk exactly once
	m, f, err := TestingNewManager(1)
	require.Nil(t, err)

	id1, p, err := m.AllocPage(f)
	require.Nil(t, err)
	rp, err := page.TestingNewRandomPage()
	require.Nil(t, err)
	copy(p[:], rp[:])
	require.Nil(t, m.UnpinPage(f, id1, true))

	id2, _, err := m.AllocPage(f)
	require.Nil(t, err)
	require.Nil(t, m.UnpinPage(f, id2, false))
	assert.Equal(t, uint64(1), m.Stats().DiskWrites)

	got, err := m.ReadPage(f, id1)
	require.Nil(t, err)
	assert.True(t, bytes.Equal(rp[:], got[:]))
	assert.Equal(t, uint64(1), m.Stats().DiskWrites)
	require.Nil(t, m.UnpinPage(f, id1, false))
	require.Nil(t, m.testingCheckInvariants())
}

func TestTwoFilesShareThePool(t *testing.T) {
	m, f1, err := TestingNewManager(4)
	require.Nil(t, err)
	f2, err := testingCreateFile("rel2")
	require.Nil(t, err)

	id1, _, err := m.AllocPage(f1)
	require.Nil(t, err)
	id2, _, err := m.AllocPage(f2)
	require.Nil(t, err)
	require.Nil(t, m.UnpinPage(f1, id1, true))
	require.Nil(t, m.UnpinPage(f2, id2, true))

	// flushing f1 must not touch f2's page
	require.Nil(t, m.FlushFile(f1))
	_, err = m.dir.lookup(tag{f2.Name(), id2})
	assert.Nil(t, err)
	require.Nil(t, m.testingCheckInvariants())
}
