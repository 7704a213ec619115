package buffer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkihara/pagestore/storage/page"
)

func TestAllocFrameColdSlot(t *testing.T) {
	m, _, err := TestingNewManager(3)
	require.Nil(t, err)

	// the hand starts at numBufs-1 so the first advance lands on frame 0
	frameNo, err := m.allocFrame()
	assert.Nil(t, err)
	assert.Equal(t, 0, frameNo)
}

func TestAllocFrameSecondChance(t *testing.T) {
	m, f, err := TestingNewManager(2)
	require.Nil(t, err)

	var ids []page.PageID
	for i := 0; i < 2; i++ {
		id, _, err := m.AllocPage(f)
		require.Nil(t, err)
		require.Nil(t, m.UnpinPage(f, id, false))
		ids = append(ids, id)
	}

	// both frames are unpinned with the ref bit set. the sweep clears both
	// bits, wraps, and picks frame 0: a freshly referenced frame survives
	// exactly one sweep.
	frameNo, err := m.allocFrame()
	assert.Nil(t, err)
	assert.Equal(t, 0, frameNo)

	// frame 1 kept its page; frame 0 was evicted
	_, err = m.dir.lookup(tag{f.Name(), ids[0]})
	assert.True(t, errors.Is(err, ErrHashNotFound))
	_, err = m.dir.lookup(tag{f.Name(), ids[1]})
	assert.Nil(t, err)
}

func TestAllocFrameSkipsPinned(t *testing.T) {
	m, f, err := TestingNewManager(2)
	require.Nil(t, err)

	pinnedID, _, err := m.AllocPage(f)
	require.Nil(t, err)
	victimID, _, err := m.AllocPage(f)
	require.Nil(t, err)
	require.Nil(t, m.UnpinPage(f, victimID, false))

	frameNo, err := m.allocFrame()
	assert.Nil(t, err)
	// eviction never selects a pinned frame
	assert.Equal(t, victimID, page.PageID(2))
	assert.Equal(t, 1, frameNo)
	frameNo, err = m.dir.lookup(tag{f.Name(), pinnedID})
	assert.Nil(t, err)
	assert.Equal(t, 0, frameNo)
}

func TestAllocFrameAllPinned(t *testing.T) {
	m, f, err := TestingNewManager(3)
	require.Nil(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := m.AllocPage(f)
		require.Nil(t, err)
	}
	_, err = m.allocFrame()
	assert.True(t, errors.Is(err, ErrBufferExceeded))
}

func TestAllocFrameWritesDirtyVictim(t *testing.T) {
	m, f, err := TestingNewManager(1)
	require.Nil(t, err)

	id, p, err := m.AllocPage(f)
	require.Nil(t, err)
	rp, err := page.TestingNewRandomPage()
	require.Nil(t, err)
	copy(p[:], rp[:])
	require.Nil(t, m.UnpinPage(f, id, true))

	frameNo, err := m.allocFrame()
	require.Nil(t, err)
	assert.Equal(t, 0, frameNo)
	assert.Equal(t, uint64(1), m.Stats().DiskWrites)

	// the dirty page was written through to the file
	got := page.NewPagePtr()
	require.Nil(t, f.ReadPage(id, got))
	assert.Equal(t, rp[:], got[:])
}
