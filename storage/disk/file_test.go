package disk

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkihara/pagestore/storage/page"
)

func TestCreateOpen(t *testing.T) {
	t.Run("open missing file", func(t *testing.T) {
		TestingUseMemStorage()
		_, err := Open("nosuch")
		assert.True(t, errors.Is(err, ErrFileNotFound))
	})
	t.Run("create twice", func(t *testing.T) {
		TestingUseMemStorage()
		_, err := Create("dup")
		assert.Nil(t, err)
		_, err = Create("dup")
		assert.True(t, errors.Is(err, ErrFileExists))
	})
	t.Run("reopen sees allocated pages", func(t *testing.T) {
		TestingUseMemStorage()
		f, err := Create("rel")
		require.Nil(t, err)
		for i := 0; i < 3; i++ {
			_, err = f.AllocatePage()
			require.Nil(t, err)
		}
		require.Nil(t, f.Close())

		reopened, err := Open("rel")
		require.Nil(t, err)
		assert.Equal(t, page.PageID(3), reopened.NumPages())
	})
}

func TestFileReadWritePage(t *testing.T) {
	TestingUseMemStorage()
	f, err := Create("rel")
	require.Nil(t, err)

	id, err := f.AllocatePage()
	require.Nil(t, err)
	assert.Equal(t, page.FirstPageID, id)

	p, err := page.TestingNewRandomPage()
	require.Nil(t, err)
	require.Nil(t, f.WritePage(id, p))

	got := page.NewPagePtr()
	require.Nil(t, f.ReadPage(id, got))
	assert.True(t, bytes.Equal(p[:], got[:]))
}

func TestFileInvalidPage(t *testing.T) {
	TestingUseMemStorage()
	f, err := Create("rel")
	require.Nil(t, err)

	p := page.NewPagePtr()
	assert.True(t, errors.Is(f.ReadPage(page.InvalidPageID, p), ErrInvalidPage))
	// nothing allocated yet
	assert.True(t, errors.Is(f.ReadPage(page.FirstPageID, p), ErrInvalidPage))
	assert.True(t, errors.Is(f.WritePage(page.FirstPageID, p), ErrInvalidPage))
}

func TestFileDeletePage(t *testing.T) {
	TestingUseMemStorage()
	f, err := Create("rel")
	require.Nil(t, err)

	first, err := f.AllocatePage()
	require.Nil(t, err)
	p, err := page.TestingNewRandomPage()
	require.Nil(t, err)
	require.Nil(t, f.WritePage(first, p))

	require.Nil(t, f.DeletePage(first))

	// the number is not reused: the next allocation extends the file
	second, err := f.AllocatePage()
	require.Nil(t, err)
	assert.Equal(t, first+1, second)

	// the deleted page's contents are gone
	got := page.NewPagePtr()
	require.Nil(t, f.ReadPage(first, got))
	assert.True(t, bytes.Equal(page.NewPagePtr()[:], got[:]))
}

func TestFileStorageBackend(t *testing.T) {
	TestingUseFileStorage(t)
	f, err := Create("rel")
	require.Nil(t, err)

	id, err := f.AllocatePage()
	require.Nil(t, err)
	p, err := page.TestingNewRandomPage()
	require.Nil(t, err)
	require.Nil(t, f.WritePage(id, p))
	require.Nil(t, f.Close())

	reopened, err := Open("rel")
	require.Nil(t, err)
	got := page.NewPagePtr()
	require.Nil(t, reopened.ReadPage(id, got))
	assert.True(t, bytes.Equal(p[:], got[:]))
	require.Nil(t, reopened.Close())
}
