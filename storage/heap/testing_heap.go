package heap

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mkihara/pagestore/storage/buffer"
	"github.com/mkihara/pagestore/storage/disk"
)

// TestingNewFile initializes a heap file over a fresh memory-backed disk
// namespace with a pool of numBufs frames.
func TestingNewFile(numBufs int, name string) (*File, *buffer.Manager, error) {
	disk.TestingUseMemStorage()
	bm := buffer.NewManager(numBufs)
	f, err := Create(bm, name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Create failed")
	}
	return f, bm, nil
}

// TestingRecord builds a record with the int32 key encoded at keyOffset,
// padded to size bytes. This mirrors the fixed-offset key extraction the
// index build performs.
func TestingRecord(key int32, keyOffset, size int) []byte {
	record := make([]byte, size)
	binary.LittleEndian.PutUint32(record[keyOffset:], uint32(key))
	return record
}
