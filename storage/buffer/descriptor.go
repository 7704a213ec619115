/*
A buffer descriptor stores the metadata of one frame.

The fields used by the replacement policy:

1. pin count
- the number of outstanding references to the frame.
- a pinned frame cannot be evicted.
- the flow is: pin the frame (via ReadPage/AllocPage) -> do anything with the
  page -> unpin the frame (via UnpinPage) after the work is completed.
- IMPORTANT: the caller is responsible for UnpinPage on every exit path.

2. ref bit
- set whenever the frame is accessed, cleared when the clock hand inspects
  the frame. A frame with the bit set gets a second chance before eviction.

3. dirty bit
- set when a caller unpins with dirty=true. The bit is sticky: it stays set
  until the page is written out at eviction or flush.
*/
package buffer

import (
	"github.com/mkihara/pagestore/storage/disk"
	"github.com/mkihara/pagestore/storage/page"
)

// descriptor is the frame descriptor.
type descriptor struct {
	// frameNo is the frame's index in the descriptor table
	frameNo int
	// file owning the resident page. nil when the frame is invalid.
	file *disk.File
	// pageID within file. meaningful only when valid.
	pageID page.PageID
	// pinCount is the number of outstanding pins
	pinCount uint32
	// dirty is set when the in-memory bytes differ from the on-disk image
	dirty bool
	// valid is true iff the frame holds a resident page
	valid bool
	// refbit is the clock second-chance bit
	refbit bool
}

// newDescriptors initializes the descriptor table.
func newDescriptors(numBufs int) []descriptor {
	descs := make([]descriptor, numBufs)
	for i := range descs {
		descs[i].frameNo = i
	}
	return descs
}

// set stamps the descriptor for a newly resident page.
// The frame starts pinned once with the ref bit set and a clean page.
func (d *descriptor) set(f *disk.File, id page.PageID) {
	d.file = f
	d.pageID = id
	d.pinCount = 1
	d.dirty = false
	d.valid = true
	d.refbit = true
}

// clear resets the descriptor to the invalid state.
func (d *descriptor) clear() {
	d.file = nil
	d.pageID = page.InvalidPageID
	d.pinCount = 0
	d.dirty = false
	d.valid = false
	d.refbit = false
}
