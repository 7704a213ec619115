package buffer

import "github.com/pkg/errors"

var (
	// ErrBufferExceeded is returned when no frame can be evicted because
	// every frame is pinned.
	ErrBufferExceeded = errors.New("buffer pool exceeded")
	// ErrPagePinned is returned when an operation requires a page (or any
	// page of a file) to be unpinned and it is not.
	ErrPagePinned = errors.New("page is pinned")
	// ErrPageNotPinned is returned by UnpinPage when the page's pin count is
	// already zero.
	ErrPageNotPinned = errors.New("page is not pinned")
	// ErrBadBuffer is returned by FlushFile when an invalid frame claims to
	// belong to the file.
	ErrBadBuffer = errors.New("bad buffer frame")

	// ErrHashNotFound signals a directory miss. This is the normal
	// "page not resident" signal and is always handled inside the manager.
	ErrHashNotFound = errors.New("hash directory entry not found")
)
