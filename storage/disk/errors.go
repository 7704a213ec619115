package disk

import "github.com/pkg/errors"

var (
	// ErrFileNotFound is returned by Open when no file with the name exists.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileExists is returned by Create when the file already exists.
	ErrFileExists = errors.New("file already exists")
	// ErrInvalidPage is returned when the page id has never been allocated.
	ErrInvalidPage = errors.New("invalid page id")
)
