package heap

import "github.com/pkg/errors"

// ErrEndOfFile is returned by Scanner.Next when every record has been
// scanned. The index build loops until it sees this.
var ErrEndOfFile = errors.New("end of file")
