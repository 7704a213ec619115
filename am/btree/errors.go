package btree

import "github.com/pkg/errors"

var (
	// ErrBadOpcodes is returned by StartScan when the bound operators are
	// not GT/GTE for the low bound and LT/LTE for the high bound.
	ErrBadOpcodes = errors.New("bad scan operators")
	// ErrBadScanrange is returned by StartScan when low > high.
	ErrBadScanrange = errors.New("bad scan range")
	// ErrNoSuchKeyFound is returned by StartScan when no key satisfies the
	// scan criteria.
	ErrNoSuchKeyFound = errors.New("no such key found")
	// ErrScanNotInitialized is returned by ScanNext/EndScan when no scan is
	// live.
	ErrScanNotInitialized = errors.New("scan not initialized")
	// ErrIndexScanCompleted is returned by ScanNext when the scan range is
	// exhausted.
	ErrIndexScanCompleted = errors.New("index scan completed")
)
