package buffer

// Stats accumulates the pool's access counters.
type Stats struct {
	// Accesses counts ReadPage calls, hits and misses alike
	Accesses uint64
	// DiskReads counts pages read from disk (one per cache miss)
	DiskReads uint64
	// DiskWrites counts pages written to disk at eviction or flush
	DiskWrites uint64
}
