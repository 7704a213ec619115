package disk

import "testing"

// TestingUseMemStorage switches the package to memory-backed storage.
// Every call starts from an empty namespace, which isolates tests from each
// other.
func TestingUseMemStorage() {
	std = newMemOpener()
}

// TestingUseFileStorage switches the package to file-backed storage rooted
// at a temporary directory, so the generated files are removed after the
// test completes.
func TestingUseFileStorage(t *testing.T) {
	baseDir = t.TempDir()
	std = fileOpener{}
}
