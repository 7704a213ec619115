package heap

import "github.com/mkihara/pagestore/storage/page"

// RecordID locates one record within a heap file: the page holding it and
// the record's slot on that page. Index leaves store RecordIDs next to keys.
type RecordID struct {
	PageNo page.PageID
	SlotNo uint16
}
