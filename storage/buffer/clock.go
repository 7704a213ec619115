/*
Frame replacement uses the classic second-chance clock, an approximation of
LRU. The clock hand is a circular cursor over the descriptor table. Each
access sets the frame's ref bit; the sweep clears it, so a frame survives at
least one full sweep after being referenced before it can be chosen.
*/
package buffer

import "github.com/pkg/errors"

// advanceClock moves the clock hand ahead one frame, treating the descriptor
// table as a ring.
func (m *Manager) advanceClock() {
	m.clockHand = (m.clockHand + 1) % m.numBufs
}

// allocFrame selects a victim frame for the next resident page.
//
// For each inspected frame: an invalid frame is taken immediately; a frame
// with the ref bit set gets its bit cleared and becomes the new sweep origin;
// a pinned frame is skipped. Otherwise the frame is the victim: a dirty page
// is written out first, then the directory entry is removed and the
// descriptor cleared.
//
// When the hand returns to the sweep origin without selecting a victim,
// every frame is pinned and allocFrame fails with ErrBufferExceeded.
func (m *Manager) allocFrame() (int, error) {
	origin := m.clockHand
	for {
		m.advanceClock()
		d := &m.descTable[m.clockHand]
		if !d.valid {
			return m.clockHand, nil
		}
		if d.refbit {
			// second chance: the frame gets one more sweep to be re-referenced
			d.refbit = false
			origin = m.clockHand
			continue
		}
		if d.pinCount == 0 {
			if d.dirty {
				// write out only the victim page. other pages of the file
				// may be pinned and stay resident.
				if err := d.file.WritePage(d.pageID, m.pool[m.clockHand]); err != nil {
					return 0, errors.Wrap(err, "file.WritePage failed")
				}
				m.stats.DiskWrites++
			}
			if err := m.dir.remove(tag{d.file.Name(), d.pageID}); err != nil {
				return 0, errors.Wrap(err, "dir.remove failed")
			}
			d.clear()
			return m.clockHand, nil
		}
		// the frame is live
		if m.clockHand == origin {
			return 0, errors.Wrap(ErrBufferExceeded, "all frames pinned")
		}
	}
}
