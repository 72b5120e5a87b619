package buffer

import "time"

const INVALID_FRAME_ID = -1

// lrukNode is the access history of one frame: its last k access times,
// oldest first. It belongs to the frame, not to the block the frame holds,
// so a reassigned frame keeps its previous occupant's history.
type lrukNode struct {
	frameId int
	k       int
	history []time.Time
}

func (n *lrukNode) hasKAccess() bool {
	return len(n.history) >= n.k
}

// kthAccess returns the access k steps back in history.
func (n *lrukNode) kthAccess() (time.Time, bool) {
	if !n.hasKAccess() {
		return time.Time{}, false
	}

	return n.history[len(n.history)-n.k], true
}

func (n *lrukNode) addTimestamp(timestamp time.Time) {
	n.history = append(n.history, timestamp)
	for len(n.history) > n.k {
		n.history = n.history[1:]
	}
}
