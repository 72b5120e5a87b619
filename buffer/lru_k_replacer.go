package buffer

import (
	"math"
	"time"
)

// infiniteDistance is the backward k-distance of a frame with fewer than k
// recorded accesses. It compares greater than any finite distance.
const infiniteDistance = time.Duration(math.MaxInt64)

func NewLrukReplacer(capacity, k int) *lrukReplacer {
	nodes := make([]*lrukNode, capacity)
	for i := range capacity {
		nodes[i] = &lrukNode{frameId: i, k: k}
	}

	return &lrukReplacer{
		k:     k,
		nodes: nodes,
	}
}

func (lru *lrukReplacer) recordAccess(frameId int, timestamp time.Time) {
	lru.nodes[frameId].addTimestamp(timestamp)
}

// backwardKDistance is the age of the frame's k-th most recent access.
func (lru *lrukReplacer) backwardKDistance(frameId int, now time.Time) time.Duration {
	kth, ok := lru.nodes[frameId].kthAccess()
	if !ok {
		return infiniteDistance
	}

	return now.Sub(kth)
}

// evict picks the unpinned frame with the largest backward k-distance. Ties
// go to the frame that comes first in the pool. It returns INVALID_FRAME_ID
// when every frame is pinned.
func (lru *lrukReplacer) evict(frames []*Frame, now time.Time) int {
	victim := INVALID_FRAME_ID
	var maxDistance time.Duration = -1

	for _, frame := range frames {
		if frame.IsPinned() {
			continue
		}

		distance := lru.backwardKDistance(frame.id, now)
		if victim == INVALID_FRAME_ID || distance > maxDistance {
			victim = frame.id
			maxDistance = distance
		}
	}

	return victim
}

func (lru *lrukReplacer) history(frameId int) []time.Time {
	return lru.nodes[frameId].history
}

// lrukReplacer has no lock of its own, it is only used under the
// BufferpoolManager's lock.
type lrukReplacer struct {
	k     int
	nodes []*lrukNode
}
