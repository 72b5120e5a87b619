package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLrukReplacer(t *testing.T) {
	at := func(ms int) time.Time { return time.UnixMilli(int64(ms)) }

	t.Run("frames with fewer than k accesses are infinitely distant", func(t *testing.T) {
		replacer := NewLrukReplacer(2, 3)

		replacer.recordAccess(0, at(1))
		replacer.recordAccess(0, at(2))
		assert.Equal(t, infiniteDistance, replacer.backwardKDistance(0, at(10)))
		assert.Equal(t, infiniteDistance, replacer.backwardKDistance(1, at(10)))
	})

	t.Run("distance is the age of the kth most recent access", func(t *testing.T) {
		replacer := NewLrukReplacer(1, 3)

		for _, ms := range []int{1, 4, 6, 9} {
			replacer.recordAccess(0, at(ms))
		}

		assert.Equal(t, 6*time.Millisecond, replacer.backwardKDistance(0, at(10)))
		assert.Len(t, replacer.history(0), 3)
	})
}

func TestEviction(t *testing.T) {
	at := func(ms int) time.Time { return time.UnixMilli(int64(ms)) }

	t.Run("only evicts unpinned frames", func(t *testing.T) {
		replacer := NewLrukReplacer(3, 2)
		frames := createFrames(3)

		frames[0].pin()
		frames[2].pin()

		assert.Equal(t, 1, replacer.evict(frames, at(100)))
	})

	t.Run("returns invalid frame id when all frames are pinned", func(t *testing.T) {
		replacer := NewLrukReplacer(2, 2)
		frames := createFrames(2)
		frames[0].pin()
		frames[1].pin()

		assert.Equal(t, INVALID_FRAME_ID, replacer.evict(frames, at(100)))
	})

	t.Run("prefers to evict frame with < k accesses", func(t *testing.T) {
		replacer := NewLrukReplacer(3, 2)
		frames := createFrames(3)

		replacer.recordAccess(0, at(1))
		replacer.recordAccess(0, at(2))
		replacer.recordAccess(1, at(3))
		replacer.recordAccess(2, at(4))
		replacer.recordAccess(2, at(5))

		assert.Equal(t, 1, replacer.evict(frames, at(10)))
	})

	t.Run("prefers to evict the oldest kth access if all frames have k accesses", func(t *testing.T) {
		replacer := NewLrukReplacer(3, 2)
		frames := createFrames(3)

		// frame 1 has the most recent single access but the oldest 2nd access
		replacer.recordAccess(0, at(3))
		replacer.recordAccess(0, at(4))
		replacer.recordAccess(1, at(1))
		replacer.recordAccess(1, at(9))
		replacer.recordAccess(2, at(5))
		replacer.recordAccess(2, at(6))

		assert.Equal(t, 1, replacer.evict(frames, at(10)))
	})

	t.Run("ties go to the first frame in the pool", func(t *testing.T) {
		replacer := NewLrukReplacer(3, 2)
		frames := createFrames(3)
		frames[0].pin()

		// frames 1 and 2 both have infinite distance
		replacer.recordAccess(2, at(1))

		assert.Equal(t, 1, replacer.evict(frames, at(10)))
	})
}

func createFrames(n int) []*Frame {
	frames := make([]*Frame, n)
	for i := range n {
		frames[i] = &Frame{id: i, txnum: -1, lsn: -1}
	}

	return frames
}
