package buffer

import "github.com/jobala/framepool/storage/disk"

func newResidencyIndex(size int) *residencyIndex {
	return &residencyIndex{
		frames: make(map[disk.BlockID]int, size),
		blocks: make([]disk.BlockID, size),
		bound:  make([]bool, size),
	}
}

func (r *residencyIndex) lookup(blk disk.BlockID) (int, bool) {
	id, ok := r.frames[blk]
	return id, ok
}

// bind maps blk to frameId, dropping whatever block the frame held before.
func (r *residencyIndex) bind(frameId int, blk disk.BlockID) {
	if r.bound[frameId] && r.blocks[frameId] != blk {
		delete(r.frames, r.blocks[frameId])
	}

	r.blocks[frameId] = blk
	r.bound[frameId] = true
	r.frames[blk] = frameId
}

func (r *residencyIndex) unbind(frameId int) {
	if !r.bound[frameId] {
		return
	}

	delete(r.frames, r.blocks[frameId])
	r.bound[frameId] = false
}

func (r *residencyIndex) len() int {
	return len(r.frames)
}

// residencyIndex maps resident blocks to the frame holding them. blocks and
// bound are indexed by frame id and let bind find a frame's stale entry.
type residencyIndex struct {
	frames map[disk.BlockID]int
	blocks []disk.BlockID
	bound  []bool
}
