package disk

import "fmt"

const DEFAULT_BLOCK_SIZE = 4096

// BlockID names a block by the volume (file) holding it and its position in
// that volume. It is comparable and used directly as a map key.
type BlockID struct {
	Volume string
	Num    int64
}

func NewBlockID(volume string, num int64) BlockID {
	return BlockID{Volume: volume, Num: num}
}

func (b BlockID) String() string {
	return fmt.Sprintf("[file %s, block %d]", b.Volume, b.Num)
}
