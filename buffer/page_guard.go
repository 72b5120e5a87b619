package buffer

import (
	"context"
	"sync"

	"github.com/jobala/framepool/storage/disk"
)

// PinGuarded pins blk and returns a guard whose Drop releases the pin.
func (b *BufferpoolManager) PinGuarded(ctx context.Context, blk disk.BlockID) (*PageGuard, error) {
	frame, err := b.Pin(ctx, blk)
	if err != nil {
		return nil, err
	}

	return &PageGuard{frame: frame, bpm: b}, nil
}

// Drop releases the guard's pin. Calling it again, or on a nil guard, does
// nothing.
func (pg *PageGuard) Drop() {
	if pg == nil || pg.frame == nil {
		return
	}

	pg.once.Do(func() {
		pg.bpm.Unpin(pg.frame)
	})
}

func (pg *PageGuard) Frame() *Frame {
	return pg.frame
}

func (pg *PageGuard) GetData() *disk.Page {
	return pg.frame.Contents()
}

// MarkDirty records that txnum modified the page, see Frame.SetModified.
func (pg *PageGuard) MarkDirty(txnum int, lsn int64) {
	pg.frame.SetModified(txnum, lsn)
}

type PageGuard struct {
	frame *Frame
	bpm   *BufferpoolManager
	once  sync.Once
}
