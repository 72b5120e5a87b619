package buffer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jobala/framepool/storage/disk"
	"github.com/jobala/framepool/wal"
)

func newFrame(id int, diskScheduler *disk.DiskScheduler, logManager *wal.Manager) *Frame {
	return &Frame{
		id:            id,
		contents:      disk.NewPage(diskScheduler.BlockSize()),
		txnum:         -1,
		lsn:           -1,
		diskScheduler: diskScheduler,
		logManager:    logManager,
	}
}

func (f *Frame) ID() int {
	return f.id
}

// Contents is the page image of the frame's block. It must only be used
// while the frame is pinned.
func (f *Frame) Contents() *disk.Page {
	return f.contents
}

// Block returns the block the frame holds, false if it holds none.
func (f *Frame) Block() (disk.BlockID, bool) {
	return f.blk, f.assigned
}

// SetModified records that txnum changed the contents. A negative lsn means
// the change produced no log record.
func (f *Frame) SetModified(txnum int, lsn int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.txnum = txnum
	if lsn >= 0 {
		f.lsn = lsn
	}
}

func (f *Frame) ModifyingTx() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txnum
}

func (f *Frame) IsPinned() bool {
	return f.pins.Load() > 0
}

func (f *Frame) Pins() int32 {
	return f.pins.Load()
}

func (f *Frame) pin() {
	f.pins.Add(1)
}

func (f *Frame) unpin() int32 {
	return f.pins.Add(-1)
}

// flush writes a modified frame back, after making its log record durable.
func (f *Frame) flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.txnum < 0 {
		return nil
	}

	if f.logManager != nil && f.lsn >= 0 {
		if err := f.logManager.Flush(f.lsn); err != nil {
			return fmt.Errorf("error flushing log to lsn %d for %s: %w", f.lsn, f.blk, err)
		}
	}

	if err := f.diskScheduler.Write(f.blk, f.contents.Bytes()); err != nil {
		return fmt.Errorf("error flushing frame %d: %w", f.id, err)
	}

	f.txnum = -1
	return nil
}

// assignToBlock writes back the current contents if modified, then reads
// blk into the frame. If the read fails the frame is left holding no block.
func (f *Frame) assignToBlock(blk disk.BlockID) error {
	if err := f.flush(); err != nil {
		return err
	}

	data, err := f.diskScheduler.Read(blk)
	if err != nil {
		f.assigned = false
		return fmt.Errorf("error reading %s: %w", blk, err)
	}

	copy(f.contents.Bytes(), data)
	f.blk = blk
	f.assigned = true
	f.pins.Store(0)

	return nil
}

// Frame is one slot of the buffer pool. Frames are owned by the
// BufferpoolManager; callers hold references between Pin and Unpin.
type Frame struct {
	id       int
	contents *disk.Page
	blk      disk.BlockID
	assigned bool
	pins     atomic.Int32

	mu    sync.Mutex
	txnum int
	lsn   int64

	diskScheduler *disk.DiskScheduler
	logManager    *wal.Manager
}
