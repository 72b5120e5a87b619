package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jobala/framepool/storage/disk"
	"github.com/jobala/framepool/util"
	"github.com/jobala/framepool/wal"
	"github.com/lpabon/godbc"
	"github.com/sirupsen/logrus"
)

func NewBufferpoolManager(size int, diskScheduler *disk.DiskScheduler, logManager *wal.Manager, opts ...Option) *BufferpoolManager {
	godbc.Require(size > 0, "pool size must be positive", size)

	options := DefaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	godbc.Require(options.K > 0, "k must be positive", options.K)
	godbc.Require(options.Timeout > 0, "timeout must be positive", options.Timeout)

	logger := options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	frames := make([]*Frame, size)
	for i := range size {
		frames[i] = newFrame(i, diskScheduler, logManager)
	}

	bpm := &BufferpoolManager{
		frames:    frames,
		residency: newResidencyIndex(size),
		replacer:  NewLrukReplacer(size, options.K),
		available: size,
		blockSize: diskScheduler.BlockSize(),
		timeout:   options.Timeout,
		clock:     options.Clock,
		log:       logger.WithField("component", "bufferpool"),
	}
	bpm.cond = sync.NewCond(&bpm.mu)

	return bpm
}

// Pin returns the frame holding blk with its pin count raised by one,
// loading blk into an evicted frame if it is not resident. When every frame
// is pinned Pin waits until one is released. It gives up with an
// *util.AdmissionAbortedError once the configured timeout has passed since
// the call, or when ctx is done, whichever comes first.
//
// A frame chosen for eviction that carries uncommitted changes is written
// back as is; keeping such frames pinned is up to the caller.
func (b *BufferpoolManager) Pin(ctx context.Context, blk disk.BlockID) (*Frame, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	// wake up waiters once the deadline passes or the caller gives up
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.cond.Broadcast()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()

	waiting := false
	for {
		frame, err := b.tryToPin(blk)
		if err != nil {
			return nil, err
		}

		if frame != nil {
			godbc.Invariant(b)
			return frame, nil
		}

		if ctx.Err() != nil {
			b.stats.Aborts++
			err := util.NewAdmissionAbortedError(blk, time.Since(start))
			b.log.WithFields(logrus.Fields{"block": blk.String(), "waited": err.Waited}).Warn("admission aborted")
			return nil, err
		}

		if !waiting {
			waiting = true
			b.stats.Waits++
			b.log.WithField("block", blk.String()).Warn("waiting for a frame to become available")
		}

		// failed to get a frame, Unpin or the deadline will wake us up
		b.cond.Wait()
	}
}

// Unpin releases one pin on frame. Unpinning a frame that is not pinned is
// a caller error.
func (b *BufferpoolManager) Unpin(frame *Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	godbc.Require(frame.IsPinned(), "unpin of unpinned frame", frame.id)

	if frame.unpin() == 0 {
		b.available++
		b.cond.Broadcast()
	}

	godbc.Invariant(b)
}

// FlushAll writes back every frame modified by txnum, pinned or not.
func (b *BufferpoolManager) FlushAll(txnum int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	for _, frame := range b.frames {
		if frame.ModifyingTx() != txnum {
			continue
		}

		if e := frame.flush(); e != nil {
			err = errors.Join(err, e)
			continue
		}

		blk, _ := frame.Block()
		b.log.WithFields(logrus.Fields{"block": blk.String(), "frame": frame.id, "tx": txnum}).Debug("flushed frame")
	}

	return err
}

// Available is the number of unpinned frames.
func (b *BufferpoolManager) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *BufferpoolManager) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stats
	s.Frames = len(b.frames)
	s.Available = b.available
	s.BlockSize = b.blockSize

	return s
}

// Invariant reports whether the residency index and the frames agree and the
// available counter matches the number of unpinned frames. The caller must
// hold the lock.
func (b *BufferpoolManager) Invariant() bool {
	unpinned, assigned := 0, 0

	for _, frame := range b.frames {
		if !frame.IsPinned() {
			unpinned++
		}

		blk, ok := frame.Block()
		if !ok {
			continue
		}
		assigned++

		if id, found := b.residency.lookup(blk); !found || id != frame.id {
			return false
		}
	}

	return unpinned == b.available && assigned == b.residency.len()
}

// String describes the pool without taking the lock, for invariant failures.
// Use Stats for a consistent snapshot.
func (b *BufferpoolManager) String() string {
	return fmt.Sprintf("bufferpool{frames: %d, resident: %d, available: %d}", len(b.frames), b.residency.len(), b.available)
}

// tryToPin makes one admission attempt. It returns a nil frame when every
// frame is pinned.
func (b *BufferpoolManager) tryToPin(blk disk.BlockID) (*Frame, error) {
	frame := b.findExistingFrame(blk)

	if frame != nil {
		b.stats.Hits++
		b.log.WithFields(logrus.Fields{"block": blk.String(), "frame": frame.id}).Trace("hit")
	} else {
		frame = b.chooseUnpinnedFrame()
		if frame == nil {
			return nil, nil
		}

		if err := b.assign(frame, blk); err != nil {
			return nil, err
		}
	}

	if !frame.IsPinned() {
		b.available--
	}
	frame.pin()
	b.replacer.recordAccess(frame.id, b.clock())

	return frame, nil
}

func (b *BufferpoolManager) findExistingFrame(blk disk.BlockID) *Frame {
	if id, ok := b.residency.lookup(blk); ok {
		return b.frames[id]
	}

	return nil
}

func (b *BufferpoolManager) chooseUnpinnedFrame() *Frame {
	id := b.replacer.evict(b.frames, b.clock())
	if id == INVALID_FRAME_ID {
		return nil
	}

	return b.frames[id]
}

func (b *BufferpoolManager) assign(frame *Frame, blk disk.BlockID) error {
	b.stats.Misses++
	old, hadOld := frame.Block()

	if err := frame.assignToBlock(blk); err != nil {
		if _, ok := frame.Block(); !ok {
			b.residency.unbind(frame.id)
		}
		return fmt.Errorf("error assigning %s to frame %d: %w", blk, frame.id, err)
	}
	b.residency.bind(frame.id, blk)

	fields := logrus.Fields{"block": blk.String(), "frame": frame.id}
	if hadOld {
		b.stats.Evictions++
		fields["evicted"] = old.String()
	}
	b.log.WithFields(fields).Debug("miss")

	return nil
}

// BufferpoolManager admits callers to a fixed pool of frames. A single lock
// guards the frames' residency, the residency index, the access history and
// the available counter; cond is signalled whenever a frame becomes free.
type BufferpoolManager struct {
	mu        sync.Mutex
	cond      *sync.Cond
	frames    []*Frame
	residency *residencyIndex
	replacer  *lrukReplacer
	available int
	stats     Stats

	blockSize int
	timeout   time.Duration
	clock     func() time.Time
	log       *logrus.Entry
}
