package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sirupsen/logrus"
)

const DEFAULT_MAX_OPEN_FILES = 16

// NewManager returns a block store rooted at dir. Every volume is a file in
// dir holding blockSize sized blocks back to back; at most maxOpenFiles
// volume files are kept open at once.
func NewManager(dir string, blockSize, maxOpenFiles int) (*Manager, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size %d: %w", blockSize, ErrInvalidBlockSize)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating db dir %s: %w", dir, err)
	}

	dm := &Manager{
		dir:          dir,
		blockSize:    blockSize,
		maxOpenFiles: maxOpenFiles,
		log:          logrus.WithField("component", "disk"),
	}

	files, err := simplelru.NewLRU[string, *os.File](maxOpenFiles, dm.closeEvicted)
	if err != nil {
		return nil, fmt.Errorf("error creating open file cache: %w", err)
	}
	dm.files = files

	return dm, nil
}

func (dm *Manager) readBlock(blk BlockID) ([]byte, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	f, err := dm.open(blk.Volume)
	if err != nil {
		return nil, err
	}

	// blocks past the end of the volume read as zeroes
	buf := make([]byte, dm.blockSize)
	if _, err := f.ReadAt(buf, dm.offset(blk)); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error reading %s: %w", blk, err)
	}
	dm.reads.Add(1)

	return buf, nil
}

func (dm *Manager) writeBlock(blk BlockID, data []byte) error {
	if len(data) != dm.blockSize {
		return fmt.Errorf("writing %d bytes to %s: %w", len(data), blk, ErrInvalidBlockSize)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	f, err := dm.open(blk.Volume)
	if err != nil {
		return err
	}

	if _, err := f.WriteAt(data, dm.offset(blk)); err != nil {
		return fmt.Errorf("error writing %s: %w", blk, err)
	}
	dm.writes.Add(1)

	return nil
}

// Append grows the volume by one zeroed block and returns its id.
func (dm *Manager) Append(volume string) (BlockID, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	n, err := dm.length(volume)
	if err != nil {
		return BlockID{}, err
	}

	blk := NewBlockID(volume, n)
	f, err := dm.open(volume)
	if err != nil {
		return BlockID{}, err
	}

	if err := f.Truncate(dm.offset(blk) + int64(dm.blockSize)); err != nil {
		return BlockID{}, fmt.Errorf("error resizing %s: %w", volume, err)
	}
	dm.log.WithField("block", blk.String()).Debug("appended block")

	return blk, nil
}

// Length returns the number of blocks in volume.
func (dm *Manager) Length(volume string) (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	return dm.length(volume)
}

func (dm *Manager) BlockSize() int {
	return dm.blockSize
}

func (dm *Manager) BlocksRead() int64 {
	return dm.reads.Load()
}

func (dm *Manager) BlocksWritten() int64 {
	return dm.writes.Load()
}

func (dm *Manager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var err error
	for _, f := range dm.files.Values() {
		if e := f.Sync(); e != nil {
			err = errors.Join(err, fmt.Errorf("sync %s: %w", f.Name(), e))
		}
		if e := f.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", f.Name(), e))
		}
	}

	// the files are closed already, start over without running the callback
	dm.files, _ = simplelru.NewLRU[string, *os.File](dm.maxOpenFiles, dm.closeEvicted)

	return err
}

func (dm *Manager) length(volume string) (int64, error) {
	f, err := dm.open(volume)
	if err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("error reading size of %s: %w", volume, err)
	}

	return info.Size() / int64(dm.blockSize), nil
}

func (dm *Manager) open(volume string) (*os.File, error) {
	if f, ok := dm.files.Get(volume); ok {
		return f, nil
	}

	f, err := os.OpenFile(filepath.Join(dm.dir, volume), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening volume %s: %w", volume, err)
	}
	dm.files.Add(volume, f)

	return f, nil
}

func (dm *Manager) closeEvicted(volume string, f *os.File) {
	if err := f.Close(); err != nil {
		dm.log.WithError(err).WithField("volume", volume).Warn("failed closing evicted volume")
	}
}

func (dm *Manager) offset(blk BlockID) int64 {
	return blk.Num * int64(dm.blockSize)
}

// Manager reads and writes whole blocks. All file access is serialized on mu
// because the open file cache may close a file on any open.
type Manager struct {
	mu           sync.Mutex
	dir          string
	blockSize    int
	maxOpenFiles int
	files        *simplelru.LRU[string, *os.File]
	reads        atomic.Int64
	writes       atomic.Int64
	log          *logrus.Entry
}
