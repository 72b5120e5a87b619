// Command framepool runs a concurrent read-modify-write workload against a
// buffer pool and reports how the pool behaved.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jobala/framepool/buffer"
	"github.com/jobala/framepool/storage/disk"
	"github.com/jobala/framepool/util"
	"github.com/jobala/framepool/wal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	volume   = "workload.tbl"
	slotSize = 64
)

type config struct {
	dir     string
	frames  int
	blocks  int
	workers int
	ops     int
	timeout time.Duration
	k       int
}

// blockHeader is what a worker stamps into its slot of a block.
type blockHeader struct {
	Writer int
	Seq    int
	At     int64
}

type updateRecord struct {
	TxNum  int
	Volume string
	Block  int64
	Seq    int
}

func main() {
	var cfg config
	flag.StringVar(&cfg.dir, "dir", filepath.Join(os.TempDir(), "framepool"), "directory holding the volume and the log")
	flag.IntVar(&cfg.frames, "frames", 8, "number of frames in the pool")
	flag.IntVar(&cfg.blocks, "blocks", 32, "number of distinct blocks touched")
	flag.IntVar(&cfg.workers, "workers", 4, "concurrent workers")
	flag.IntVar(&cfg.ops, "ops", 1000, "operations per worker")
	flag.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "admission timeout")
	flag.IntVar(&cfg.k, "k", 3, "LRU-K history depth")
	verbose := flag.Bool("v", false, "log pool activity")
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if cfg.workers*slotSize > disk.DEFAULT_BLOCK_SIZE {
		logger.Fatalf("at most %d workers fit in a block", disk.DEFAULT_BLOCK_SIZE/slotSize)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("workload failed")
	}
}

func run(cfg config, logger *logrus.Logger) error {
	dm, err := disk.NewManager(cfg.dir, disk.DEFAULT_BLOCK_SIZE, disk.DEFAULT_MAX_OPEN_FILES)
	if err != nil {
		return err
	}
	defer dm.Close()

	ds := disk.NewScheduler(dm)
	defer ds.Close()

	lm, err := wal.Open(filepath.Join(cfg.dir, "framepool.log"))
	if err != nil {
		return err
	}
	defer lm.Close()

	n, err := dm.Length(volume)
	if err != nil {
		return err
	}
	for ; n < int64(cfg.blocks); n++ {
		if _, err := dm.Append(volume); err != nil {
			return err
		}
	}

	bpm := buffer.NewBufferpoolManager(cfg.frames, ds, lm,
		buffer.WithTimeout(cfg.timeout),
		buffer.WithK(cfg.k),
		buffer.WithLogger(logger),
	)

	start := time.Now()
	g, ctx := errgroup.WithContext(context.Background())
	for w := range cfg.workers {
		g.Go(func() error {
			return work(ctx, bpm, lm, w, cfg)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for w := range cfg.workers {
		if err := bpm.FlushAll(w); err != nil {
			return fmt.Errorf("error flushing tx %d: %w", w, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"elapsed":       time.Since(start).Round(time.Millisecond),
		"ops":           humanize.Comma(int64(cfg.workers * cfg.ops)),
		"blocks_read":   humanize.Comma(dm.BlocksRead()),
		"bytes_written": humanize.IBytes(uint64(dm.BlocksWritten()) * uint64(dm.BlockSize())),
		"log_lsn":       lm.FlushedLSN(),
	}).Info("workload done")
	fmt.Println(bpm.Stats())

	return nil
}

func work(ctx context.Context, bpm *buffer.BufferpoolManager, lm *wal.Manager, w int, cfg config) error {
	rng := rand.New(rand.NewSource(int64(w)))

	for seq := range cfg.ops {
		blk := disk.NewBlockID(volume, int64(rng.Intn(cfg.blocks)))
		if err := update(ctx, bpm, lm, blk, w, seq); err != nil {
			return err
		}
	}

	return nil
}

func update(ctx context.Context, bpm *buffer.BufferpoolManager, lm *wal.Manager, blk disk.BlockID, w, seq int) error {
	guard, err := bpm.PinGuarded(ctx, blk)
	if err != nil {
		return err
	}
	defer guard.Drop()

	lsn, err := wal.AppendRecord(lm, updateRecord{TxNum: w, Volume: blk.Volume, Block: blk.Num, Seq: seq})
	if err != nil {
		return err
	}

	hdr, err := util.ToBytes(blockHeader{Writer: w, Seq: seq, At: time.Now().UnixNano()})
	if err != nil {
		return err
	}

	if err := guard.GetData().SetBytes(w*slotSize, hdr); err != nil {
		return err
	}
	guard.MarkDirty(w, lsn)

	return nil
}
