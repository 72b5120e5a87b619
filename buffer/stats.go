package buffer

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

type Stats struct {
	Frames    int
	Available int
	BlockSize int
	Hits      int64
	Misses    int64
	// Evictions counts misses that displaced a resident block.
	Evictions int64
	// Waits counts Pin calls that had to wait for a frame at least once.
	Waits  int64
	Aborts int64
}

func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s Stats) String() string {
	return fmt.Sprintf("frames=%d (%s) available=%d hits=%s misses=%s hit_rate=%.1f%% evictions=%s waits=%s aborts=%s",
		s.Frames, humanize.IBytes(uint64(s.Frames*s.BlockSize)), s.Available,
		humanize.Comma(s.Hits), humanize.Comma(s.Misses), s.HitRate()*100,
		humanize.Comma(s.Evictions), humanize.Comma(s.Waits), humanize.Comma(s.Aborts))
}
