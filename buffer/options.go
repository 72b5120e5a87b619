package buffer

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Options struct {
	// Timeout bounds how long Pin waits for a free frame, measured from
	// the call.
	Timeout time.Duration
	// K is the history depth of the LRU-K replacer.
	K int
	// Clock stamps frame accesses.
	Clock  func() time.Time
	Logger *logrus.Logger
}

var DefaultOptions = Options{
	Timeout: 10 * time.Second,
	K:       3,
	Clock:   time.Now,
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

func WithK(k int) Option {
	return func(o *Options) {
		o.K = k
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
