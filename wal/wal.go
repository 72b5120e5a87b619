// Package wal is the write-ahead log the buffer pool consults before a
// modified frame is written back: a frame's contents may only reach disk once
// the log record describing the modification is durable.
package wal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/jobala/framepool/util"
	"github.com/sirupsen/logrus"
)

var (
	ErrCorruptRecord = errors.New("corrupt log record")
	ErrClosed        = errors.New("log manager closed")
)

// length(4) + checksum(8)
const headerSize = 12

// Open opens or creates the log at path. LSNs continue from the records
// already in the file.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening log %s: %w", path, err)
	}

	m := &Manager{
		path: path,
		file: f,
		log:  logrus.WithField("component", "wal"),
	}

	iter := &Iterator{r: bufio.NewReader(f)}
	for {
		_, ok, err := iter.Next()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("error recovering log %s: %w", path, err)
		}
		if !ok {
			break
		}
		m.latestLSN++
	}
	m.flushedLSN = m.latestLSN

	return m, nil
}

// Append buffers rec and returns its LSN. The record is not durable until
// Flush is called with an LSN at least as large.
func (m *Manager) Append(rec []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return 0, ErrClosed
	}

	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(rec)))
	binary.BigEndian.PutUint64(hdr[4:12], xxhash.Sum64(rec))
	m.pending.Write(hdr[:])
	m.pending.Write(rec)

	m.latestLSN++
	return m.latestLSN, nil
}

// Flush makes every record up to and including lsn durable. It is a no-op
// when lsn is already durable.
func (m *Manager) Flush(lsn int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lsn <= m.flushedLSN {
		return nil
	}

	return m.flush()
}

func (m *Manager) FlushedLSN() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushedLSN
}

func (m *Manager) LatestLSN() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestLSN
}

// Iterator flushes the log and walks all records oldest first.
func (m *Manager) Iterator() (*Iterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flush(); err != nil {
		return nil, err
	}

	f, err := os.Open(m.path)
	if err != nil {
		return nil, fmt.Errorf("error opening log %s: %w", m.path, err)
	}

	return &Iterator{r: bufio.NewReader(f), closer: f}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}

	err := m.flush()
	if e := m.file.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("close log: %w", e))
	}
	m.file = nil

	return err
}

func (m *Manager) flush() error {
	if m.file == nil {
		return ErrClosed
	}

	if m.pending.Len() > 0 {
		if _, err := m.file.Write(m.pending.Bytes()); err != nil {
			return fmt.Errorf("error writing log: %w", err)
		}
		m.pending.Reset()
	}

	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("error syncing log: %w", err)
	}

	m.log.WithField("lsn", m.latestLSN).Debug("flushed log")
	m.flushedLSN = m.latestLSN
	return nil
}

// Next returns the next record, or false once the log is exhausted.
func (it *Iterator) Next() ([]byte, bool, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(it.r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("torn record header: %w", ErrCorruptRecord)
	}

	rec := make([]byte, binary.BigEndian.Uint32(hdr[0:4]))
	if _, err := io.ReadFull(it.r, rec); err != nil {
		return nil, false, fmt.Errorf("torn record body: %w", ErrCorruptRecord)
	}

	if xxhash.Sum64(rec) != binary.BigEndian.Uint64(hdr[4:12]) {
		return nil, false, fmt.Errorf("checksum mismatch: %w", ErrCorruptRecord)
	}

	return rec, true, nil
}

func (it *Iterator) Close() error {
	if it.closer == nil {
		return nil
	}
	return it.closer.Close()
}

func AppendRecord[T any](m *Manager, rec T) (int64, error) {
	data, err := util.ToBytes(rec)
	if err != nil {
		return 0, err
	}

	return m.Append(data)
}

func DecodeRecord[T any](data []byte) (T, error) {
	return util.ToStruct[T](data)
}

type Manager struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	pending    bytes.Buffer
	latestLSN  int64
	flushedLSN int64
	log        *logrus.Entry
}

type Iterator struct {
	r      *bufio.Reader
	closer io.Closer
}
