// Package calllog keeps a journal of recent calls.
//
// Records live in an in-memory BadgerDB for the lifetime of the process and
// are msgpack-encoded under time-ordered keys:
//
//	call:{start_unix_ns, 20 digits}:{id} → msgpack-encoded Record
//
// Nothing is written to disk.
package calllog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("calllog: closed")

// DefaultMaxRecords bounds the journal when Options.MaxRecords is zero.
const DefaultMaxRecords = 500

const keyPrefix = "call:"

// Direction of a call.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// Outcome of a call.
type Outcome string

const (
	// Completed calls were connected and ended normally.
	Completed Outcome = "completed"
	// Missed incoming calls rang but were never answered.
	Missed Outcome = "missed"
	// Declined incoming calls were rejected by policy before ringing.
	Declined Outcome = "declined"
	// Unanswered outgoing calls ended before the far end picked up.
	Unanswered Outcome = "unanswered"
	// Failed outgoing calls could not be placed.
	Failed Outcome = "failed"
	// TimedOut calls were cut at the maximum call duration.
	TimedOut Outcome = "timed_out"
)

// Record is one journal entry.
type Record struct {
	ID        string    `json:"id" msgpack:"id"`
	Direction Direction `json:"direction" msgpack:"dir"`
	Number    string    `json:"number" msgpack:"num"`
	Outcome   Outcome   `json:"outcome" msgpack:"out"`
	Reason    string    `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Start     time.Time `json:"start" msgpack:"start"`
	End       time.Time `json:"end" msgpack:"end"`
}

// Duration returns how long the call lasted.
func (r Record) Duration() time.Duration {
	if r.End.Before(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Options configures a Log.
type Options struct {
	// MaxRecords is the number of records kept; older ones are trimmed.
	MaxRecords int

	Logger *slog.Logger
}

// Log is the call journal. It is safe for concurrent use.
type Log struct {
	db  *badger.DB
	max int
	log *slog.Logger

	mu     sync.Mutex
	count  int
	closed bool
}

// Open creates an empty in-memory journal.
func Open(opts Options) (*Log, error) {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	dbOpts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(badgerLogger{opts.Logger})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("calllog: open: %w", err)
	}
	return &Log{db: db, max: opts.MaxRecords, log: opts.Logger}, nil
}

func recordKey(r Record) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", keyPrefix, r.Start.UnixNano(), r.ID)
}

// Add stores r, filling in a missing ID and start time, and trims the oldest
// records beyond the limit.
func (l *Log) Add(_ context.Context, r Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Start.IsZero() {
		r.Start = time.Now()
	}
	if r.End.IsZero() {
		r.End = r.Start
	}
	data, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("calllog: encode: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(r), data)
	}); err != nil {
		return fmt.Errorf("calllog: store: %w", err)
	}
	l.count++

	if over := l.count - l.max; over > 0 {
		n, err := l.trim(over)
		l.count -= n
		if err != nil {
			return fmt.Errorf("calllog: trim: %w", err)
		}
	}
	return nil
}

// trim deletes the n oldest records and returns how many were deleted.
func (l *Log) trim(n int) (int, error) {
	var keys [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid() && len(keys) < n; it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := l.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (l *Log) Recent(_ context.Context, n int) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}

	var out []Record
	err := l.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Reverse = true
		iterOpts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		// In reverse mode Seek lands on the last key <= the seek key.
		seek := append([]byte(keyPrefix), 0xff)
		for it.Seek(seek); it.Valid(); it.Next() {
			if n > 0 && len(out) >= n {
				break
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var r Record
			if err := msgpack.Unmarshal(val, &r); err != nil {
				l.log.Warn("calllog: skip malformed record", "key", string(it.Item().Key()), "error", err)
				continue
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calllog: read: %w", err)
	}
	return out, nil
}

// Close releases the database. Further calls return ErrClosed.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

// badgerLogger routes badger's warnings and errors to slog and drops the
// rest.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{}) {
	b.l.Error("calllog: badger: " + fmt.Sprintf(f, v...))
}

func (b badgerLogger) Warningf(f string, v ...interface{}) {
	b.l.Warn("calllog: badger: " + fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
