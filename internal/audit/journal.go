package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/framehub-core/internal/control"
)

// Journal defaults.
const (
	DefaultBuffer        = 256
	DefaultPruneInterval = time.Hour
	writeTimeout         = 5 * time.Second
)

// Logger is the logging interface used by the journal.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// JournalOptions configures a Journal.
type JournalOptions struct {
	// Buffer is the number of records queued before new ones are dropped.
	Buffer int

	// Retention removes entries older than this. Zero keeps everything.
	Retention time.Duration

	// PruneInterval is how often retention is applied.
	PruneInterval time.Duration
}

// Journal is a control.Recorder that writes command records to a
// Repository. Record never blocks the command path: entries are queued
// and written serially by Run, and dropped with a warning when the queue
// is full.
type Journal struct {
	repo    Repository
	opts    JournalOptions
	logger  Logger
	queue   chan *Entry
	dropped atomic.Int64
}

// NewJournal creates a journal on repo.
func NewJournal(repo Repository, opts JournalOptions) *Journal {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = DefaultPruneInterval
	}
	return &Journal{
		repo:   repo,
		opts:   opts,
		logger: noopLogger{},
		queue:  make(chan *Entry, opts.Buffer),
	}
}

// SetLogger sets the logger.
func (j *Journal) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	j.logger = l
}

// Record implements control.Recorder.
func (j *Journal) Record(_ context.Context, rec control.Record) {
	e := FromRecord(rec)
	select {
	case j.queue <- e:
	default:
		j.dropped.Add(1)
		j.logger.Warn("command journal queue full, dropping entry",
			"device", rec.DeviceID,
			"command", rec.Command,
		)
	}
}

// Dropped returns how many records were discarded because the queue was full.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// FromRecord converts a coordinator record to a journal entry.
func FromRecord(rec control.Record) *Entry {
	e := &Entry{
		DeviceID:  rec.DeviceID,
		Command:   string(rec.Command),
		Outcome:   OutcomeOK,
		Duration:  rec.Duration,
		CreatedAt: rec.Started.UTC(),
	}
	if rec.Err != nil {
		e.Outcome = OutcomeFailed
		e.Error = rec.Err.Error()
	}
	if len(rec.Values) > 0 {
		e.Values = make(map[string]any, len(rec.Values))
		for k, v := range rec.Values {
			e.Values[string(k)] = v
		}
	}
	return e
}

// Run writes queued entries until ctx is done, then flushes what is left.
// Retention is applied once at start and then every PruneInterval.
func (j *Journal) Run(ctx context.Context) error {
	var prune <-chan time.Time
	if j.opts.Retention > 0 {
		j.prune(ctx)
		ticker := time.NewTicker(j.opts.PruneInterval)
		defer ticker.Stop()
		prune = ticker.C
	}

	for {
		select {
		case e := <-j.queue:
			j.write(e)
		case <-prune:
			j.prune(ctx)
		case <-ctx.Done():
			for {
				select {
				case e := <-j.queue:
					j.write(e)
				default:
					return nil
				}
			}
		}
	}
}

// write is detached from Run's context so that the final flush still lands.
func (j *Journal) write(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := j.repo.Create(ctx, e); err != nil {
		j.logger.Error("command journal write failed",
			"device", e.DeviceID,
			"command", e.Command,
			"error", err,
		)
	}
}

func (j *Journal) prune(ctx context.Context) {
	n, err := j.repo.Prune(ctx, time.Now().Add(-j.opts.Retention))
	if err != nil {
		j.logger.Warn("command journal prune failed", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("command journal pruned", "entries", n)
	}
}

var _ control.Recorder = (*Journal)(nil)
