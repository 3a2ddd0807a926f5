package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BatchWriter stores journal batches. JournalRepo is the production one.
type BatchWriter interface {
	WriteBatch(ctx context.Context, entries []JournalEntry) error
}

// Journal buffers entries from the game loop and writes them in batches on
// its own goroutine. Record never blocks: when the buffer is full the entry
// is dropped and counted.
type Journal struct {
	writer  BatchWriter
	in      chan JournalEntry
	flush   time.Duration
	log     *zap.Logger
	dropped uint64
	mu      sync.Mutex // guards dropped
	done    chan struct{}
	now     func() time.Time
}

func NewJournal(writer BatchWriter, buffer int, flush time.Duration, log *zap.Logger) *Journal {
	return &Journal{
		writer: writer,
		in:     make(chan JournalEntry, buffer),
		flush:  flush,
		log:    log,
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Record queues an entry. Game loop only.
func (j *Journal) Record(e JournalEntry) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = j.now()
	}
	select {
	case j.in <- e:
	default:
		j.mu.Lock()
		j.dropped++
		j.mu.Unlock()
	}
}

// Dropped returns the number of entries lost to a full buffer.
func (j *Journal) Dropped() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dropped
}

// Run writes batches every flush interval until ctx is cancelled, then
// writes whatever is still queued and returns.
func (j *Journal) Run(ctx context.Context) {
	defer close(j.done)
	ticker := time.NewTicker(j.flush)
	defer ticker.Stop()

	batch := make([]JournalEntry, 0, 64)
	for {
		select {
		case e := <-j.in:
			batch = append(batch, e)
		case <-ticker.C:
			batch = j.write(batch)
		case <-ctx.Done():
			j.write(j.drain(batch))
			return
		}
	}
}

func (j *Journal) drain(batch []JournalEntry) []JournalEntry {
	for {
		select {
		case e := <-j.in:
			batch = append(batch, e)
		default:
			return batch
		}
	}
}

// Wait blocks until Run has returned.
func (j *Journal) Wait() {
	<-j.done
}

func (j *Journal) write(batch []JournalEntry) []JournalEntry {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.writer.WriteBatch(ctx, batch); err != nil {
		j.log.Warn("journal write failed", zap.Int("entries", len(batch)), zap.Error(err))
	}
	clear(batch)
	return batch[:0]
}
