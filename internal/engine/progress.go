package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sluice-dev/sluice/pkg/destination"
	"github.com/sluice-dev/sluice/pkg/logger"
)

// progressWriteTimeout bounds a single checkpoint write.
const progressWriteTimeout = 10 * time.Second

// Snapshot is one progress checkpoint. Each snapshot overwrites the
// previous one; only the latest matters.
type Snapshot struct {
	Stage     string    `json:"stage"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressSink receives checkpoint snapshots. Report never blocks on
// slow storage and never fails the caller.
type ProgressSink interface {
	Report(snap Snapshot)
	Close()
}

// StoreSink writes checkpoints to the job record's sync_progress field.
// Writes run on a single consumer goroutine fed by a latest-wins
// buffer: when a new snapshot arrives before the previous one is
// written, the stale one is dropped.
type StoreSink struct {
	store     destination.DataStore
	jobID     string
	ch        chan Snapshot
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewStoreSink starts the consumer goroutine for one job.
func NewStoreSink(store destination.DataStore, jobID string) *StoreSink {
	s := &StoreSink{
		store: store,
		jobID: jobID,
		ch:    make(chan Snapshot, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		logger: logger.Get().With(
			zap.String("component", "progress_sink"),
			zap.String("job_id", jobID)),
	}
	go s.run()
	return s
}

// Report queues a snapshot, replacing any unwritten predecessor.
func (s *StoreSink) Report(snap Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Close flushes the pending snapshot and stops the consumer. Safe to
// call more than once.
func (s *StoreSink) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
}

func (s *StoreSink) run() {
	for {
		select {
		case snap := <-s.ch:
			s.write(snap)
		case <-s.quit:
			select {
			case snap := <-s.ch:
				s.write(snap)
			default:
			}
			close(s.done)
			return
		}
	}
}

// write is best-effort: a failed checkpoint is logged and dropped,
// never escalated.
func (s *StoreSink) write(snap Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), progressWriteTimeout)
	defer cancel()

	err := s.store.PatchRecord(ctx, destination.KindSyncJobs, s.jobID, map[string]interface{}{
		"sync_progress": snap,
	})
	if err != nil {
		s.logger.Warn("checkpoint write failed",
			zap.String("stage", snap.Stage),
			zap.Int("processed", snap.Processed),
			zap.Error(err))
	}
}
