package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/domain"
)

// RetentionWorker periodically purges audit entries older than the
// configured retention window. A retention of zero days disables purging
// entirely; the trail is then kept forever.
type RetentionWorker struct {
	sink      domain.AuditSink
	retention time.Duration
	interval  time.Duration
	log       *logrus.Logger
	stop      chan struct{}
	done      chan struct{}
}

// NewRetentionWorker creates a retention worker over the given sink.
func NewRetentionWorker(sink domain.AuditSink, retentionDays int, interval time.Duration, logger *logrus.Logger) *RetentionWorker {
	return &RetentionWorker{
		sink:      sink,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
		log:       logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the purge loop in a goroutine. It returns immediately.
func (w *RetentionWorker) Start() {
	if w.retention <= 0 {
		w.log.Info("Audit retention disabled, entries kept indefinitely")
		close(w.done)
		return
	}

	interval := w.interval
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.purgeOnce()
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *RetentionWorker) purgeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-w.retention)
	removed, err := w.sink.PurgeBefore(ctx, cutoff)
	if err != nil {
		w.log.WithError(err).Error("Audit retention purge failed")
		return
	}
	if removed > 0 {
		w.log.WithFields(logrus.Fields{
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Purged expired audit entries")
	}
}

// Stop halts the purge loop and waits for it to exit.
func (w *RetentionWorker) Stop() {
	select {
	case <-w.done:
		return
	default:
	}
	close(w.stop)
	<-w.done
}
