package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultPollInterval is used when the configured interval is not positive.
const defaultPollInterval = 120 * time.Second

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus is a snapshot of the most recent batch.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Last     *Report
	Error    error
}

// Poller repeats an ingest batch on a fixed interval.
type Poller struct {
	ingester   *Ingester
	interval   time.Duration
	maxResults int
	logger     *slog.Logger

	// OnResult, when set, is called after every batch.
	OnResult func(*Report, error)

	mu     sync.Mutex
	status SyncStatus
}

// NewPoller creates a Poller around an Ingester.
func NewPoller(in *Ingester, interval time.Duration, maxResults int, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		ingester:   in,
		interval:   interval,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Run performs an immediate batch and then one per interval until ctx ends.
// Batches never overlap.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// Status returns the state of the most recent batch.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) runOnce(ctx context.Context) {
	p.setStatus(SyncRunning, nil, nil)

	report, err := p.ingester.Run(ctx, p.maxResults)
	if err != nil {
		p.logger.Error("ingest batch failed", "error", err)
		p.setStatus(SyncError, report, err)
	} else {
		p.setStatus(SyncIdle, report, nil)
	}

	if p.OnResult != nil {
		p.OnResult(report, err)
	}
}

func (p *Poller) setStatus(state SyncState, report *Report, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if report != nil {
		p.status.Last = report
	}
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}
