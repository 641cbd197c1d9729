package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pokertracker/internal/log"
	"pokertracker/internal/sheets"
	"pokertracker/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before an item is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// SyncProcessor drains the outbox into the spreadsheet mirror. It runs a
// polling loop and can also be poked for a single session when a broker
// message arrives.
type SyncProcessor struct {
	queue  storage.SyncQueue
	mirror sheets.SessionMirror
	config SyncProcessorConfig
	logger *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(queue storage.SyncQueue, mirror sheets.SessionMirror, config SyncProcessorConfig, logger *log.Logger) *SyncProcessor {
	if logger == nil {
		logger = log.Default()
	}
	return &SyncProcessor{
		queue:  queue,
		mirror: mirror,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Items left in processing by a previous crash go back to pending.
	if err := p.queue.ResetStaleProcessing(ctx); err != nil {
		p.logger.WarnContext(ctx, "Failed to reset stale processing items", log.FieldError, err)
	}

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Run starts the loop and blocks until ctx is done, then stops it.
func (p *SyncProcessor) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.Stop(stopCtx)
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// ProcessBatch handles up to BatchSize pending items and returns how many
// were mirrored successfully.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.queue.DequeueSyncBatch(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to dequeue sync batch", log.FieldError, err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	p.logger.DebugContext(ctx, "Processing sync batch", log.FieldCount, len(items))
	return p.processItems(ctx, items)
}

// ProcessSession handles every pending item of one session, oldest first.
// The broker consumer calls it for each event.
func (p *SyncProcessor) ProcessSession(ctx context.Context, sessionID uuid.UUID) error {
	items, err := p.queue.PendingSyncForSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("pending sync for session %s: %w", sessionID, err)
	}
	p.processItems(ctx, items)
	return nil
}

func (p *SyncProcessor) processItems(ctx context.Context, items []storage.SyncItem) int {
	done := 0
	for _, item := range items {
		if p.stopping(ctx) {
			break
		}

		claimed, err := p.queue.ClaimSyncItem(ctx, item.ID)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to claim sync item", log.FieldSyncItemID, item.ID, log.FieldError, err)
			continue
		}
		if !claimed {
			// Another consumer has it.
			continue
		}

		if err := p.processItem(ctx, item); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		if err := p.queue.MarkSyncComplete(ctx, item.ID); err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark sync complete", log.FieldSyncItemID, item.ID, log.FieldError, err)
			continue
		}
		done++
	}
	return done
}

func (p *SyncProcessor) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	p.mu.Lock()
	stopCh := p.stopCh
	p.mu.Unlock()
	if stopCh == nil {
		return false
	}
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

func (p *SyncProcessor) processItem(ctx context.Context, item storage.SyncItem) error {
	switch item.Operation {
	case storage.OpUpsert:
		s, err := p.queue.SessionForSync(ctx, item.SessionID)
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted after this item was queued; the delete item follows.
			p.logger.DebugContext(ctx, "Session gone, skipping upsert", log.FieldSessionID, item.SessionID)
			return nil
		}
		if err != nil {
			return err
		}
		if err := p.mirror.Upsert(ctx, item.OwnerID, s); err != nil {
			return fmt.Errorf("mirror upsert: %w", err)
		}
	case storage.OpDelete:
		if err := p.mirror.Delete(ctx, item.SessionID); err != nil {
			return fmt.Errorf("mirror delete: %w", err)
		}
	default:
		return fmt.Errorf("unknown operation: %s", item.Operation)
	}

	p.logger.InfoContext(ctx, "Session mirrored",
		log.FieldSessionID, item.SessionID,
		log.FieldOperation, item.Operation)
	return nil
}

// handleFailure requeues the item until MaxRetries attempts have been made.
func (p *SyncProcessor) handleFailure(ctx context.Context, item storage.SyncItem, processErr error) {
	attempt := item.Attempts + 1
	p.logger.WarnContext(ctx, "Sync processing failed",
		log.FieldSyncItemID, item.ID,
		log.FieldOperation, item.Operation,
		log.FieldAttempt, attempt,
		log.FieldError, processErr)

	if attempt >= p.config.MaxRetries {
		if err := p.queue.MarkSyncFailed(ctx, item.ID, processErr.Error()); err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark sync as failed", log.FieldSyncItemID, item.ID, log.FieldError, err)
		}
		p.logger.ErrorContext(ctx, "Sync item failed permanently after max retries",
			log.FieldSyncItemID, item.ID,
			log.FieldSessionID, item.SessionID,
			log.FieldAttempt, attempt)
		return
	}
	if err := p.queue.IncrementSyncAttempt(ctx, item.ID, processErr.Error()); err != nil {
		p.logger.ErrorContext(ctx, "Failed to increment sync attempt", log.FieldSyncItemID, item.ID, log.FieldError, err)
	}
}

func (p *SyncProcessor) cleanupCompleted(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupAge)
	if err := p.queue.CleanupCompletedSyncs(ctx, cutoff); err != nil {
		p.logger.ErrorContext(ctx, "Failed to cleanup completed syncs", log.FieldError, err)
	}
}

func (p *SyncProcessor) Stats(ctx context.Context) (storage.SyncQueueStats, error) {
	return p.queue.GetSyncQueueStats(ctx)
}

// RetryFailed resets all failed items for retry
func (p *SyncProcessor) RetryFailed(ctx context.Context) error {
	return p.queue.RetryFailedSyncs(ctx)
}
