package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moneytracker/internal/amqp"
	"moneytracker/internal/core"
	"moneytracker/internal/sheets"
	"moneytracker/internal/storage"
)

// SyncStore is the local bookkeeping the worker reads and updates.
type SyncStore interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	IsSynced(ctx context.Context, id int64) (bool, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

var _ SyncStore = (*storage.SQLiteRepository)(nil)

// SyncWorker copies transactions from SQLite to Google Sheets. The AMQP
// consumer and the periodic sweep share one worker; a row is appended by at
// most one of them at a time.
type SyncWorker struct {
	store     SyncStore
	sheets    sheets.TransactionWriter
	batchSize int

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewSyncWorker(store SyncStore, sheets sheets.TransactionWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{store: store, sheets: sheets, batchSize: batchSize, inFlight: make(map[int64]struct{})}
}

func (w *SyncWorker) claim(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[id]; busy {
		return false
	}
	w.inFlight[id] = struct{}{}
	return true
}

func (w *SyncWorker) release(id int64) {
	w.mu.Lock()
	delete(w.inFlight, id)
	w.mu.Unlock()
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
// Rows that are already synced or no longer exist are acknowledged. A failed
// Sheets append is recorded on the row and left to the periodic sweep, so only
// local storage errors are returned for requeue. A row the sweep is already
// appending is acknowledged; the sweep finishes it.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "message_id", msg.MessageID)

	if !w.claim(msg.ID) {
		slog.DebugContext(ctx, "Transaction sync already in flight", "id", msg.ID)
		return nil
	}
	defer w.release(msg.ID)

	synced, err := w.store.IsSynced(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Sync message for unknown transaction, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("check sync state: %w", err)
	}
	if synced {
		slog.DebugContext(ctx, "Transaction already synced", "id", msg.ID)
		return nil
	}

	t, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if err := w.syncToSheets(ctx, msg.ID, t); err != nil {
		slog.WarnContext(ctx, "Sheets append failed, leaving row for periodic sync", "id", msg.ID, "error", err)
	}
	return nil
}

// ProcessPending syncs up to one batch of rows that never made it to the
// sheet. It covers lost AMQP messages and worker downtime.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if w.syncPending(ctx, p.ID) {
			synced++
		}
	}
	return synced, nil
}

// syncPending appends one swept row unless the consumer holds it or synced
// it after the batch was read.
func (w *SyncWorker) syncPending(ctx context.Context, id int64) bool {
	if !w.claim(id) {
		return false
	}
	defer w.release(id)

	if done, err := w.store.IsSynced(ctx, id); err == nil && done {
		return false
	}
	t, err := w.store.GetTransaction(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to get transaction", "id", id, "error", err)
		if err := w.store.MarkSyncError(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", err)
		}
		return false
	}
	if err := w.syncToSheets(ctx, id, t); err != nil {
		slog.ErrorContext(ctx, "Failed to sync transaction", "id", id, "error", err)
		return false
	}
	return true
}

// RunPeriodic calls ProcessPending once immediately and then every interval
// until ctx is cancelled.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := w.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
		} else if n > 0 {
			slog.InfoContext(ctx, "Periodic sync completed", "synced", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *SyncWorker) syncToSheets(ctx context.Context, id int64, t core.Transaction) error {
	ref, err := w.sheets.Append(ctx, t)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	// The row is in the sheet at this point; a bookkeeping failure only
	// means a later duplicate attempt.
	if err := w.store.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", id,
		"sheets_ref", ref,
		"description", t.Description,
		"amount", int64(t.Amount))
	return nil
}
