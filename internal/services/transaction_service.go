package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"moneytracker/internal/core"
	"moneytracker/internal/sheets"
)

// Ensure interface conformance
var (
	_ sheets.TransactionWriter = (*TransactionService)(nil)
	_ sheets.TransactionReader = (*TransactionService)(nil)
)

// LocalStore is the durable local store the service writes through.
type LocalStore interface {
	sheets.TransactionWriter
	sheets.TransactionReader
	Ping(ctx context.Context) error
	Close() error
}

// SyncPublisher announces a freshly stored row to the sync worker.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id int64) error
	Close() error
}

// TransactionService saves transactions locally and asks the worker to copy
// them to Google Sheets. It is a TransactionWriter and TransactionReader, so
// the bot cannot tell it from a direct store.
type TransactionService struct {
	store     LocalStore
	publisher SyncPublisher
}

// NewTransactionService accepts a nil publisher, in which case rows stay
// pending until the worker's periodic sweep picks them up.
func NewTransactionService(store LocalStore, publisher SyncPublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

// Append saves t and publishes a sync message. A publish failure is logged
// and does not fail the call.
func (s *TransactionService) Append(ctx context.Context, t core.Transaction) (string, error) {
	ref, err := s.store.Append(ctx, t)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse transaction ID", "ref", ref, "error", err)
		return ref, nil
	}

	if err := s.publishSyncMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
	return ref, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

// Ping checks the local store only; the AMQP link is optional.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *TransactionService) publishSyncMessage(ctx context.Context, id int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, row left for periodic sync", "id", id)
		return nil
	}
	return s.publisher.PublishTransactionSync(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
