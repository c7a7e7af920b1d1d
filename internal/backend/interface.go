package backend

import (
	"context"
	"slices"
	"time"

	"moneytracker/internal/sheets"
)

// Backend is the store the bot reads and writes through. Ping is the
// readiness check; it must not read the stored rows.
type Backend interface {
	sheets.TransactionWriter
	sheets.TransactionReader
	Ping(ctx context.Context) error
}

// CleanupFunc releases what the backend opened, such as the SQLite handle or
// the AMQP connection.
type CleanupFunc func() error

// BackendResult pairs a backend with its cleanup; Cleanup may be nil.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds what any of the backends may need. Only the fields of the
// selected Type are read.
type Config struct {
	Type     BackendType
	Location *time.Location

	// sqlite, with optional AMQP sync messages
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// sheets; the worker also reads these regardless of Type
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleCredentialsBase64  string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

var backendTypes = []BackendType{SheetsBackend, SQLiteBackend, MemoryBackend}

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	return slices.Contains(backendTypes, bt)
}
