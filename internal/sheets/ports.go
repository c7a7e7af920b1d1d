package sheets

import (
	"context"

	"moneytracker/internal/core"
)

// Ports for outbound adapters.
//
//go:generate mockgen -destination=mocks/mock_ports.go -source=ports.go -package=mock_sheets
type (
	// TransactionWriter appends one row at the end of the store.
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// TransactionReader returns every stored transaction in insertion order.
	// Rows that cannot be decoded are skipped by the adapter.
	TransactionReader interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}
)
