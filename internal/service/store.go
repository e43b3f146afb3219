package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/trading-backoffice/internal/repository"
)

// QueryStore is the system of record as the services see it. Balance changes
// happen only inside RunInTx after locking the account.
type QueryStore interface {
	Queries() repository.Querier
	RunInTx(ctx context.Context, fn func(q repository.Querier) error) error
}

// requireExactlyOne turns a guarded update that matched no row into an error.
func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}
