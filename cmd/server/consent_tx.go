package main

import (
	"context"
	"database/sql"
	"time"

	"agripass/internal/consent"
	consentservice "agripass/internal/consent/service"
	dErrors "agripass/pkg/domain-errors"
	txcontext "agripass/pkg/platform/tx"
)

const defaultConsentTxTimeout = 5 * time.Second

// consentPostgresTx runs ledger mutations inside a SQL transaction. The
// transaction rides the context, so the audit append issued inside fn commits
// atomically with the state change. Serialization per request comes from the
// store's status compare-and-swap, not from locks.
type consentPostgresTx struct {
	db      *sql.DB
	store   *consent.PostgresStore
	timeout time.Duration
}

func newConsentPostgresTx(db *sql.DB, store *consent.PostgresStore) *consentPostgresTx {
	return &consentPostgresTx{db: db, store: store, timeout: defaultConsentTxTimeout}
}

func (t *consentPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, store consent.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.store); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not commit transaction")
	}
	return nil
}

var _ consentservice.StoreTx = (*consentPostgresTx)(nil)
