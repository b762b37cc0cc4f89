package repositories

import (
	"context"
	"sync"
)

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
// Repositories called with the ctx handed to fn join the transaction.
type TransactionManager interface {
	// ExecTx executes a function within a transaction, committing only if fn returns nil
	ExecTx(ctx context.Context, fn TxFn) error
}

type txContextKey struct{}

// WithTx stores a driver transaction in the context
func WithTx[T any](ctx context.Context, tx T) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFrom retrieves a driver transaction of type T from the context.
// ok is false when there is no transaction or it belongs to another driver.
func TxFrom[T any](ctx context.Context) (tx T, ok bool) {
	tx, ok = ctx.Value(txContextKey{}).(T)
	return tx, ok
}

type commitHooksKey struct{}

// CommitHooks collects callbacks registered with AfterCommit while a transaction is open
type CommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithCommitHooks attaches a hook list to ctx. Transaction managers call Run
// once the transaction commits and drop the list on rollback.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	hooks := &CommitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks
}

// Run calls the registered callbacks in registration order
func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// AfterCommit defers fn until the transaction in ctx commits.
// Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	if !ok {
		fn()
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}
