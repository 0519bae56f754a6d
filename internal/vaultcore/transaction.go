package vaultcore

import (
	"context"
	"time"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// OpKind is one of a transaction's closed set of step kinds, per
// spec.md §4.I.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
	OpPutIfAbsent
	OpUpdate
	OpIncrement
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	case OpPutIfAbsent:
		return "put_if_absent"
	case OpUpdate:
		return "update"
	case OpIncrement:
		return "increment"
	default:
		return "unknown"
	}
}

// Op is one ordered step of a Transaction.
type Op struct {
	Kind      OpKind
	Key       string
	Namespace string
	Value     []byte
	ExpiresAt *time.Time
	// UpdateFn transforms the current value for OpUpdate; receives nil
	// if the key is absent.
	UpdateFn func(current []byte) ([]byte, error)
	// Delta is the signed amount OpIncrement adds to the current
	// numeric value (stored as its decimal byte representation).
	Delta int64
}

// StepOutcome reports what happened for one Op within a committed
// Transaction.
type StepOutcome struct {
	Op      Op
	Success bool
	Err     error
}

// Transaction holds an ordered list of operations against a Vault, per
// spec.md §4.I. Commit applies them atomically only when every step is a
// plain Put; otherwise the steps run one by one and a failed step does
// not undo earlier ones (see Commit).
type Transaction struct {
	vault *Vault
	ops   []Op

	committed   bool
	rolledBack  bool
}

// NewTransaction starts an empty transaction against v.
func (v *Vault) NewTransaction() *Transaction {
	return &Transaction{vault: v}
}

func (t *Transaction) Put(key string, value []byte) *Transaction {
	t.ops = append(t.ops, Op{Kind: OpPut, Key: key, Value: value})
	return t
}

func (t *Transaction) Delete(key string) *Transaction {
	t.ops = append(t.ops, Op{Kind: OpDelete, Key: key})
	return t
}

func (t *Transaction) PutIfAbsent(key string, value []byte) *Transaction {
	t.ops = append(t.ops, Op{Kind: OpPutIfAbsent, Key: key, Value: value})
	return t
}

func (t *Transaction) Update(key string, fn func(current []byte) ([]byte, error)) *Transaction {
	t.ops = append(t.ops, Op{Kind: OpUpdate, Key: key, UpdateFn: fn})
	return t
}

func (t *Transaction) Increment(key string, delta int64) *Transaction {
	t.ops = append(t.ops, Op{Kind: OpIncrement, Key: key, Delta: delta})
	return t
}

// Commit executes every step against the backing vault, in order,
// returning one StepOutcome per step. A second call to Commit or
// Rollback is rejected.
func (t *Transaction) Commit(ctx context.Context) ([]StepOutcome, error) {
	if t.committed {
		return nil, cryyptoerr.TransactionAlreadyCommitted()
	}
	if t.rolledBack {
		return nil, cryyptoerr.TransactionAlreadyRolledBack()
	}
	t.committed = true

	// Batch puts commit atomically through the document store's
	// batch semantics when every step is a plain Put, so the common case
	// (spec.md's put_all) gets real atomicity. Mixed step kinds fall
	// back to best-effort sequential execution, since PutIfAbsent,
	// Update, and Increment each require a preceding read.
	if allPlainPuts(t.ops) {
		return t.commitBatch(ctx)
	}
	return t.commitSequential(ctx)
}

func allPlainPuts(ops []Op) bool {
	for _, op := range ops {
		if op.Kind != OpPut {
			return false
		}
	}
	return len(ops) > 0
}

func (t *Transaction) commitBatch(ctx context.Context) ([]StepOutcome, error) {
	entries := make([]PutEntry, 0, len(t.ops))
	for _, op := range t.ops {
		entries = append(entries, PutEntry{Key: op.Key, Namespace: op.Namespace, Value: op.Value, ExpiresAt: op.ExpiresAt})
	}
	err := t.vault.PutAll(ctx, entries)
	outcomes := make([]StepOutcome, len(t.ops))
	for i, op := range t.ops {
		outcomes[i] = StepOutcome{Op: op, Success: err == nil, Err: err}
	}
	return outcomes, err
}

func (t *Transaction) commitSequential(ctx context.Context) ([]StepOutcome, error) {
	outcomes := make([]StepOutcome, 0, len(t.ops))
	for _, op := range t.ops {
		outcome := t.applyOp(ctx, op)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (t *Transaction) applyOp(ctx context.Context, op Op) StepOutcome {
	switch op.Kind {
	case OpPut:
		err := t.vault.Put(ctx, op.Key, op.Value)
		return StepOutcome{Op: op, Success: err == nil, Err: err}

	case OpDelete:
		err := t.vault.Delete(ctx, op.Key)
		return StepOutcome{Op: op, Success: err == nil, Err: err}

	case OpPutIfAbsent:
		existing, _, err := t.vault.Get(ctx, op.Key)
		if err != nil {
			return StepOutcome{Op: op, Err: err}
		}
		if existing != nil {
			return StepOutcome{Op: op, Success: false, Err: cryyptoerr.InvalidParameters("key already present")}
		}
		err = t.vault.Put(ctx, op.Key, op.Value)
		return StepOutcome{Op: op, Success: err == nil, Err: err}

	case OpUpdate:
		current, _, err := t.vault.Get(ctx, op.Key)
		if err != nil {
			return StepOutcome{Op: op, Err: err}
		}
		updated, err := op.UpdateFn(current)
		if err != nil {
			return StepOutcome{Op: op, Err: err}
		}
		err = t.vault.Put(ctx, op.Key, updated)
		return StepOutcome{Op: op, Success: err == nil, Err: err}

	case OpIncrement:
		current, _, err := t.vault.Get(ctx, op.Key)
		if err != nil {
			return StepOutcome{Op: op, Err: err}
		}
		next := op.Delta + parseInt64(current)
		err = t.vault.Put(ctx, op.Key, []byte(formatInt64(next)))
		return StepOutcome{Op: op, Success: err == nil, Err: err}

	default:
		return StepOutcome{Op: op, Err: cryyptoerr.UnsupportedAlgorithm("transaction op kind")}
	}
}

// Rollback marks the transaction as rolled back without applying any
// step. A second call to Commit or Rollback is rejected.
func (t *Transaction) Rollback() error {
	if t.committed {
		return cryyptoerr.TransactionAlreadyCommitted()
	}
	if t.rolledBack {
		return cryyptoerr.TransactionAlreadyRolledBack()
	}
	t.rolledBack = true
	return nil
}

func parseInt64(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	var n int64
	neg := b[0] == '-'
	start := 0
	if neg {
		start = 1
	}
	for _, c := range b[start:] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}

func formatInt64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
