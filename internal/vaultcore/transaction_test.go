package vaultcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransaction_CommitPlainPutsUsesAtomicBatch(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	tx := v.NewTransaction().Put("a", []byte("1")).Put("b", []byte("2"))
	outcomes, err := tx.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		require.True(t, o.Success)
	}

	val, ok, err := v.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), val)
}

func TestTransaction_CommitMixedStepsSequential(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")
	require.NoError(t, v.Put(ctx, "counter", []byte("5")))

	tx := v.NewTransaction().
		Put("greeting", []byte("hi")).
		Increment("counter", 3).
		Delete("greeting")

	outcomes, err := tx.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		require.True(t, o.Success, o.Err)
	}

	val, ok, err := v.Get(ctx, "counter")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("8"), val)

	_, ok, err = v.Get(ctx, "greeting")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTransaction_PutIfAbsentSkipsExisting(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")
	require.NoError(t, v.Put(ctx, "k", []byte("original")))

	tx := v.NewTransaction().PutIfAbsent("k", []byte("overwrite"))
	outcomes, err := tx.Commit(ctx)
	require.NoError(t, err)
	require.False(t, outcomes[0].Success)

	val, _, err := v.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("original"), val)
}

func TestTransaction_UpdateTransformsValue(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")
	require.NoError(t, v.Put(ctx, "k", []byte("abc")))

	tx := v.NewTransaction().Update("k", func(current []byte) ([]byte, error) {
		return append(current, '!'), nil
	})
	_, err := tx.Commit(ctx)
	require.NoError(t, err)

	val, _, err := v.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc!"), val)
}

func TestTransaction_RejectsSecondCommit(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	tx := v.NewTransaction().Put("a", []byte("1"))
	_, err := tx.Commit(ctx)
	require.NoError(t, err)

	_, err = tx.Commit(ctx)
	require.Error(t, err)
}

func TestTransaction_RejectsRollbackAfterCommit(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	tx := v.NewTransaction().Put("a", []byte("1"))
	_, err := tx.Commit(ctx)
	require.NoError(t, err)

	err = tx.Rollback()
	require.Error(t, err)
}

func TestTransaction_RollbackAppliesNothing(t *testing.T) {
	v := newTestVault(t)
	unlockTestVault(t, v, "pw")

	tx := v.NewTransaction().Put("a", []byte("1"))
	require.NoError(t, tx.Rollback())

	ctx := context.Background()
	_, ok, err := v.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}
