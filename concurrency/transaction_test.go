package concurrency

import (
	"testing"

	"github.com/ryogrid/dbcore/storage/page"
	"github.com/stretchr/testify/assert"
)

func TestTransactionLockSetBookkeeping(t *testing.T) {
	txn := NewTransaction(1, RepeatableRead)
	rid := page.NewRID(0, 0)

	assert.False(t, txn.IsSharedLocked(rid))
	txn.GetSharedLockSet().Add(rid)
	assert.True(t, txn.IsSharedLocked(rid))
	assert.False(t, txn.IsExclusiveLocked(rid))
}

func TestTransactionManagerCommitReleasesLocks(t *testing.T) {
	lm := NewLockManager()
	tm := NewTransactionManager(lm)

	txn := tm.Begin(RepeatableRead)
	rid := page.NewRID(0, 0)
	assert.NoError(t, lm.LockShared(txn, rid))

	tm.Commit(txn)
	assert.Equal(t, COMMITTED, txn.GetState())
	assert.Equal(t, 0, txn.GetSharedLockSet().Cardinality())
}

func TestTransactionManagerAbortReleasesLocks(t *testing.T) {
	lm := NewLockManager()
	tm := NewTransactionManager(lm)

	txn := tm.Begin(RepeatableRead)
	rid := page.NewRID(0, 0)
	assert.NoError(t, lm.LockExclusive(txn, rid))

	tm.Abort(txn)
	assert.Equal(t, ABORTED, txn.GetState())
	assert.Equal(t, 0, txn.GetExclusiveLockSet().Cardinality())
}
