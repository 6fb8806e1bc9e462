// this code is adapted from the SamehadaDB project's storage/access/transaction_manager.go;
// the write-set replay against a table heap and the recovery-log hooks
// are dropped since neither the table heap nor the log manager live in
// this package, leaving the begin/commit/abort lifecycle and the global
// checkpoint latch.

package concurrency

import (
	"sync"

	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/types"
)

// TransactionManager hands out transaction ids and drives the
// begin/commit/abort lifecycle, releasing all of a transaction's locks at
// the end of either path.
type TransactionManager struct {
	mu             sync.Mutex
	nextTxnID      types.TxnID
	lockManager    *LockManager
	globalTxnLatch common.ReaderWriterLatch
}

func NewTransactionManager(lockManager *LockManager) *TransactionManager {
	return &TransactionManager{
		lockManager:    lockManager,
		globalTxnLatch: common.NewRWLatch(),
	}
}

// Begin starts a new transaction with the next transaction id, holding the
// global transaction latch in shared mode until Commit/Abort.
func (tm *TransactionManager) Begin(isolation IsolationLevel) *Transaction {
	tm.globalTxnLatch.RLock()

	tm.mu.Lock()
	tm.nextTxnID++
	txn := NewTransaction(tm.nextTxnID, isolation)
	tm.mu.Unlock()

	return txn
}

// Commit marks txn committed and releases every lock it holds.
func (tm *TransactionManager) Commit(txn *Transaction) {
	txn.SetState(COMMITTED)
	tm.releaseLocks(txn)
	tm.globalTxnLatch.RUnlock()
}

// Abort marks txn aborted and releases every lock it holds. Rolling back
// row/index mutations is the caller's responsibility, since row storage and
// indexes outlive this package's scope.
func (tm *TransactionManager) Abort(txn *Transaction) {
	txn.SetState(ABORTED)
	tm.releaseLocks(txn)
	tm.globalTxnLatch.RUnlock()
}

// BlockAllTransactions and ResumeTransactions bracket a checkpoint: no new
// transaction may begin while the write latch is held.
func (tm *TransactionManager) BlockAllTransactions() {
	tm.globalTxnLatch.WLock()
}

func (tm *TransactionManager) ResumeTransactions() {
	tm.globalTxnLatch.WUnlock()
}

func (tm *TransactionManager) releaseLocks(txn *Transaction) {
	rids := txn.GetExclusiveLockSet().ToSlice()
	rids = append(rids, txn.GetSharedLockSet().ToSlice()...)
	for _, rid := range rids {
		tm.lockManager.Unlock(txn, rid)
	}
}
