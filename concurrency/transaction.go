// this code is adapted from the SamehadaDB project's storage/access/transaction.go;
// the write-set/table-heap rollback bookkeeping is dropped since query
// execution lives outside this package, the lock-set fields are switched
// from plain slices to mapset.Set for O(1) membership, and an isolation
// level is added since the lock manager's admission rules depend on it.

package concurrency

import (
	"sync"

	"github.com/deckarep/golang-set/v2"
	"github.com/ryogrid/dbcore/common"
	"github.com/ryogrid/dbcore/storage/page"
	"github.com/ryogrid/dbcore/types"
)

// TransactionState is the 2PL state machine: GROWING acquires locks,
// SHRINKING only releases them, COMMITTED/ABORTED are terminal.
type TransactionState int32

const (
	GROWING TransactionState = iota
	SHRINKING
	COMMITTED
	ABORTED
)

func (s TransactionState) String() string {
	switch s {
	case GROWING:
		return "GROWING"
	case SHRINKING:
		return "SHRINKING"
	case COMMITTED:
		return "COMMITTED"
	case ABORTED:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// IsolationLevel governs when the lock manager admits shared locks and when
// releasing one triggers the 2PL shrinking transition.
type IsolationLevel int32

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

// Transaction tracks the state of one unit of work: which locks it holds
// and its position in the 2PL/isolation state machine. Lower txn_id means
// older, which is what the lock manager's wound-wait policy compares on.
type Transaction struct {
	mu sync.Mutex

	id        types.TxnID
	state     TransactionState
	isolation IsolationLevel

	sharedLockSet    mapset.Set[page.RID]
	exclusiveLockSet mapset.Set[page.RID]
}

// NewTransaction returns a fresh transaction in the GROWING state.
func NewTransaction(id types.TxnID, isolation IsolationLevel) *Transaction {
	return &Transaction{
		id:               id,
		state:            GROWING,
		isolation:        isolation,
		sharedLockSet:    mapset.NewSet[page.RID](),
		exclusiveLockSet: mapset.NewSet[page.RID](),
	}
}

func (txn *Transaction) GetTransactionId() types.TxnID {
	return txn.id
}

func (txn *Transaction) GetIsolationLevel() IsolationLevel {
	return txn.isolation
}

func (txn *Transaction) GetState() TransactionState {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	return txn.state
}

func (txn *Transaction) SetState(state TransactionState) {
	txn.mu.Lock()
	defer txn.mu.Unlock()
	if common.EnableDebug && state == ABORTED {
		common.Tracef(common.Warn, "txn %d aborted (was %s)\n", txn.id, txn.state)
	}
	txn.state = state
}

func (txn *Transaction) GetSharedLockSet() mapset.Set[page.RID] {
	return txn.sharedLockSet
}

func (txn *Transaction) GetExclusiveLockSet() mapset.Set[page.RID] {
	return txn.exclusiveLockSet
}

func (txn *Transaction) IsSharedLocked(rid page.RID) bool {
	return txn.sharedLockSet.Contains(rid)
}

func (txn *Transaction) IsExclusiveLocked(rid page.RID) bool {
	return txn.exclusiveLockSet.Contains(rid)
}
