// this code is adapted from the SamehadaDB project's storage/access/lock_manager.go;
// the source's simple whole-lock-table maps are replaced with a per-rid
// LockRequestQueue and condition variable, and Prevent's self-wounding is
// replaced with the standard wound-wait rule: an older transaction wounds
// younger granted holders, and a younger request that owns the pending
// exclusive slot, instead of blocking behind them.
//
//===----------------------------------------------------------------------===//
//
//                         BusTub
//
// lock_manager.cpp
//
// Identification: src/concurrency/lock_manager.cpp
//
// Copyright (c) 2015-2019, Carnegie Mellon University Database Group
//
//===----------------------------------------------------------------------===//

package concurrency

import (
	"fmt"
	"sync"

	"github.com/ryogrid/dbcore/storage/page"
	"github.com/ryogrid/dbcore/types"
)

// LockMode is the granularity of a row lock: shared readers or one
// exclusive writer.
type LockMode int32

const (
	Shared LockMode = iota
	Exclusive
)

// AbortReason is the structured cause carried by a TransactionAbortedError.
type AbortReason int32

const (
	LockOnShrinking AbortReason = iota
	LockSharedOnReadUncommitted
	UpgradeConflict
	Deadlock
)

func (r AbortReason) String() string {
	switch r {
	case LockOnShrinking:
		return "LOCK_ON_SHRINKING"
	case LockSharedOnReadUncommitted:
		return "LOCKSHARED_ON_READ_UNCOMMITTED"
	case UpgradeConflict:
		return "UPGRADE_CONFLICT"
	case Deadlock:
		return "DEADLOCK"
	default:
		return "UNKNOWN_ABORT_REASON"
	}
}

// TransactionAbortedError is returned whenever the lock manager forces a
// transaction into the ABORTED state. The transaction's state is already
// set by the time this error is returned to the caller.
type TransactionAbortedError struct {
	TxnId  types.TxnID
	Reason AbortReason
}

func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("transaction %d aborted: %s", e.TxnId, e.Reason)
}

// LockRequest is one entry in a LockRequestQueue.
type LockRequest struct {
	TxnId   types.TxnID
	Mode    LockMode
	Granted bool

	// pendingUpgrade marks a granted shared request that is currently
	// attempting to upgrade to exclusive, so promoteNextWriter can hand it
	// the queue's exclusive slot even while its Mode still reads Shared.
	pendingUpgrade bool
}

// LockRequestQueue is the FIFO of lock requests for a single rid, guarded
// by the owning LockManager's latch and woken via cv.
type LockRequestQueue struct {
	queue     []*LockRequest
	refcount  int  // number of granted shared holders
	upgrading bool // a txn is mid-upgrade on this queue
	cv        *sync.Cond

	// writer is the request that currently owns the queue's exclusive slot,
	// set the moment an exclusive/upgrade request is enqueued and cleared
	// only when that same request is unlocked or wound-removed. It is non-nil
	// for exactly as long as waiting() must report an exclusive lock granted
	// or pending-and-blocking. Tracking the owning request (rather than a
	// bare bool) lets that request's own admissibility check ignore the slot
	// it holds on itself while still blocking every other request behind it.
	writer *LockRequest
}

// waiting reports whether an exclusive lock is currently granted or
// pending-and-blocking on q.
func (q *LockRequestQueue) waiting() bool {
	return q.writer != nil
}

func newLockRequestQueue(latch *sync.Mutex) *LockRequestQueue {
	return &LockRequestQueue{cv: sync.NewCond(latch)}
}

func (q *LockRequestQueue) find(txnId types.TxnID) (*LockRequest, int) {
	for i, r := range q.queue {
		if r.TxnId == txnId {
			return r, i
		}
	}
	return nil, -1
}

func (q *LockRequestQueue) removeAt(i int) {
	q.queue = append(q.queue[:i], q.queue[i+1:]...)
}

// LockManager grants shared/exclusive row locks under two-phase locking,
// preventing deadlock by wound-wait: an older transaction (smaller txn id)
// aborts younger holders of a rid rather than waiting behind them.
type LockManager struct {
	latch     sync.Mutex
	lockTable map[page.RID]*LockRequestQueue
	txnTable  map[types.TxnID]*Transaction
}

func NewLockManager() *LockManager {
	return &LockManager{
		lockTable: make(map[page.RID]*LockRequestQueue),
		txnTable:  make(map[types.TxnID]*Transaction),
	}
}

func (lm *LockManager) queueFor(rid page.RID) *LockRequestQueue {
	q, ok := lm.lockTable[rid]
	if !ok {
		q = newLockRequestQueue(&lm.latch)
		lm.lockTable[rid] = q
	}
	return q
}

func (lm *LockManager) registerTxn(txn *Transaction) {
	lm.txnTable[txn.GetTransactionId()] = txn
}

// abort transitions txn to ABORTED and returns the structured error for
// the calling goroutine to return. It does not touch any queue.
func (lm *LockManager) abort(txn *Transaction, reason AbortReason) error {
	txn.SetState(ABORTED)
	return &TransactionAbortedError{TxnId: txn.GetTransactionId(), Reason: reason}
}

// woundYounger scans q for every younger-transaction request that actually
// conflicts with requester's pending lock and forcibly removes/aborts it,
// per the wound-wait policy. An exclusive or upgrade requester conflicts
// with every granted holder and with whichever request currently owns the
// queue's exclusive slot (q.writer); a request still waiting for a shared
// lock does not block it and is left alone. A shared requester only
// conflicts with q.writer — a coexisting granted shared holder is never in
// conflict with another shared request and must be left alone. Held under
// lm.latch.
func (lm *LockManager) woundYounger(q *LockRequestQueue, requester types.TxnID, requesterIsWriter bool) {
	i := 0
	for i < len(q.queue) {
		r := q.queue[i]
		conflicts := r == q.writer || (requesterIsWriter && r.Granted)
		if r.TxnId <= requester || !conflicts {
			i++
			continue
		}
		victim := lm.txnTable[r.TxnId]
		if victim != nil {
			victim.SetState(ABORTED)
		}
		if r.Granted && r.Mode == Shared {
			q.refcount--
		}
		if r == q.writer {
			q.writer = nil
		}
		q.removeAt(i)
	}
	lm.promoteNextWriter(q)
	q.cv.Broadcast()
}

// promoteNextWriter hands the exclusive slot to the earliest still-queued
// exclusive/upgrade request once the slot is free, so a writer that was
// blocked behind a wounded or unlocked one gets its turn. Held under
// lm.latch.
func (lm *LockManager) promoteNextWriter(q *LockRequestQueue) {
	if q.writer != nil {
		return
	}
	for _, r := range q.queue {
		if (r.Mode == Exclusive && !r.Granted) || r.pendingUpgrade {
			q.writer = r
			return
		}
	}
}

func (lm *LockManager) precheck(txn *Transaction) error {
	if txn.GetState() == ABORTED {
		return &TransactionAbortedError{TxnId: txn.GetTransactionId(), Reason: Deadlock}
	}
	if txn.GetState() == SHRINKING {
		return lm.abort(txn, LockOnShrinking)
	}
	return nil
}

// LockShared blocks until txn is granted a shared lock on rid, or returns a
// TransactionAbortedError.
func (lm *LockManager) LockShared(txn *Transaction, rid page.RID) error {
	lm.latch.Lock()
	defer lm.latch.Unlock()

	if err := lm.precheck(txn); err != nil {
		return err
	}
	if txn.GetIsolationLevel() == ReadUncommitted {
		return lm.abort(txn, LockSharedOnReadUncommitted)
	}
	lm.registerTxn(txn)

	q := lm.queueFor(rid)
	req := &LockRequest{TxnId: txn.GetTransactionId(), Mode: Shared}
	q.queue = append(q.queue, req)

	for !lm.sharedAdmissible(q) && txn.GetState() != ABORTED {
		lm.woundYounger(q, txn.GetTransactionId(), false)
		if lm.sharedAdmissible(q) {
			break
		}
		q.cv.Wait()
	}

	if txn.GetState() == ABORTED {
		if _, i := q.find(txn.GetTransactionId()); i >= 0 {
			q.removeAt(i)
		}
		return &TransactionAbortedError{TxnId: txn.GetTransactionId(), Reason: Deadlock}
	}

	req.Granted = true
	q.refcount++
	txn.GetSharedLockSet().Add(rid)
	return nil
}

func (lm *LockManager) sharedAdmissible(q *LockRequestQueue) bool {
	return !q.waiting()
}

// exclusiveAdmissible reports whether req may proceed: it must already own
// the queue's exclusive slot (claimed at enqueue time) and no shared holder
// may remain.
func (lm *LockManager) exclusiveAdmissible(q *LockRequestQueue, req *LockRequest) bool {
	return q.writer == req && q.refcount == 0
}

// LockExclusive blocks until txn is granted an exclusive lock on rid, or
// returns a TransactionAbortedError.
func (lm *LockManager) LockExclusive(txn *Transaction, rid page.RID) error {
	lm.latch.Lock()
	defer lm.latch.Unlock()

	if err := lm.precheck(txn); err != nil {
		return err
	}
	lm.registerTxn(txn)

	q := lm.queueFor(rid)
	req := &LockRequest{TxnId: txn.GetTransactionId(), Mode: Exclusive}
	q.queue = append(q.queue, req)
	if q.writer == nil {
		q.writer = req
	}

	for !lm.exclusiveAdmissible(q, req) && txn.GetState() != ABORTED {
		lm.woundYounger(q, txn.GetTransactionId(), true)
		if lm.exclusiveAdmissible(q, req) {
			break
		}
		q.cv.Wait()
	}

	if txn.GetState() == ABORTED {
		if _, i := q.find(txn.GetTransactionId()); i >= 0 {
			q.removeAt(i)
		}
		if q.writer == req {
			q.writer = nil
			lm.promoteNextWriter(q)
		}
		return &TransactionAbortedError{TxnId: txn.GetTransactionId(), Reason: Deadlock}
	}

	req.Granted = true
	txn.GetExclusiveLockSet().Add(rid)
	return nil
}

// LockUpgrade converts txn's existing shared lock on rid to exclusive.
func (lm *LockManager) LockUpgrade(txn *Transaction, rid page.RID) error {
	lm.latch.Lock()
	defer lm.latch.Unlock()

	if err := lm.precheck(txn); err != nil {
		return err
	}

	q := lm.queueFor(rid)
	if q.upgrading {
		return lm.abort(txn, UpgradeConflict)
	}
	q.upgrading = true
	defer func() { q.upgrading = false }()

	sReq, sIdx := q.find(txn.GetTransactionId())
	if sIdx < 0 || !sReq.Granted || sReq.Mode != Shared {
		panic("LockUpgrade: rid is not locked in shared mode by txn")
	}
	sReq.pendingUpgrade = true
	defer func() { sReq.pendingUpgrade = false }()
	if q.writer == nil {
		q.writer = sReq
	}

	for !lm.upgradeAdmissible(q, sReq) && txn.GetState() != ABORTED {
		lm.woundYounger(q, txn.GetTransactionId(), true)
		if lm.upgradeAdmissible(q, sReq) {
			break
		}
		q.cv.Wait()
	}

	if txn.GetState() == ABORTED {
		if _, i := q.find(txn.GetTransactionId()); i >= 0 {
			q.removeAt(i)
		}
		if q.writer == sReq {
			q.writer = nil
			lm.promoteNextWriter(q)
		}
		return &TransactionAbortedError{TxnId: txn.GetTransactionId(), Reason: Deadlock}
	}

	sReq, _ = q.find(txn.GetTransactionId())
	q.refcount--
	sReq.Mode = Exclusive
	txn.GetSharedLockSet().Remove(rid)
	txn.GetExclusiveLockSet().Add(rid)
	return nil
}

// upgradeAdmissible: sReq must already own the queue's exclusive slot
// (claimed at the start of LockUpgrade) and no OTHER shared holder may
// remain — sReq's own prior share is still counted in refcount, hence 1
// rather than 0.
func (lm *LockManager) upgradeAdmissible(q *LockRequestQueue, sReq *LockRequest) bool {
	return q.writer == sReq && q.refcount == 1
}

// Unlock releases txn's lock on rid, applying the 2PL state transition.
func (lm *LockManager) Unlock(txn *Transaction, rid page.RID) error {
	lm.latch.Lock()
	defer lm.latch.Unlock()

	q, ok := lm.lockTable[rid]
	if !ok {
		return fmt.Errorf("concurrency: no lock request queue for rid %v", rid)
	}
	req, idx := q.find(txn.GetTransactionId())
	if idx < 0 {
		return fmt.Errorf("concurrency: txn %d does not hold a lock on rid %v", txn.GetTransactionId(), rid)
	}
	mode := req.Mode
	q.removeAt(idx)

	txn.GetSharedLockSet().Remove(rid)
	txn.GetExclusiveLockSet().Remove(rid)

	if txn.GetState() == GROWING {
		readCommittedSharedRelease := mode == Shared && txn.GetIsolationLevel() == ReadCommitted
		if !readCommittedSharedRelease {
			txn.SetState(SHRINKING)
		}
	}

	if mode == Shared {
		q.refcount--
		if q.refcount == 0 {
			q.cv.Broadcast()
		}
	} else {
		if q.writer == req {
			q.writer = nil
		}
		lm.promoteNextWriter(q)
		q.cv.Broadcast()
	}
	return nil
}
