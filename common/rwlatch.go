// this code is adapted from https://github.com/pzhzqt/goostub
// there is license and copyright notice in licenses/goostub dir

package common

import (
	deadlock "github.com/sasha-s/go-deadlock"
)

// ReaderWriterLatch is the page/table latch abstraction used throughout the
// storage layer. It is satisfied by sync.RWMutex; we back it with
// go-deadlock's drop-in replacement so a latch-ordering bug in the buffer
// pool or the hash index surfaces as a diagnosable panic instead of a wedged
// process.
type ReaderWriterLatch interface {
	WLock()
	WUnlock()
	RLock()
	RUnlock()
}

type readerWriterLatch struct {
	mutex deadlock.RWMutex
}

func NewRWLatch() ReaderWriterLatch {
	return &readerWriterLatch{}
}

func (l *readerWriterLatch) WLock() {
	l.mutex.Lock()
}

func (l *readerWriterLatch) WUnlock() {
	l.mutex.Unlock()
}

func (l *readerWriterLatch) RLock() {
	l.mutex.RLock()
}

func (l *readerWriterLatch) RUnlock() {
	l.mutex.RUnlock()
}
