package common

import "sync"

// Assert panics with msg when condition does not hold. Within this module
// only CheckedMutex calls it: directory integrity is reported as a bool by
// VerifyIntegrity, and the page-id sharding rule and the buffer pool's
// page-table bijection are not checked at run time.
func Assert(condition bool, msg string) {
	if !condition {
		panic(msg)
	}
}

// CheckedMutex is a sync.Mutex whose Unlock panics when the mutex is not
// locked. A second Lock blocks exactly as with sync.Mutex. Useful while a
// subsystem's locking discipline is still being shaken out.
type CheckedMutex struct {
	mutex    sync.Mutex
	isLocked bool
}

func (m *CheckedMutex) Lock() {
	m.mutex.Lock()
	m.isLocked = true
}

func (m *CheckedMutex) Unlock() {
	Assert(m.isLocked, "mutex is not locked")
	m.isLocked = false
	m.mutex.Unlock()
}
