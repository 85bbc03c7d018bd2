package beans

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// goroutineID returns the id of the calling goroutine, parsed from the
// runtime.Stack header ("goroutine 123 [running]:"). Ids are never reused
// within a process and 0 is never a valid id.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(header, ' '); i > 0 {
		header = header[:i]
	}
	id, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		panic("beans: cannot parse goroutine id from stack header: " + err.Error())
	}
	return id
}

// reentrantLock is a mutex that the owning goroutine may re-acquire.
//
// The early-reference lookup try-locks the coordination lock from inside a
// factory that already holds it for creation. A plain sync.Mutex would
// deadlock (Lock) or spuriously fail (TryLock) there, so the lock records the
// owner's goroutine id and nests acquisitions by depth.
type reentrantLock struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int // mutated only while owning mu
}

// Lock blocks until the lock is held by the calling goroutine.
func (l *reentrantLock) Lock() {
	gid := goroutineID()
	if l.owner.Load() == gid {
		l.depth++
		return
	}
	l.mu.Lock()
	l.owner.Store(gid)
	l.depth = 1
}

// TryLock acquires the lock without blocking. Reentrant acquisition by the
// owning goroutine always succeeds.
func (l *reentrantLock) TryLock() bool {
	gid := goroutineID()
	if l.owner.Load() == gid {
		l.depth++
		return true
	}
	if !l.mu.TryLock() {
		return false
	}
	l.owner.Store(gid)
	l.depth = 1
	return true
}

// Unlock releases one level of nesting; the mutex is released when the depth
// reaches zero. Unlocking a lock not held by the caller is a fatal misuse.
func (l *reentrantLock) Unlock() {
	if l.owner.Load() != goroutineID() {
		panic("beans: unlock of coordination lock not held by this goroutine")
	}
	l.depth--
	if l.depth > 0 {
		return
	}
	l.owner.Store(0)
	l.mu.Unlock()
}
