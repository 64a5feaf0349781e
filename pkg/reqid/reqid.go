package reqid

import (
	"strconv"
	"sync/atomic"
)

// Id tags an outbound request and every callback answering it.
type Id int64

// None marks callbacks the gateway does not scope to a request.
const None Id = -1

func (id Id) Int64() int64 {
	return int64(id)
}

func (id Id) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Allocator issues strictly increasing ids for the lifetime of one connection.
type Allocator struct {
	next atomic.Int64
}

func NewAllocator(start Id) *Allocator {
	a := &Allocator{}
	a.next.Store(int64(start))
	return a
}

func (a *Allocator) Next() Id {
	return Id(a.next.Add(1) - 1)
}

// Peek returns the id the next call to Next would issue.
func (a *Allocator) Peek() Id {
	return Id(a.next.Load())
}

// Advance moves the allocator to at least min. It never moves backwards.
func (a *Allocator) Advance(min Id) {
	for {
		cur := a.next.Load()
		if cur >= int64(min) {
			return
		}
		if a.next.CompareAndSwap(cur, int64(min)) {
			return
		}
	}
}
