/*
 * cache.go, part of gotraj.
 *
 * Copyright 2024 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 * goTraj is developed at the Universidad de Santiago de Chile
 * (USACH)
 *
 */

package traj

import (
	"sync"

	v3 "github.com/rmera/gotraj/v3"
)

/*The frame cache is a fixed set of slots, each owning one preallocated
Frame which is reused in place: after warm-up no per-frame allocation
happens. A slot is borrowed by incrementing its reference count; a slot
with references can never be repurposed for another frame, which is the
one invariant everything else leans on. Eviction is least-recently-used
among the unreferenced slots. A single mutex plus condition variable
covers the whole table: frames are large and decodes are slow, so slot
bookkeeping is nowhere near being the bottleneck, and one condition
variable keeps the coalescing of concurrent decodes for the same index
easy to get right.*/

type cacheSlot struct {
	index      int //frame held by this slot, -1 when empty
	frame      *Frame
	refs       int
	lastUse    uint64
	populating bool //reserved, but the decode hasn't finished yet
}

type frameCache struct {
	mu           sync.Mutex
	cond         *sync.Cond
	slots        []cacheSlot
	tick         uint64 //access counter for the LRU ordering
	clearing     bool
	failWhenFull bool
	hits         uint64
	misses       uint64
	evictions    uint64
}

//CacheStats is a snapshot of the cache counters, for diagnostics.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Resident  int //slots currently holding a decoded frame
	Capacity  int //total slots
}

func newFrameCache(nslots, natoms int, failWhenFull bool) *frameCache {
	c := &frameCache{
		slots:        make([]cacheSlot, nslots),
		failWhenFull: failWhenFull,
	}
	c.cond = sync.NewCond(&c.mu)
	for i := range c.slots {
		c.slots[i].index = -1
		c.slots[i].frame = NewFrame(natoms)
	}
	return c
}

func (c *frameCache) lookup(index int) *cacheSlot {
	for i := range c.slots {
		if c.slots[i].index == index {
			return &c.slots[i]
		}
	}
	return nil
}

//victim picks the slot to reuse: an empty one if available, otherwise
//the least recently used among those nobody holds. Returns nil when
//every slot is borrowed.
func (c *frameCache) victim() *cacheSlot {
	var v *cacheSlot
	for i := range c.slots {
		s := &c.slots[i]
		if s.refs > 0 || s.populating {
			continue
		}
		if s.index < 0 {
			return s
		}
		if v == nil || s.lastUse < v.lastUse {
			v = s
		}
	}
	return v
}

func (c *frameCache) touch(s *cacheSlot) {
	c.tick++
	s.lastUse = c.tick
}

//findOrReserve returns a borrowed lock on the slot holding index. If
//the frame is resident, found is true and the lock is ready to read.
//Otherwise a slot is reserved (evicting the LRU unlocked slot if
//needed) and returned with found false: the caller must populate the
//slot's frame and then call either commit or discard on the lock,
//exactly once, before releasing it. While a reservation is being
//populated, every other request for the same index blocks here and
//wakes up on the resident frame: a given frame index is never decoded
//twice concurrently.
//
//When every slot is borrowed the call blocks until one frees, unless
//the cache was built to fail, in which case it returns CacheExhausted.
func (c *frameCache) findOrReserve(index int) (lock *FrameLock, found bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if c.clearing {
			//an invalidation barrier is up; queue behind it rather than
			//racing ahead with a soon-to-be-stale configuration
			c.cond.Wait()
			continue
		}
		if s := c.lookup(index); s != nil {
			if s.populating {
				c.cond.Wait()
				continue
			}
			s.refs++
			c.touch(s)
			c.hits++
			return &FrameLock{c: c, s: s, index: index}, true, nil
		}
		s := c.victim()
		if s == nil {
			if c.failWhenFull {
				return nil, false, CError{CacheExhausted, []string{"findOrReserve"}}
			}
			c.cond.Wait()
			continue
		}
		if s.index >= 0 {
			c.evictions++
		}
		s.index = index
		s.populating = true
		s.refs = 1
		c.touch(s)
		c.misses++
		return &FrameLock{c: c, s: s, index: index}, false, nil
	}
}

func (c *frameCache) commit(s *cacheSlot) {
	c.mu.Lock()
	s.populating = false
	c.mu.Unlock()
	c.cond.Broadcast()
}

//discard empties a reserved slot after a failed decode. Only the
//requested slot is touched; whatever else is cached stays valid.
func (c *frameCache) discard(s *cacheSlot) {
	c.mu.Lock()
	s.index = -1
	s.populating = false
	s.refs = 0
	s.lastUse = 0
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *frameCache) release(s *cacheSlot) {
	c.mu.Lock()
	if s.refs > 0 {
		s.refs--
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

//anyBorrowed reports whether some slot is referenced or mid-populate.
//Callers must hold c.mu.
func (c *frameCache) anyBorrowed() bool {
	for i := range c.slots {
		if c.slots[i].refs > 0 || c.slots[i].populating {
			return true
		}
	}
	return false
}

//clearWith invalidates every slot. It first raises a barrier so that
//new requests queue, then waits until every outstanding borrow has
//been released (a borrowed slot is never yanked from under its
//reader), resets all slots, and runs fn, if given, while the barrier
//is still up. The callback is how configuration swaps are made
//atomic with respect to frame decodes: by the time it runs, nothing
//is borrowed and nothing can be borrowed until the barrier drops.
func (c *frameCache) clearWith(fn func()) {
	c.mu.Lock()
	for c.clearing {
		c.cond.Wait()
	}
	c.clearing = true
	for c.anyBorrowed() {
		c.cond.Wait()
	}
	for i := range c.slots {
		c.slots[i].index = -1
		c.slots[i].refs = 0
		c.slots[i].populating = false
		c.slots[i].lastUse = 0
	}
	if fn != nil {
		fn()
	}
	c.clearing = false
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *frameCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Capacity:  len(c.slots),
	}
	for i := range c.slots {
		if c.slots[i].index >= 0 && !c.slots[i].populating {
			st.Resident++
		}
	}
	return st
}

//FrameLock is a borrowed reference to a cached frame. While the lock
//is held the frame's content is stable and its slot can't be evicted;
//calling Release (exactly once per lock, though extra calls on the
//same lock are harmless) gives the slot back. A FrameLock is meant to
//be used and released by the goroutine that obtained it, not shared.
type FrameLock struct {
	c        *frameCache
	s        *cacheSlot
	index    int
	released bool
}

//Index returns the frame index this lock refers to.
func (L *FrameLock) Index() int { return L.index }

//Header returns a copy of the header of the borrowed frame.
func (L *FrameLock) Header() Header { return L.s.frame.Header }

//Coords returns the coordinates of the borrowed frame. The matrix is
//owned by the cache: it is only valid until Release and must not be
//written to. Copy out whatever needs to outlive the borrow.
func (L *FrameLock) Coords() *v3.Matrix { return L.s.frame.Coords }

//Release gives the borrowed slot back to the cache.
func (L *FrameLock) Release() {
	if L == nil || L.released {
		return
	}
	L.released = true
	L.c.release(L.s)
}

//commit publishes a freshly populated reservation.
func (L *FrameLock) commit() {
	L.c.commit(L.s)
}

//discard drops a reservation whose decode failed. The lock is dead
//afterwards: no Release needed.
func (L *FrameLock) discard() {
	if L.released {
		return
	}
	L.released = true
	L.c.discard(L.s)
}
