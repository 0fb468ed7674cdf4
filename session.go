/*
 * session.go, part of gotraj.
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
	"fmt"
	"log"
	"sync"

	v3 "github.com/rmera/gotraj/v3"
)

//Cache sizing. The budget defaults to 256 MB, never goes below 4 MB,
//and, if the caller says how much physical memory there is, never
//above a quarter of that.
const (
	defaultCacheBytes int64 = 256 << 20
	minCacheBytes     int64 = 4 << 20
)

//Config tunes a Session. The zero value gives sensible defaults.
type Config struct {
	//MemoryBytes is the cache memory budget. Zero or negative picks
	//the default.
	MemoryBytes int64
	//SystemBytes, if positive, is the physical memory of the machine;
	//the budget is capped to a quarter of it.
	SystemBytes int64
	//Slots, if positive, fixes the number of cache slots directly,
	//overriding the memory-derived capacity.
	Slots int
	//FailWhenFull makes frame requests fail with CacheExhausted when
	//every slot is borrowed, instead of blocking until one frees.
	FailWhenFull bool
}

/*Session binds a frame source to a molecule and serves post-processed
frames out of a bounded cache. It is safe for concurrent use: any
number of goroutines may request frames, and a frame asked for by many
of them at once is decoded exactly once. Changing the post-processing
settings invalidates the whole cache, after waiting for every borrowed
frame to be given back, so a served frame always reflects the settings
that were in force when it was requested (never a mix). For that same
reason a goroutine must not change settings, clear the cache or Close
while itself holding an unreleased FrameLock: the barrier would wait
on it forever.*/
type Session struct {
	source  Source
	mol     *Topology
	cache   *frameCache
	post    *postProcessor
	natoms  int
	nframes int
	mu      sync.Mutex
	closed  bool
}

//Open validates that source and mol describe the same system and
//returns a Session serving the source's frames. The source is owned by
//the session from here on: it will be closed by Session.Close. If the
//molecule carries no usable masses, geometric centers are used instead
//of centers of mass and a notice is logged.
func Open(source Source, mol *Topology, conf ...Config) (*Session, error) {
	if source == nil || mol == nil {
		return nil, CError{NilData, []string{"Open"}}
	}
	var cf Config
	if len(conf) > 0 {
		cf = conf[0]
	}
	natoms := source.Len()
	nframes := source.NFrames()
	if natoms <= 0 || nframes < 0 {
		return nil, CError{fmt.Sprintf("%s: %d atoms, %d frames", StoreOpenError, natoms, nframes), []string{"Open"}}
	}
	if natoms != mol.Len() {
		return nil, CError{fmt.Sprintf("%s: %d vs %d", AtomCountMismatch, natoms, mol.Len()), []string{"Open"}}
	}
	masses, err := mol.Masses()
	if err != nil {
		log.Printf("goTraj: no usable masses (%v), centering will be geometric", err)
		masses = nil
	}
	S := &Session{
		source:  source,
		mol:     mol,
		natoms:  natoms,
		nframes: nframes,
	}
	S.post = newPostProcessor(masses, mol.Structures())
	S.cache = newFrameCache(cacheSlots(cf, natoms, nframes), natoms, cf.FailWhenFull)
	return S, nil
}

//cacheSlots derives the slot count from the memory budget, one
//decoded frame per slot. There is no point in caching more frames
//than the trajectory has; an empty trajectory still gets its one
//slot rather than a budget's worth of them.
func cacheSlots(cf Config, natoms, nframes int) int {
	slots := cf.Slots
	if slots <= 0 {
		budget := cf.MemoryBytes
		if budget <= 0 {
			budget = defaultCacheBytes
		}
		if budget < minCacheBytes {
			budget = minCacheBytes
		}
		if cf.SystemBytes > 0 && budget > cf.SystemBytes/4 {
			budget = cf.SystemBytes / 4
		}
		perFrame := int64(natoms) * 3 * 8 //one float64 per coordinate
		slots = int(budget / perFrame)
	}
	if slots > nframes {
		slots = nframes
	}
	if slots < 1 {
		slots = 1
	}
	return slots
}

//Frame returns a lock on the post-processed frame with the given
//index, decoding it into the cache first if it isn't resident. The
//caller reads through the lock and must Release it when done. On a
//decode failure only the affected slot is given up; the rest of the
//cache stays valid and later requests for the same index will retry.
func (S *Session) Frame(index int) (*FrameLock, error) {
	S.mu.Lock()
	closed := S.closed
	S.mu.Unlock()
	if closed {
		return nil, CError{SessionClosed, []string{"Frame"}}
	}
	if index < 0 || index >= S.nframes {
		return nil, CError{fmt.Sprintf("%s: %d of %d", IndexOutOfRange, index, S.nframes), []string{"Frame"}}
	}
	lock, found, err := S.cache.findOrReserve(index)
	if err != nil {
		return nil, errDecorate(err, "Frame")
	}
	if found {
		return lock, nil
	}
	raw, err := S.source.FetchRaw(index)
	if err == nil {
		err = S.source.DecodeRaw(raw, lock.s.frame)
	}
	if err != nil {
		lock.discard()
		return nil, CError{fmt.Sprintf("%s %d: %s", DecodeFailed, index, err.Error()), []string{"Frame"}}
	}
	S.post.process(lock.s.frame)
	lock.commit()
	return lock, nil
}

//FrameInto copies the coordinates of the given frame into out, which
//must have one row per atom, and returns the frame's header. If a box
//slice is given, the cell basis is also copied into its first 9
//elements. This is the convenient API when the caller keeps its own
//buffers; Frame is the one that avoids the copy.
func (S *Session) FrameInto(index int, out *v3.Matrix, box ...[]float64) (Header, error) {
	if out == nil {
		return Header{}, CError{NilData, []string{"FrameInto"}}
	}
	if out.NVecs() != S.natoms {
		return Header{}, CError{fmt.Sprintf("%s: output matrix has %d rows, want %d", AtomCountMismatch, out.NVecs(), S.natoms), []string{"FrameInto"}}
	}
	lock, err := S.Frame(index)
	if err != nil {
		return Header{}, errDecorate(err, "FrameInto")
	}
	defer lock.Release()
	out.Copy(lock.Coords().Dense)
	h := lock.Header()
	if len(box) > 0 && len(box[0]) >= 9 {
		h.Cell.Box(box[0])
	}
	return h, nil
}

//SetRecenterTarget makes every subsequently served frame be recentered
//on the center of mass of the atoms whose indexes are in target: at
//the middle of the periodic cell, or at the origin when the frame's
//cell is absent or degenerate. An empty or nil target disables
//recentering. The whole cache is invalidated, waiting first for every
//outstanding borrow.
func (S *Session) SetRecenterTarget(target []int) error {
	if err := S.checkOpen("SetRecenterTarget"); err != nil {
		return err
	}
	for _, a := range target {
		if a < 0 || a >= S.natoms {
			return CError{fmt.Sprintf("%s: atom %d of %d", IndexOutOfRange, a, S.natoms), []string{"SetRecenterTarget"}}
		}
	}
	S.cache.clearWith(func() { S.post.setTarget(target) })
	return nil
}

//SetDeperiodize turns on or off making each connected structure of the
//molecule whole across the periodic boundary of served frames. It has
//an effect only if the molecule has structures set (see
//Topology.SetStructures and StructuresFromBonds); the partition is
//re-read from the molecule here, so structures set after Open are
//picked up. The whole cache is invalidated, waiting first for every
//outstanding borrow.
func (S *Session) SetDeperiodize(on bool) error {
	if err := S.checkOpen("SetDeperiodize"); err != nil {
		return err
	}
	S.cache.clearWith(func() {
		S.post.setStructures(S.mol.Structures())
		S.post.deperiodize = on
	})
	return nil
}

//ClearCache drops every cached frame, waiting first for every
//outstanding borrow to be released.
func (S *Session) ClearCache() error {
	if err := S.checkOpen("ClearCache"); err != nil {
		return err
	}
	S.cache.clearWith(nil)
	return nil
}

//CachedFrames returns how many decoded frames are resident.
func (S *Session) CachedFrames() int {
	return S.cache.stats().Resident
}

//Stats returns a snapshot of the cache counters.
func (S *Session) Stats() CacheStats {
	return S.cache.stats()
}

//Len returns the number of atoms per frame.
func (S *Session) Len() int { return S.natoms }

//NFrames returns the number of frames in the trajectory.
func (S *Session) NFrames() int { return S.nframes }

//Mol returns the molecule the session was opened with.
func (S *Session) Mol() *Topology { return S.mol }

//Close waits for every outstanding borrow, drops the cache and closes
//the underlying source. Further calls are no-ops; requests that were
//in flight when Close was called may come back with a decode error.
func (S *Session) Close() error {
	S.mu.Lock()
	if S.closed {
		S.mu.Unlock()
		return nil
	}
	S.closed = true
	S.mu.Unlock()
	S.cache.clearWith(nil)
	if err := S.source.Close(); err != nil {
		return errDecorate(err, "Close")
	}
	return nil
}

func (S *Session) checkOpen(caller string) error {
	S.mu.Lock()
	defer S.mu.Unlock()
	if S.closed {
		return CError{SessionClosed, []string{caller}}
	}
	return nil
}
