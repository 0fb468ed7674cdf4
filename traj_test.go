/*
 * traj_test.go, part of gotraj.
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
	"math"
	"sync"
	"testing"
	"time"

	v3 "github.com/rmera/gotraj/v3"
)

//a little molecule of natoms carbons.
func testMol(natoms int) *Topology {
	ats := make([]*Atom, natoms)
	for i := range ats {
		ats[i] = &Atom{Name: "C", Id: i + 1, Molname: "TST", Molid: 1, Symbol: "C"}
	}
	mol, _ := NewTopology(ats)
	mol.FillMasses()
	return mol
}

//a trajectory of nframes frames where atom i of frame j sits at
//(i+j, i+j, i+j). Easy to verify after reading.
func testSource(natoms, nframes int, cell Cell) *MemSource {
	frames := make([]*v3.Matrix, nframes)
	for j := range frames {
		frames[j] = v3.Zeros(natoms)
		for i := 0; i < natoms; i++ {
			v := float64(i + j)
			row := frames[j].RawRowView(i)
			row[0], row[1], row[2] = v, v, v
		}
	}
	s, _ := NewMemSource(cell, 1.0, frames...)
	return s
}

//a source with nothing behind it, for exercising the degenerate sizes
//MemSource refuses to represent.
type hollowSource struct {
	natoms, nframes int
}

func (h *hollowSource) Len() int     { return h.natoms }
func (h *hollowSource) NFrames() int { return h.nframes }

func (h *hollowSource) FetchRaw(index int) ([]byte, error) {
	return nil, CError{IndexOutOfRange, []string{"hollowSource.FetchRaw"}}
}

func (h *hollowSource) DecodeRaw(raw []byte, f *Frame) error {
	return CError{DecodeFailed, []string{"hollowSource.DecodeRaw"}}
}

func (h *hollowSource) Close() error { return nil }

func TestSessionReads(Te *testing.T) {
	fmt.Println("Session read test!")
	source := testSource(5, 4, OrthoCell(100, 100, 100))
	S, err := Open(source, testMol(5), Config{Slots: 3})
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	if S.Len() != 5 || S.NFrames() != 4 {
		Te.Errorf("wrong sizes: %d atoms, %d frames", S.Len(), S.NFrames())
	}
	for j := 0; j < 4; j++ {
		lock, err := S.Frame(j)
		if err != nil {
			Te.Fatal(err)
		}
		if lock.Header().Time != float64(j) {
			Te.Errorf("frame %d: time %v", j, lock.Header().Time)
		}
		for i := 0; i < 5; i++ {
			want := float64(i + j)
			if got := lock.Coords().At(i, 0); got != want {
				Te.Errorf("frame %d atom %d: got %v, want %v", j, i, got, want)
			}
		}
		lock.Release()
	}
	//re-reading a cached frame must serve the exact same bits without
	//touching the source again.
	before := source.Decodes()
	lock, err := S.Frame(3)
	if err != nil {
		Te.Fatal(err)
	}
	if lock.Coords().At(4, 2) != 7 {
		Te.Errorf("cached frame content changed: %v", lock.Coords().At(4, 2))
	}
	lock.Release()
	if source.Decodes() != before {
		Te.Error("a cached frame was decoded again")
	}
	st := S.Stats()
	fmt.Println("stats after reading:", st)
	if st.Capacity != 3 || st.Hits < 1 {
		Te.Errorf("unexpected stats: %+v", st)
	}
}

func TestLRUEviction(Te *testing.T) {
	fmt.Println("LRU eviction test!")
	source := testSource(4, 3, Cell{})
	S, err := Open(source, testMol(4), Config{Slots: 2})
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	read := func(j int) {
		lock, err := S.Frame(j)
		if err != nil {
			Te.Fatal(err)
		}
		lock.Release()
	}
	read(0)
	read(1)
	read(0) //frame 1 is now the least recently used
	read(2) //must evict 1, not 0
	before := source.Decodes()
	read(0)
	if source.Decodes() != before {
		Te.Error("frame 0 was evicted, expected frame 1 to go")
	}
	read(1)
	if source.Decodes() != before+1 {
		Te.Error("frame 1 was still cached after the eviction")
	}
	if ev := S.Stats().Evictions; ev < 1 {
		Te.Errorf("no evictions counted: %d", ev)
	}
}

func TestSingleDecode(Te *testing.T) {
	fmt.Println("Decode coalescing test!")
	source := testSource(10, 2, Cell{})
	S, err := Open(source, testMol(10), Config{Slots: 2})
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	const readers = 20
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := S.Frame(1)
			if err != nil {
				errs <- err
				return
			}
			defer lock.Release()
			for i := 0; i < 10; i++ {
				if lock.Coords().At(i, 1) != float64(i+1) {
					errs <- fmt.Errorf("reader saw wrong data for atom %d", i)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		Te.Error(err)
	}
	if d := source.Decodes(); d != 1 {
		Te.Errorf("frame 1 was decoded %d times, want 1", d)
	}
}

func TestCacheExhausted(Te *testing.T) {
	fmt.Println("Cache exhaustion test!")
	source := testSource(3, 3, Cell{})
	S, err := Open(source, testMol(3), Config{Slots: 1, FailWhenFull: true})
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	_, err = S.Frame(1)
	if !IsMessage(err, CacheExhausted) {
		Te.Errorf("expected CacheExhausted, got %v", err)
	}
	//a hit on the locked frame must still work.
	again, err := S.Frame(0)
	if err != nil {
		Te.Error(err)
	} else {
		again.Release()
	}
	lock.Release()
	//with the slot free, the other frame can come in now.
	lock2, err := S.Frame(1)
	if err != nil {
		Te.Fatal(err)
	}
	lock2.Release()
}

func TestBlockingWhenFull(Te *testing.T) {
	fmt.Println("Blocking saturation test!")
	source := testSource(3, 2, Cell{})
	S, err := Open(source, testMol(3), Config{Slots: 1})
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	done := make(chan error, 1)
	go func() {
		l, err := S.Frame(1)
		if err == nil {
			l.Release()
		}
		done <- err
	}()
	select {
	case <-done:
		Te.Fatal("a frame request went through with every slot locked")
	case <-time.After(50 * time.Millisecond):
	}
	lock.Release()
	select {
	case err := <-done:
		if err != nil {
			Te.Error(err)
		}
	case <-time.After(2 * time.Second):
		Te.Fatal("the blocked request never completed")
	}
}

func TestDecodeFailure(Te *testing.T) {
	fmt.Println("Decode failure test!")
	source := testSource(3, 3, Cell{})
	S, err := Open(source, testMol(3), Config{Slots: 3})
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	lock.Release()
	source.FailOn(1)
	if _, err := S.Frame(1); !IsMessage(err, DecodeFailed) {
		Te.Errorf("expected DecodeFailed, got %v", err)
	}
	//only the failed slot is given up; frame 0 stays resident.
	if n := S.CachedFrames(); n != 1 {
		Te.Errorf("%d frames resident after a failed decode, want 1", n)
	}
	source.FailOn(-1)
	lock, err = S.Frame(1)
	if err != nil {
		Te.Fatal(err)
	}
	lock.Release()
}

func TestOpenAndSessionErrors(Te *testing.T) {
	fmt.Println("Error taxonomy test!")
	source := testSource(5, 2, Cell{})
	if _, err := Open(source, testMol(7)); !IsMessage(err, AtomCountMismatch) {
		Te.Errorf("expected AtomCountMismatch, got %v", err)
	}
	if _, err := Open(nil, testMol(5)); !IsMessage(err, NilData) {
		Te.Errorf("expected NilData, got %v", err)
	}
	if _, err := Open(&hollowSource{natoms: 0, nframes: 3}, testMol(5)); !IsMessage(err, StoreOpenError) {
		Te.Errorf("expected StoreOpenError for an atomless store, got %v", err)
	}
	if _, err := Open(&hollowSource{natoms: 5, nframes: -1}, testMol(5)); !IsMessage(err, StoreOpenError) {
		Te.Errorf("expected StoreOpenError for a negative frame count, got %v", err)
	}
	S, err := Open(source, testMol(5))
	if err != nil {
		Te.Fatal(err)
	}
	if _, err := S.Frame(-1); !IsMessage(err, IndexOutOfRange) {
		Te.Errorf("expected IndexOutOfRange, got %v", err)
	}
	if _, err := S.Frame(2); !IsMessage(err, IndexOutOfRange) {
		Te.Errorf("expected IndexOutOfRange, got %v", err)
	}
	if err := S.SetRecenterTarget([]int{0, 5}); !IsMessage(err, IndexOutOfRange) {
		Te.Errorf("expected IndexOutOfRange, got %v", err)
	}
	if err := S.Close(); err != nil {
		Te.Error(err)
	}
	if err := S.Close(); err != nil { //second Close is a no-op
		Te.Error(err)
	}
	if _, err := S.Frame(0); !IsMessage(err, SessionClosed) {
		Te.Errorf("expected SessionClosed, got %v", err)
	}
	if err := S.SetDeperiodize(true); !IsMessage(err, SessionClosed) {
		Te.Errorf("expected SessionClosed, got %v", err)
	}
}

func TestEmptyTrajectory(Te *testing.T) {
	fmt.Println("Empty trajectory test!")
	//a frameless store must not turn the whole memory budget into
	//slots: the frame-count clamp applies before the one-slot floor.
	if n := cacheSlots(Config{}, 10, 0); n != 1 {
		Te.Errorf("%d slots for a frameless store, want 1", n)
	}
	if n := cacheSlots(Config{Slots: 8}, 10, 0); n != 1 {
		Te.Errorf("%d slots for a frameless store with an override, want 1", n)
	}
	S, err := Open(&hollowSource{natoms: 10, nframes: 0}, testMol(10))
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	if c := S.Stats().Capacity; c != 1 {
		Te.Errorf("cache capacity %d for a frameless store, want 1", c)
	}
	if _, err := S.Frame(0); !IsMessage(err, IndexOutOfRange) {
		Te.Errorf("expected IndexOutOfRange, got %v", err)
	}
}

func TestConfigChangeInvalidates(Te *testing.T) {
	fmt.Println("Configuration barrier test!")
	source := testSource(4, 2, OrthoCell(50, 50, 50))
	S, err := Open(source, testMol(4), Config{Slots: 2})
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	raw := lock.Coords().At(0, 0)
	lock.Release()
	before := source.Decodes()
	if err := S.SetRecenterTarget([]int{0}); err != nil {
		Te.Fatal(err)
	}
	if n := S.CachedFrames(); n != 0 {
		Te.Errorf("%d frames resident after a settings change, want 0", n)
	}
	lock, err = S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	//the frame was re-decoded, and atom 0 now sits mid-cell.
	if source.Decodes() != before+1 {
		Te.Error("the settings change did not force a re-decode")
	}
	if got := lock.Coords().At(0, 0); math.Abs(got-25) > 1e-9 {
		Te.Errorf("recentered atom 0 at %v, want 25 (was %v)", got, raw)
	}
	lock.Release()
	//and back to raw frames.
	if err := S.SetRecenterTarget(nil); err != nil {
		Te.Fatal(err)
	}
	lock, err = S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	if got := lock.Coords().At(0, 0); got != raw {
		Te.Errorf("frame not restored after disabling recentering: %v", got)
	}
	lock.Release()
}

func TestFrameInto(Te *testing.T) {
	fmt.Println("FrameInto test!")
	cell := OrthoCell(30, 30, 30)
	source := testSource(6, 2, cell)
	S, err := Open(source, testMol(6))
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	out := v3.Zeros(6)
	box := make([]float64, 9)
	h, err := S.FrameInto(1, out, box)
	if err != nil {
		Te.Fatal(err)
	}
	if h.Natoms != 6 || h.Time != 1 {
		Te.Errorf("wrong header: %+v", h)
	}
	if box[0] != 30 || box[4] != 30 || box[8] != 30 {
		Te.Errorf("wrong box: %v", box)
	}
	if out.At(5, 0) != 6 {
		Te.Errorf("wrong coordinates: %v", out.At(5, 0))
	}
	wrong := v3.Zeros(3)
	if _, err := S.FrameInto(1, wrong); !IsMessage(err, AtomCountMismatch) {
		Te.Errorf("expected AtomCountMismatch, got %v", err)
	}
}

func TestConcurrentMixedLoad(Te *testing.T) {
	fmt.Println("Concurrent mixed load test!")
	source := testSource(8, 12, OrthoCell(80, 80, 80))
	S, err := Open(source, testMol(8), Config{Slots: 4})
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for r := 0; r < 6; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				idx := (r + j*3) % 12
				lock, err := S.Frame(idx)
				if err != nil {
					errs <- err
					return
				}
				want := float64(idx)
				if got := lock.Coords().At(0, 0); got != want {
					errs <- fmt.Errorf("frame %d: got %v, want %v", idx, got, want)
				}
				lock.Release()
			}
		}(r)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		Te.Error(err)
	}
	st := S.Stats()
	fmt.Println("stats after the mixed load:", st)
	if st.Resident > 4 {
		Te.Errorf("%d resident frames with capacity 4", st.Resident)
	}
}
