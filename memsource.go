/*
 * memsource.go, part of gotraj.
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
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	v3 "github.com/rmera/gotraj/v3"
)

//MemSource is a Source backed by coordinate sets already in memory.
//It is handy for generated trajectories, for gluing in data from a
//format this library doesn't read, and for testing anything built on
//Source, as it counts its decodes.
type MemSource struct {
	cell    Cell
	frames  []*v3.Matrix
	natoms  int
	dt      float64
	decodes int64
	failOn  int64
	closed  int32
}

//NewMemSource builds a MemSource over the given coordinate sets, all
//of which must have the same number of rows, with the given cell for
//every frame and dt time units between consecutive frames. The
//matrices are not copied; the caller must not modify them while the
//source is in use.
func NewMemSource(cell Cell, dt float64, frames ...*v3.Matrix) (*MemSource, error) {
	if len(frames) == 0 || frames[0] == nil {
		return nil, CError{NilData, []string{"NewMemSource"}}
	}
	natoms := frames[0].NVecs()
	for i, f := range frames {
		if f == nil || f.NVecs() != natoms {
			return nil, CError{fmt.Sprintf("%s: frame %d", AtomCountMismatch, i), []string{"NewMemSource"}}
		}
	}
	return &MemSource{cell: cell, frames: frames, natoms: natoms, dt: dt, failOn: -1}, nil
}

//Len returns the number of atoms per frame.
func (M *MemSource) Len() int { return M.natoms }

//NFrames returns the number of frames.
func (M *MemSource) NFrames() int { return len(M.frames) }

//FetchRaw serializes frame index into a little-endian blob: the frame
//index, then the coordinates row by row.
func (M *MemSource) FetchRaw(index int) ([]byte, error) {
	if atomic.LoadInt32(&M.closed) != 0 {
		return nil, CError{SessionClosed, []string{"MemSource.FetchRaw"}}
	}
	if index < 0 || index >= len(M.frames) {
		return nil, CError{fmt.Sprintf("%s: %d of %d", IndexOutOfRange, index, len(M.frames)), []string{"MemSource.FetchRaw"}}
	}
	blob := make([]byte, 8+M.natoms*3*8)
	binary.LittleEndian.PutUint64(blob, uint64(index))
	off := 8
	coords := M.frames[index]
	for i := 0; i < M.natoms; i++ {
		row := coords.RawRowView(i)
		for k := 0; k < 3; k++ {
			binary.LittleEndian.PutUint64(blob[off:], math.Float64bits(row[k]))
			off += 8
		}
	}
	return blob, nil
}

//DecodeRaw fills frame from a blob made by FetchRaw.
func (M *MemSource) DecodeRaw(raw []byte, frame *Frame) error {
	if len(raw) < 8+M.natoms*3*8 {
		return CError{fmt.Sprintf("%s: blob too short (%d bytes)", DecodeFailed, len(raw)), []string{"MemSource.DecodeRaw"}}
	}
	index := int(binary.LittleEndian.Uint64(raw))
	if index == int(atomic.LoadInt64(&M.failOn)) {
		return CError{fmt.Sprintf("%s: induced failure", DecodeFailed), []string{"MemSource.DecodeRaw"}}
	}
	atomic.AddInt64(&M.decodes, 1)
	frame.Natoms = M.natoms
	frame.Time = float64(index) * M.dt
	frame.Cell = M.cell
	off := 8
	for i := 0; i < M.natoms; i++ {
		row := frame.Coords.RawRowView(i)
		for k := 0; k < 3; k++ {
			row[k] = math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
			off += 8
		}
	}
	return nil
}

//Close marks the source closed.
func (M *MemSource) Close() error {
	atomic.StoreInt32(&M.closed, 1)
	return nil
}

//Decodes returns how many frames have been decoded so far. Useful to
//verify caching behavior.
func (M *MemSource) Decodes() int64 { return atomic.LoadInt64(&M.decodes) }

//FailOn makes every decode of the given frame index fail until called
//again with a different index. A negative index restores normal
//operation.
func (M *MemSource) FailOn(index int) { atomic.StoreInt64(&M.failOn, int64(index)) }
