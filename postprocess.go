/*
 * postprocess.go, part of gotraj.
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
	"math"

	v3 "github.com/rmera/gotraj/v3"
)

/*postProcessor applies the in-place transformations a frame goes
through right after decoding and before landing in the cache: first
recentering the frame on a chosen atom set, then, optionally, making
each connected structure whole across the periodic boundary. Because
the transformations run while the frame's cache slot is still being
populated, they never overlap with a configuration change: the session
only swaps the processor's settings inside a cache invalidation
barrier, with no borrow outstanding. All scratch space is allocated
once, so steady-state processing is allocation free.*/
type postProcessor struct {
	masses     []float64 //per atom, nil means uniform
	structures [][]int
	structM    [][]float64 //masses gathered per structure
	scratch    *v3.Matrix  //fits the largest structure

	target      []int //empty means no recentering
	targetXYZ   *v3.Matrix
	targetM     []float64
	deperiodize bool
}

func newPostProcessor(masses []float64, structures [][]int) *postProcessor {
	p := &postProcessor{masses: masses}
	p.setStructures(structures)
	return p
}

//setStructures installs the partition of the molecule into bonded
//structures, rebuilding the per-structure mass and scratch buffers.
func (P *postProcessor) setStructures(structures [][]int) {
	P.structures = structures
	P.structM = nil
	biggest := 0
	for _, s := range structures {
		if len(s) > biggest {
			biggest = len(s)
		}
		var m []float64
		if P.masses != nil {
			m = make([]float64, len(s))
			for i, a := range s {
				m[i] = P.masses[a]
			}
		}
		P.structM = append(P.structM, m)
	}
	if P.scratch == nil || P.scratch.NVecs() < biggest {
		P.scratch = nil
		if biggest > 0 {
			P.scratch = v3.Zeros(biggest)
		}
	}
}

//setTarget installs the atom set frames get recentered on. The slice
//is copied. An empty target disables recentering.
func (P *postProcessor) setTarget(target []int) {
	if len(target) == 0 {
		P.target = nil
		P.targetXYZ = nil
		P.targetM = nil
		return
	}
	P.target = append([]int(nil), target...)
	P.targetXYZ = v3.Zeros(len(P.target))
	P.targetM = nil
	if P.masses != nil {
		P.targetM = make([]float64, len(P.target))
		for i, a := range P.target {
			P.targetM[i] = P.masses[a]
		}
	}
}

//process transforms f in place. With a degenerate or absent cell the
//periodic steps silently fall back to their non-periodic versions
//(plain center of mass, no deperiodization); the frame is still
//served.
func (P *postProcessor) process(f *Frame) {
	periodic := f.Cell.usable()
	ext := f.Cell.Extent()
	half := [3]float64{ext[0] / 2, ext[1] / 2, ext[2] / 2}
	if len(P.target) > 0 {
		var com [3]float64
		switch {
		case len(P.target) == 1:
			//the center of a single atom is the atom, periodic or not
			row := f.Coords.RawRowView(P.target[0])
			com = [3]float64{row[0], row[1], row[2]}
		case periodic:
			P.targetXYZ.SomeVecs(f.Coords, P.target)
			com = comPeriodic(P.targetXYZ, P.targetM, ext)
			com = deperiodize(com, half, ext)
		default:
			P.targetXYZ.SomeVecs(f.Coords, P.target)
			com = comDirect(P.targetXYZ, P.targetM)
		}
		var t [3]float64
		if periodic {
			//put the target's center at the middle of the cell
			t = [3]float64{half[0] - com[0], half[1] - com[1], half[2] - com[2]}
		} else {
			t = [3]float64{-com[0], -com[1], -com[2]}
		}
		translate(f.Coords, t)
	}
	if !P.deperiodize || !periodic {
		return
	}
	for si, s := range P.structures {
		if len(s) < 2 {
			continue
		}
		gathered := P.scratch.View(0, 0, len(s), 3)
		gathered.SomeVecs(f.Coords, s)
		ref := comPeriodic(gathered, P.structM[si], ext)
		ref = deperiodize(ref, half, ext)
		//pull every atom of the structure to the image closest to its
		//own center, so bonds never straddle the boundary
		for _, ai := range s {
			row := f.Coords.RawRowView(ai)
			for k := 0; k < 3; k++ {
				if ext[k] <= appzero {
					continue
				}
				row[k] -= ext[k] * math.Round((row[k]-ref[k])/ext[k])
			}
		}
	}
}

//translate shifts every coordinate in m by t, in place.
func translate(m *v3.Matrix, t [3]float64) {
	n := m.NVecs()
	for i := 0; i < n; i++ {
		row := m.RawRowView(i)
		row[0] += t[0]
		row[1] += t[1]
		row[2] += t[2]
	}
}
