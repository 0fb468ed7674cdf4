/*
 * cell.go, part of gotraj.
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

import "math"

//appzero is the numerical zero: everything with an absolute value
//equal or smaller is considered zero.
const appzero float64 = 1e-12

//Cell is the periodic unit cell of a frame: three basis vectors given
//as a 9-element row-major array (the same convention the trajectory
//readers use for their box slices: Basis[0:3] is the first vector and
//so on) plus a flag telling whether periodicity applies at all. The
//zero value is a non-periodic cell.
type Cell struct {
	Basis    [9]float64
	Periodic bool
}

//NewCell builds a periodic Cell from a 9-element box slice. A nil or
//short box, or one with no extension, yields a non-periodic cell.
func NewCell(box []float64) Cell {
	var c Cell
	if len(box) < 9 {
		return c
	}
	copy(c.Basis[:], box)
	ext := c.Extent()
	c.Periodic = ext[0] > appzero || ext[1] > appzero || ext[2] > appzero
	return c
}

//OrthoCell builds a periodic rectangular Cell with the given extents.
func OrthoCell(x, y, z float64) Cell {
	return NewCell([]float64{x, 0, 0, 0, y, 0, 0, 0, z})
}

//Box puts the basis of the cell in the first 9 elements of box, which
//must have at least that length.
func (c *Cell) Box(box []float64) {
	copy(box[:9], c.Basis[:])
}

//Extent returns the total extension of the cell along each cartesian
//axis: the sum of the three basis vectors, component by component.
//For a rectangular cell this is just its side lengths.
func (c *Cell) Extent() [3]float64 {
	var ext [3]float64
	for i := 0; i < 3; i++ {
		ext[i] = c.Basis[i] + c.Basis[3+i] + c.Basis[6+i]
	}
	return ext
}

//Volume returns the volume of the cell, i.e. the determinant of the
//basis.
func (c *Cell) Volume() float64 {
	b := &c.Basis
	return b[0]*(b[4]*b[8]-b[5]*b[7]) -
		b[1]*(b[3]*b[8]-b[5]*b[6]) +
		b[2]*(b[3]*b[7]-b[4]*b[6])
}

//degenerate reports whether the basis has (numerically) zero volume.
//A cell flagged periodic but degenerate must be treated as
//non-periodic by all the geometry here: doing the modular arithmetic
//with a zero extension would produce garbage.
func (c *Cell) degenerate() bool {
	return math.Abs(c.Volume()) <= appzero
}

//usable reports whether periodic math can be applied with this cell.
func (c *Cell) usable() bool {
	return c.Periodic && !c.degenerate()
}

//Deperiodize returns the periodic image of p closest to ref, shifting
//each component of p by whole multiples of the corresponding cell
//extension. Axes without extension are left alone.
func (c *Cell) Deperiodize(p, ref [3]float64) [3]float64 {
	return deperiodize(p, ref, c.Extent())
}

func deperiodize(p, ref, ext [3]float64) [3]float64 {
	for i := 0; i < 3; i++ {
		if ext[i] <= appzero {
			continue
		}
		p[i] -= ext[i] * math.Round((p[i]-ref[i])/ext[i])
	}
	return p
}
