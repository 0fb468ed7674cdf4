/*
 * com.go, part of gotraj.
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

//CenterOfMass returns the center of mass of the atoms represented by
//the coordinates in geometry and the masses in mass, and an error.
//If mass is nil, it calculates the geometric center.
func CenterOfMass(geometry *v3.Matrix, mass []float64) (*v3.Matrix, error) {
	if geometry == nil {
		return nil, CError{NilData, []string{"CenterOfMass"}}
	}
	gr := geometry.NVecs()
	if mass != nil && len(mass) != gr {
		return nil, CError{"goTraj: inconsistent coordinates/masses", []string{"CenterOfMass"}}
	}
	com := comDirect(geometry, mass)
	ref := v3.Zeros(1)
	ref.Set(0, 0, com[0])
	ref.Set(0, 1, com[1])
	ref.Set(0, 2, com[2])
	return ref, nil
}

//CenterOfMassPeriodic returns the center of mass of the given
//coordinates and masses in a periodic cell with the given extension
//along each axis, treating each coordinate modulo the extension: a
//cluster of atoms split across a periodic boundary is handled as the
//contiguous cluster it actually is, instead of averaging images far
//apart. The returned position lies within [0, ext) along each periodic
//axis; axes without extension get a direct average. If mass is nil the
//geometric center is calculated.
func CenterOfMassPeriodic(geometry *v3.Matrix, mass []float64, ext [3]float64) (*v3.Matrix, error) {
	if geometry == nil {
		return nil, CError{NilData, []string{"CenterOfMassPeriodic"}}
	}
	gr := geometry.NVecs()
	if mass != nil && len(mass) != gr {
		return nil, CError{"goTraj: inconsistent coordinates/masses", []string{"CenterOfMassPeriodic"}}
	}
	com := comPeriodic(geometry, mass, ext)
	ref := v3.Zeros(1)
	ref.Set(0, 0, com[0])
	ref.Set(0, 1, com[1])
	ref.Set(0, 2, com[2])
	return ref, nil
}

//comDirect is the plain mass-weighted average. A nil mass slice means
//all masses are 1.
func comDirect(geometry *v3.Matrix, mass []float64) [3]float64 {
	var com [3]float64
	var tot float64
	n := geometry.NVecs()
	for i := 0; i < n; i++ {
		m := 1.0
		if mass != nil {
			m = mass[i]
		}
		row := geometry.RawRowView(i)
		com[0] += m * row[0]
		com[1] += m * row[1]
		com[2] += m * row[2]
		tot += m
	}
	if tot <= appzero {
		return com
	}
	com[0] /= tot
	com[1] /= tot
	com[2] /= tot
	return com
}

//comPeriodic computes, for each periodic axis, the mass-weighted
//circular mean of the coordinates mapped onto a circle of
//circumference ext. This is the usual trick for centers of mass under
//periodic boundary conditions (Bai & Breen, 2008).
func comPeriodic(geometry *v3.Matrix, mass []float64, ext [3]float64) [3]float64 {
	n := geometry.NVecs()
	var com [3]float64
	for k := 0; k < 3; k++ {
		if ext[k] <= appzero {
			//not periodic along this axis, fall back to the direct average
			var acc, tot float64
			for i := 0; i < n; i++ {
				m := 1.0
				if mass != nil {
					m = mass[i]
				}
				acc += m * geometry.At(i, k)
				tot += m
			}
			if tot > appzero {
				com[k] = acc / tot
			}
			continue
		}
		var si, co, tot float64
		w := 2 * math.Pi / ext[k]
		for i := 0; i < n; i++ {
			m := 1.0
			if mass != nil {
				m = mass[i]
			}
			theta := geometry.At(i, k) * w
			si += m * math.Sin(theta)
			co += m * math.Cos(theta)
			tot += m
		}
		if tot <= appzero {
			continue
		}
		theta := math.Atan2(si/tot, co/tot)
		if theta < 0 {
			theta += 2 * math.Pi
		}
		com[k] = theta / w
	}
	return com
}
