/*
 * gocoords.go, part of gotraj.
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

package v3

import (
	"fmt"
	"strings"
)

//SwapVecs swaps the ith and jth vectors of the matrix.
func (F *Matrix) SwapVecs(i, j int) {
	if i >= F.NVecs() || j >= F.NVecs() {
		panic(ErrIndexOutOfRange)
	}
	ri := F.RawRowView(i)
	rj := F.RawRowView(j)
	for k := 0; k < 3; k++ {
		ri[k], rj[k] = rj[k], ri[k]
	}
}

//AddVec adds the 1-row matrix vec to each vector of A, putting
//the result in the receiver.
func (F *Matrix) AddVec(A, vec *Matrix) {
	ar, ac := A.Dims()
	rr, rc := vec.Dims()
	fr, fc := F.Dims()
	if ac != rc || rr != 1 || ac != fc || ar != fr {
		panic(ErrShape)
	}
	v := vec.RawRowView(0)
	for i := 0; i < ar; i++ {
		a := A.RawRowView(i)
		f := F.RawRowView(i)
		f[0] = a[0] + v[0]
		f[1] = a[1] + v[1]
		f[2] = a[2] + v[2]
	}
}

//SubVec subtracts the 1-row matrix vec from each vector of A, putting
//the result in the receiver.
func (F *Matrix) SubVec(A, vec *Matrix) {
	ar, ac := A.Dims()
	rr, rc := vec.Dims()
	fr, fc := F.Dims()
	if ac != rc || rr != 1 || ac != fc || ar != fr {
		panic(ErrShape)
	}
	v := vec.RawRowView(0)
	for i := 0; i < ar; i++ {
		a := A.RawRowView(i)
		f := F.RawRowView(i)
		f[0] = a[0] - v[0]
		f[1] = a[1] - v[1]
		f[2] = a[2] - v[2]
	}
}

//SetVecs sets the vectors of the receiver whose indexes are given in
//clist to the corresponding vectors of A (in order).
func (F *Matrix) SetVecs(A *Matrix, clist []int) {
	ar, _ := A.Dims()
	fr, _ := F.Dims()
	if ar < len(clist) {
		panic(ErrNotEnoughElements)
	}
	for key, val := range clist {
		if val >= fr {
			panic(ErrIndexOutOfRange)
		}
		copy(F.RawRowView(val), A.RawRowView(key))
	}
}

//SomeVecs puts in the receiver the vectors of A whose indexes are given
//in clist, in the given order. The receiver must have len(clist) rows.
func (F *Matrix) SomeVecs(A *Matrix, clist []int) {
	ar, _ := A.Dims()
	fr, _ := F.Dims()
	if fr < len(clist) {
		panic(ErrNotEnoughElements)
	}
	for key, val := range clist {
		if val >= ar {
			panic(ErrIndexOutOfRange)
		}
		copy(F.RawRowView(key), A.RawRowView(val))
	}
}

//SomeVecsSafe is the error-returning version of SomeVecs.
func (F *Matrix) SomeVecsSafe(A *Matrix, clist []int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Error{fmt.Sprint(r), []string{"SomeVecsSafe"}, true}
		}
	}()
	F.SomeVecs(A, clist)
	return err
}

//String returns a neat string representation of the matrix.
func (F *Matrix) String() string {
	r, _ := F.Dims()
	b := new(strings.Builder)
	b.WriteString("\n[")
	for i := 0; i < r; i++ {
		v := F.RawRowView(i)
		fmt.Fprintf(b, "[%6.3f %6.3f %6.3f]", v[0], v[1], v[2])
		if i != r-1 {
			b.WriteString("\n ")
		}
	}
	b.WriteString(" ]\n")
	return b.String()
}
