/*
 * v3_test.go, part of gotraj.
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
	"testing"
)

func TestMatrixBasics(Te *testing.T) {
	fmt.Println("v3 basics test!")
	A, err := NewMatrix([]float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	if err != nil {
		Te.Fatal(err)
	}
	if A.NVecs() != 3 {
		Te.Errorf("wrong NVecs: %d", A.NVecs())
	}
	if _, err := NewMatrix([]float64{1, 2, 3, 4}); err == nil {
		Te.Error("a slice of length 4 made a 3-column matrix")
	}
	v := A.VecView(1)
	if v.At(0, 0) != 4 || v.At(0, 2) != 6 {
		Te.Errorf("wrong VecView: %v", v)
	}
	v.Set(0, 0, 40)
	if A.At(1, 0) != 40 {
		Te.Error("VecView is not a view")
	}
	fmt.Println("the matrix:", A)
}

func TestVecOps(Te *testing.T) {
	fmt.Println("v3 vector ops test!")
	A, _ := NewMatrix([]float64{
		1, 1, 1,
		2, 2, 2,
	})
	vec, _ := NewMatrix([]float64{1, 10, 100})
	B := Zeros(2)
	B.AddVec(A, vec)
	if B.At(0, 1) != 11 || B.At(1, 2) != 102 {
		Te.Errorf("wrong AddVec result: %v", B)
	}
	B.SubVec(B, vec)
	if B.At(0, 0) != 1 || B.At(1, 1) != 2 {
		Te.Errorf("wrong SubVec result: %v", B)
	}
	A.SwapVecs(0, 1)
	if A.At(0, 0) != 2 || A.At(1, 0) != 1 {
		Te.Errorf("wrong SwapVecs result: %v", A)
	}
}

func TestSomeVecs(Te *testing.T) {
	fmt.Println("v3 SomeVecs test!")
	A, _ := NewMatrix([]float64{
		0, 0, 0,
		1, 1, 1,
		2, 2, 2,
		3, 3, 3,
	})
	B := Zeros(2)
	B.SomeVecs(A, []int{3, 1})
	if B.At(0, 0) != 3 || B.At(1, 0) != 1 {
		Te.Errorf("wrong SomeVecs result: %v", B)
	}
	//and back
	B.Scale(10, B)
	A.SetVecs(B, []int{3, 1})
	if A.At(3, 1) != 30 || A.At(1, 1) != 10 {
		Te.Errorf("wrong SetVecs result: %v", A)
	}
	if err := B.SomeVecsSafe(A, []int{0, 1, 2}); err == nil {
		Te.Error("SomeVecsSafe let a too-small receiver through")
	}
}
