/*
 * geometry_test.go, part of gotraj.
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
	"testing"

	v3 "github.com/rmera/gotraj/v3"
)

func TestPeriodicCOM(Te *testing.T) {
	fmt.Println("Periodic center of mass test!")
	//two equal atoms hugging opposite sides of the boundary: the
	//naive average says mid-cell, the periodic one says boundary.
	coords, _ := v3.NewMatrix([]float64{
		0.1, 5, 5,
		9.9, 5, 5,
	})
	ext := [3]float64{10, 10, 10}
	com, err := CenterOfMassPeriodic(coords, []float64{12, 12}, ext)
	if err != nil {
		Te.Fatal(err)
	}
	x := com.At(0, 0)
	toBoundary := math.Min(x, 10-x)
	fmt.Println("periodic com:", com)
	if toBoundary > 0.01 {
		Te.Errorf("periodic com at x=%v, want it at the boundary", x)
	}
	naive, err := CenterOfMass(coords, []float64{12, 12})
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(naive.At(0, 0)-5) > 1e-9 {
		Te.Errorf("direct com at x=%v, want 5", naive.At(0, 0))
	}
}

func TestCellBasics(Te *testing.T) {
	fmt.Println("Cell test!")
	c := OrthoCell(10, 20, 30)
	if !c.Periodic {
		Te.Error("ortho cell not periodic")
	}
	ext := c.Extent()
	if ext != [3]float64{10, 20, 30} {
		Te.Errorf("wrong extent: %v", ext)
	}
	if math.Abs(c.Volume()-6000) > 1e-9 {
		Te.Errorf("wrong volume: %v", c.Volume())
	}
	if c.degenerate() {
		Te.Error("a proper cell reported as degenerate")
	}
	//a flagged-periodic cell with linearly dependent vectors must not
	//be used for periodic math.
	bad := Cell{Basis: [9]float64{1, 0, 0, 2, 0, 0, 0, 0, 0}, Periodic: true}
	if bad.usable() {
		Te.Error("degenerate cell reported as usable")
	}
	if NewCell(nil).Periodic {
		Te.Error("nil box gave a periodic cell")
	}
	p := c.Deperiodize([3]float64{11, -1, 75}, [3]float64{5, 10, 15})
	if p != [3]float64{1, 19, 15} {
		Te.Errorf("wrong deperiodized point: %v", p)
	}
}

func TestRecenterMidCell(Te *testing.T) {
	fmt.Println("Recenter invariant test!")
	//a target straddling the boundary; after recentering its periodic
	//center of mass must sit exactly mid-cell.
	f0, _ := v3.NewMatrix([]float64{
		0.1, 2, 2,
		9.9, 2, 2,
		4.0, 8, 8,
	})
	cell := OrthoCell(10, 10, 10)
	source, err := NewMemSource(cell, 1.0, f0)
	if err != nil {
		Te.Fatal(err)
	}
	S, err := Open(source, testMol(3))
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	target := []int{0, 1}
	if err := S.SetRecenterTarget(target); err != nil {
		Te.Fatal(err)
	}
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	defer lock.Release()
	got := v3.Zeros(2)
	got.SomeVecs(lock.Coords(), target)
	com := comPeriodic(got, []float64{12.011, 12.011}, cell.Extent())
	for k := 0; k < 3; k++ {
		if math.Abs(com[k]-5) > 1e-4 {
			Te.Errorf("axis %d: target com at %v after recentering, want 5", k, com[k])
		}
	}
	//the two target atoms must still be 0.2 apart (as periodic
	//distance they always were).
	d := math.Abs(lock.Coords().At(0, 0) - lock.Coords().At(1, 0))
	d = math.Min(d, 10-d)
	if math.Abs(d-0.2) > 1e-9 {
		Te.Errorf("target deformed by recentering: distance %v", d)
	}
}

func TestRecenterNonPeriodic(Te *testing.T) {
	fmt.Println("Non-periodic recenter test!")
	f0, _ := v3.NewMatrix([]float64{
		1, 1, 1,
		3, 3, 3,
	})
	source, err := NewMemSource(Cell{}, 1.0, f0)
	if err != nil {
		Te.Fatal(err)
	}
	S, err := Open(source, testMol(2))
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	if err := S.SetRecenterTarget([]int{0, 1}); err != nil {
		Te.Fatal(err)
	}
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	defer lock.Release()
	//without a cell the target's center goes to the origin.
	if got := lock.Coords().At(0, 0); math.Abs(got+1) > 1e-9 {
		Te.Errorf("atom 0 at %v, want -1", got)
	}
	if got := lock.Coords().At(1, 0); math.Abs(got-1) > 1e-9 {
		Te.Errorf("atom 1 at %v, want 1", got)
	}
}

func TestStructureDeperiodize(Te *testing.T) {
	fmt.Println("Deperiodization test!")
	//a two-atom molecule split by the boundary, plus a loose atom.
	f0, _ := v3.NewMatrix([]float64{
		0.2, 5, 5,
		9.8, 5, 5,
		3.0, 3, 3,
	})
	mol := testMol(3)
	structures, err := StructuresFromBonds(3, [][2]int{{0, 1}})
	if err != nil {
		Te.Fatal(err)
	}
	if err := mol.SetStructures(structures); err != nil {
		Te.Fatal(err)
	}
	source, err := NewMemSource(OrthoCell(10, 10, 10), 1.0, f0)
	if err != nil {
		Te.Fatal(err)
	}
	S, err := Open(source, mol)
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	if err := S.SetDeperiodize(true); err != nil {
		Te.Fatal(err)
	}
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	defer lock.Release()
	d := math.Abs(lock.Coords().At(0, 0) - lock.Coords().At(1, 0))
	fmt.Println("bond length after deperiodizing:", d)
	if math.Abs(d-0.4) > 1e-9 {
		Te.Errorf("bond across the boundary is %v long, want 0.4", d)
	}
	//the loose atom is a size-1 structure and must not move.
	if got := lock.Coords().At(2, 0); got != 3.0 {
		Te.Errorf("loose atom moved to %v", got)
	}
}

//structures set on the molecule after the session is opened are picked
//up by SetDeperiodize.
func TestLateStructures(Te *testing.T) {
	fmt.Println("Late structures test!")
	f0, _ := v3.NewMatrix([]float64{
		0.2, 5, 5,
		9.8, 5, 5,
	})
	mol := testMol(2)
	source, err := NewMemSource(OrthoCell(10, 10, 10), 1.0, f0)
	if err != nil {
		Te.Fatal(err)
	}
	S, err := Open(source, mol)
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	structures, err := StructuresFromBonds(2, [][2]int{{0, 1}})
	if err != nil {
		Te.Fatal(err)
	}
	if err := mol.SetStructures(structures); err != nil {
		Te.Fatal(err)
	}
	if err := S.SetDeperiodize(true); err != nil {
		Te.Fatal(err)
	}
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	defer lock.Release()
	d := math.Abs(lock.Coords().At(0, 0) - lock.Coords().At(1, 0))
	if math.Abs(d-0.4) > 1e-9 {
		Te.Errorf("bond across the boundary is %v long, want 0.4", d)
	}
}

func TestDegenerateCellFallback(Te *testing.T) {
	fmt.Println("Degenerate cell fallback test!")
	f0, _ := v3.NewMatrix([]float64{
		0.2, 0, 0,
		9.8, 0, 0,
	})
	mol := testMol(2)
	structures, err := StructuresFromBonds(2, [][2]int{{0, 1}})
	if err != nil {
		Te.Fatal(err)
	}
	if err := mol.SetStructures(structures); err != nil {
		Te.Fatal(err)
	}
	//flagged periodic, but with a zero-volume basis: all the periodic
	//machinery must quietly stand down, and the frame still be served.
	bad := Cell{Basis: [9]float64{1, 0, 0, 2, 0, 0, 3, 0, 0}, Periodic: true}
	source, err := NewMemSource(bad, 1.0, f0)
	if err != nil {
		Te.Fatal(err)
	}
	S, err := Open(source, mol)
	if err != nil {
		Te.Fatal(err)
	}
	defer S.Close()
	if err := S.SetDeperiodize(true); err != nil {
		Te.Fatal(err)
	}
	lock, err := S.Frame(0)
	if err != nil {
		Te.Fatal(err)
	}
	defer lock.Release()
	if lock.Coords().At(0, 0) != 0.2 || lock.Coords().At(1, 0) != 9.8 {
		Te.Error("a degenerate cell was used for periodic math")
	}
}
