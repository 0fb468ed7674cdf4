/*
 * topology.go, part of gotraj.
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

import "fmt"

//Atom contains the static information for one atom. Only what frame
//serving needs is kept here: reading full topologies from molecule
//files is somebody else's job.
type Atom struct {
	Name    string
	Id      int
	Molname string
	Molid   int
	Chain   byte
	Mass    float64
	Symbol  string
}

//Topology is the per-molecule information which is not expected to
//change in time: the atoms, and the partition of the molecule into
//covalently bonded structures, used when deperiodizing.
type Topology struct {
	Atoms      []*Atom
	structures [][]int
}

//NewTopology makes a topology from the given atoms. It returns an
//error if ats is nil.
func NewTopology(ats []*Atom) (*Topology, error) {
	if ats == nil {
		return nil, CError{NilData, []string{"NewTopology"}}
	}
	top := new(Topology)
	top.Atoms = ats
	return top, nil
}

//Atom returns the Atom corresponding to the index i of the Atom slice
//in the Topology. Panics if out of range.
func (T *Topology) Atom(i int) *Atom {
	if i >= T.Len() {
		panic("Topology: Requested Atom out of bounds")
	}
	return T.Atoms[i]
}

//Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	return len(T.Atoms)
}

//Masses returns a slice with the masses of all atoms, and an error if
//any of the masses has not been obtained.
func (T *Topology) Masses() ([]float64, error) {
	mass := make([]float64, T.Len())
	for i := 0; i < T.Len(); i++ {
		thisatom := T.Atom(i)
		if thisatom.Mass <= 0 {
			return nil, CError{fmt.Sprintf("goTraj: not all the masses have been obtained: %d %v", i, thisatom), []string{"Masses"}}
		}
		mass[i] = thisatom.Mass
	}
	return mass, nil
}

//FillMasses assigns masses from the element symbols to every atom
//that doesn't have one yet. It returns an error naming the first
//symbol it doesn't know, if any, after assigning all the ones it does.
func (T *Topology) FillMasses() error {
	var err error
	for _, at := range T.Atoms {
		if at.Mass > 0 {
			continue
		}
		m, ok := symbolMass[at.Symbol]
		if !ok {
			if err == nil {
				err = CError{fmt.Sprintf("goTraj: no mass known for symbol %q", at.Symbol), []string{"FillMasses"}}
			}
			continue
		}
		at.Mass = m
	}
	return err
}

//SetStructures sets the partition of the molecule into bonded
//structures: each element of structures is a set of atom indexes
//forming one covalently connected unit. It returns an error if any
//index is out of range. The slices are kept, not copied.
func (T *Topology) SetStructures(structures [][]int) error {
	n := T.Len()
	for si, s := range structures {
		for _, a := range s {
			if a < 0 || a >= n {
				return CError{fmt.Sprintf("goTraj: structure %d contains atom index %d, out of range", si, a), []string{"SetStructures"}}
			}
		}
	}
	T.structures = structures
	return nil
}

//Structures returns the partition of the molecule into bonded
//structures, or nil if none has been set.
func (T *Topology) Structures() [][]int {
	return T.structures
}
