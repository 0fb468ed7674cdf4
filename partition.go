/*
 * partition.go, part of gotraj.
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
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

//StructuresFromBonds partitions a molecule of natoms atoms into its
//covalently bonded structures, given its bond list: each returned
//element is the sorted set of atom indexes of one connected unit, and
//an atom with no bonds forms a unit of its own. The structures come
//sorted by their first atom, so the partition is deterministic. It
//returns an error if a bond mentions an atom out of range.
//
//The result is what Topology.SetStructures expects, the deperiodizer
//being the only consumer of the partition in this library.
func StructuresFromBonds(natoms int, bonds [][2]int) ([][]int, error) {
	if natoms <= 0 {
		return nil, CError{fmt.Sprintf("goTraj: nonsensical number of atoms: %d", natoms), []string{"StructuresFromBonds"}}
	}
	g := simple.NewUndirectedGraph()
	for i := 0; i < natoms; i++ {
		g.AddNode(simple.Node(i))
	}
	for bi, b := range bonds {
		if b[0] < 0 || b[0] >= natoms || b[1] < 0 || b[1] >= natoms {
			return nil, CError{fmt.Sprintf("goTraj: bond %d (%d-%d) out of range", bi, b[0], b[1]), []string{"StructuresFromBonds"}}
		}
		if b[0] == b[1] {
			continue //gonum panics on self-loops, and a self-bond means nothing here
		}
		g.SetEdge(simple.Edge{F: simple.Node(b[0]), T: simple.Node(b[1])})
	}
	comps := topo.ConnectedComponents(g)
	structures := make([][]int, 0, len(comps))
	for _, comp := range comps {
		s := make([]int, 0, len(comp))
		for _, node := range comp {
			s = append(s, int(node.ID()))
		}
		sort.Ints(s)
		structures = append(structures, s)
	}
	sort.Slice(structures, func(i, j int) bool { return structures[i][0] < structures[j][0] })
	return structures, nil
}
