/*
 * interfaces.go, part of gotraj.
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

//Source is the capability interface for a random-access frame store:
//anything that can produce the raw data for the ith frame of a
//trajectory and decode that data into coordinates. The format behind a
//Source (and the dispatch by file extension that selects it) is not
//this library's business; the dcd and stf subpackages provide two
//implementations and callers can bring their own.
//
//A Source need not be safe for fully concurrent use: the frame cache
//serializes all calls for any given frame index. FetchRaw and DecodeRaw
//may still be called for *different* indexes at the same time, so
//implementations must not share mutable decode state across indexes.
type Source interface {

	//Len returns the number of atoms per frame.
	Len() int

	//NFrames returns the number of frames in the trajectory.
	NFrames() int

	//FetchRaw returns an opaque blob with everything needed to decode
	//frame index. The blob layout is private to the implementation.
	FetchRaw(index int) ([]byte, error)

	//DecodeRaw decodes a blob previously returned by FetchRaw into
	//frame, filling the header and the coordinates in place. The given
	//frame always has room for Len() atoms.
	DecodeRaw(raw []byte, frame *Frame) error

	//Close releases the store. The Source is unusable afterwards.
	Close() error
}

//Atomer is the basic interface for a topology.
type Atomer interface {

	//Atom returns the Atom corresponding to the index i
	//of the Atom slice in the Topology. Should panic if
	//out of range.
	Atom(i int) *Atom

	Len() int
}

//Masser can return a slice with the masses of each atom in the reference.
type Masser interface {

	//Returns a slice with the masses of all atoms
	Masses() ([]float64, error)
}

//Errors

//Error is the interface for errors that all packages in this library
//implement. The Decorate method allows to add and retrieve info from
//the error, without changing its type or wrapping it around something
//else. If passed an empty string, Decorate just returns the current
//decoration slice, without adding anything.
type Error interface {
	Error() string
	Decorate(string) []string
}

//TrajError is the interface for errors in trajectory files. The
//dcd and stf subpackages return these.
type TrajError interface {
	Error
	Critical() bool
	FileName() string
	Format() string
}
