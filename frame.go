/*
 * frame.go, part of gotraj.
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
	v3 "github.com/rmera/gotraj/v3"
)

//Header carries the per-frame metadata produced by a Source on decode.
//It is copied by value into the cache slot, so it stays immutable from
//the consumer's point of view for as long as the frame is borrowed.
type Header struct {
	Natoms int     //atoms per frame; constant for a whole trajectory
	Time   float64 //simulation time of the frame, in whatever unit the format uses
	Cell   Cell    //the unit cell for this frame
}

//Frame is one decoded trajectory frame: its header plus the cartesian
//coordinates of every atom. Inside a session, every Frame is owned by
//exactly one cache slot and reused in place for the life of the
//session, so consumers only ever see one through a borrowed FrameLock
//or through a copy.
type Frame struct {
	Header
	Coords *v3.Matrix
}

//NewFrame returns a Frame with room for natoms atoms.
func NewFrame(natoms int) *Frame {
	return &Frame{Header{Natoms: natoms}, v3.Zeros(natoms)}
}
