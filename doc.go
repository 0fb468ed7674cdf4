/*
 * doc.go, part of gotraj.
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

/*Package traj serves molecular dynamics trajectory frames with random
access, post-processing and caching.

A Session joins a frame Source (the dcd and stf subpackages provide
two, MemSource a third) with the Topology of the simulated system. Its
frames come out of a bounded cache of preallocated slots: a frame
requested by many goroutines at once is decoded exactly once, a
borrowed frame is never evicted or overwritten, and once warm no
per-frame memory is allocated. Frames can be recentered on the center
of mass of a chosen atom set and each connected structure of the
molecule can be made whole across the periodic boundary; both
transformations happen on decode, so cached frames are always served
fully processed.

Coordinates use the v3 subpackage, a thin wrapper over gonum dense
matrices with one row per atom.*/
package traj
