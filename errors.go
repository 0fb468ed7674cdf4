/*
 * errors.go, part of gotraj.
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

import "strings"

//The conditions a caller may want to tell apart are identified by the
//message constants below: compare CError.Message against them. A
//degenerate unit cell is deliberately absent from the list; it is
//handled internally by falling back to non-periodic math and is never
//surfaced as an error.
const (
	AtomCountMismatch = "goTraj: trajectory atom count doesn't match the molecule"
	StoreOpenError    = "goTraj: the backing frame store can't be used"
	IndexOutOfRange   = "goTraj: frame index out of range"
	CacheExhausted    = "goTraj: every cache slot is locked by a reader"
	DecodeFailed      = "goTraj: couldn't decode the requested frame"
	SessionClosed     = "goTraj: operation on a closed session"
	NilData           = "goTraj: nil data given"
)

//CError is the concrete error type of the traj package. It fulfills
//the Error interface of this library.
type CError struct {
	msg  string
	deco []string
}

func (err CError) Error() string { return err.msg }

//Message returns the base message of the error, without decorations,
//so it can be compared against the exported message constants.
func (err CError) Message() string { return err.msg }

//Decorate adds the dec string to the error, if not empty, and returns
//the current decoration slice.
func (err CError) Decorate(dec string) []string {
	//Even though this method does not use a pointer as a receiver, and tries to alter the receiver,
	//it should work, since err.deco is a slice, and hence a pointer itself.
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//errDecorate asserts that err implements Error and decorates it with
//the caller's name before returning it. Used when passing errors up.
func errDecorate(err error, caller string) error {
	err2, ok := err.(Error)
	if !ok {
		return CError{err.Error(), []string{caller}}
	}
	err2.Decorate(caller)
	return err2
}

//IsMessage reports whether err is a CError carrying the given base
//message. Some errors append the underlying cause after the base
//message, so the comparison is on the prefix.
func IsMessage(err error, message string) bool {
	ce, ok := err.(CError)
	return ok && strings.HasPrefix(ce.msg, message)
}
