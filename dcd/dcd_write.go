/*
 * dcd_write.go, part of gotraj.
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

package dcd

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	v3 "github.com/rmera/gotraj/v3"
)

//DCDW is a dcd trajectory opened for writing. Every frame it writes
//carries a unit cell block (zeroed when no box is given), so the
//resulting file is random-access friendly.
type DCDW struct {
	natoms    int32
	frames    int32
	writable  bool
	filename  string
	dcd       *os.File
	dcdFields [][]float32
	endian    binary.ByteOrder
}

//NewWriter initializes a dcd trajectory for writing, with natoms
//atoms per frame and dt time units between frames.
func NewWriter(filename string, natoms int, dt float64) (*DCDW, error) {
	D := new(DCDW)
	D.natoms = int32(natoms)
	D.filename = filename
	if err := D.initWrite(filename, float32(dt)); err != nil {
		return nil, errDecorate(err, "NewWriter")
	}
	return D, nil
}

func (D *DCDW) initWrite(name string, dt float32) error {
	wrapbinerr := func(err error) error {
		return Error{err.Error(), D.filename, []string{"binary.Write", "initWrite"}, true}
	}
	if D.natoms <= 0 {
		return Error{"the number of atoms is not set", D.filename, []string{"initWrite"}, true}
	}
	D.endian = binary.LittleEndian
	var err error
	D.dcd, err = os.Create(name)
	if err != nil {
		return Error{err.Error(), D.filename, []string{"os.Create", "initWrite"}, true}
	}
	if err := binary.Write(D.dcd, D.endian, int32(84)); err != nil {
		return wrapbinerr(err)
	}
	//the magic number.
	if err := binary.Write(D.dcd, D.endian, []byte("CORD")); err != nil {
		return wrapbinerr(err)
	}
	//the frames in the file go here; updated after every write.
	if err := binary.Write(D.dcd, D.endian, int32(0)); err != nil {
		return wrapbinerr(err)
	}
	//initial step
	if err := binary.Write(D.dcd, D.endian, int32(0)); err != nil {
		return wrapbinerr(err)
	}
	//step interval (nsavc)
	if err := binary.Write(D.dcd, D.endian, int32(1)); err != nil {
		return wrapbinerr(err)
	}
	//5 zeros plus natom-nfreat
	for i := 0; i < 6; i++ {
		if err := binary.Write(D.dcd, D.endian, int32(0)); err != nil {
			return wrapbinerr(err)
		}
	}
	//delta time
	if err := binary.Write(D.dcd, D.endian, dt); err != nil {
		return wrapbinerr(err)
	}
	//unit cell present in every frame
	if err := binary.Write(D.dcd, D.endian, int32(1)); err != nil {
		return wrapbinerr(err)
	}
	//8 zeros for charmm
	for i := 0; i < 8; i++ {
		if err := binary.Write(D.dcd, D.endian, int32(0)); err != nil {
			return wrapbinerr(err)
		}
	}
	//charmm version, let's say, 24
	if err := binary.Write(D.dcd, D.endian, int32(24)); err != nil {
		return wrapbinerr(err)
	}
	//don't ask me why
	if err := binary.Write(D.dcd, D.endian, int32(84)); err != nil {
		return wrapbinerr(err)
	}
	//same as above
	if err := binary.Write(D.dcd, D.endian, int32(244)); err != nil {
		return wrapbinerr(err)
	}
	//how many units of mAXTITLE does the title have?
	var ntitle int32 = 2 //just a dummy title.
	if err := binary.Write(D.dcd, D.endian, ntitle); err != nil {
		return wrapbinerr(err)
	}
	title := make([]byte, 2*mAXTITLE)
	for j := range title {
		title[j] = byte('l')
	}
	title[len(title)-1] = byte('\000') //null-ended
	if err := binary.Write(D.dcd, D.endian, title); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, int32(244)); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, int32(4)); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, D.natoms); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, int32(4)); err != nil {
		return wrapbinerr(err)
	}
	D.writable = true
	return nil
}

//WNext writes the next frame to the trajectory. If a 9-element box is
//given, its diagonal goes into the frame's cell block; otherwise the
//cell is written as zeros.
func (D *DCDW) WNext(towrite *v3.Matrix, box ...[]float64) error {
	if !D.writable {
		return Error{TrajUnIni, D.filename, []string{"WNext"}, true}
	}
	if towrite == nil {
		return Error{NilCoordinates, D.filename, []string{"WNext"}, true}
	}
	if int32(towrite.NVecs()) != D.natoms {
		return Error{"Coordinates don't match the trajectory size", D.filename, []string{"WNext"}, true}
	}
	if D.dcdFields == nil {
		D.dcdFields = make([][]float32, 3)
		for k := range D.dcdFields {
			D.dcdFields[k] = make([]float32, int(D.natoms))
		}
	}
	for i := 0; i < int(D.natoms); i++ {
		row := towrite.RawRowView(i)
		D.dcdFields[0][i] = float32(row[0])
		D.dcdFields[1][i] = float32(row[1])
		D.dcdFields[2][i] = float32(row[2])
	}
	var cell [6]float64
	if len(box) > 0 && len(box[0]) >= 9 {
		//XTLABC layout, see DecodeRaw.
		cell[0] = box[0][0]
		cell[2] = box[0][4]
		cell[5] = box[0][8]
	}
	if err := D.wnextRaw(D.dcdFields, cell); err != nil {
		return errDecorate(err, "WNext")
	}
	D.frames++
	if err := D.updateFrames(); err != nil {
		return errDecorate(err, "WNext")
	}
	return nil
}

func (D *DCDW) wnextRaw(blocks [][]float32, cell [6]float64) error {
	if err := binary.Write(D.dcd, D.endian, int32(48)); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Write", "wnextRaw"}, true}
	}
	for _, v := range cell {
		if err := binary.Write(D.dcd, D.endian, math.Float64bits(v)); err != nil {
			return Error{err.Error(), D.filename, []string{"binary.Write", "wnextRaw"}, true}
		}
	}
	if err := binary.Write(D.dcd, D.endian, int32(48)); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Write", "wnextRaw"}, true}
	}
	for k := 0; k < 3; k++ {
		if err := D.writeFloat32Block(blocks[k]); err != nil {
			return errDecorate(err, "wnextRaw")
		}
	}
	return nil
}

//Writes a block of float32s to the file, framed by its size.
func (D *DCDW) writeFloat32Block(block []float32) error {
	var blocksize int32 = int32(len(block)) * 4
	if err := binary.Write(D.dcd, D.endian, blocksize); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Write", "writeFloat32Block"}, true}
	}
	if err := binary.Write(D.dcd, D.endian, block); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Write", "writeFloat32Block"}, true}
	}
	if err := binary.Write(D.dcd, D.endian, blocksize); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Write", "writeFloat32Block"}, true}
	}
	return nil
}

//DCD requires the number of frames at the beginning of the file.
func (D *DCDW) updateFrames() error {
	currentoffset, err := D.dcd.Seek(0, io.SeekCurrent) //we'll need it to go back
	if err != nil {
		return Error{err.Error(), D.filename, []string{"dcd.Seek", "updateFrames"}, true}
	}
	//the count sits right after the initial 84 and the magic number.
	if _, err := D.dcd.Seek(8, io.SeekStart); err != nil {
		return Error{err.Error(), D.filename, []string{"dcd.Seek", "updateFrames"}, true}
	}
	if err := binary.Write(D.dcd, D.endian, D.frames); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Write", "updateFrames"}, true}
	}
	if _, err := D.dcd.Seek(currentoffset, io.SeekStart); err != nil {
		return Error{err.Error(), D.filename, []string{"dcd.Seek", "updateFrames"}, true}
	}
	return nil
}

//Len returns the number of atoms per frame.
func (D *DCDW) Len() int { return int(D.natoms) }

//Close closes the trajectory. The writer is unusable afterwards.
func (D *DCDW) Close() error {
	if !D.writable {
		return nil
	}
	D.writable = false
	if err := D.dcd.Close(); err != nil {
		return Error{err.Error(), D.filename, []string{"Close"}, true}
	}
	return nil
}
