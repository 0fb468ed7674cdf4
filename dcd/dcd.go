/*
 * dcd.go, part of gotraj.
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

//Package dcd provides random access to Charmm/NAMD binary
//trajectories. Only Charmm-flavored files (and those written by
//NAMD>=2.1) are supported, with no fixed atoms and no 4th dimension:
//those restrictions are what make every frame the same size on disk,
//which is what random access needs. Unit cells are taken as
//rectangular; the angle information in the file is ignored.
package dcd

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	traj "github.com/rmera/gotraj"
)

const mAXTITLE int32 = 80

//DCD gives random access to the frames of a dcd file. It implements
//the Source interface of the parent package: hand it to traj.Open.
//ReadAt is used throughout, so fetches for different frames may run
//concurrently.
type DCD struct {
	natoms    int32
	nframes   int
	delta     float32 //time between frames, Charmm units
	cellblock bool    //frames carry a unit cell block
	bodyoff   int64   //where the first frame starts
	framesize int64
	filename  string
	dcd       *os.File
	endian    binary.ByteOrder
}

//New opens filename and parses its header. It supports big and little
//endianness, but only Charmm-style files without fixed atoms.
func New(filename string) (*DCD, error) {
	D := new(DCD)
	D.filename = filename
	if err := D.initRead(filename); err != nil {
		return nil, err
	}
	return D, nil
}

func (D *DCD) initRead(name string) error {
	D.endian = binary.LittleEndian
	var err error
	D.dcd, err = os.Open(name)
	if err != nil {
		return Error{err.Error(), D.filename, []string{"os.Open", "initRead"}, true}
	}
	ok := false
	defer func() {
		if !ok {
			D.dcd.Close()
		}
	}()
	var check int32
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	//the first thing in the file is an 84. If we don't see it, the
	//file is big endian.
	if check != 84 {
		D.endian = binary.BigEndian
	}
	//then the magic number "CORD".
	magic := make([]byte, 4)
	if err := binary.Read(D.dcd, D.endian, magic); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if string(magic) != "CORD" {
		return Error{WrongFormat + ": no CORD magic number", D.filename, []string{"initRead"}, true}
	}
	//A big chunk with several fields we want.
	buf := make([]byte, 80)
	if err := binary.Read(D.dcd, D.endian, buf); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	//X-plor sets the last int to zero, Charmm to its version number.
	if D.endian.Uint32(buf[76:]) == 0 {
		return Error{"X-plor DCD not supported", D.filename, []string{"initRead"}, true}
	}
	headerframes := int32(D.endian.Uint32(buf[0:]))
	if fixed := int32(D.endian.Uint32(buf[32:])); fixed != 0 {
		return Error{"Fixed atoms not supported", D.filename, []string{"initRead"}, true}
	}
	D.delta = math.Float32frombits(D.endian.Uint32(buf[36:]))
	D.cellblock = D.endian.Uint32(buf[40:]) != 0
	if D.endian.Uint32(buf[44:]) == 1 {
		return Error{"4-dimensional trajectories not supported", D.filename, []string{"initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check != 84 {
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	//the title: some units of mAXTITLE bytes.
	var ntitle int32
	if err := binary.Read(D.dcd, D.endian, &ntitle); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	title := make([]byte, mAXTITLE*ntitle)
	if err := binary.Read(D.dcd, D.endian, title); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check != 4 { //one must read a 4 before the natoms
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &D.natoms); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check != 4 { //and one more 4
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	if D.natoms <= 0 {
		return Error{WrongFormat + ": no atoms", D.filename, []string{"initRead"}, true}
	}
	D.bodyoff, err = D.dcd.Seek(0, io.SeekCurrent)
	if err != nil {
		return Error{err.Error(), D.filename, []string{"dcd.Seek", "initRead"}, true}
	}
	//a frame is an optional cell block plus the X, Y and Z blocks,
	//each framed by its byte size.
	D.framesize = 3 * (8 + int64(D.natoms)*4)
	if D.cellblock {
		D.framesize += 8 + 48
	}
	info, err := D.dcd.Stat()
	if err != nil {
		return Error{err.Error(), D.filename, []string{"dcd.Stat", "initRead"}, true}
	}
	body := info.Size() - D.bodyoff
	if body < 0 || body%D.framesize != 0 {
		return Error{fmt.Sprintf("%s: %d leftover bytes after the header", WrongFormat, body%D.framesize), D.filename, []string{"initRead"}, true}
	}
	D.nframes = int(body / D.framesize)
	//the frame count in the header is not always maintained, so the
	//file size decides; when the header claims fewer frames, trust it,
	//the extra bytes may be a frame only partially written.
	if headerframes > 0 && int(headerframes) < D.nframes {
		D.nframes = int(headerframes)
	}
	ok = true
	return nil
}

//Len returns the number of atoms per frame.
func (D *DCD) Len() int { return int(D.natoms) }

//NFrames returns the number of frames in the file.
func (D *DCD) NFrames() int { return D.nframes }

//FetchRaw reads the on-disk record of frame index and returns it
//prefixed with the index itself, so DecodeRaw can reconstruct the
//frame's time.
func (D *DCD) FetchRaw(index int) ([]byte, error) {
	if index < 0 || index >= D.nframes {
		return nil, Error{fmt.Sprintf("frame %d of %d", index, D.nframes), D.filename, []string{"FetchRaw"}, true}
	}
	blob := make([]byte, 8+D.framesize)
	binary.LittleEndian.PutUint64(blob, uint64(index))
	if _, err := D.dcd.ReadAt(blob[8:], D.bodyoff+int64(index)*D.framesize); err != nil {
		return nil, Error{err.Error(), D.filename, []string{"dcd.ReadAt", "FetchRaw"}, true}
	}
	return blob, nil
}

//DecodeRaw parses a blob from FetchRaw into frame.
func (D *DCD) DecodeRaw(raw []byte, frame *traj.Frame) error {
	if int64(len(raw)) != 8+D.framesize {
		return Error{WrongFormat + ": truncated frame record", D.filename, []string{"DecodeRaw"}, true}
	}
	index := int(binary.LittleEndian.Uint64(raw))
	b := raw[8:]
	frame.Natoms = int(D.natoms)
	frame.Time = float64(index) * float64(D.delta)
	frame.Cell = traj.Cell{}
	if D.cellblock {
		if int32(D.endian.Uint32(b)) != 48 || int32(D.endian.Uint32(b[52:])) != 48 {
			return Error{SecurityCheckFailed + " for the cell block", D.filename, []string{"DecodeRaw"}, true}
		}
		//Charmm XTLABC order: the cell sides are the 1st, 3rd and 6th
		//doubles; the rest are angle cosines, which we don't use.
		x := math.Float64frombits(D.endian.Uint64(b[4:]))
		y := math.Float64frombits(D.endian.Uint64(b[4+2*8:]))
		z := math.Float64frombits(D.endian.Uint64(b[4+5*8:]))
		frame.Cell = traj.OrthoCell(x, y, z)
		b = b[56:]
	}
	want := D.natoms * 4
	for k := 0; k < 3; k++ {
		if int32(D.endian.Uint32(b)) != want {
			return Error{SecurityCheckFailed + " opening a coordinate block", D.filename, []string{"DecodeRaw"}, true}
		}
		b = b[4:]
		for i := 0; i < int(D.natoms); i++ {
			frame.Coords.Set(i, k, float64(math.Float32frombits(D.endian.Uint32(b[i*4:]))))
		}
		b = b[want:]
		if int32(D.endian.Uint32(b)) != want {
			return Error{SecurityCheckFailed + " closing a coordinate block", D.filename, []string{"DecodeRaw"}, true}
		}
		b = b[4:]
	}
	return nil
}

//Close closes the underlying file.
func (D *DCD) Close() error {
	if D.dcd == nil {
		return nil
	}
	err := D.dcd.Close()
	D.dcd = nil
	if err != nil {
		return Error{err.Error(), D.filename, []string{"Close"}, true}
	}
	return nil
}

//Errors

//errDecorate asserts that the error implements traj.Error and
//decorates it with the caller's name before returning it.
func errDecorate(err error, caller string) error {
	err2 := err.(traj.Error)
	err2.Decorate(caller)
	return err2
}

//Error is the general structure for DCD trajectory errors. It
//fulfills traj.Error and traj.TrajError.
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("dcd file %s error: %s", err.filename, err.message)
}

//Decorate adds new information to the error
func (E Error) Decorate(deco string) []string {
	//Even though this method does not use a pointer as a receiver, and tries to alter the receiver,
	//it should work, since E.deco is a slice, and hence a pointer itself.
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//FileName returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

//Format returns the format of the file (always "dcd") associated to the error
func (err Error) Format() string { return "dcd" }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIni           = "Traj object uninitialized"
	WrongFormat         = "Wrong format in the DCD file or frame"
	SecurityCheckFailed = "Failed security check"
	NilCoordinates      = "Given nil coordinates"
	NotEnoughSpace      = "Not enough space in passed blocks"
)
