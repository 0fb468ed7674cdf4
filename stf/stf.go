/*
 * stf.go, part of gotraj.
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

//Package stf reads and writes the simple trajectory format: a
//compressed text stream with one fixed-point coordinate line per atom
//and a '*' line, carrying the box, between frames. A key=value header
//may precede everything; the "** natoms" line ends it. The compression
//is chosen from the last letter of the filename, as in stf.gz, stf.zst
//and so on, defaulting to zstd.
//
//Being a stream, the format has no frame index, so STF decompresses
//the whole trajectory on open and keeps each frame's text in memory;
//random access after that is cheap, but opening a huge trajectory is
//not. Use dcd when that matters.
package stf

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/lzw"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	traj "github.com/rmera/gotraj"
	v3 "github.com/rmera/gotraj/v3"
)

const lzwLitwidth int = 8

//STF gives random access to the frames of an stf file, which it holds
//decompressed in memory. It implements the Source interface of the
//parent package: hand it to traj.Open.
type STF struct {
	frames   [][]byte //the text of each frame, box line included
	natoms   int
	prec     int
	dt       float64
	filename string
}

//newDecompressor returns a reader for the compression format implied
//by the last letter of name.
func newDecompressor(name string, a io.Reader) (io.ReadCloser, error) {
	zreader := func(a io.Reader) (io.ReadCloser, error) {
		return flate.NewReader(a), nil
	}
	zstdreader := func(a io.Reader) (io.ReadCloser, error) {
		r, err := zstd.NewReader(a)
		if err != nil {
			return nil, err
		}
		return r.IOReadCloser(), nil
	}
	gzreader := func(a io.Reader) (io.ReadCloser, error) { return gzip.NewReader(a) }
	var AnyNewReader func(io.Reader) (io.ReadCloser, error)
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		AnyNewReader = func(a io.Reader) (io.ReadCloser, error) { return lzw.NewReader(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		AnyNewReader = gzreader
	case 'r':
		AnyNewReader = zreader
	default:
		AnyNewReader = zstdreader
	}
	return AnyNewReader(a)
}

//New opens an stf trajectory for random access, decompressing and
//indexing the whole of it. It returns the handle, a map with the
//file's metadata (or nil if there is none) and error or nil.
func New(name string) (*STF, map[string]string, error) {
	S := new(STF)
	S.natoms = -1
	S.prec = 2
	S.dt = 1.0
	S.filename = name
	var m map[string]string
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, Error{err.Error(), name, []string{"os.Open", "New"}, true}
	}
	defer f.Close()
	dec, err := newDecompressor(name, bufio.NewReader(f))
	if err != nil {
		return nil, nil, Error{"Can't read header " + err.Error(), name, []string{"New"}, true}
	}
	defer dec.Close()
	h := bufio.NewReader(dec)
	//the header: key=value lines until the "** natoms" mark.
	for {
		str, err := h.ReadString('\n')
		if err != nil {
			return nil, nil, Error{"Can't read header " + err.Error(), name, []string{"New"}, true}
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.Contains(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from '%s'", str), name, []string{"New"}, true}
			}
			S.natoms, err = strconv.Atoi(nat[1])
			if err != nil {
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from '%s': %s", nat[1], err.Error()), name, []string{"New"}, true}
			}
			break
		}
		kv := strings.Split(str, "=")
		if len(kv) != 2 {
			return nil, nil, Error{"Malformed header line: " + str, name, []string{"New"}, true}
		}
		if m == nil {
			m = make(map[string]string)
		}
		m[kv[0]] = kv[1]
	}
	if S.natoms <= 0 {
		return nil, nil, Error{WrongFormat + ": no atoms", name, []string{"New"}, true}
	}
	if m != nil {
		if p, ok := m["prec"]; ok && p != "2" {
			prec, err := strconv.Atoi(p)
			if err == nil {
				S.prec = prec
			} else {
				log.Printf("Invalid precision for trajectory %s. Will assume the default", S.filename)
			}
		}
		if d, ok := m["dt"]; ok {
			dt, err := strconv.ParseFloat(d, 64)
			if err == nil {
				S.dt = dt
			} else {
				log.Printf("Invalid dt for trajectory %s. Will assume the default", S.filename)
			}
		}
	}
	if err := S.slurp(h); err != nil {
		return nil, nil, err
	}
	return S, m, nil
}

//slurp reads every frame of the body, keeping the raw text.
func (S *STF) slurp(h *bufio.Reader) error {
	var cur bytes.Buffer
	lines := 0
	for {
		b, err := h.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(b) == 0 && lines == 0 {
				return nil //clean end right at a frame boundary
			}
			return Error{"Truncated frame: " + err.Error(), S.filename, []string{"slurp"}, true}
		}
		cur.Write(b)
		lines++
		if b[0] == '*' {
			if lines != S.natoms+1 {
				return Error{fmt.Sprintf("%s: frame %d has %d atoms, want %d", WrongFormat, len(S.frames), lines-1, S.natoms), S.filename, []string{"slurp"}, true}
			}
			frame := make([]byte, cur.Len())
			copy(frame, cur.Bytes())
			S.frames = append(S.frames, frame)
			cur.Reset()
			lines = 0
		}
	}
}

//Len returns the number of atoms per frame.
func (S *STF) Len() int { return S.natoms }

//NFrames returns the number of frames.
func (S *STF) NFrames() int { return len(S.frames) }

//FetchRaw returns the text of frame index, prefixed with the index
//itself so DecodeRaw can reconstruct the frame's time.
func (S *STF) FetchRaw(index int) ([]byte, error) {
	if index < 0 || index >= len(S.frames) {
		return nil, Error{fmt.Sprintf("frame %d of %d", index, len(S.frames)), S.filename, []string{"FetchRaw"}, true}
	}
	text := S.frames[index]
	blob := make([]byte, 8+len(text))
	binary.LittleEndian.PutUint64(blob, uint64(index))
	copy(blob[8:], text)
	return blob, nil
}

//DecodeRaw parses a blob from FetchRaw into frame.
func (S *STF) DecodeRaw(raw []byte, frame *traj.Frame) error {
	if len(raw) < 8 {
		return Error{WrongFormat + ": truncated frame record", S.filename, []string{"DecodeRaw"}, true}
	}
	index := int(binary.LittleEndian.Uint64(raw))
	frame.Natoms = S.natoms
	frame.Time = float64(index) * S.dt
	frame.Cell = traj.Cell{}
	var temp [3]float64
	rest := raw[8:]
	for i := 0; i < S.natoms; i++ {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			return Error{WrongFormat + ": truncated frame record", S.filename, []string{"DecodeRaw"}, true}
		}
		if err := coordsDecode(string(rest[:nl]), &temp, S.prec); err != nil {
			return Error{err.Error(), S.filename, []string{"DecodeRaw"}, true}
		}
		row := frame.Coords.RawRowView(i)
		row[0] = temp[0]
		row[1] = temp[1]
		row[2] = temp[2]
		rest = rest[nl+1:]
	}
	if len(rest) == 0 || rest[0] != '*' {
		return Error{"Can't read the frame termination mark", S.filename, []string{"DecodeRaw"}, true}
	}
	fields := strings.Fields(strings.TrimSpace(string(rest)))
	if len(fields) >= 10 { //the "*" and the 9 numbers
		var box [9]float64
		var errbox error
		for j, v := range fields[1:10] {
			box[j], errbox = strconv.ParseFloat(v, 64)
			if errbox != nil {
				break
			}
		}
		//a bad box is not worth failing the frame over, we just log
		//and serve it as non-periodic.
		if errbox != nil {
			log.Printf("Failed to read box in a frame from %s", S.filename)
		} else {
			frame.Cell = traj.NewCell(box[:])
		}
	}
	return nil
}

//Close releases the decompressed frames.
func (S *STF) Close() error {
	S.frames = nil
	return nil
}

func coordsEncode(f [3]float64, temp [3]int, prec int) string {
	p := 100.0
	if prec > 0 && prec != 2 { //2 is the current value, so we do nothing in that case
		p = math.Pow(10.0, float64(prec))
	}
	for i, v := range f {
		temp[i] = int(math.RoundToEven(v * p))
	}
	return fmt.Sprintf("%d %d %d\n", temp[0], temp[1], temp[2])
}

func coordsDecode(str string, temp *[3]float64, prec int) error {
	p := 100.0
	if prec > 0 && prec != 2 { //2 is just the current value, so we can save the operation
		p = math.Pow(10.0, float64(prec))
	}
	s := strings.Fields(str)
	if len(s) != 3 {
		return fmt.Errorf("Ill formated coordinates line in stf: %s", str)
	}
	for i, v := range s {
		f, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Can't parse coordinate %d (%s). Error: %s", i, v, err.Error())
		}
		temp[i] = float64(f) / p
	}
	return nil
}

//Write!

//Writer is an stf trajectory opened for writing. Unlike the reader it
//is a plain stream: frames go straight to the compressor.
type Writer struct {
	f         *os.File
	h         io.WriteCloser
	natoms    int
	filename  string
	writeable bool
	prec      int
}

//NewWriter creates an stf trajectory with natoms atoms per frame. The
//given header map, if any, is written as key=value lines; the "prec"
//and "dt" keys are meaningful to the reader. The compression is
//chosen from the last letter of the filename, and its level may be
//given for the formats that take one.
func NewWriter(name string, natoms int, header map[string]string, compressionLevel ...int) (*Writer, error) {
	var level int = 11 //For python compatibility
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	S := new(Writer)
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"os.Create", "NewWriter"}, true}
	}
	//flate and gzip only go up to 9
	clamped := level
	if clamped > flate.BestCompression {
		clamped = flate.BestCompression
	}
	zwriter := func(a io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(a, clamped)
	}
	gzipwriter := func(a io.Writer) (io.WriteCloser, error) { return gzip.NewWriterLevel(a, clamped) }
	zstdwriter := func(a io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(a, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	var AnyNewWriter func(io.Writer) (io.WriteCloser, error)
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		AnyNewWriter = func(a io.Writer) (io.WriteCloser, error) { return lzw.NewWriter(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		AnyNewWriter = gzipwriter
	case 'r':
		AnyNewWriter = zwriter
	default:
		AnyNewWriter = zstdwriter
	}
	S.h, err = AnyNewWriter(S.f)
	if err != nil {
		return nil, Error{"Can't set up compression: " + err.Error(), name, []string{"NewWriter"}, true}
	}
	S.natoms = natoms
	S.filename = name
	S.writeable = true
	S.prec = 2 //the default
	if header != nil {
		if p, ok := header["prec"]; ok && p != "2" {
			prec, err := strconv.Atoi(p)
			if err == nil {
				S.prec = prec
			} else {
				log.Printf("Invalid precision for trajectory %s. Will use the default", S.filename)
			}
		}
		headerstr := ""
		for k, v := range header {
			headerstr += fmt.Sprintf("%s=%v\n", k, v)
		}
		S.h.Write([]byte(headerstr))
	}
	S.h.Write([]byte(fmt.Sprintf("** %d\n", S.natoms)))
	return S, nil
}

//WNext writes the next frame. If a 9-element box is given, it goes
//into the frame's '*' line.
func (S *Writer) WNext(coord *v3.Matrix, box ...[]float64) error {
	if !S.writeable {
		return Error{TrajUnIniWrite, S.filename, []string{"WNext"}, true}
	}
	if coord == nil {
		return Error{NilCoordinates, S.filename, []string{"WNext"}, true}
	}
	v := coord.NVecs()
	if v != S.natoms {
		return Error{fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), S.filename, []string{"WNext"}, true}
	}
	var temp [3]int
	var floats [3]float64
	for i := 0; i < v; i++ {
		row := coord.RawRowView(i)
		floats[0] = row[0]
		floats[1] = row[1]
		floats[2] = row[2]
		S.h.Write([]byte(coordsEncode(floats, temp, S.prec)))
	}
	if len(box) > 0 && len(box[0]) >= 9 {
		b := box[0]
		S.h.Write([]byte(fmt.Sprintf("* %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f\n", b[0],
			b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])))
	} else {
		S.h.Write([]byte("*\n"))
	}
	return nil
}

//Len returns the number of atoms per frame.
func (S *Writer) Len() int { return S.natoms }

//Close flushes the compressor and closes the file. The Writer is
//unusable afterwards.
func (S *Writer) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	if err := S.h.Close(); err != nil {
		S.f.Close()
		return Error{err.Error(), S.filename, []string{"Close"}, true}
	}
	if err := S.f.Close(); err != nil {
		return Error{err.Error(), S.filename, []string{"Close"}, true}
	}
	return nil
}

//Errors

//Error is the general structure for stf trajectory errors. It
//fulfills traj.Error and traj.TrajError.
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("stf file %s error: %s", err.filename, err.message)
}

//Decorate Adds new information to the error
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

//Format returns the format of the file (always "stf") associated to the error
func (err Error) Format() string { return "stf" }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	NilCoordinates = "Given nil coordinates"
	WrongFormat    = "Wrong format in the STF file or frame"
)
