//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package cabfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/sassoftware/cabtool/lib/readercounter"
)

// EncodeFile serializes a CFFILE record including its NUL-terminated name
func EncodeFile(f *File) []byte {
	buf := make([]byte, fileFixedSize, f.recordSize())
	binary.LittleEndian.PutUint32(buf[0:], f.Size)
	binary.LittleEndian.PutUint32(buf[4:], f.FolderOffset)
	binary.LittleEndian.PutUint16(buf[8:], f.Folder)
	binary.LittleEndian.PutUint16(buf[10:], f.Date)
	binary.LittleEndian.PutUint16(buf[12:], f.Time)
	binary.LittleEndian.PutUint16(buf[14:], uint16(f.Attributes))
	buf = append(buf, f.Name...)
	return append(buf, 0)
}

// DecodeFile parses a CFFILE record from the start of blob and returns it
// along with the number of bytes consumed
func DecodeFile(blob []byte) (*File, int, error) {
	r := bytes.NewReader(blob)
	f, err := readFile(r)
	if err != nil {
		return nil, 0, err
	}
	return f, len(blob) - r.Len(), nil
}

func (f *File) recordSize() int {
	return fileFixedSize + len(f.Name) + 1
}

func readFile(r io.Reader) (*File, error) {
	f := new(File)
	if err := binary.Read(r, binary.LittleEndian, &f.FileHeader); err != nil {
		return nil, readError("file record", err)
	}
	var name []byte
	for {
		c, err := readByte(r)
		if err != nil {
			return nil, readError("file name", err)
		}
		if c == 0 {
			break
		}
		if len(name) >= MaxNameLength {
			return nil, malformed("file name exceeds %d bytes", MaxNameLength)
		}
		name = append(name, c)
	}
	f.Name = string(name)
	return f, nil
}

func decodeHeader(raw []byte) Header {
	le := binary.LittleEndian
	return Header{
		Magic:       le.Uint32(raw[0:]),
		Reserved1:   le.Uint32(raw[4:]),
		TotalSize:   le.Uint32(raw[8:]),
		Reserved2:   le.Uint32(raw[12:]),
		OffsetFiles: le.Uint32(raw[16:]),
		Reserved3:   le.Uint32(raw[20:]),
		Version:     le.Uint16(raw[24:]),
		NumFolders:  le.Uint16(raw[26:]),
		NumFiles:    le.Uint16(raw[28:]),
		Flags:       CabinetFlag(le.Uint16(raw[30:])),
		SetID:       le.Uint16(raw[32:]),
		CabNumber:   le.Uint16(raw[34:]),
	}
}

// ReadCabinet parses the header, folder and file tables from the start of a
// cabinet. Data blocks are not read. r may be consumed past the end of the
// file table.
func ReadCabinet(r io.Reader) (*Cabinet, error) {
	return readTables(readercounter.New(bufio.NewReader(r)))
}

func readTables(r *readercounter.ReaderCounter) (*Cabinet, error) {
	cab := new(Cabinet)
	var raw [headerSize]byte
	n, err := io.ReadFull(r, raw[:])
	if n < 4 || binary.LittleEndian.Uint32(raw[:]) != Magic {
		return nil, ErrInvalidSignature
	} else if err != nil {
		return nil, readError("cabinet header", err)
	}
	cab.Header = decodeHeader(raw[:])
	hdr := &cab.Header
	if hdr.Version>>8 != Version>>8 {
		return nil, malformed("unsupported cabinet version %d.%d", hdr.Version>>8, hdr.Version&0xff)
	}
	if hdr.Flags&(FlagPrevCabinet|FlagNextCabinet) != 0 {
		return nil, malformed("multipart cab files are not supported")
	} else if hdr.Flags&^FlagReservePresent != 0 {
		return nil, malformed("unsupported flags %#x in cabinet header", uint16(hdr.Flags))
	}
	if hdr.Flags&FlagReservePresent != 0 {
		if err := binary.Read(r, binary.LittleEndian, &cab.ReserveHeader); err != nil {
			return nil, readError("reserve header", err)
		}
		cab.ReserveData = make([]byte, cab.ReserveHeader.HeaderSize)
		if _, err := io.ReadFull(r, cab.ReserveData); err != nil {
			return nil, readError("reserve data", err)
		}
	}
	cab.Folders = make([]FolderHeader, hdr.NumFolders)
	for i := range cab.Folders {
		if err := binary.Read(r, binary.LittleEndian, &cab.Folders[i]); err != nil {
			return nil, readError("folder record", err)
		}
		if err := r.Discard(int64(cab.ReserveHeader.FolderSize)); err != nil {
			return nil, readError("folder reserve", err)
		}
	}
	if r.N > int64(hdr.OffsetFiles) {
		return nil, malformed("file table offset %d overlaps folder table ending at %d", hdr.OffsetFiles, r.N)
	}
	if err := r.Discard(int64(hdr.OffsetFiles) - r.N); err != nil {
		return nil, readError("file table", err)
	}
	cab.Files = make([]*File, hdr.NumFiles)
	for i := range cab.Files {
		f, err := readFile(r)
		if err != nil {
			return nil, err
		}
		if f.Folder >= folderContinued {
			return nil, malformed("file %q continues across cabinets, which is not supported", f.Name)
		} else if int(f.Folder) >= len(cab.Folders) {
			return nil, malformed("file %q refers to folder %d of %d", f.Name, f.Folder, len(cab.Folders))
		}
		cab.Files[i] = f
	}
	return cab, nil
}

// readByte avoids buffering so r is left positioned just past the terminator
func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var one [1]byte
	_, err := io.ReadFull(r, one[:])
	return one[0], err
}
