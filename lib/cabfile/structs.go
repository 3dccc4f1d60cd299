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

import "time"

const Magic = 0x4643534d // MSCF

// Version 1.3 stored as minor byte then major byte
const Version = 0x0103

type CabinetFlag uint16

const (
	FlagPrevCabinet CabinetFlag = 1 << iota
	FlagNextCabinet
	FlagReservePresent
)

// Format ceilings
const (
	MaxFiles      = 0xFFFF
	MaxFileSize   = 0x7FFF8000
	MaxNameLength = 255
	maxCabinet    = 0xFFFFFFFF
)

const (
	headerSize     = 36
	folderSize     = 8
	fileFixedSize  = 16
	dataHeaderSize = 8
	reserveSize    = 4
)

type Header struct {
	Magic       uint32
	Reserved1   uint32
	TotalSize   uint32
	Reserved2   uint32
	OffsetFiles uint32
	Reserved3   uint32
	Version     uint16
	NumFolders  uint16
	NumFiles    uint16
	Flags       CabinetFlag
	SetID       uint16
	CabNumber   uint16
}

// ReserveHeader follows Header when FlagReservePresent is set
type ReserveHeader struct {
	HeaderSize uint16
	FolderSize uint8
	DataSize   uint8
}

type FolderHeader struct {
	Offset      uint32
	NumData     uint16
	Compression CompressionType
}

// FileHeader is the fixed part of a CFFILE record. The NUL-terminated name
// follows it on disk.
type FileHeader struct {
	Size         uint32
	FolderOffset uint32
	Folder       uint16
	Date         uint16
	Time         uint16
	Attributes   Attribute
}

type DataHeader struct {
	Checksum     uint32
	Compressed   uint16
	Uncompressed uint16
}

type Attribute uint16

const (
	AttrReadOnly Attribute = 0x01
	AttrHidden   Attribute = 0x02
	AttrSystem   Attribute = 0x04
	AttrArchive  Attribute = 0x20
	AttrExec     Attribute = 0x40
	AttrNameUTF  Attribute = 0x80

	// attributes a caller may set on an entry
	attrMask = AttrReadOnly | AttrHidden | AttrSystem | AttrArchive | AttrExec
)

// folder indexes with these values mark continuation from/to another cabinet
const folderContinued = 0xFFFD

// File is a decoded CFFILE record
type File struct {
	FileHeader
	Name string
}

// Modified returns the timestamp stored in the record
func (f *File) Modified() time.Time {
	return DecodeDateTime(f.Date, f.Time)
}

// Cabinet holds the tables of a parsed cabinet, without any file data
type Cabinet struct {
	Header        Header
	ReserveHeader ReserveHeader
	ReserveData   []byte
	Folders       []FolderHeader
	Files         []*File
}

// ExtractedFile is a single member returned by Extract
type ExtractedFile struct {
	Name       string
	Data       []byte
	Attributes Attribute
	Modified   time.Time
}
