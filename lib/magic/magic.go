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

package magic

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCAB
	FileTypeZIP
	FileTypeJAR
	FileTypePECOFF
	FileTypeMSI
	FileTypeGzip
	FileTypeXZ
	FileTypeRPM
	FileTypeDEB
	FileTypePGP
)

var typeNames = map[FileType]string{
	FileTypeCAB:    "cabinet",
	FileTypeZIP:    "ZIP archive",
	FileTypeJAR:    "Java archive",
	FileTypePECOFF: "PE executable",
	FileTypeMSI:    "MSI package",
	FileTypeGzip:   "gzip stream",
	FileTypeXZ:     "xz stream",
	FileTypeRPM:    "RPM package",
	FileTypeDEB:    "Debian package",
	FileTypePGP:    "PGP data",
}

func (t FileType) String() string {
	if name := typeNames[t]; name != "" {
		return name
	}
	return "unknown file"
}

const sniffSize = 1024

// Detect reads the start of r and guesses what kind of file it is
func Detect(r io.Reader) FileType {
	var buf [sniffSize]byte
	n, _ := io.ReadFull(r, buf[:])
	return detect(buf[:n])
}

// Sniff is like Detect but leaves the peeked bytes in br
func Sniff(br *bufio.Reader) FileType {
	blob, _ := br.Peek(sniffSize)
	return detect(blob)
}

func detect(blob []byte) FileType {
	switch {
	case bytes.HasPrefix(blob, []byte("MSCF\x00\x00\x00\x00")):
		return FileTypeCAB
	case bytes.HasPrefix(blob, []byte{0xed, 0xab, 0xee, 0xdb}):
		return FileTypeRPM
	case bytes.HasPrefix(blob, []byte("!<arch>\ndebian")):
		return FileTypeDEB
	case bytes.HasPrefix(blob, []byte("-----BEGIN PGP")),
		bytes.HasPrefix(blob, []byte{0x89, 0x01}),
		bytes.HasPrefix(blob, []byte{0xc2, 0xc0}):
		return FileTypePGP
	case bytes.HasPrefix(blob, []byte{0x50, 0x4b, 0x03, 0x04}):
		if len(blob) >= 30 {
			fnLen := int(binary.LittleEndian.Uint16(blob[26:28]))
			if len(blob) >= 32+fnLen && blob[31+fnLen] == 0xca && blob[30+fnLen] == 0xfe {
				return FileTypeJAR
			}
		}
		if bytes.Contains(blob, []byte("META-INF/")) {
			return FileTypeJAR
		}
		return FileTypeZIP
	case bytes.HasPrefix(blob, []byte{0x1f, 0x8b}):
		return FileTypeGzip
	case bytes.HasPrefix(blob, []byte("\xfd7zXZ\x00")):
		return FileTypeXZ
	case bytes.HasPrefix(blob, []byte("MZ")) && len(blob) >= 0x40:
		reloc := int(binary.LittleEndian.Uint16(blob[0x3c:0x3e]))
		if len(blob) >= reloc+4 && bytes.Equal(blob[reloc:reloc+4], []byte("PE\x00\x00")) {
			return FileTypePECOFF
		}
	case bytes.HasPrefix(blob, []byte{0xd0, 0xcf, 0x11, 0xe0}):
		return FileTypeMSI
	}
	return FileTypeUnknown
}
