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
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	ulzxz "github.com/ulikunitz/xz"
	"github.com/xi2/xz"
)

type CompressionType uint16

const (
	CompressNone CompressionType = iota
	CompressMSZIP
	CompressQuantum
	CompressLZX

	// upper bits carry Quantum/LZX window parameters in third-party cabinets
	compressMask CompressionType = 0x000f
)

const (
	noneChunkSize  = 0xFFFF
	otherChunkSize = 0x8000
)

var compressionNames = []string{
	CompressNone:    "none",
	CompressMSZIP:   "mszip",
	CompressQuantum: "quantum",
	CompressLZX:     "lzx",
}

func (c CompressionType) String() string {
	if t := c & compressMask; int(t) < len(compressionNames) {
		return compressionNames[t]
	}
	return fmt.Sprintf("unknown(%d)", uint16(c))
}

// ParseCompression maps a name such as "mszip" to its folder type tag
func ParseCompression(name string) (CompressionType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return CompressNone, nil
	}
	for i, n := range compressionNames {
		if n == name {
			return CompressionType(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported compression type %q", name)
}

// A codec turns one chunk of at most chunkSize bytes into a self-contained
// CFDATA payload and back again.
type codec struct {
	chunkSize int
	encode    func(src []byte, level int) ([]byte, error)
	// history holds the previous block's output within the same folder
	decode func(payload []byte, size int, history []byte) ([]byte, error)
}

var codecs = []codec{
	CompressNone:    {noneChunkSize, storeEncode, storeDecode},
	CompressMSZIP:   {otherChunkSize, mszipEncode, mszipDecode},
	CompressQuantum: {otherChunkSize, xzEncode, xzDecode},
	CompressLZX:     {otherChunkSize, xzEncode, xzDecode},
}

func (c CompressionType) codec() (*codec, error) {
	t := c & compressMask
	if int(t) >= len(codecs) {
		return nil, codecError("unsupported compression type %d", uint16(c))
	}
	return &codecs[t], nil
}

// ChunkSize is the largest number of uncompressed bytes one data block holds
func (c CompressionType) ChunkSize() int {
	if cd, err := c.codec(); err == nil {
		return cd.chunkSize
	}
	return otherChunkSize
}

func storeEncode(src []byte, level int) ([]byte, error) {
	return append([]byte(nil), src...), nil
}

func storeDecode(payload []byte, size int, history []byte) ([]byte, error) {
	if len(payload) != size {
		return nil, codecError("stored block has %d bytes, expected %d", len(payload), size)
	}
	return append([]byte(nil), payload...), nil
}

var mszipSignature = []byte("CK")

func mszipEncode(src []byte, level int) ([]byte, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(src)/2+64))
	buf.Write(mszipSignature)
	w, err := flate.NewWriter(buf, level)
	if err != nil {
		return nil, codecError("MSZIP: %v", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, codecError("MSZIP: %v", err)
	}
	if err := w.Close(); err != nil {
		return nil, codecError("MSZIP: %v", err)
	}
	return buf.Bytes(), nil
}

func mszipDecode(payload []byte, size int, history []byte) ([]byte, error) {
	if !bytes.HasPrefix(payload, mszipSignature) {
		return nil, codecError("invalid MSZIP signature")
	}
	src := bytes.NewReader(payload[len(mszipSignature):])
	var r io.ReadCloser
	if len(history) != 0 {
		// MS-ZIP decoders carry the window across blocks
		r = flate.NewReaderDict(src, history)
	} else {
		r = flate.NewReader(src)
	}
	defer r.Close()
	return readExact(r, size, "MSZIP")
}

var xzConfig = ulzxz.WriterConfig{
	DictCap:  1 << 16,
	CheckSum: ulzxz.CRC32,
}

// Quantum and LZX folders carry an XZ stream per block instead of the legacy
// bitstreams.
func xzEncode(src []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xzConfig.NewWriter(&buf)
	if err != nil {
		return nil, codecError("xz: %v", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, codecError("xz: %v", err)
	}
	if err := w.Close(); err != nil {
		return nil, codecError("xz: %v", err)
	}
	return buf.Bytes(), nil
}

func xzDecode(payload []byte, size int, history []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(payload), 0)
	if err != nil {
		return nil, codecError("xz: %v", err)
	}
	out, err := readExact(r, size, "xz")
	if err != nil {
		return nil, err
	}
	// reading to the end verifies the stream check
	extra, err := io.ReadAll(io.LimitReader(r, 1))
	if err != nil {
		return nil, codecError("xz: %v", err)
	} else if len(extra) != 0 {
		return nil, codecError("xz: block decodes to more than %d bytes", size)
	}
	return out, nil
}

func readExact(r io.Reader, size int, name string) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, codecError("%s: decoded fewer than %d bytes: %v", name, size, err)
	}
	return out, nil
}
