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
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

type pendingFile struct {
	name   string
	size   uint32
	folder uint16
	date   uint16
	time   uint16
	attrs  Attribute
}

// folderState accumulates the data blocks of one folder. Full chunks are
// encoded as soon as they fill up; the trailing partial chunk is only encoded
// tentatively so that more files can still be appended to it.
type folderState struct {
	data    *spool
	blocks  int
	partial []byte
	size    int64
	// encoded form of partial, nil when it needs to be recomputed
	tail []byte
}

// cabinetBuilder turns entries into the blocks of a single cabinet and can
// compute the exact size of the result at any point
type cabinetBuilder struct {
	compression CompressionType
	codec       *codec
	level       int
	checksums   bool
	threshold   int64

	files   []pendingFile
	folders []*folderState // indexed by the folder number given by the caller
}

func newBuilder(compression CompressionType, level int, checksums bool, threshold int64) (*cabinetBuilder, error) {
	cd, err := compression.codec()
	if err != nil {
		return nil, err
	}
	return &cabinetBuilder{
		compression: compression,
		codec:       cd,
		level:       level,
		checksums:   checksums,
		threshold:   threshold,
	}, nil
}

func (b *cabinetBuilder) folder(n uint16) *folderState {
	for len(b.folders) <= int(n) {
		b.folders = append(b.folders, nil)
	}
	fs := b.folders[n]
	if fs == nil {
		fs = &folderState{
			data:    newSpool(b.threshold),
			partial: make([]byte, 0, b.codec.chunkSize),
		}
		b.folders[n] = fs
	}
	return fs
}

// add appends exactly e.Size bytes read from r to the entry's folder
func (b *cabinetBuilder) add(ctx context.Context, e *Entry, r io.Reader) error {
	fs := b.folder(e.Folder)
	if fs.size+e.Size > maxCabinet {
		return capacity("folder %d would exceed %d uncompressed bytes", e.Folder, int64(maxCabinet))
	}
	fs.tail = nil
	chunk := b.codec.chunkSize
	for remaining := e.Size; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := len(fs.partial)
		n := int64(chunk - start)
		if n > remaining {
			n = remaining
		}
		fs.partial = fs.partial[:start+int(n)]
		if _, err := io.ReadFull(r, fs.partial[start:]); err != nil {
			fs.partial = fs.partial[:start]
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return ioError(fmt.Sprintf("reading %q", e.Name), err)
		}
		remaining -= n
		fs.size += n
		if len(fs.partial) == chunk {
			if err := b.flush(fs); err != nil {
				return err
			}
		}
	}
	date, tod := EncodeDateTime(e.Modified)
	b.files = append(b.files, pendingFile{
		name:   e.Name,
		size:   uint32(e.Size),
		folder: e.Folder,
		date:   date,
		time:   tod,
		attrs:  e.Attributes | nameAttributes(e.Name),
	})
	return nil
}

func (b *cabinetBuilder) flush(fs *folderState) error {
	block, err := b.encodeBlock(fs.partial)
	if err != nil {
		return err
	}
	if _, err := fs.data.Write(block); err != nil {
		return ioError("spooling data block", err)
	}
	fs.blocks++
	fs.partial = fs.partial[:0]
	fs.tail = nil
	return nil
}

// encodeBlock compresses one chunk into a complete CFDATA record
func (b *cabinetBuilder) encodeBlock(chunk []byte) ([]byte, error) {
	payload, err := b.codec.encode(chunk, b.level)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0xFFFF {
		return nil, codecError("%s block of %d bytes compressed to %d bytes", b.compression, len(chunk), len(payload))
	}
	block := make([]byte, dataHeaderSize, dataHeaderSize+len(payload))
	binary.LittleEndian.PutUint16(block[4:], uint16(len(payload)))
	binary.LittleEndian.PutUint16(block[6:], uint16(len(chunk)))
	if b.checksums {
		csum := BlockChecksum(uint16(len(payload)), uint16(len(chunk)), nil, payload)
		binary.LittleEndian.PutUint32(block[0:], csum)
	}
	return append(block, payload...), nil
}

// pendingTail encodes the trailing partial chunk if the folder needs one. A
// folder that only holds empty files still gets a single empty block.
func (b *cabinetBuilder) pendingTail(fs *folderState) error {
	if fs.tail != nil || (len(fs.partial) == 0 && fs.blocks > 0) {
		return nil
	}
	tail, err := b.encodeBlock(fs.partial)
	if err != nil {
		return err
	}
	fs.tail = tail
	return nil
}

// layout numbers the folders in use densely, in ascending order of the
// caller's folder numbers, and plans the cabinet
func (b *cabinetBuilder) layout() ([]*folderState, []int, *Layout, error) {
	index := make([]int, len(b.folders))
	var used []*folderState
	var folders []FolderLayout
	for i, fs := range b.folders {
		index[i] = -1
		if fs == nil {
			continue
		}
		if err := b.pendingTail(fs); err != nil {
			return nil, nil, nil, err
		}
		blocks := fs.blocks
		if fs.tail != nil {
			blocks++
		}
		index[i] = len(used)
		used = append(used, fs)
		folders = append(folders, FolderLayout{
			Blocks:   blocks,
			DataSize: fs.data.Size() + int64(len(fs.tail)),
		})
	}
	files := make([]FileLayout, len(b.files))
	for i, f := range b.files {
		files[i] = FileLayout{
			NameLen: len(f.name),
			Size:    f.size,
			Folder:  index[f.folder],
		}
	}
	layout, err := Plan(files, folders)
	if err != nil {
		return nil, nil, nil, err
	}
	return used, index, layout, nil
}

// size returns the number of bytes finish would currently produce
func (b *cabinetBuilder) size() (uint32, error) {
	_, _, layout, err := b.layout()
	if err != nil {
		return 0, err
	}
	return layout.TotalSize, nil
}

type builderMark struct {
	folder   uint16
	existed  bool
	files    int
	dataSize int64
	blocks   int
	partial  []byte
	size     int64
}

// mark records enough state to undo the next add to folder
func (b *cabinetBuilder) mark(folder uint16) builderMark {
	m := builderMark{folder: folder, files: len(b.files)}
	if int(folder) < len(b.folders) && b.folders[folder] != nil {
		fs := b.folders[folder]
		m.existed = true
		m.dataSize = fs.data.Size()
		m.blocks = fs.blocks
		m.partial = append([]byte(nil), fs.partial...)
		m.size = fs.size
	}
	return m
}

func (b *cabinetBuilder) rewind(m builderMark) error {
	b.files = b.files[:m.files]
	if int(m.folder) >= len(b.folders) || b.folders[m.folder] == nil {
		return nil
	}
	fs := b.folders[m.folder]
	if !m.existed {
		b.folders[m.folder] = nil
		return fs.data.Close()
	}
	if err := fs.data.Truncate(m.dataSize); err != nil {
		return ioError("rewinding spool", err)
	}
	fs.blocks = m.blocks
	fs.partial = append(fs.partial[:0], m.partial...)
	fs.size = m.size
	fs.tail = nil
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(d []byte) (int, error) {
	n, err := c.w.Write(d)
	c.n += int64(n)
	return n, err
}

// finish writes the complete cabinet to w
func (b *cabinetBuilder) finish(ctx context.Context, w io.Writer, setID uint16, cabNumber int) (int64, error) {
	used, index, layout, err := b.layout()
	if err != nil {
		return 0, err
	}
	if cabNumber > 0xFFFF {
		return 0, capacity("cabinet set is limited to %d cabinets", 0x10000)
	}
	cw := &countingWriter{w: w}
	hdr := Header{
		Magic:       Magic,
		TotalSize:   layout.TotalSize,
		OffsetFiles: layout.OffsetFiles,
		Version:     Version,
		NumFolders:  uint16(len(used)),
		NumFiles:    uint16(len(b.files)),
		SetID:       setID,
		CabNumber:   uint16(cabNumber),
	}
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return cw.n, ioError("writing cabinet header", err)
	}
	for i, fs := range used {
		fh := FolderHeader{
			Offset:      layout.FolderStarts[i],
			NumData:     uint16(fs.blocks),
			Compression: b.compression,
		}
		if fs.tail != nil {
			fh.NumData++
		}
		if err := binary.Write(cw, binary.LittleEndian, &fh); err != nil {
			return cw.n, ioError("writing folder table", err)
		}
	}
	for i, f := range b.files {
		rec := EncodeFile(&File{
			FileHeader: FileHeader{
				Size:         f.size,
				FolderOffset: layout.FileOffsets[i],
				Folder:       uint16(index[f.folder]),
				Date:         f.date,
				Time:         f.time,
				Attributes:   f.attrs,
			},
			Name: f.name,
		})
		if _, err := cw.Write(rec); err != nil {
			return cw.n, ioError("writing file table", err)
		}
	}
	for _, fs := range used {
		if err := ctx.Err(); err != nil {
			return cw.n, err
		}
		if _, err := fs.data.WriteTo(cw); err != nil {
			return cw.n, ioError("writing data blocks", err)
		}
		if _, err := cw.Write(fs.tail); err != nil {
			return cw.n, ioError("writing data blocks", err)
		}
	}
	if cw.n != int64(layout.TotalSize) {
		return cw.n, fmt.Errorf("cabinet layout mismatch: planned %d bytes but wrote %d", layout.TotalSize, cw.n)
	}
	return cw.n, nil
}

func (b *cabinetBuilder) close() error {
	var first error
	for _, fs := range b.folders {
		if fs == nil {
			continue
		}
		if err := fs.data.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.folders = nil
	b.files = nil
	return first
}
