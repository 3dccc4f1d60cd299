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
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sassoftware/cabtool/lib/atomicfile"
	"github.com/sassoftware/cabtool/lib/readercounter"
)

// blockReader yields the decoded contents of a folder's data blocks in order
type blockReader struct {
	r       io.Reader
	folder  int
	numData int
	block   int
	reserve int
	codec   *codec
	history []byte
}

func newBlockReader(r io.Reader, cab *Cabinet, folder int) (*blockReader, error) {
	fh := cab.Folders[folder]
	cd, err := fh.Compression.codec()
	if err != nil {
		return nil, err
	}
	return &blockReader{
		r:       r,
		folder:  folder,
		numData: int(fh.NumData),
		reserve: int(cab.ReserveHeader.DataSize),
		codec:   cd,
	}, nil
}

// Next returns the next block's uncompressed data, or io.EOF after the last
// block of the folder
func (br *blockReader) Next() ([]byte, error) {
	if br.block >= br.numData {
		return nil, io.EOF
	}
	var hdr DataHeader
	if err := binary.Read(br.r, binary.LittleEndian, &hdr); err != nil {
		return nil, readError("data block header", err)
	}
	var reserve []byte
	if br.reserve > 0 {
		reserve = make([]byte, br.reserve)
		if _, err := io.ReadFull(br.r, reserve); err != nil {
			return nil, readError("data block reserve", err)
		}
	}
	payload := make([]byte, hdr.Compressed)
	if n, err := io.ReadFull(br.r, payload); err != nil {
		// a damaged length field can run past the end of the input
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			if cerr := br.verify(&hdr, reserve, payload[:n]); cerr != nil {
				cerr.Short = true
				return nil, cerr
			}
		}
		return nil, readError("data block", err)
	}
	if cerr := br.verify(&hdr, reserve, payload); cerr != nil {
		return nil, cerr
	}
	out, err := br.codec.decode(payload, int(hdr.Uncompressed), br.history)
	if err != nil {
		return nil, fmt.Errorf("folder %d block %d: %w", br.folder, br.block, err)
	}
	br.history = out
	br.block++
	return out, nil
}

// verify checks a block against its stored checksum. A zero checksum means
// none was computed.
func (br *blockReader) verify(hdr *DataHeader, reserve, payload []byte) *ChecksumError {
	if hdr.Checksum == 0 {
		return nil
	}
	computed := BlockChecksum(hdr.Compressed, hdr.Uncompressed, reserve, payload)
	if computed == hdr.Checksum {
		return nil
	}
	return &ChecksumError{
		Folder:   br.folder,
		Block:    br.block,
		Stored:   hdr.Checksum,
		Computed: computed,
	}
}

// Extract decodes every file in a complete cabinet image. The returned data
// does not alias blob.
func Extract(ctx context.Context, blob []byte) (map[string]*ExtractedFile, error) {
	cab, err := readTables(readercounter.New(bytes.NewReader(blob)))
	if err != nil {
		return nil, err
	}
	if int64(cab.Header.TotalSize) > int64(len(blob)) {
		return nil, malformed("truncated cabinet: header declares %d bytes but only %d are present", cab.Header.TotalSize, len(blob))
	}
	blob = blob[:cab.Header.TotalSize]
	decoded := make([][]byte, len(cab.Folders))
	for i, fh := range cab.Folders {
		if int64(fh.Offset) > int64(len(blob)) {
			return nil, malformed("folder %d data offset %d is past the end of the cabinet", i, fh.Offset)
		}
		br, err := newBlockReader(bytes.NewReader(blob[fh.Offset:]), cab, i)
		if err != nil {
			return nil, err
		}
		var buf []byte
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			chunk, err := br.Next()
			if err == io.EOF {
				break
			} else if err != nil {
				return nil, err
			}
			buf = append(buf, chunk...)
		}
		decoded[i] = buf
		zerolog.Ctx(ctx).Debug().
			Int("folder", i).
			Int("blocks", int(fh.NumData)).
			Int("size", len(buf)).
			Stringer("compression", fh.Compression).
			Msg("folder decoded")
	}
	files := make(map[string]*ExtractedFile, len(cab.Files))
	for _, f := range cab.Files {
		buf := decoded[f.Folder]
		end := int64(f.FolderOffset) + int64(f.Size)
		if end > int64(len(buf)) {
			return nil, malformed("file %q extends past the end of folder %d", f.Name, f.Folder)
		}
		files[f.Name] = &ExtractedFile{
			Name:       f.Name,
			Data:       buf[f.FolderOffset:end:end],
			Attributes: f.Attributes &^ AttrNameUTF,
			Modified:   f.Modified(),
		}
	}
	return files, nil
}

// Sink is called when extraction reaches the start of a file's data. The
// writer is committed once the file is complete and closed without being
// committed if extraction fails first.
type Sink func(f *File) (FileWriter, error)

// ExtractStream reads a cabinet from r in a single forward pass, delivering
// each file to the writer returned by sink. Files finished before an error
// stay committed. Folders are read in the order their data appears; files in
// a folder must not overlap.
func ExtractStream(ctx context.Context, r io.Reader, sink Sink) error {
	rc := readercounter.New(bufio.NewReader(r))
	cab, err := readTables(rc)
	if err != nil {
		return err
	}
	byFolder := make([][]*File, len(cab.Folders))
	for _, f := range cab.Files {
		byFolder[f.Folder] = append(byFolder[f.Folder], f)
	}
	order := make([]int, len(cab.Folders))
	for i := range order {
		order[i] = i
		files := byFolder[i]
		sort.SliceStable(files, func(a, b int) bool {
			return files[a].FolderOffset < files[b].FolderOffset
		})
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cab.Folders[order[a]].Offset < cab.Folders[order[b]].Offset
	})
	for _, i := range order {
		fh := cab.Folders[i]
		if int64(fh.Offset) < rc.N {
			return malformed("folder %d data at offset %d overlaps data ending at %d", i, fh.Offset, rc.N)
		}
		if err := rc.Discard(int64(fh.Offset) - rc.N); err != nil {
			return readError("folder data", err)
		}
		br, err := newBlockReader(rc, cab, i)
		if err != nil {
			return err
		}
		d := &distributor{sink: sink, files: byFolder[i]}
		if err := d.run(ctx, br); err != nil {
			d.abort()
			return err
		}
		zerolog.Ctx(ctx).Debug().
			Int("folder", i).
			Int("files", len(byFolder[i])).
			Int64("size", d.pos).
			Msg("folder extracted")
	}
	return nil
}

// distributor splits a folder's uncompressed stream among its files
type distributor struct {
	sink   Sink
	files  []*File // ordered by FolderOffset
	next   int
	w      FileWriter
	cur    *File
	curEnd int64
	pos    int64
}

func (d *distributor) run(ctx context.Context, br *blockReader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := br.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		if err := d.write(chunk); err != nil {
			return err
		}
	}
	// empty files at the very end of the stream
	if err := d.openReady(); err != nil {
		return err
	}
	if d.w != nil {
		return malformed("file %q extends past the end of folder %d", d.cur.Name, d.cur.Folder)
	} else if d.next < len(d.files) {
		f := d.files[d.next]
		return malformed("file %q starts past the end of folder %d", f.Name, f.Folder)
	}
	return nil
}

func (d *distributor) write(p []byte) error {
	for {
		if d.w == nil {
			if err := d.openReady(); err != nil {
				return err
			}
		}
		if len(p) == 0 {
			return nil
		}
		if d.w == nil {
			// bytes that belong to no file
			skip := int64(len(p))
			if d.next < len(d.files) {
				if gap := int64(d.files[d.next].FolderOffset) - d.pos; gap < skip {
					skip = gap
				}
			}
			p = p[skip:]
			d.pos += skip
			continue
		}
		n := int64(len(p))
		if rest := d.curEnd - d.pos; n > rest {
			n = rest
		}
		if _, err := d.w.Write(p[:n]); err != nil {
			return ioError(fmt.Sprintf("writing %q", d.cur.Name), err)
		}
		p = p[n:]
		d.pos += n
		if d.pos == d.curEnd {
			if err := d.commit(); err != nil {
				return err
			}
		}
	}
}

// openReady opens every file that starts at the current position, committing
// empty ones immediately
func (d *distributor) openReady() error {
	for d.w == nil && d.next < len(d.files) {
		f := d.files[d.next]
		start := int64(f.FolderOffset)
		if start > d.pos {
			return nil
		} else if start < d.pos {
			return malformed("file %q overlaps the previous file in folder %d", f.Name, f.Folder)
		}
		d.next++
		w, err := d.sink(f)
		if err != nil {
			return err
		}
		d.w = w
		d.cur = f
		d.curEnd = start + int64(f.Size)
		if f.Size == 0 {
			if err := d.commit(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *distributor) commit() error {
	w := d.w
	d.w = nil
	if err := w.Commit(); err != nil {
		w.Close()
		return ioError(fmt.Sprintf("committing %q", d.cur.Name), err)
	}
	if err := w.Close(); err != nil {
		return ioError(fmt.Sprintf("closing %q", d.cur.Name), err)
	}
	return nil
}

func (d *distributor) abort() {
	if d.w != nil {
		d.w.Close()
		d.w = nil
	}
}

// ExtractOptions controls how ExtractToDirectory writes files
type ExtractOptions struct {
	// RestoreAttributes applies the stored modification time and DOS
	// attributes to each extracted file
	RestoreAttributes bool
}

// ExtractToDirectory streams every file of the cabinet read from r into dir.
// Each file is written to a temporary name and renamed into place when
// complete, so a failure never leaves a partially written file behind.
func ExtractToDirectory(ctx context.Context, r io.Reader, dir string, opts ExtractOptions) error {
	log := zerolog.Ctx(ctx)
	return ExtractStream(ctx, r, func(f *File) (FileWriter, error) {
		rel, err := SafePath(f.Name)
		if err != nil {
			return nil, err
		}
		target := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, ioError("creating directory", err)
		}
		af, err := atomicfile.New(target)
		if err != nil {
			return nil, ioError("creating "+target, err)
		}
		log.Debug().Str("name", f.Name).Uint32("size", f.Size).Msg("extracting")
		return &restoringWriter{AtomicFile: af, path: target, file: f, restore: opts.RestoreAttributes}, nil
	})
}

type restoringWriter struct {
	atomicfile.AtomicFile
	path    string
	file    *File
	restore bool
}

func (w *restoringWriter) Commit() error {
	if err := w.AtomicFile.Commit(); err != nil {
		return err
	}
	if !w.restore {
		return nil
	}
	return ApplyAttributes(w.path, w.file.Attributes&^AttrNameUTF, w.file.Modified())
}

// SafePath converts a name stored in a cabinet to a relative host path,
// rejecting names that would escape the extraction directory. Both slash and
// backslash are treated as separators.
func SafePath(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || !filepath.IsLocal(filepath.FromSlash(clean)) || strings.HasPrefix(clean, "/") {
		return "", fmt.Errorf("%w: %q is not a safe relative path", ErrInvalidName, name)
	}
	return filepath.FromSlash(clean), nil
}
