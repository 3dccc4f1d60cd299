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
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/rs/zerolog"
)

// FileWriter receives one output file. Commit makes the written data
// permanent; Close without Commit discards it.
type FileWriter interface {
	io.Writer
	Commit() error
	Close() error
}

// Generator writes the entries of an Archive as a cabinet or a set of
// cabinets
type Generator struct {
	Compression      CompressionType
	CompressionLevel int // flate level used for MSZIP, 0 for the default
	DisableChecksum  bool
	// Bytes of compressed data held in memory per folder before spilling to a
	// temporary file. 0 selects a default; negative never spills.
	SpoolThreshold int64
	// Source of the random set ID. The global source is used when nil.
	Rand *rand.Rand

	archive   *Archive
	setID     uint16
	haveSetID bool
}

func NewGenerator(archive *Archive) *Generator {
	return &Generator{archive: archive}
}

// SetID returns the set ID written into every cabinet. It is chosen at random
// on first use and kept until ResetSet is called.
func (g *Generator) SetID() uint16 {
	if !g.haveSetID {
		if g.Rand != nil {
			g.setID = uint16(g.Rand.Uint32())
		} else {
			g.setID = uint16(rand.Uint32())
		}
		g.haveSetID = true
	}
	return g.setID
}

// SetSetID fixes the set ID instead of choosing one at random
func (g *Generator) SetSetID(id uint16) {
	g.setID = id
	g.haveSetID = true
}

// ResetSet forgets the current set ID so the next cabinet starts a new set
func (g *Generator) ResetSet() {
	g.haveSetID = false
}

func (g *Generator) newBuilder() (*cabinetBuilder, error) {
	return newBuilder(g.Compression, g.CompressionLevel, !g.DisableChecksum, g.SpoolThreshold)
}

// WriteCabinet writes every entry into a single cabinet. Sources are read
// once, in insertion order.
func (g *Generator) WriteCabinet(ctx context.Context, w io.Writer) (int64, error) {
	b, err := g.newBuilder()
	if err != nil {
		return 0, err
	}
	defer b.close()
	for _, e := range g.archive.entries {
		if err := addEntry(ctx, b, e); err != nil {
			return 0, err
		}
	}
	n, err := b.finish(ctx, w, g.SetID(), 0)
	if err != nil {
		return n, err
	}
	zerolog.Ctx(ctx).Debug().
		Int("files", len(b.files)).
		Int64("size", n).
		Uint16("set_id", g.setID).
		Stringer("compression", g.Compression).
		Msg("cabinet written")
	return n, nil
}

func addEntry(ctx context.Context, b *cabinetBuilder, e *Entry) error {
	rc, err := e.Open()
	if err != nil {
		return ioError(fmt.Sprintf("opening %q", e.Name), err)
	}
	defer rc.Close()
	return b.add(ctx, e, rc)
}

// Build returns the archive as a single cabinet image
func (g *Generator) Build(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := g.WriteCabinet(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSet splits the archive into cabinets of at most maxSize bytes each,
// calling next to obtain the destination of cabinet 0, 1, 2 and so on. Files
// are kept in order and never split. A file that does not fit even on its own
// is written alone into an oversized cabinet. maxSize <= 0 means no limit.
// Returns the number of cabinets written.
func (g *Generator) WriteSet(ctx context.Context, maxSize int64, next func(index int) (FileWriter, error)) (int, error) {
	setID := g.SetID()
	entries := g.archive.entries
	// sources may only be readable once, but a file that overflows a cabinet
	// has to be encoded again into the next one
	raw := newSpool(g.SpoolThreshold)
	defer raw.Close()
	starts := make([]int64, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		starts[i] = raw.Size()
		if err := spoolEntry(raw, e); err != nil {
			return 0, err
		}
	}
	b, err := g.newBuilder()
	if err != nil {
		return 0, err
	}
	defer func() {
		if b != nil {
			b.close()
		}
	}()
	count := 0
	inCabinet := 0
	emit := func() error {
		w, err := next(count)
		if err != nil {
			return err
		}
		defer w.Close()
		n, err := b.finish(ctx, w, setID, count)
		if err != nil {
			return err
		}
		if err := w.Commit(); err != nil {
			return ioError("committing cabinet", err)
		}
		zerolog.Ctx(ctx).Debug().
			Int("index", count).
			Int("files", inCabinet).
			Int64("size", n).
			Uint16("set_id", setID).
			Msg("cabinet written")
		count++
		inCabinet = 0
		b.close()
		b, err = g.newBuilder()
		return err
	}
	for i, e := range entries {
		m := b.mark(e.Folder)
		err := b.add(ctx, e, io.NewSectionReader(raw, starts[i], e.Size))
		var total uint32
		if err == nil {
			total, err = b.size()
		}
		full := errors.Is(err, ErrCapacityExceeded) || (err == nil && maxSize > 0 && int64(total) > maxSize)
		if full && inCabinet > 0 {
			zerolog.Ctx(ctx).Debug().
				Str("file", e.Name).
				Int("index", count).
				Msg("cabinet full, starting next")
			if err := b.rewind(m); err != nil {
				return count, err
			}
			if err := emit(); err != nil {
				return count, err
			}
			err = b.add(ctx, e, io.NewSectionReader(raw, starts[i], e.Size))
		}
		if err != nil {
			return count, err
		}
		inCabinet++
	}
	if err := emit(); err != nil {
		return count, err
	}
	return count, nil
}

func spoolEntry(raw *spool, e *Entry) error {
	rc, err := e.Open()
	if err != nil {
		return ioError(fmt.Sprintf("opening %q", e.Name), err)
	}
	defer rc.Close()
	n, err := io.Copy(raw, io.LimitReader(rc, e.Size))
	if err != nil {
		return ioError(fmt.Sprintf("reading %q", e.Name), err)
	} else if n != e.Size {
		return ioError(fmt.Sprintf("reading %q", e.Name), io.ErrUnexpectedEOF)
	}
	return nil
}

type memoryWriter struct {
	bytes.Buffer
	out *[][]byte
}

func (m *memoryWriter) Commit() error {
	*m.out = append(*m.out, m.Bytes())
	return nil
}

func (m *memoryWriter) Close() error {
	return nil
}

// BuildSet returns the archive split into cabinet images of at most maxSize
// bytes each. See WriteSet.
func (g *Generator) BuildSet(ctx context.Context, maxSize int64) ([][]byte, error) {
	var images [][]byte
	_, err := g.WriteSet(ctx, maxSize, func(int) (FileWriter, error) {
		return &memoryWriter{out: &images}, nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
