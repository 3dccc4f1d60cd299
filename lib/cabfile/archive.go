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
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Entry is a file waiting to be written into a cabinet
type Entry struct {
	Name       string
	Size       int64
	Attributes Attribute
	Folder     uint16
	Modified   time.Time

	open func() (io.ReadCloser, error)
}

// Open returns the entry's contents. Streams supplied to AddReader can only be
// opened once.
func (e *Entry) Open() (io.ReadCloser, error) {
	return e.open()
}

type entryConfig struct {
	entry   Entry
	replace bool
}

type EntryOption func(*entryConfig)

// WithAttributes sets the DOS attributes stored for the entry
func WithAttributes(attrs Attribute) EntryOption {
	return func(c *entryConfig) {
		c.entry.Attributes = attrs
	}
}

// WithFolder assigns the entry to a folder. Files in the same folder are
// compressed as one stream.
func WithFolder(folder uint16) EntryOption {
	return func(c *entryConfig) {
		c.entry.Folder = folder
	}
}

// WithModified sets the timestamp stored for the entry
func WithModified(t time.Time) EntryOption {
	return func(c *entryConfig) {
		c.entry.Modified = t
	}
}

// WithReplace allows an entry to overwrite an existing one of the same name
func WithReplace() EntryOption {
	return func(c *entryConfig) {
		c.replace = true
	}
}

// Archive collects the files that make up a cabinet or cabinet set. Format
// limits are enforced as files are added.
type Archive struct {
	entries []*Entry
	byName  map[string]*Entry
}

func NewArchive() *Archive {
	return &Archive{byName: make(map[string]*Entry)}
}

func (a *Archive) Len() int {
	return len(a.entries)
}

// Entries returns the entries in insertion order
func (a *Archive) Entries() []*Entry {
	return append([]*Entry(nil), a.entries...)
}

func (a *Archive) Get(name string) *Entry {
	return a.byName[name]
}

// Add inserts an entry whose contents are produced by open
func (a *Archive) Add(name string, size int64, open func() (io.ReadCloser, error), opts ...EntryOption) error {
	if err := checkName(name); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("negative size for file %q", name)
	} else if size > MaxFileSize {
		return capacity("file %q is too large (%d bytes). Max allowed size is %d bytes", name, size, MaxFileSize)
	}
	cfg := entryConfig{entry: Entry{
		Name: name,
		Size: size,
		open: open,
	}}
	for _, o := range opts {
		o(&cfg)
	}
	e := &cfg.entry
	if e.Attributes&^attrMask != 0 {
		return fmt.Errorf("unsupported attributes %#x for file %q", uint16(e.Attributes), name)
	}
	if e.Modified.IsZero() {
		e.Modified = time.Now()
	}
	if existing := a.byName[name]; existing != nil {
		if !cfg.replace {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		for i, x := range a.entries {
			if x == existing {
				a.entries[i] = e
				break
			}
		}
		a.byName[name] = e
		return nil
	}
	if len(a.entries) >= MaxFiles {
		return capacity("cabinet file limit of %d reached", MaxFiles)
	}
	a.entries = append(a.entries, e)
	a.byName[name] = e
	return nil
}

// AddBytes inserts an entry holding a copy of data
func (a *Archive) AddBytes(name string, data []byte, opts ...EntryOption) error {
	data = append([]byte(nil), data...)
	return a.Add(name, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, opts...)
}

// AddReader inserts an entry that will be read from r when the cabinet is
// generated. r must yield exactly size bytes and is consumed only once.
func (a *Archive) AddReader(name string, r io.Reader, size int64, opts ...EntryOption) error {
	used := false
	return a.Add(name, size, func() (io.ReadCloser, error) {
		if used {
			return nil, fmt.Errorf("stream for %q was already consumed", name)
		}
		used = true
		if rc, ok := r.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(r), nil
	}, opts...)
}

// AddPath inserts a file from disk. Its size, modification time and DOS
// attributes are read now; the contents are opened at generation time.
func (a *Archive) AddPath(name, path string, opts ...EntryOption) error {
	info, err := os.Stat(path)
	if err != nil {
		return ioError("stat "+path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	defaults := []EntryOption{
		WithModified(info.ModTime()),
		WithAttributes(ReadAttributes(path, info)),
	}
	return a.Add(name, info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}, append(defaults, opts...)...)
}

// AddDirectory recursively adds every regular file below dir. Names are
// relative to dir and use forward slashes.
func (a *Archive) AddDirectory(dir string, opts ...EntryOption) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return ioError("walk "+path, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return a.AddPath(filepath.ToSlash(rel), path, opts...)
	})
}

// Remove deletes the named entry, returning false if it was not present
func (a *Archive) Remove(name string) bool {
	e := a.byName[name]
	if e == nil {
		return false
	}
	delete(a.byName, name)
	for i, x := range a.entries {
		if x == e {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			break
		}
	}
	return true
}

func checkName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, name, MaxNameLength)
	case strings.IndexByte(name, 0) >= 0:
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidName, name)
	}
	return nil
}

// nameAttributes returns the flag marking a non-ASCII UTF-8 name
func nameAttributes(name string) Attribute {
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			if utf8.ValidString(name) {
				return AttrNameUTF
			}
			return 0
		}
	}
	return 0
}
