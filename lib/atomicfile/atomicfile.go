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

package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// AtomicFile is written to a temporary file next to its destination and only
// appears under its final name once committed
type AtomicFile interface {
	io.WriteCloser
	Commit() error
}

type Option func(*atomicFile)

// WithMode sets the permissions of the committed file. The default is 0644.
func WithMode(mode os.FileMode) Option {
	return func(f *atomicFile) {
		f.mode = mode
	}
}

type atomicFile struct {
	name     string
	mode     os.FileMode
	tempfile *os.File
}

func New(name string, opts ...Option) (AtomicFile, error) {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	tempfile, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return nil, err
	}
	f := &atomicFile{name: name, mode: 0644, tempfile: tempfile}
	for _, o := range opts {
		o(f)
	}
	return f, nil
}

func (f *atomicFile) Write(d []byte) (int, error) {
	if f.tempfile == nil {
		return 0, os.ErrClosed
	}
	return f.tempfile.Write(d)
}

// Close discards the file unless it was already committed
func (f *atomicFile) Close() error {
	if f.tempfile == nil {
		return nil
	}
	f.tempfile.Close()
	os.Remove(f.tempfile.Name())
	f.tempfile = nil
	return nil
}

func (f *atomicFile) Commit() error {
	if f.tempfile == nil {
		return errors.New("file is closed")
	}
	if err := f.tempfile.Chmod(f.mode); err != nil {
		f.Close()
		return err
	}
	if err := f.tempfile.Close(); err != nil {
		os.Remove(f.tempfile.Name())
		f.tempfile = nil
		return err
	}
	// rename can't overwrite on windows
	if err := os.Remove(f.name); err != nil && !os.IsNotExist(err) {
		os.Remove(f.tempfile.Name())
		f.tempfile = nil
		return err
	}
	err := os.Rename(f.tempfile.Name(), f.name)
	if err != nil {
		os.Remove(f.tempfile.Name())
	}
	f.tempfile = nil
	return err
}
