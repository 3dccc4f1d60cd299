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

// Package logrotate provides a log file writer that follows external log
// rotation by reopening its path whenever the file it holds is renamed or
// removed.
package logrotate

import (
	"os"
	"path/filepath"
	"sync"
)

type Writer struct {
	path string
	mu   sync.Mutex
	f    *os.File
	fi   os.FileInfo
}

func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	w := &Writer{path: path}
	if err := w.openLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openLocked() error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	// remember the identity of the file to notice when it gets rotated
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if w.f != nil {
		w.f.Close()
	}
	w.f = f
	w.fi = fi
	return nil
}

// rotated reports whether the path no longer refers to the open file
func (w *Writer) rotated() (bool, error) {
	if w.f == nil {
		return true, nil
	}
	fi, err := os.Stat(w.path)
	if os.IsNotExist(err) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	return !os.SameFile(fi, w.fi), nil
}

func (w *Writer) Write(d []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rotated, err := w.rotated()
	if err != nil {
		return 0, err
	}
	if rotated {
		if err := w.openLocked(); err != nil {
			return 0, err
		}
	}
	return w.f.Write(d)
}

// Path returns the file being written to
func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
