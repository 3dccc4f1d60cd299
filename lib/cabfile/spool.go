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
	"io"
	"os"
)

const defaultSpoolThreshold = 16 << 20

// spool is append-only scratch storage that can be rewound. It is held in
// memory until it grows past its threshold and then moves to a temporary file.
// A negative threshold keeps everything in memory.
type spool struct {
	threshold int64
	buf       []byte
	f         *os.File
	size      int64
}

func newSpool(threshold int64) *spool {
	if threshold == 0 {
		threshold = defaultSpoolThreshold
	}
	return &spool{threshold: threshold}
}

func (s *spool) Size() int64 {
	return s.size
}

func (s *spool) Write(d []byte) (int, error) {
	if s.f == nil && s.threshold >= 0 && s.size+int64(len(d)) > s.threshold {
		if err := s.spill(); err != nil {
			return 0, err
		}
	}
	if s.f == nil {
		s.buf = append(s.buf, d...)
		s.size += int64(len(d))
		return len(d), nil
	}
	n, err := s.f.WriteAt(d, s.size)
	s.size += int64(n)
	return n, err
}

func (s *spool) spill() error {
	f, err := os.CreateTemp("", "cabtool-spool-")
	if err != nil {
		return err
	}
	if _, err := f.Write(s.buf); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	s.f = f
	s.buf = nil
	return nil
}

// Truncate discards everything written after the first n bytes
func (s *spool) Truncate(n int64) error {
	if n > s.size {
		n = s.size
	}
	if s.f != nil {
		if err := s.f.Truncate(n); err != nil {
			return err
		}
	} else {
		s.buf = s.buf[:n]
	}
	s.size = n
	return nil
}

func (s *spool) ReadAt(d []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	want := d
	if rest := s.size - off; int64(len(want)) > rest {
		want = want[:rest]
	}
	var n int
	var err error
	if s.f != nil {
		n, err = s.f.ReadAt(want, off)
	} else {
		n = copy(want, s.buf[off:])
	}
	if err == nil && n < len(d) {
		err = io.EOF
	}
	return n, err
}

func (s *spool) WriteTo(w io.Writer) (int64, error) {
	if s.f == nil {
		n, err := w.Write(s.buf)
		return int64(n), err
	}
	return io.Copy(w, io.NewSectionReader(s.f, 0, s.size))
}

func (s *spool) Close() error {
	s.buf = nil
	s.size = 0
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	os.Remove(s.f.Name())
	s.f = nil
	return err
}
