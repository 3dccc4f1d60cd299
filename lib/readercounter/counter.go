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

package readercounter

import "io"

// Wraps a Reader and counts how many bytes are consumed from it
type ReaderCounter struct {
	R io.Reader // underlying Reader
	N int64     // number of bytes read
}

func New(r io.Reader) *ReaderCounter {
	return &ReaderCounter{R: r}
}

func (c *ReaderCounter) Read(d []byte) (int, error) {
	n, err := c.R.Read(d)
	c.N += int64(n)
	return n, err
}

// ReadByte reads a single byte, using the underlying ByteReader when there is
// one so that a buffered source is not read a whole block at a time
func (c *ReaderCounter) ReadByte() (byte, error) {
	if br, ok := c.R.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err == nil {
			c.N++
		}
		return b, err
	}
	var one [1]byte
	if _, err := io.ReadFull(c, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

// Discard skips n bytes, failing with io.ErrUnexpectedEOF if the stream ends
// first
func (c *ReaderCounter) Discard(n int64) error {
	if n <= 0 {
		return nil
	}
	copied, err := io.CopyN(io.Discard, c, n)
	if err == io.EOF && copied < n {
		err = io.ErrUnexpectedEOF
	}
	return err
}
