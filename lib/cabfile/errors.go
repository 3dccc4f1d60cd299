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
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidSignature = errors.New("not a cab file")
	ErrMalformedRecord  = errors.New("malformed cabinet record")
	ErrChecksumMismatch = errors.New("data block checksum mismatch")
	ErrCodec            = errors.New("compression error")
	ErrCapacityExceeded = errors.New("cabinet capacity exceeded")
	ErrIO               = errors.New("i/o error")
	ErrDuplicateName    = errors.New("file already exists in archive")
	ErrInvalidName      = errors.New("invalid file name")
)

// ChecksumError describes a data block whose stored checksum does not match
// its contents. Short is set when the block's declared length ran past the end
// of the input, which is either a damaged length field or a truncated cabinet.
type ChecksumError struct {
	Folder   int
	Block    int
	Stored   uint32
	Computed uint32
	Short    bool
}

func (e *ChecksumError) Error() string {
	msg := fmt.Sprintf("data block checksum mismatch in folder %d block %d: stored %08x, computed %08x",
		e.Folder, e.Block, e.Stored, e.Computed)
	if e.Short {
		msg += " (block truncated)"
	}
	return msg
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch || (e.Short && target == ErrMalformedRecord)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}

func codecError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCodec, fmt.Sprintf(format, args...))
}

func capacity(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCapacityExceeded, fmt.Sprintf(format, args...))
}

// readError classifies a failure reading part of a cabinet. Running out of
// input means the record is truncated; anything else came from the stream.
func readError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return malformed("truncated %s", what)
	}
	return ioError("reading "+what, err)
}

func ioError(op string, err error) error {
	if errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
