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

//go:build !windows

package cabfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReadAttributes derives DOS attributes from a file's mode and name
func ReadAttributes(path string, info fs.FileInfo) Attribute {
	var attrs Attribute
	if info == nil {
		var err error
		if info, err = os.Stat(path); err != nil {
			return 0
		}
	}
	perm := info.Mode().Perm()
	if perm&0200 == 0 {
		attrs |= AttrReadOnly
	}
	if perm&0100 != 0 {
		attrs |= AttrExec
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		attrs |= AttrHidden
	}
	return attrs
}

// ApplyAttributes sets the modification time and permissions of an extracted
// file. Only the read-only and exec bits have an equivalent here.
func ApplyAttributes(path string, attrs Attribute, modified time.Time) error {
	if attrs&(AttrReadOnly|AttrExec) != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		mode := info.Mode().Perm()
		if attrs&AttrExec != 0 {
			mode |= (mode & 0444) >> 2
		}
		if attrs&AttrReadOnly != 0 {
			mode &^= 0222
		}
		if err := os.Chmod(path, mode); err != nil {
			return err
		}
	}
	if !modified.IsZero() {
		return os.Chtimes(path, modified, modified)
	}
	return nil
}
