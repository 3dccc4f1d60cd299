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
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// DOS attribute bits that map directly onto FILE_ATTRIBUTE_*
const hostAttrMask = AttrReadOnly | AttrHidden | AttrSystem | AttrArchive

// ReadAttributes returns the DOS attributes of a file on disk
func ReadAttributes(path string, info fs.FileInfo) Attribute {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		if info != nil && info.Mode().Perm()&0200 == 0 {
			return AttrReadOnly
		}
		return 0
	}
	return Attribute(attrs) & hostAttrMask
}

// ApplyAttributes sets the modification time and DOS attributes of an
// extracted file
func ApplyAttributes(path string, attrs Attribute, modified time.Time) error {
	if !modified.IsZero() {
		if err := os.Chtimes(path, modified, modified); err != nil {
			return err
		}
	}
	attrs &= hostAttrMask
	if attrs == 0 {
		return nil
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	current, err := windows.GetFileAttributes(p)
	if err != nil {
		return err
	}
	return windows.SetFileAttributes(p, current|uint32(attrs))
}
