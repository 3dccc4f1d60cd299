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
	"os"
)

// direct writes straight to an already open file
type direct struct {
	*os.File
	owned bool
}

func (d direct) Commit() error {
	if d.owned {
		return d.File.Close()
	}
	return nil
}

func (d direct) Close() error {
	if d.owned {
		// a no-op after Commit
		d.File.Close()
	}
	return nil
}

func isSpecial(path string) bool {
	if stat, err := os.Stat(path); err == nil {
		if !stat.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// WriteAny picks the best strategy for writing to the given path. "-" means
// standard output; pipes and devices are written to directly, anything else
// uses write-rename.
func WriteAny(path string, opts ...Option) (AtomicFile, error) {
	if path == "-" {
		return direct{File: os.Stdout}, nil
	}
	if isSpecial(path) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return direct{File: f, owned: true}, nil
	}
	return New(path, opts...)
}
