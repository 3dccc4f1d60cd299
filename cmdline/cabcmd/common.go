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

package cabcmd

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sassoftware/cabtool/cmdline/shared"
	"github.com/sassoftware/cabtool/lib/cabfile"
	"github.com/sassoftware/cabtool/lib/magic"
)

// compressionFlag is a pflag.Value selecting a folder compression type
type compressionFlag struct {
	value cabfile.CompressionType
}

var _ pflag.Value = (*compressionFlag)(nil)

func (f *compressionFlag) String() string {
	return f.value.String()
}

func (f *compressionFlag) Set(s string) error {
	t, err := cabfile.ParseCompression(s)
	if err != nil {
		return err
	}
	f.value = t
	return nil
}

func (f *compressionFlag) Type() string {
	return "none|mszip|quantum|lzx"
}

type cabinetInput struct {
	*bufio.Reader
	io.Closer
}

// openCabinet opens an input and makes sure it looks like a cabinet before
// handing it to the parser
func openCabinet(path string) (*cabinetInput, error) {
	f, err := shared.OpenFile(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	switch t := magic.Sniff(br); t {
	case magic.FileTypeCAB:
		return &cabinetInput{Reader: br, Closer: f}, nil
	case magic.FileTypeUnknown:
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, cabfile.ErrInvalidSignature)
	default:
		f.Close()
		return nil, fmt.Errorf("%s looks like a %s, not a cabinet", path, t)
	}
}

// setMemberName names the cabinets of a split set: out.cab, out2.cab, ...
func setMemberName(path string, index int) string {
	if index == 0 || path == "-" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + strconv.Itoa(index+1) + ext
}

func formatAttributes(a cabfile.Attribute) string {
	flags := []struct {
		bit  cabfile.Attribute
		char byte
	}{
		{cabfile.AttrReadOnly, 'r'},
		{cabfile.AttrHidden, 'h'},
		{cabfile.AttrSystem, 's'},
		{cabfile.AttrArchive, 'a'},
		{cabfile.AttrExec, 'x'},
		{cabfile.AttrNameUTF, 'u'},
	}
	out := make([]byte, len(flags))
	for i, f := range flags {
		if a&f.bit != 0 {
			out[i] = f.char
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}
