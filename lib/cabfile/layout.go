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

import "fmt"

// FolderLayout summarizes the data blocks already produced for a folder
type FolderLayout struct {
	Blocks   int   // number of CFDATA records
	DataSize int64 // total size of the CFDATA records including headers
}

// FileLayout is the part of a file entry that influences cabinet layout
type FileLayout struct {
	NameLen int
	Size    uint32
	Folder  int
}

// Layout holds every offset needed to write a cabinet
type Layout struct {
	OffsetFiles   uint32
	FileTableSize uint32
	FolderStarts  []uint32 // absolute offset of each folder's first data block
	FolderSizes   []int64  // uncompressed size of each folder's stream
	FileOffsets   []uint32 // offset of each file within its folder's stream
	TotalSize     uint32
}

// Plan computes the layout of a cabinet holding the given files and folders.
// Record sizes depend only on the inputs, so a single forward pass suffices.
// Files keep their order and are packed back to back within each folder.
func Plan(files []FileLayout, folders []FolderLayout) (*Layout, error) {
	if len(files) > MaxFiles {
		return nil, capacity("%d files exceeds limit of %d", len(files), MaxFiles)
	} else if len(folders) > 0xFFFF {
		return nil, capacity("%d folders exceeds limit of %d", len(folders), 0xFFFF)
	}
	layout := &Layout{
		FolderStarts: make([]uint32, len(folders)),
		FolderSizes:  make([]int64, len(folders)),
		FileOffsets:  make([]uint32, len(files)),
	}
	var tableSize int64
	for i, f := range files {
		if f.Folder < 0 || f.Folder >= len(folders) {
			return nil, fmt.Errorf("file %d assigned to folder %d of %d", i, f.Folder, len(folders))
		}
		start := layout.FolderSizes[f.Folder]
		if start+int64(f.Size) > maxCabinet {
			return nil, capacity("folder %d exceeds %d uncompressed bytes", f.Folder, int64(maxCabinet))
		}
		layout.FileOffsets[i] = uint32(start)
		layout.FolderSizes[f.Folder] = start + int64(f.Size)
		tableSize += int64(fileFixedSize + f.NameLen + 1)
	}
	offsetFiles := int64(headerSize + folderSize*len(folders))
	offset := offsetFiles + tableSize
	for i, fl := range folders {
		if fl.Blocks < 1 {
			return nil, fmt.Errorf("folder %d has no data blocks", i)
		} else if fl.Blocks > 0xFFFF {
			return nil, capacity("folder %d needs %d data blocks", i, fl.Blocks)
		}
		if offset > maxCabinet {
			break
		}
		layout.FolderStarts[i] = uint32(offset)
		offset += fl.DataSize
	}
	if offset > maxCabinet {
		return nil, capacity("cabinet would be %d bytes", offset)
	}
	layout.OffsetFiles = uint32(offsetFiles)
	layout.FileTableSize = uint32(tableSize)
	layout.TotalSize = uint32(offset)
	return layout, nil
}
