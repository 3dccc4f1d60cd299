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

import "encoding/binary"

// Checksum folds data into seed using the CFDATA checksum algorithm: every
// complete little-endian 32-bit word is XORed in, then 1-3 trailing bytes are
// packed with the last byte in the lowest position.
func Checksum(seed uint32, data []byte) uint32 {
	csum := seed
	n := len(data) &^ 3
	for i := 0; i < n; i += 4 {
		csum ^= binary.LittleEndian.Uint32(data[i:])
	}
	var tail uint32
	for i := n; i < len(data); i++ {
		tail = tail<<8 | uint32(data[i])
	}
	return csum ^ tail
}

// BlockChecksum computes the checksum stored in a CFDATA header. It covers the
// two length fields, any per-block reserve area, then the payload.
func BlockChecksum(compressed, uncompressed uint16, reserve, payload []byte) uint32 {
	hdr := make([]byte, 4, 4+len(reserve))
	binary.LittleEndian.PutUint16(hdr[0:], compressed)
	binary.LittleEndian.PutUint16(hdr[2:], uncompressed)
	hdr = append(hdr, reserve...)
	return Checksum(Checksum(0, payload), hdr)
}
