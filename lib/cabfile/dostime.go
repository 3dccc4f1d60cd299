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

import "time"

// EncodeDateTime packs a timestamp into DOS date and time words. Seconds are
// stored at 2 second resolution. Times outside the representable range
// 1980-2107 are clamped. The fields are taken in local time.
func EncodeDateTime(t time.Time) (date, tod uint16) {
	t = t.Local()
	year := t.Year()
	switch {
	case year < 1980:
		return 1<<5 | 1, 0
	case year > 2107:
		return 127<<9 | 12<<5 | 31, 23<<11 | 59<<5 | 29
	}
	date = uint16(year-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	tod = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	return date, tod
}

// DecodeDateTime unpacks DOS date and time words into a local timestamp. A
// zero date yields the zero time.
func DecodeDateTime(date, tod uint16) time.Time {
	if date == 0 {
		return time.Time{}
	}
	year := int(date>>9) + 1980
	month := time.Month(date >> 5 & 0x0f)
	day := int(date & 0x1f)
	hour := int(tod >> 11 & 0x1f)
	minute := int(tod >> 5 & 0x3f)
	second := int(tod&0x1f) * 2
	return time.Date(year, month, day, hour, minute, second, 0, time.Local)
}
