// Package dostime converts between calendar timestamps and the packed
// 16-bit MS-DOS date/time pair stored in ZIP headers.
//
// DOS time has two-second resolution and cannot represent years before
// 1980 or after 2107. Encoding rounds down and clamps to that range.
package dostime

import "time"

// ToDOS packs t into the DOS date and time fields.
func ToDOS(t time.Time) (dosDate, dosTime uint16) {
	year := min(max(t.Year()-1980, 0), 127)

	dosDate = uint16(year)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	dosTime = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	return dosDate, dosTime
}

// FromDOS unpacks a DOS date and time pair into a UTC timestamp.
// Out-of-range month and day fields are clamped rather than rejected;
// archives in the wild routinely carry zeroed timestamps.
func FromDOS(dosDate, dosTime uint16) time.Time {
	day := int(dosDate & 0x1F)
	month := int((dosDate >> 5) & 0x0F)
	year := int((dosDate>>9)&0x7F) + 1980
	second := int(dosTime&0x1F) * 2
	minute := int((dosTime >> 5) & 0x3F)
	hour := int((dosTime >> 11) & 0x1F)

	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 || day > 31 {
		day = 1
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}
