package header

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record signatures. Each begins with the two byte marker 0x4b50 ("PK").
const (
	LocalSignature           uint32 = 0x04034b50
	CentralDirSignature      uint32 = 0x02014b50
	EndOfCentralDirSignature uint32 = 0x06054b50
)

const (
	// LocalFixedLen is the size of a local file header before its
	// variable-length name and extra fields.
	LocalFixedLen = 30

	// CentralDirFixedLen is the size of a central directory record before
	// its variable-length name, extra and comment fields.
	CentralDirFixedLen = 46

	// EndOfCentralDirFixedLen is the size of the end of central directory
	// record without its trailing comment.
	EndOfCentralDirFixedLen = 22

	// MaxFieldLen is the largest value representable by the uint16 length
	// fields (name, extra, comment).
	MaxFieldLen = 0xFFFF

	// MaxScanLen bounds the backward scan for the end of central directory
	// record: the record itself plus the largest possible comment.
	MaxScanLen = EndOfCentralDirFixedLen + MaxFieldLen
)

// ErrFormat is returned when the input is not a well-formed ZIP byte stream.
var ErrFormat = errors.New("zipfile: invalid zip data")

// Local is a local file header. It immediately precedes its entry's data
// bytes within the archive body.
type Local struct {
	Version          uint16
	Flags            uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	Name             string
	Extra            []byte

	// DataOffset is the byte offset immediately following the header,
	// i.e. where the data payload begins. Set on decode only.
	DataOffset int
}

// DecodeLocal decodes the local file header at pos.
func DecodeLocal(buf []byte, pos int) (Local, error) {
	if pos < 0 || pos+LocalFixedLen > len(buf) {
		return Local{}, fmt.Errorf("%w: local header at %d exceeds buffer", ErrFormat, pos)
	}
	if sig := binary.LittleEndian.Uint32(buf[pos : pos+4]); sig != LocalSignature {
		return Local{}, fmt.Errorf("%w: bad local header signature %#08x at %d", ErrFormat, sig, pos)
	}

	h := Local{
		Version:          binary.LittleEndian.Uint16(buf[pos+4 : pos+6]),
		Flags:            binary.LittleEndian.Uint16(buf[pos+6 : pos+8]),
		Method:           binary.LittleEndian.Uint16(buf[pos+8 : pos+10]),
		ModTime:          binary.LittleEndian.Uint16(buf[pos+10 : pos+12]),
		ModDate:          binary.LittleEndian.Uint16(buf[pos+12 : pos+14]),
		CRC32:            binary.LittleEndian.Uint32(buf[pos+14 : pos+18]),
		CompressedSize:   binary.LittleEndian.Uint32(buf[pos+18 : pos+22]),
		UncompressedSize: binary.LittleEndian.Uint32(buf[pos+22 : pos+26]),
	}

	nameLen := int(binary.LittleEndian.Uint16(buf[pos+26 : pos+28]))
	extraLen := int(binary.LittleEndian.Uint16(buf[pos+28 : pos+30]))

	end := pos + LocalFixedLen + nameLen + extraLen
	if end > len(buf) {
		return Local{}, fmt.Errorf("%w: local header fields at %d exceed buffer", ErrFormat, pos)
	}

	h.Name = string(buf[pos+LocalFixedLen : pos+LocalFixedLen+nameLen])
	if extraLen > 0 {
		h.Extra = buf[pos+LocalFixedLen+nameLen : end]
	}
	h.DataOffset = end

	return h, nil
}

// Encode serializes the header. Name and extra lengths are derived from the
// fields themselves.
func (h Local) Encode() []byte {
	buf := make([]byte, LocalFixedLen+len(h.Name)+len(h.Extra))

	binary.LittleEndian.PutUint32(buf[0:4], LocalSignature)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint16(buf[8:10], h.Method)
	binary.LittleEndian.PutUint16(buf[10:12], h.ModTime)
	binary.LittleEndian.PutUint16(buf[12:14], h.ModDate)
	binary.LittleEndian.PutUint32(buf[14:18], h.CRC32)
	binary.LittleEndian.PutUint32(buf[18:22], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[22:26], h.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(h.Name)))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.Extra)))

	copy(buf[LocalFixedLen:], h.Name)
	copy(buf[LocalFixedLen+len(h.Name):], h.Extra)

	return buf
}

// CentralDir is one central directory record. It carries every Local field
// plus the attributes and the offset of the corresponding local header.
type CentralDir struct {
	VersionMadeBy    uint16
	Version          uint16
	Flags            uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	DiskNumber       uint16
	InternalAttrs    uint16
	ExternalAttrs    uint32
	LocalOffset      uint32
	Name             string
	Extra            []byte
	Comment          []byte
}

// DecodeCentralDir decodes the central directory record at pos. The second
// return value is the total encoded size of the record, so callers can
// advance to the next record without re-deriving it.
func DecodeCentralDir(buf []byte, pos int) (CentralDir, int, error) {
	if pos < 0 || pos+CentralDirFixedLen > len(buf) {
		return CentralDir{}, 0, fmt.Errorf("%w: central directory record at %d exceeds buffer", ErrFormat, pos)
	}
	if sig := binary.LittleEndian.Uint32(buf[pos : pos+4]); sig != CentralDirSignature {
		return CentralDir{}, 0, fmt.Errorf("%w: bad central directory signature %#08x at %d", ErrFormat, sig, pos)
	}

	h := CentralDir{
		VersionMadeBy:    binary.LittleEndian.Uint16(buf[pos+4 : pos+6]),
		Version:          binary.LittleEndian.Uint16(buf[pos+6 : pos+8]),
		Flags:            binary.LittleEndian.Uint16(buf[pos+8 : pos+10]),
		Method:           binary.LittleEndian.Uint16(buf[pos+10 : pos+12]),
		ModTime:          binary.LittleEndian.Uint16(buf[pos+12 : pos+14]),
		ModDate:          binary.LittleEndian.Uint16(buf[pos+14 : pos+16]),
		CRC32:            binary.LittleEndian.Uint32(buf[pos+16 : pos+20]),
		CompressedSize:   binary.LittleEndian.Uint32(buf[pos+20 : pos+24]),
		UncompressedSize: binary.LittleEndian.Uint32(buf[pos+24 : pos+28]),
		DiskNumber:       binary.LittleEndian.Uint16(buf[pos+34 : pos+36]),
		InternalAttrs:    binary.LittleEndian.Uint16(buf[pos+36 : pos+38]),
		ExternalAttrs:    binary.LittleEndian.Uint32(buf[pos+38 : pos+42]),
		LocalOffset:      binary.LittleEndian.Uint32(buf[pos+42 : pos+46]),
	}

	nameLen := int(binary.LittleEndian.Uint16(buf[pos+28 : pos+30]))
	extraLen := int(binary.LittleEndian.Uint16(buf[pos+30 : pos+32]))
	commentLen := int(binary.LittleEndian.Uint16(buf[pos+32 : pos+34]))

	size := CentralDirFixedLen + nameLen + extraLen + commentLen
	if pos+size > len(buf) {
		return CentralDir{}, 0, fmt.Errorf("%w: central directory fields at %d exceed buffer", ErrFormat, pos)
	}

	cur := pos + CentralDirFixedLen
	h.Name = string(buf[cur : cur+nameLen])
	cur += nameLen
	if extraLen > 0 {
		h.Extra = buf[cur : cur+extraLen]
	}
	cur += extraLen
	if commentLen > 0 {
		h.Comment = buf[cur : cur+commentLen]
	}

	return h, size, nil
}

// Encode serializes the record. Variable-length field sizes are derived from
// the fields themselves.
func (h CentralDir) Encode() []byte {
	buf := make([]byte, CentralDirFixedLen+len(h.Name)+len(h.Extra)+len(h.Comment))

	binary.LittleEndian.PutUint32(buf[0:4], CentralDirSignature)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionMadeBy)
	binary.LittleEndian.PutUint16(buf[6:8], h.Version)
	binary.LittleEndian.PutUint16(buf[8:10], h.Flags)
	binary.LittleEndian.PutUint16(buf[10:12], h.Method)
	binary.LittleEndian.PutUint16(buf[12:14], h.ModTime)
	binary.LittleEndian.PutUint16(buf[14:16], h.ModDate)
	binary.LittleEndian.PutUint32(buf[16:20], h.CRC32)
	binary.LittleEndian.PutUint32(buf[20:24], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[24:28], h.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.Name)))
	binary.LittleEndian.PutUint16(buf[30:32], uint16(len(h.Extra)))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(len(h.Comment)))
	binary.LittleEndian.PutUint16(buf[34:36], h.DiskNumber)
	binary.LittleEndian.PutUint16(buf[36:38], h.InternalAttrs)
	binary.LittleEndian.PutUint32(buf[38:42], h.ExternalAttrs)
	binary.LittleEndian.PutUint32(buf[42:46], h.LocalOffset)

	cur := CentralDirFixedLen
	cur += copy(buf[cur:], h.Name)
	cur += copy(buf[cur:], h.Extra)
	copy(buf[cur:], h.Comment)

	return buf
}

// EndOfCentralDir is the trailer record locating and sizing the central
// directory.
type EndOfCentralDir struct {
	DiskNumber  uint16
	CDDisk      uint16
	CountOnDisk uint16
	Count       uint16
	CDSize      uint32
	CDOffset    uint32
	Comment     []byte
}

// DecodeEndOfCentralDir decodes the end of central directory record at pos.
func DecodeEndOfCentralDir(buf []byte, pos int) (EndOfCentralDir, error) {
	if pos < 0 || pos+EndOfCentralDirFixedLen > len(buf) {
		return EndOfCentralDir{}, fmt.Errorf("%w: end of central directory at %d exceeds buffer", ErrFormat, pos)
	}
	if sig := binary.LittleEndian.Uint32(buf[pos : pos+4]); sig != EndOfCentralDirSignature {
		return EndOfCentralDir{}, fmt.Errorf("%w: bad end of central directory signature %#08x at %d", ErrFormat, sig, pos)
	}

	h := EndOfCentralDir{
		DiskNumber:  binary.LittleEndian.Uint16(buf[pos+4 : pos+6]),
		CDDisk:      binary.LittleEndian.Uint16(buf[pos+6 : pos+8]),
		CountOnDisk: binary.LittleEndian.Uint16(buf[pos+8 : pos+10]),
		Count:       binary.LittleEndian.Uint16(buf[pos+10 : pos+12]),
		CDSize:      binary.LittleEndian.Uint32(buf[pos+12 : pos+16]),
		CDOffset:    binary.LittleEndian.Uint32(buf[pos+16 : pos+20]),
	}

	commentLen := int(binary.LittleEndian.Uint16(buf[pos+20 : pos+22]))
	end := pos + EndOfCentralDirFixedLen + commentLen
	if end > len(buf) {
		return EndOfCentralDir{}, fmt.Errorf("%w: end of central directory comment at %d exceeds buffer", ErrFormat, pos)
	}
	if commentLen > 0 {
		h.Comment = buf[pos+EndOfCentralDirFixedLen : end]
	}

	return h, nil
}

// Encode serializes the record. Comments longer than MaxFieldLen are
// truncated to fit the uint16 length field.
func (h EndOfCentralDir) Encode() []byte {
	comment := h.Comment
	if len(comment) > MaxFieldLen {
		comment = comment[:MaxFieldLen]
	}
	buf := make([]byte, EndOfCentralDirFixedLen+len(comment))

	binary.LittleEndian.PutUint32(buf[0:4], EndOfCentralDirSignature)
	binary.LittleEndian.PutUint16(buf[4:6], h.DiskNumber)
	binary.LittleEndian.PutUint16(buf[6:8], h.CDDisk)
	binary.LittleEndian.PutUint16(buf[8:10], h.CountOnDisk)
	binary.LittleEndian.PutUint16(buf[10:12], h.Count)
	binary.LittleEndian.PutUint32(buf[12:16], h.CDSize)
	binary.LittleEndian.PutUint32(buf[16:20], h.CDOffset)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(len(comment)))

	copy(buf[EndOfCentralDirFixedLen:], comment)

	return buf
}

// FindEndOfCentralDir scans backward for the end of central directory
// signature, starting at len(buf)-22 and stopping after maxScan bytes
// (MaxScanLen when maxScan <= 0, the record plus the largest legal comment).
// The first signature found scanning from the end wins.
//
// A comment that itself contains the signature bytes and sits after the true
// record can hijack the scan. That ambiguity is inherent to the format; no
// heuristic disambiguation is attempted.
func FindEndOfCentralDir(buf []byte, maxScan int) (int, error) {
	if maxScan <= 0 || maxScan > len(buf) {
		maxScan = min(MaxScanLen, len(buf))
	}

	lowest := len(buf) - maxScan
	for pos := len(buf) - EndOfCentralDirFixedLen; pos >= lowest && pos >= 0; pos-- {
		if binary.LittleEndian.Uint32(buf[pos:pos+4]) == EndOfCentralDirSignature {
			return pos, nil
		}
	}
	return 0, fmt.Errorf("%w: no end of central directory record", ErrFormat)
}
