package zipfile

import (
	"fmt"
	"hash/crc32"
	"time"

	"github.com/meigma/zipfile/internal/blobcache"
	"github.com/meigma/zipfile/internal/dostime"
	"github.com/meigma/zipfile/internal/header"
)

// Headers written by this codec declare version 2.0 and empty flags: no
// encryption, no data descriptor.
const headerVersion = 20

// Entry is one archive member: its content as stored (compressed when the
// method is not Store) plus the metadata carried in its headers.
//
// Entries are created through [Archive.Set], [Parse], or
// [Archive.Compress]; the zero value is not usable.
type Entry struct {
	// Modified is the entry's modification timestamp. DOS time resolution
	// is two seconds; serialization rounds down.
	Modified time.Time

	// Extra and Comment are raw header blobs, passed through unmodified.
	Extra   []byte
	Comment []byte

	// InternalAttrs and ExternalAttrs are opaque attribute bitfields,
	// passed through unmodified.
	InternalAttrs uint16
	ExternalAttrs uint32

	data   []byte
	method Method
	crc    uint32
	size   uint64
	cache  *blobcache.Cache
	dec    Decompressor
}

// Method returns the entry's compression method.
func (e *Entry) Method() Method {
	return e.method
}

// IsCompressed reports whether the stored content is compressed.
func (e *Entry) IsCompressed() bool {
	return e.method != Store
}

// CRC32 returns the declared checksum of the decompressed content.
func (e *Entry) CRC32() uint32 {
	return e.crc
}

// Size returns the decompressed content length. Lengths beyond the uint32
// header fields are representable here but rejected at serialization,
// since they need zip64.
func (e *Entry) Size() uint64 {
	return e.size
}

// CompressedSize returns the stored content length. It is derived from the
// backing bytes, never tracked separately, so it cannot drift.
func (e *Entry) CompressedSize() uint64 {
	return uint64(len(e.data))
}

// Blob returns the entry's decompressed content.
//
// For Store entries the backing bytes are returned directly without
// copying; callers must treat them as immutable. For Deflate entries the
// content is decompressed on first use and memoized per backing buffer:
// concurrent calls share a single decompression. Other methods return
// ErrMethod.
func (e *Entry) Blob() ([]byte, error) {
	switch e.method {
	case Store:
		return e.data, nil
	case Deflate:
		return e.cache.Get(func() ([]byte, error) {
			return e.dec.Decompress(e.data)
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrMethod, e.method)
	}
}

// Verify checks the decompressed content against the declared CRC-32 and
// returns ErrChecksum on mismatch.
func (e *Entry) Verify() error {
	blob, err := e.Blob()
	if err != nil {
		return err
	}
	if sum := crc32.ChecksumIEEE(blob); sum != e.crc {
		return fmt.Errorf("%w: computed %#08x, declared %#08x", ErrChecksum, sum, e.crc)
	}
	return nil
}

// local builds the entry's local file header. The entry does not know its
// own position in a serialized stream, so no offset appears here.
func (e *Entry) local(name string) header.Local {
	date, tm := dostime.ToDOS(e.Modified)
	return header.Local{
		Version:          headerVersion,
		Method:           uint16(e.method),
		ModTime:          tm,
		ModDate:          date,
		CRC32:            e.crc,
		CompressedSize:   uint32(len(e.data)),
		UncompressedSize: uint32(e.size),
		Name:             name,
		Extra:            e.Extra,
	}
}

// centralDir builds the entry's central directory record. localOffset is
// supplied by the Archive once the local header's position is known.
func (e *Entry) centralDir(name string, localOffset uint32) header.CentralDir {
	date, tm := dostime.ToDOS(e.Modified)
	return header.CentralDir{
		VersionMadeBy:    headerVersion,
		Version:          headerVersion,
		Method:           uint16(e.method),
		ModTime:          tm,
		ModDate:          date,
		CRC32:            e.crc,
		CompressedSize:   uint32(len(e.data)),
		UncompressedSize: uint32(e.size),
		InternalAttrs:    e.InternalAttrs,
		ExternalAttrs:    e.ExternalAttrs,
		LocalOffset:      localOffset,
		Name:             name,
		Extra:            e.Extra,
		Comment:          e.Comment,
	}
}
