package zipfile

import (
	"errors"

	"github.com/meigma/zipfile/internal/header"
)

// ErrFormat is returned when the input is not a well-formed ZIP byte
// stream: missing end of central directory record, record count mismatch,
// unexpected signature, or a field running past the buffer.
var ErrFormat = header.ErrFormat

var (
	// ErrUnsupported is returned for well-formed archives using features
	// outside this codec's scope: ZIP64, multi-disk, encryption.
	ErrUnsupported = errors.New("zipfile: unsupported feature")

	// ErrNotFound is returned when an operation references an absent
	// archive path.
	ErrNotFound = errors.New("zipfile: entry not found")

	// ErrMethod is returned when content is requested from an entry whose
	// compression method is neither Store nor Deflate.
	ErrMethod = errors.New("zipfile: unsupported compression method")

	// ErrChecksum is returned by Verify when decompressed content does not
	// match the entry's declared CRC-32.
	ErrChecksum = errors.New("zipfile: checksum mismatch")
)
