package zipfile

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// Method identifies the compression method recorded for an entry.
type Method uint16

// Methods this codec understands. Other values round-trip through parse and
// serialize untouched, but their content cannot be read or produced.
const (
	Store   Method = 0 // content stored byte-identical
	Deflate Method = 8 // standard ZIP compression
)

// String returns the human-readable name of the method.
func (m Method) String() string {
	switch m {
	case Store:
		return "store"
	case Deflate:
		return "deflate"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(m))
	}
}

// Compressor produces DEFLATE-compressed bytes from raw content.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor recovers raw content from DEFLATE-compressed bytes.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// DeflateCompressor is a reusable Compressor with pooled writers.
type DeflateCompressor struct {
	pool sync.Pool
}

// NewDeflateCompressor creates a compressor for the given flate level.
func NewDeflateCompressor(level int) *DeflateCompressor {
	return &DeflateCompressor{
		pool: sync.Pool{
			New: func() any {
				w, _ := flate.NewWriter(io.Discard, level)
				return w
			},
		},
	}
}

// Compress implements Compressor.
func (c *DeflateCompressor) Compress(data []byte) ([]byte, error) {
	w := c.pool.Get().(*flate.Writer)
	defer c.pool.Put(w)

	var buf bytes.Buffer
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return buf.Bytes(), nil
}

// DeflateDecompressor is the default Decompressor.
type DeflateDecompressor struct{}

// Decompress implements Decompressor.
func (DeflateDecompressor) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return blob, nil
}
