package header

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoundTrip(t *testing.T) {
	t.Parallel()

	in := Local{
		Version:          20,
		Method:           8,
		ModTime:          0x7A3C,
		ModDate:          0x5B41,
		CRC32:            0xDEADBEEF,
		CompressedSize:   42,
		UncompressedSize: 100,
		Name:             "dir/file.txt",
		Extra:            []byte{0x01, 0x02, 0x03, 0x04},
	}

	encoded := in.Encode()
	require.Len(t, encoded, LocalFixedLen+len(in.Name)+len(in.Extra))
	assert.Equal(t, []byte{0x50, 0x4B, 0x03, 0x04}, encoded[:4])

	out, err := DecodeLocal(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Extra, out.Extra)
	assert.Equal(t, in.CRC32, out.CRC32)
	assert.Equal(t, in.CompressedSize, out.CompressedSize)
	assert.Equal(t, in.UncompressedSize, out.UncompressedSize)
	assert.Equal(t, in.Method, out.Method)
	assert.Equal(t, len(encoded), out.DataOffset)
}

func TestDecodeLocalAtOffset(t *testing.T) {
	t.Parallel()

	h := Local{Version: 20, Name: "a.txt"}
	buf := append(bytes.Repeat([]byte{0xFF}, 17), h.Encode()...)

	out, err := DecodeLocal(buf, 17)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", out.Name)
	assert.Equal(t, len(buf), out.DataOffset)
}

func TestDecodeLocalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		buf  []byte
		pos  int
	}{
		{"empty buffer", nil, 0},
		{"truncated fixed prefix", make([]byte, LocalFixedLen-1), 0},
		{"position past end", make([]byte, LocalFixedLen), 10},
		{"bad signature", make([]byte, LocalFixedLen), 0},
		{"name runs past buffer", func() []byte {
			b := Local{Name: "abc"}.Encode()
			return b[:len(b)-2]
		}(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeLocal(tt.buf, tt.pos)
			require.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestCentralDirRoundTrip(t *testing.T) {
	t.Parallel()

	in := CentralDir{
		VersionMadeBy:    20,
		Version:          20,
		Method:           8,
		ModTime:          0x7A3C,
		ModDate:          0x5B41,
		CRC32:            0xCAFEF00D,
		CompressedSize:   42,
		UncompressedSize: 100,
		InternalAttrs:    1,
		ExternalAttrs:    0x81A40000,
		LocalOffset:      1234,
		Name:             "dir/file.txt",
		Extra:            []byte{0x09, 0x08},
		Comment:          []byte("per-entry comment"),
	}

	encoded := in.Encode()
	require.Len(t, encoded, CentralDirFixedLen+len(in.Name)+len(in.Extra)+len(in.Comment))

	out, size, err := DecodeCentralDir(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), size)
	assert.Equal(t, in, out)
}

func TestDecodeCentralDirAdvancesSequentially(t *testing.T) {
	t.Parallel()

	first := CentralDir{Name: "a.txt", LocalOffset: 0}
	second := CentralDir{Name: "b/c.bin", LocalOffset: 99, Comment: []byte("x")}
	buf := append(first.Encode(), second.Encode()...)

	out1, size1, err := DecodeCentralDir(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", out1.Name)

	out2, size2, err := DecodeCentralDir(buf, size1)
	require.NoError(t, err)
	assert.Equal(t, "b/c.bin", out2.Name)
	assert.Equal(t, len(buf), size1+size2)
}

func TestDecodeCentralDirBadSignature(t *testing.T) {
	t.Parallel()

	// A local header where a central directory record is expected.
	buf := Local{Name: "a"}.Encode()
	_, _, err := DecodeCentralDir(buf, 0)
	require.ErrorIs(t, err, ErrFormat)
}

func TestEndOfCentralDirRoundTrip(t *testing.T) {
	t.Parallel()

	in := EndOfCentralDir{
		Count:       3,
		CountOnDisk: 3,
		CDSize:      150,
		CDOffset:    2048,
		Comment:     []byte("archive comment"),
	}

	encoded := in.Encode()
	require.Len(t, encoded, EndOfCentralDirFixedLen+len(in.Comment))

	out, err := DecodeEndOfCentralDir(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEndOfCentralDirTruncatedComment(t *testing.T) {
	t.Parallel()

	encoded := EndOfCentralDir{Comment: []byte("hello")}.Encode()
	_, err := DecodeEndOfCentralDir(encoded[:len(encoded)-1], 0)
	require.ErrorIs(t, err, ErrFormat)
}

func TestFindEndOfCentralDir(t *testing.T) {
	t.Parallel()

	record := EndOfCentralDir{Count: 1, CountOnDisk: 1}.Encode()

	t.Run("at end of buffer", func(t *testing.T) {
		t.Parallel()
		buf := append(bytes.Repeat([]byte{0x00}, 64), record...)
		pos, err := FindEndOfCentralDir(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, 64, pos)
	})

	t.Run("signature closest to the end wins", func(t *testing.T) {
		t.Parallel()
		// Two candidate signatures; the scan runs backward, so the later
		// one is found first.
		buf := append(append([]byte{}, record...), record...)
		pos, err := FindEndOfCentralDir(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, len(record), pos)
	})

	t.Run("no signature", func(t *testing.T) {
		t.Parallel()
		_, err := FindEndOfCentralDir(bytes.Repeat([]byte{0xAB}, 100), 0)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("buffer smaller than the record", func(t *testing.T) {
		t.Parallel()
		_, err := FindEndOfCentralDir([]byte{0x50, 0x4B}, 0)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("scan bound excludes distant signature", func(t *testing.T) {
		t.Parallel()
		buf := append(append([]byte{}, record...), bytes.Repeat([]byte{0x00}, 128)...)
		_, err := FindEndOfCentralDir(buf, 64)
		require.ErrorIs(t, err, ErrFormat)
	})
}

func TestSignatureBytesLittleEndian(t *testing.T) {
	t.Parallel()

	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], LocalSignature)
	assert.Equal(t, []byte{0x50, 0x4B, 0x03, 0x04}, b[:])
	binary.LittleEndian.PutUint32(b[:], CentralDirSignature)
	assert.Equal(t, []byte{0x50, 0x4B, 0x01, 0x02}, b[:])
	binary.LittleEndian.PutUint32(b[:], EndOfCentralDirSignature)
	assert.Equal(t, []byte{0x50, 0x4B, 0x05, 0x06}, b[:])
}
