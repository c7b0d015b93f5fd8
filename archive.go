package zipfile

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"iter"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/meigma/zipfile/internal/blobcache"
	"github.com/meigma/zipfile/internal/dostime"
	"github.com/meigma/zipfile/internal/header"
)

// Encryption is signalled by bit 0 of the general purpose flags.
const flagEncrypted = 0x0001

// Archive is an in-memory ZIP container: an index from archive-relative
// path to [Entry], plus directory markers and the archive comment.
//
// Insertion order is preserved and determines serialization order. The
// index is not safe for concurrent mutation; concurrent reads (Get, Has,
// iteration, Entry.Blob) are safe while no writer is active.
type Archive struct {
	entries map[string]*Entry
	order   []string
	dirs    map[string]time.Time
	comment []byte

	compressor   Compressor
	decompressor Decompressor
	maxScanBytes int
	logger       *slog.Logger
}

// New creates an empty archive.
func New(opts ...Option) *Archive {
	a := &Archive{
		entries: make(map[string]*Entry),
		dirs:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.compressor == nil {
		a.compressor = NewDeflateCompressor(flate.DefaultCompression)
	}
	if a.decompressor == nil {
		a.decompressor = DeflateDecompressor{}
	}
	return a
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Parse builds an Archive from a complete ZIP byte stream.
//
// Entries reference sub-slices of data rather than copies; callers must not
// modify data while the archive or any content returned from it is in use.
// The central directory's metadata is authoritative; each local header is
// consulted only to locate its data payload, since its own copies of the
// size and checksum fields may legally be zeroed by streaming writers.
func Parse(data []byte, opts ...Option) (*Archive, error) {
	a := New(opts...)

	endPos, err := header.FindEndOfCentralDir(data, a.maxScanBytes)
	if err != nil {
		return nil, err
	}
	end, err := header.DecodeEndOfCentralDir(data, endPos)
	if err != nil {
		return nil, err
	}

	if end.DiskNumber != 0 || end.CDDisk != 0 || end.CountOnDisk != end.Count {
		return nil, fmt.Errorf("%w: multi-disk archive", ErrUnsupported)
	}
	if end.Count == header.MaxFieldLen || end.CDSize == math.MaxUint32 || end.CDOffset == math.MaxUint32 {
		return nil, fmt.Errorf("%w: zip64 archive", ErrUnsupported)
	}

	cdStart := int(end.CDOffset)
	cdEnd := cdStart + int(end.CDSize)
	if cdEnd > len(data) {
		return nil, fmt.Errorf("%w: central directory [%d, %d) exceeds buffer", ErrFormat, cdStart, cdEnd)
	}

	cur := cdStart
	for i := 0; i < int(end.Count); i++ {
		if cur >= cdEnd {
			return nil, fmt.Errorf("%w: central directory holds %d of %d declared records", ErrFormat, i, end.Count)
		}
		rec, size, err := header.DecodeCentralDir(data, cur)
		if err != nil {
			return nil, err
		}
		if cur+size > cdEnd {
			return nil, fmt.Errorf("%w: central directory record at %d crosses region end %d", ErrFormat, cur, cdEnd)
		}
		cur += size

		if err := a.addParsed(data, rec); err != nil {
			return nil, err
		}
	}
	if cur != cdEnd {
		return nil, fmt.Errorf("%w: central directory length %d does not match records (%d consumed)", ErrFormat, end.CDSize, cur-cdStart)
	}

	a.comment = end.Comment
	a.log().Debug("parsed archive",
		"entries", len(a.entries),
		"dirs", len(a.dirs),
		"size", len(data))
	return a, nil
}

// addParsed indexes one central directory record, resolving its data slice
// through the referenced local header.
func (a *Archive) addParsed(data []byte, rec header.CentralDir) error {
	if rec.Name == "" {
		return fmt.Errorf("%w: central directory record with empty name", ErrFormat)
	}
	if rec.Flags&flagEncrypted != 0 {
		return fmt.Errorf("%w: encrypted entry %q", ErrUnsupported, rec.Name)
	}
	if rec.DiskNumber != 0 {
		return fmt.Errorf("%w: entry %q starts on disk %d", ErrUnsupported, rec.Name, rec.DiskNumber)
	}

	// Directory markers carry no content and no backing entry.
	if strings.HasSuffix(rec.Name, "/") {
		a.putDir(rec.Name)
		return nil
	}

	local, err := header.DecodeLocal(data, int(rec.LocalOffset))
	if err != nil {
		return err
	}
	if local.Name != rec.Name {
		return fmt.Errorf("%w: local header at %d names %q, central directory names %q",
			ErrFormat, rec.LocalOffset, local.Name, rec.Name)
	}

	dataEnd := local.DataOffset + int(rec.CompressedSize)
	if dataEnd > len(data) {
		return fmt.Errorf("%w: data for %q [%d, %d) exceeds buffer", ErrFormat, rec.Name, local.DataOffset, dataEnd)
	}

	a.put(rec.Name, &Entry{
		Modified:      dostime.FromDOS(rec.ModDate, rec.ModTime),
		Extra:         rec.Extra,
		Comment:       rec.Comment,
		InternalAttrs: rec.InternalAttrs,
		ExternalAttrs: rec.ExternalAttrs,
		data:          data[local.DataOffset:dataEnd],
		method:        Method(rec.Method),
		crc:           rec.CRC32,
		size:          uint64(rec.UncompressedSize),
		cache:         blobcache.New(),
		dec:           a.decompressor,
	})
	return nil
}

// Bytes serializes the archive: every entry's local header and data in
// insertion order, then one central directory record per entry carrying its
// recorded local header offset, then the end of central directory record.
func (a *Archive) Bytes() ([]byte, error) {
	// The entry count 0xFFFF is the ZIP64 marker value, so the last count
	// this codec can write is 65534.
	if len(a.order) >= header.MaxFieldLen {
		return nil, fmt.Errorf("%w: %d entries need zip64", ErrUnsupported, len(a.order))
	}
	if len(a.comment) > header.MaxFieldLen {
		return nil, fmt.Errorf("%w: archive comment of %d bytes", ErrUnsupported, len(a.comment))
	}

	entries := make([]*Entry, len(a.order))
	for i, name := range a.order {
		e, err := a.serializable(name)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}

	var buf bytes.Buffer
	offsets := make([]uint32, len(a.order))

	for i, name := range a.order {
		if uint64(buf.Len()) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: archive of %d bytes needs zip64", ErrUnsupported, buf.Len())
		}
		offsets[i] = uint32(buf.Len())
		buf.Write(entries[i].local(name).Encode())
		buf.Write(entries[i].data)
	}

	cdStart := buf.Len()
	for i, name := range a.order {
		buf.Write(entries[i].centralDir(name, offsets[i]).Encode())
	}
	// cdStart and the directory size both fit once the whole stream does.
	if uint64(buf.Len()) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: archive of %d bytes needs zip64", ErrUnsupported, buf.Len())
	}

	buf.Write(header.EndOfCentralDir{
		Count:       uint16(len(a.order)),
		CountOnDisk: uint16(len(a.order)),
		CDSize:      uint32(buf.Len() - cdStart),
		CDOffset:    uint32(cdStart),
		Comment:     a.comment,
	}.Encode())

	a.log().Debug("serialized archive",
		"entries", len(a.entries),
		"dirs", len(a.dirs),
		"size", buf.Len())
	return buf.Bytes(), nil
}

// serializable resolves name to the entry to serialize, synthesizing an
// empty entry for directory markers.
func (a *Archive) serializable(name string) (*Entry, error) {
	if e, ok := a.entries[name]; ok {
		if len(name) > header.MaxFieldLen {
			return nil, fmt.Errorf("%w: entry name of %d bytes", ErrUnsupported, len(name))
		}
		if len(e.Extra) > header.MaxFieldLen || len(e.Comment) > header.MaxFieldLen {
			return nil, fmt.Errorf("%w: header fields for %q exceed 65535 bytes", ErrUnsupported, name)
		}
		if uint64(len(e.data)) > math.MaxUint32 || e.size > math.MaxUint32 {
			return nil, fmt.Errorf("%w: entry %q needs zip64", ErrUnsupported, name)
		}
		return e, nil
	}
	if stamp, ok := a.dirs[name]; ok {
		return &Entry{Modified: stamp}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Has reports whether a content entry exists for name.
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// Get returns the entry for name, or nil when absent. Directory markers
// have no entry.
func (a *Archive) Get(name string) *Entry {
	return a.entries[name]
}

// Set inserts or overwrites the entry for name with fresh uncompressed
// content. The checksum and size are computed from content; the timestamp
// is the current time. The new entry is returned.
//
// The archive does not validate or normalize name; see NormalizePath.
func (a *Archive) Set(name string, content []byte) *Entry {
	e := &Entry{
		Modified: time.Now(),
		data:     content,
		method:   Store,
		crc:      crc32.ChecksumIEEE(content),
		size:     uint64(len(content)),
		cache:    blobcache.New(),
		dec:      a.decompressor,
	}
	a.put(name, e)
	return e
}

// Copy adds to as a new index slot sharing from's backing bytes, metadata,
// and decompression memo. No content is duplicated; overwriting either name
// afterwards does not affect the other.
func (a *Archive) Copy(from, to string) error {
	src, ok := a.entries[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, from)
	}
	clone := *src
	a.put(to, &clone)
	return nil
}

// Move renames from to to, preserving the entry itself.
func (a *Archive) Move(from, to string) error {
	if err := a.Copy(from, to); err != nil {
		return err
	}
	if from != to {
		a.remove(from)
	}
	return nil
}

// Delete removes the entry or directory marker for name.
func (a *Archive) Delete(name string) error {
	_, isEntry := a.entries[name]
	_, isDir := a.dirs[name]
	if !isEntry && !isDir {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	a.remove(name)
	return nil
}

// Compress replaces name's entry with one holding DEFLATE-compressed
// backing bytes, and returns it. The checksum, size, and metadata carry
// over unchanged; compression never changes decompressed content. An
// already-compressed entry is returned as is.
func (a *Archive) Compress(name string) (*Entry, error) {
	src, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if src.IsCompressed() {
		return src, nil
	}

	compressed, err := a.compressor.Compress(src.data)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		Modified:      src.Modified,
		Extra:         src.Extra,
		Comment:       src.Comment,
		InternalAttrs: src.InternalAttrs,
		ExternalAttrs: src.ExternalAttrs,
		data:          compressed,
		method:        Deflate,
		crc:           src.crc,
		size:          src.size,
		cache:         blobcache.New(),
		dec:           a.decompressor,
	}
	a.entries[name] = e
	a.log().Debug("compressed entry",
		"path", name,
		"size", src.size,
		"compressed", len(compressed))
	return e, nil
}

// Len returns the number of content entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Names returns the content entry names in insertion order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.entries))
	for _, name := range a.order {
		if _, ok := a.entries[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Dirs returns the directory marker names in insertion order.
func (a *Archive) Dirs() []string {
	dirs := make([]string, 0, len(a.dirs))
	for _, name := range a.order {
		if _, ok := a.dirs[name]; ok {
			dirs = append(dirs, name)
		}
	}
	return dirs
}

// Entries returns an iterator over content entries in insertion order.
func (a *Archive) Entries() iter.Seq2[string, *Entry] {
	return func(yield func(string, *Entry) bool) {
		for _, name := range a.order {
			e, ok := a.entries[name]
			if !ok {
				continue
			}
			if !yield(name, e) {
				return
			}
		}
	}
}

// Comment returns the archive comment.
func (a *Archive) Comment() []byte {
	return a.comment
}

// SetComment replaces the archive comment. It is stored and serialized
// opaquely.
func (a *Archive) SetComment(comment []byte) {
	a.comment = comment
}

// put indexes a content entry, displacing any directory marker of the same
// name and preserving the slot of an overwritten entry.
func (a *Archive) put(name string, e *Entry) {
	_, hadEntry := a.entries[name]
	_, hadDir := a.dirs[name]
	delete(a.dirs, name)
	a.entries[name] = e
	if !hadEntry && !hadDir {
		a.order = append(a.order, name)
	}
}

// putDir records a directory marker unless the name is already indexed.
// The stamp taken here is what the marker's headers carry on serialization.
func (a *Archive) putDir(name string) {
	if _, ok := a.entries[name]; ok {
		return
	}
	if _, ok := a.dirs[name]; ok {
		return
	}
	a.dirs[name] = time.Now()
	a.order = append(a.order, name)
}

// remove drops name from the index and the order.
func (a *Archive) remove(name string) {
	delete(a.entries, name)
	delete(a.dirs, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}
