// Package zipfile reads and writes ZIP containers held entirely in memory.
//
// An [Archive] maps archive-relative paths to entries. [Parse] builds an
// Archive from a complete ZIP byte stream; [Archive.Bytes] serializes one
// back out. Entry content is held as stored: parsing never decompresses,
// and entries reference sub-slices of the parse input rather than copies.
// Decompression happens lazily on [Entry.Blob] and is memoized per backing
// buffer, deduplicating concurrent callers.
//
// The DEFLATE codec is a collaborator behind the [Compressor] and
// [Decompressor] interfaces; defaults backed by klauspost/compress are
// used unless overridden.
//
// # Quick Start
//
// Build and serialize an archive:
//
//	a := zipfile.New()
//	a.Set("hello.txt", []byte("hi"))
//	if _, err := a.Compress("hello.txt"); err != nil {
//	    return err
//	}
//	data, err := a.Bytes()
//
// Parse and read one back:
//
//	a, err := zipfile.Parse(data)
//	if err != nil {
//	    return err
//	}
//	content, err := a.Get("hello.txt").Blob()
//
// # Scope
//
// Multi-disk archives, ZIP64, encryption, and data-descriptor trailers are
// out of scope. Parsing surfaces their markers as [ErrUnsupported] rather
// than guessing; unrecognized extra fields and comments are passed through
// opaquely.
package zipfile
